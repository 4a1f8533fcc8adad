package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"hubsync.dev/hubsync/internal/git"
	"hubsync.dev/hubsync/internal/mapping"
	"hubsync.dev/hubsync/internal/remote"
)

// Remote policies
const (
	PolicyToken    = "token"
	PolicyGitHub   = "github"
	PolicyTemplate = "template"
)

// OperatorSettings is the identity hubsync commits as
type OperatorSettings struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// RemoteSettings selects and configures the remote-resolution policy
type RemoteSettings struct {
	Policy   string `yaml:"policy"`
	Host     string `yaml:"host,omitempty"`
	Token    string `yaml:"token,omitempty"`
	Template string `yaml:"template,omitempty"`
}

// Settings holds everything a hub engine needs from the environment
type Settings struct {
	Hub         string           `yaml:"hub"`
	WorkDir     string           `yaml:"workdir"`
	MappingPath string           `yaml:"mappingPath,omitempty"`
	Operator    OperatorSettings `yaml:"operator"`
	Remote      RemoteSettings   `yaml:"remote"`
	LogFile     string           `yaml:"logFile,omitempty"`
}

// Default returns settings with every optional field filled in
func Default() Settings {
	s := Settings{
		MappingPath: mapping.DefaultPath,
		Operator:    OperatorSettings{Name: "hubsync", Email: "hubsync@users.noreply.github.com"},
		Remote:      RemoteSettings{Policy: PolicyToken, Host: remote.DefaultHost},
	}
	if home, err := os.UserHomeDir(); err == nil {
		s.WorkDir = filepath.Join(home, ".hubsync", "repos")
		s.LogFile = filepath.Join(home, ".hubsync", "logs", "hubsync.log")
	}
	return s
}

// DefaultPath returns ~/.hubsync/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "hubsync.yaml"
	}
	return filepath.Join(home, ".hubsync", "config.yaml")
}

// Load reads settings from path on top of Default. A missing file is not an
// error when allowMissing is set.
func Load(path string, allowMissing bool) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && allowMissing {
			return s, nil
		}
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	return s, nil
}

// ApplyEnv overrides settings from environment variables
func (s *Settings) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&s.Hub, "HUBSYNC_HUB")
	set(&s.WorkDir, "HUBSYNC_WORKDIR")
	set(&s.MappingPath, "HUBSYNC_MAPPING_PATH")
	set(&s.Operator.Name, "HUBSYNC_OPERATOR_NAME")
	set(&s.Operator.Email, "HUBSYNC_OPERATOR_EMAIL")
	set(&s.Remote.Policy, "HUBSYNC_REMOTE_POLICY")
	set(&s.Remote.Host, "HUBSYNC_GITHUB_HOST")
	set(&s.Remote.Template, "HUBSYNC_REMOTE_TEMPLATE")
	set(&s.Remote.Token, "GITHUB_TOKEN")
	set(&s.Remote.Token, "HUBSYNC_TOKEN")
	set(&s.LogFile, "HUBSYNC_LOG_FILE")
}

// Validate checks that the settings can drive an engine
func (s Settings) Validate() error {
	if s.Hub == "" {
		return fmt.Errorf("no hub repository configured (set hub or HUBSYNC_HUB)")
	}
	if s.WorkDir == "" {
		return fmt.Errorf("no working-copy directory configured (set workdir or HUBSYNC_WORKDIR)")
	}
	if s.Operator.Name == "" || s.Operator.Email == "" {
		return fmt.Errorf("operator name and email are required")
	}
	switch s.Remote.Policy {
	case PolicyToken, PolicyGitHub:
	case PolicyTemplate:
		if s.Remote.Template == "" {
			return fmt.Errorf("remote policy %q requires a template", PolicyTemplate)
		}
	default:
		return fmt.Errorf("unknown remote policy %q", s.Remote.Policy)
	}
	return nil
}

// OperatorIdentity returns the identity commits are made as
func (s Settings) OperatorIdentity() git.Identity {
	return git.Identity{Name: s.Operator.Name, Email: s.Operator.Email}
}

// Resolver builds the configured remote-resolution policy
func (s Settings) Resolver(ctx context.Context) (remote.Resolver, error) {
	switch s.Remote.Policy {
	case PolicyGitHub:
		return remote.NewGitHubResolver(ctx, s.Remote.Host, s.Remote.Token)
	case PolicyTemplate:
		return remote.TemplateResolver{Template: s.Remote.Template}, nil
	case PolicyToken, "":
		return remote.TokenResolver{Host: s.Remote.Host, Token: s.Remote.Token}, nil
	default:
		return nil, fmt.Errorf("unknown remote policy %q", s.Remote.Policy)
	}
}
