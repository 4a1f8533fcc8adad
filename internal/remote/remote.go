// Package remote provides the policies that map a repository name to the URL
// its working copy is cloned from and pushed to.
package remote

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Resolver maps a repository name ("owner/name") to a remote URL
type Resolver interface {
	Resolve(ctx context.Context, repoName string) (string, error)
}

// ResolverFunc adapts a function to a Resolver
type ResolverFunc func(ctx context.Context, repoName string) (string, error)

// Resolve calls f
func (f ResolverFunc) Resolve(ctx context.Context, repoName string) (string, error) {
	return f(ctx, repoName)
}

// DefaultHost is the hosting provider used by the token policy
const DefaultHost = "github.com"

// TokenResolver builds token-authenticated HTTPS URLs against a single host.
// This is the default policy.
type TokenResolver struct {
	Host  string
	Token string
}

// Resolve returns https://x-access-token:<token>@<host>/<repoName>.git
func (r TokenResolver) Resolve(_ context.Context, repoName string) (string, error) {
	if err := checkName(repoName); err != nil {
		return "", err
	}
	host := r.Host
	if host == "" {
		host = DefaultHost
	}
	u := &url.URL{Scheme: "https", Host: host, Path: "/" + repoName + ".git"}
	if r.Token != "" {
		u.User = url.UserPassword("x-access-token", r.Token)
	}
	return u.String(), nil
}

// TemplateResolver substitutes the repository name into a URL template.
// "{repo}" expands to the full name, "{owner}" and "{name}" to its two
// halves, e.g. "git@github.com:{repo}.git" or "https://{owner}.example.com/{name}.git".
type TemplateResolver struct {
	Template string
}

// Resolve expands the template
func (r TemplateResolver) Resolve(_ context.Context, repoName string) (string, error) {
	if err := checkName(repoName); err != nil {
		return "", err
	}
	if !strings.Contains(r.Template, "{repo}") && !strings.Contains(r.Template, "{name}") {
		return "", fmt.Errorf("remote template %q has neither a {repo} nor a {name} placeholder", r.Template)
	}
	owner := Owner(repoName)
	name := strings.TrimPrefix(repoName, owner+"/")
	return strings.NewReplacer("{repo}", repoName, "{owner}", owner, "{name}", name).Replace(r.Template), nil
}

// Static resolves names from a fixed table
type Static map[string]string

// Resolve looks the name up
func (s Static) Resolve(_ context.Context, repoName string) (string, error) {
	u, ok := s[repoName]
	if !ok {
		return "", fmt.Errorf("no remote configured for %s", repoName)
	}
	return u, nil
}

// Owner returns the namespace that owns a repository, e.g. "octo" for "octo/repo"
func Owner(repoName string) string {
	if idx := strings.Index(repoName, "/"); idx >= 0 {
		return repoName[:idx]
	}
	return repoName
}

func checkName(repoName string) error {
	if repoName == "" || strings.HasPrefix(repoName, "/") || strings.HasSuffix(repoName, "/") ||
		strings.Contains(repoName, "..") {
		return fmt.Errorf("invalid repository name %q", repoName)
	}
	return nil
}
