// Package mapping resolves the directory-to-repository mapping stored in the
// hub repository.
//
// The mapping document is always read from a specific committed revision of
// the hub, never from a working copy, and is never cached: every operation
// sees the mapping in effect at the revision it works on.
package mapping

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	hubsyncerrors "hubsync.dev/hubsync/internal/errors"
)

// DefaultPath is where the mapping document lives in the hub
const DefaultPath = ".hubsync.json"

// Document is the mapping document as stored in the hub:
//
//	{"mapping": {"<repoName>": {"<hubPath>": "<repoPath>"}}}
type Document struct {
	Mapping map[string]map[string]string `json:"mapping"`
}

// Entry pairs a hub directory with a directory of a mapped repository.
// Both paths are normalized; the empty string is the repository root.
type Entry struct {
	HubPath  string
	RepoPath string
}

// RepoMapping is the ordered set of entries of one mapped repository,
// sorted by hub path
type RepoMapping []Entry

// HubPaths returns the hub side of every entry
func (m RepoMapping) HubPaths() []string {
	paths := make([]string, len(m))
	for i, e := range m {
		paths[i] = e.HubPath
	}
	return paths
}

// RepoPaths returns the repository side of every entry
func (m RepoMapping) RepoPaths() []string {
	paths := make([]string, len(m))
	for i, e := range m {
		paths[i] = e.RepoPath
	}
	return paths
}

// Config is the validated mapping of repository name to RepoMapping
type Config struct {
	Repos map[string]RepoMapping
}

// For returns the mapping of a repository and whether it has any entries
func (c *Config) For(repoName string) (RepoMapping, bool) {
	if c == nil {
		return nil, false
	}
	m, ok := c.Repos[repoName]
	return m, ok && len(m) > 0
}

// RepoNames returns every repository with a non-empty mapping, sorted
func (c *Config) RepoNames() []string {
	var names []string
	for name, m := range c.Repos {
		if len(m) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ParseDocument decodes a mapping document
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse mapping document: %w", err)
	}
	return &doc, nil
}

// NormalizePath strips leading and trailing separators
func NormalizePath(p string) string {
	return strings.Trim(p, "/")
}

// ValidateConfig checks a document and returns the normalized Config.
// A nil document (missing or unreadable) is invalid.
func ValidateConfig(doc *Document, revision string) (*Config, error) {
	if doc == nil {
		return nil, hubsyncerrors.NewConfigError(revision, "mapping document is missing or unreadable")
	}
	if doc.Mapping == nil {
		return nil, hubsyncerrors.NewConfigError(revision, "document has no \"mapping\" field")
	}

	cfg := &Config{Repos: make(map[string]RepoMapping, len(doc.Mapping))}
	for repoName, pairs := range doc.Mapping {
		if strings.TrimSpace(repoName) == "" {
			return nil, hubsyncerrors.NewConfigError(revision, "mapping contains an empty repository name")
		}

		seen := make(map[string]string, len(pairs))
		entries := make(RepoMapping, 0, len(pairs))
		for rawHub, rawRepo := range pairs {
			hubPath, err := cleanPath(rawHub)
			if err != nil {
				return nil, hubsyncerrors.NewConfigError(revision, "%s: hub path %q: %v", repoName, rawHub, err)
			}
			repoPath, err := cleanPath(rawRepo)
			if err != nil {
				return nil, hubsyncerrors.NewConfigError(revision, "%s: repository path %q: %v", repoName, rawRepo, err)
			}
			if prev, dup := seen[hubPath]; dup {
				return nil, hubsyncerrors.NewConfigError(revision, "%s: hub paths %q and %q are the same directory", repoName, prev, rawHub)
			}
			seen[hubPath] = rawHub
			entries = append(entries, Entry{HubPath: hubPath, RepoPath: repoPath})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].HubPath < entries[j].HubPath })
		cfg.Repos[repoName] = entries
	}
	return cfg, nil
}

// cleanPath normalizes p and rejects subpaths that cannot be translated
func cleanPath(p string) (string, error) {
	if strings.Contains(p, "\\") {
		return "", fmt.Errorf("backslashes are not supported")
	}
	p = NormalizePath(p)
	if p == "" {
		return "", nil
	}
	for _, segment := range strings.Split(p, "/") {
		switch segment {
		case "":
			return "", fmt.Errorf("empty path segment")
		case ".", "..":
			return "", fmt.Errorf("relative segment %q", segment)
		}
	}
	return p, nil
}
