package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// URLResolver maps a repository name to the URL it is cloned and pushed from
type URLResolver interface {
	Resolve(ctx context.Context, repoName string) (string, error)
}

// ClientFactory creates a Client for a working copy directory
type ClientFactory func(dir string) Client

// WorkingCopies manages the persistent local clone of each repository under
// one root directory. A clone is created on first use and refreshed, never
// deleted, afterwards.
type WorkingCopies struct {
	root      string
	resolver  URLResolver
	newClient ClientFactory
}

// NewWorkingCopies creates a WorkingCopies rooted at root
func NewWorkingCopies(root string, resolver URLResolver, newClient ClientFactory) *WorkingCopies {
	return &WorkingCopies{root: root, resolver: resolver, newClient: newClient}
}

var unsafeDirChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeName turns a repository name into a safe directory name
func SanitizeName(repoName string) string {
	name := strings.ReplaceAll(repoName, "/", "__")
	name = unsafeDirChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "_" + name
	}
	return name
}

// Path returns the working copy directory of a repository
func (w *WorkingCopies) Path(repoName string) string {
	return filepath.Join(w.root, SanitizeName(repoName))
}

// ResolveURL returns the remote URL of a repository
func (w *WorkingCopies) ResolveURL(ctx context.Context, repoName string) (string, error) {
	remoteURL, err := w.resolver.Resolve(ctx, repoName)
	if err != nil {
		return "", fmt.Errorf("failed to resolve remote for %s: %w", repoName, err)
	}
	return remoteURL, nil
}

// Refresh returns a Client for the repository's working copy, cloning it if
// needed, and resets it to the latest state of the default branch. It returns
// the default branch name.
func (w *WorkingCopies) Refresh(ctx context.Context, repoName string) (Client, string, error) {
	remoteURL, err := w.ResolveURL(ctx, repoName)
	if err != nil {
		return nil, "", err
	}

	dir := w.Path(repoName)
	client := w.newClient(dir)

	if _, statErr := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(statErr) {
		if err := client.Clone(ctx, remoteURL); err != nil {
			return nil, "", err
		}
	} else {
		if err := client.AddRemote(ctx, DefaultRemote, remoteURL); err != nil {
			return nil, "", err
		}
		if _, err := client.Fetch(ctx, DefaultRemote, ""); err != nil {
			return nil, "", err
		}
	}

	branch, err := client.DefaultBranch(ctx)
	if err != nil {
		return nil, "", err
	}

	// A previous call may have left a squash merge or applied patch behind
	if err := client.ResetHard(ctx, ""); err != nil {
		return nil, "", err
	}
	if err := client.CreateBranch(ctx, branch, DefaultRemote+"/"+branch); err != nil {
		return nil, "", err
	}
	if err := client.Clean(ctx); err != nil {
		return nil, "", err
	}
	return client, branch, nil
}
