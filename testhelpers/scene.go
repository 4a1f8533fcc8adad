package testhelpers

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"hubsync.dev/hubsync/internal/remote"
)

// Scene is a set of bare remote repositories in a temporary directory, plus
// a working-copy directory for the engine under test.
type Scene struct {
	Dir     string
	WorkDir string

	t       *testing.T
	remotes remote.Static
}

// NewScene creates an empty scene that is removed when the test finishes.
func NewScene(t *testing.T) *Scene {
	t.Helper()
	dir := t.TempDir()
	workDir := filepath.Join(dir, "work")
	if err := os.MkdirAll(workDir, 0750); err != nil {
		t.Fatalf("Failed to create work dir: %v", err)
	}
	return &Scene{
		Dir:     dir,
		WorkDir: workDir,
		t:       t,
		remotes: remote.Static{},
	}
}

// Resolver resolves repository names to the scene's bare repositories.
func (s *Scene) Resolver() remote.Static {
	return s.remotes
}

// RemotePath returns the bare repository backing name.
func (s *Scene) RemotePath(name string) string {
	return s.remotes[name]
}

// CreateRemote creates a bare repository called name whose main branch holds
// files in a single commit.
func (s *Scene) CreateRemote(name string, files map[string]string) {
	s.t.Helper()
	barePath := s.barePath(name)
	if err := os.MkdirAll(filepath.Dir(barePath), 0750); err != nil {
		s.t.Fatalf("Failed to create remote dir: %v", err)
	}
	if _, err := NewBareRepo(barePath); err != nil {
		s.t.Fatalf("Failed to create remote %s: %v", name, err)
	}
	s.remotes[name] = barePath

	seed := s.Clone(name)
	if err := seed.WriteFiles(files); err != nil {
		s.t.Fatalf("Failed to seed %s: %v", name, err)
	}
	if err := seed.CommitAll("Initial commit"); err != nil {
		s.t.Fatalf("Failed to seed %s: %v", name, err)
	}
	if err := seed.Push("main"); err != nil {
		s.t.Fatalf("Failed to seed %s: %v", name, err)
	}
}

// Fork creates the remote fork as a bare copy of the remote name, sharing its
// history.
func (s *Scene) Fork(name, fork string) {
	s.t.Helper()
	barePath := s.barePath(fork)
	if err := os.MkdirAll(filepath.Dir(barePath), 0750); err != nil {
		s.t.Fatalf("Failed to create fork dir: %v", err)
	}
	parent := &GitRepo{Dir: s.Dir}
	if err := parent.RunGitCommand("clone", "--bare", s.remotes[name], barePath); err != nil {
		s.t.Fatalf("Failed to fork %s: %v", name, err)
	}
	s.remotes[fork] = barePath
}

// RemoteTemplate returns a URL template, with a {repo} placeholder, that
// resolves every remote of the scene.
func (s *Scene) RemoteTemplate() string {
	return filepath.Join(s.Dir, "remotes") + "/{repo}.git"
}

func (s *Scene) barePath(name string) string {
	return filepath.Join(s.Dir, "remotes", filepath.FromSlash(name)+".git")
}

// Clone returns a fresh clone of the remote name, checked out on main.
func (s *Scene) Clone(name string) *GitRepo {
	s.t.Helper()
	barePath, ok := s.remotes[name]
	if !ok {
		s.t.Fatalf("Unknown remote %s", name)
	}
	dir, err := os.MkdirTemp(s.Dir, "clone-*")
	if err != nil {
		s.t.Fatalf("Failed to create clone dir: %v", err)
	}
	repo, err := CloneGitRepo(dir, barePath)
	if err != nil {
		s.t.Fatalf("Failed to clone %s: %v", name, err)
	}
	// A clone of an empty repository has an unborn HEAD
	args := []string{"checkout", "-B", "main", "origin/main"}
	if _, err := repo.SHA("HEAD"); err != nil {
		args = []string{"symbolic-ref", "HEAD", "refs/heads/main"}
	}
	if err := repo.RunGitCommand(args...); err != nil {
		s.t.Fatalf("Failed to check out main in %s: %v", name, err)
	}
	return repo
}

// RejectPushesTo installs a pre-receive hook on the remote name that rejects
// updates to branch.
func (s *Scene) RejectPushesTo(name, branch string) {
	s.t.Helper()
	hook := fmt.Sprintf(`#!/bin/sh
while read old new ref; do
  if [ "$ref" = "refs/heads/%s" ]; then
    echo "branch %s is protected" >&2
    exit 1
  fi
done
exit 0
`, branch, branch)
	hookPath := filepath.Join(s.remotes[name], "hooks", "pre-receive")
	if err := os.WriteFile(hookPath, []byte(hook), 0700); err != nil {
		s.t.Fatalf("Failed to install hook: %v", err)
	}
}

// Tree returns every file in the remote name at rev as path -> content.
func (s *Scene) Tree(name, rev string) map[string]string {
	s.t.Helper()
	bare := &GitRepo{Dir: s.remotes[name]}
	out, err := bare.RunGitCommandAndGetOutput("ls-tree", "-r", "--name-only", "-z", rev)
	if err != nil {
		s.t.Fatalf("Failed to list %s at %s: %v", name, rev, err)
	}
	tree := map[string]string{}
	for _, path := range strings.Split(out, "\x00") {
		if path == "" {
			continue
		}
		content, err := bare.RunGitCommandAndGetOutput("show", rev+":"+path)
		if err != nil {
			s.t.Fatalf("Failed to read %s:%s: %v", name, path, err)
		}
		tree[path] = content
	}
	return tree
}

// SHA resolves rev in the remote name.
func (s *Scene) SHA(name, rev string) string {
	s.t.Helper()
	bare := &GitRepo{Dir: s.remotes[name]}
	sha, err := bare.SHA(rev)
	if err != nil {
		s.t.Fatalf("Failed to resolve %s in %s: %v", rev, name, err)
	}
	return sha
}

// HasBranch reports whether the remote name has branch.
func (s *Scene) HasBranch(name, branch string) bool {
	s.t.Helper()
	bare := &GitRepo{Dir: s.remotes[name]}
	_, err := bare.SHA("refs/heads/" + branch)
	return err == nil
}

// Commit returns a formatted field of a commit in the remote name, such as
// "%an <%ae>" or "%B".
func (s *Scene) Commit(name, rev, format string) string {
	s.t.Helper()
	bare := &GitRepo{Dir: s.remotes[name]}
	out, err := bare.RunGitCommandAndGetOutput("log", "-1", "--format="+format, rev)
	if err != nil {
		s.t.Fatalf("Failed to read %s in %s: %v", rev, name, err)
	}
	return out
}

// Names returns the remote names in the scene, sorted.
func (s *Scene) Names() []string {
	names := make([]string, 0, len(s.remotes))
	for name := range s.remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
