package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultRemote is the remote every working copy is cloned from
const DefaultRemote = "origin"

// CommitOptions contains options for creating a commit
type CommitOptions struct {
	Message    string
	Author     Identity
	Committer  Identity
	AllowEmpty bool
}

// Client defines the version-control primitives hubsync composes. One Client
// is bound to one local working copy.
type Client interface {
	// Dir returns the working copy directory
	Dir() string

	// Repository setup
	Clone(ctx context.Context, remoteURL string) error
	AddRemote(ctx context.Context, name, remoteURL string) error
	RemoveRemote(ctx context.Context, name string) error
	Fetch(ctx context.Context, remote, ref string) (string, error)
	DefaultBranch(ctx context.Context) (string, error)
	RevParse(ctx context.Context, rev string) (string, error)

	// Working copy state
	Checkout(ctx context.Context, ref string) error
	CreateBranch(ctx context.Context, name, startPoint string) error
	DeleteBranch(ctx context.Context, name string) error
	ResetHard(ctx context.Context, ref string) error
	Clean(ctx context.Context) error

	// Changes
	MergeSquash(ctx context.Context, ref string) error
	DiffStaged(ctx context.Context) (PatchSet, error)
	Apply(ctx context.Context, patch PatchSet) error
	StageAll(ctx context.Context) error
	HasStagedChanges(ctx context.Context) (bool, error)
	Commit(ctx context.Context, opts CommitOptions) (string, error)
	Push(ctx context.Context, remote, refspec string, force bool) error

	// History
	Log(ctx context.Context, revRange string, schema FieldSchema, paths []string) ([]Record, error)
}

// CLI implements Client by running the git binary
type CLI struct {
	runner *CommandRunner
}

var _ Client = (*CLI)(nil)

// NewCLI creates a Client for the working copy at dir. A non-zero ident is
// used as the default author and committer of every command.
func NewCLI(dir string, ident Identity) *CLI {
	var env []string
	if !ident.IsZero() {
		env = append(env,
			"GIT_AUTHOR_NAME="+ident.Name, "GIT_AUTHOR_EMAIL="+ident.Email,
			"GIT_COMMITTER_NAME="+ident.Name, "GIT_COMMITTER_EMAIL="+ident.Email,
		)
	}
	return &CLI{runner: NewCommandRunner(dir, env...)}
}

// Dir returns the working copy directory
func (c *CLI) Dir() string {
	return c.runner.Dir()
}

// Clone clones remoteURL into the working copy directory
func (c *CLI) Clone(ctx context.Context, remoteURL string) error {
	dir := c.Dir()
	if err := os.MkdirAll(filepath.Dir(dir), 0750); err != nil {
		return fmt.Errorf("failed to create working copy root: %w", err)
	}
	parent := NewCommandRunner(filepath.Dir(dir))
	if _, err := parent.Run(ctx, "clone", "--origin", DefaultRemote, remoteURL, dir); err != nil {
		return fmt.Errorf("failed to clone into %s: %w", dir, err)
	}
	return nil
}

// AddRemote points the named remote at remoteURL, adding it if needed
func (c *CLI) AddRemote(ctx context.Context, name, remoteURL string) error {
	if _, err := c.runner.Run(ctx, "remote", "set-url", name, remoteURL); err == nil {
		return nil
	}
	if _, err := c.runner.Run(ctx, "remote", "add", name, remoteURL); err != nil {
		return fmt.Errorf("failed to add remote %s: %w", name, err)
	}
	return nil
}

// RemoveRemote removes a remote and its tracking refs
func (c *CLI) RemoveRemote(ctx context.Context, name string) error {
	if _, err := c.runner.Run(ctx, "remote", "remove", name); err != nil {
		return fmt.Errorf("failed to remove remote %s: %w", name, err)
	}
	return nil
}

// Fetch fetches ref from remote and returns the fetched commit SHA
func (c *CLI) Fetch(ctx context.Context, remote, ref string) (string, error) {
	args := []string{"fetch", "--prune", remote}
	if ref != "" {
		args = append(args, ref)
	}
	if _, err := c.runner.Run(ctx, args...); err != nil {
		return "", fmt.Errorf("failed to fetch %s from %s: %w", ref, remote, err)
	}
	if ref == "" {
		return "", nil
	}
	return c.RevParse(ctx, "FETCH_HEAD")
}

// DefaultBranch returns the default branch of the origin remote
func (c *CLI) DefaultBranch(ctx context.Context) (string, error) {
	if branch, err := RemoteHead(c.Dir(), DefaultRemote); err == nil {
		return branch, nil
	}
	if _, err := c.runner.Run(ctx, "remote", "set-head", DefaultRemote, "--auto"); err != nil {
		return "", fmt.Errorf("failed to determine default branch: %w", err)
	}
	return RemoteHead(c.Dir(), DefaultRemote)
}

// RevParse resolves a revision to a full SHA
func (c *CLI) RevParse(ctx context.Context, rev string) (string, error) {
	sha, err := c.runner.Run(ctx, "rev-parse", "--verify", rev+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", rev, err)
	}
	return sha, nil
}

// Checkout switches the working copy to ref, discarding local changes
func (c *CLI) Checkout(ctx context.Context, ref string) error {
	if _, err := c.runner.Run(ctx, "checkout", "--force", ref); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", ref, err)
	}
	return nil
}

// CreateBranch creates (or resets) a local branch at startPoint and checks it out
func (c *CLI) CreateBranch(ctx context.Context, name, startPoint string) error {
	args := []string{"checkout", "--force", "-B", name}
	if startPoint != "" {
		args = append(args, startPoint)
	}
	if _, err := c.runner.Run(ctx, args...); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", name, err)
	}
	return nil
}

// DeleteBranch force-deletes a local branch
func (c *CLI) DeleteBranch(ctx context.Context, name string) error {
	if _, err := c.runner.Run(ctx, "branch", "-D", name); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w", name, err)
	}
	return nil
}

// ResetHard resets index and working tree to ref
func (c *CLI) ResetHard(ctx context.Context, ref string) error {
	args := []string{"reset", "--hard"}
	if ref != "" {
		args = append(args, ref)
	}
	if _, err := c.runner.Run(ctx, args...); err != nil {
		return fmt.Errorf("failed to reset to %s: %w", ref, err)
	}
	return nil
}

// Clean removes untracked and ignored files
func (c *CLI) Clean(ctx context.Context) error {
	if _, err := c.runner.Run(ctx, "clean", "-ffdx"); err != nil {
		return fmt.Errorf("failed to clean working copy: %w", err)
	}
	return nil
}

// MergeSquash stages the squashed changes of ref without committing
func (c *CLI) MergeSquash(ctx context.Context, ref string) error {
	if _, err := c.runner.Run(ctx, "merge", "--squash", "--no-commit", ref); err != nil {
		return fmt.Errorf("failed to squash-merge %s: %w", ref, err)
	}
	return nil
}

// DiffStaged returns the staged changes relative to HEAD. Renames are
// reported as a deletion plus an addition.
func (c *CLI) DiffStaged(ctx context.Context) (PatchSet, error) {
	out, err := c.runner.RunRaw(ctx,
		"-c", "core.quotepath=off",
		"diff", "--cached", "--binary", "--full-index", "--no-renames",
		"--no-color", "--no-ext-diff", "--src-prefix=a/", "--dst-prefix=b/",
	)
	if err != nil {
		return PatchSet{}, fmt.Errorf("failed to diff staged changes: %w", err)
	}
	ps, err := ParsePatch(out)
	if err != nil {
		return PatchSet{}, fmt.Errorf("failed to parse staged diff: %w", err)
	}
	return ps, nil
}

// Apply applies patch to the working tree. An empty patch is a no-op.
func (c *CLI) Apply(ctx context.Context, patch PatchSet) error {
	if patch.IsEmpty() {
		return nil
	}
	if _, err := c.runner.RunWithInput(ctx, patch.String(), "apply", "--binary", "--whitespace=nowarn", "-"); err != nil {
		return fmt.Errorf("failed to apply patch: %w", err)
	}
	return nil
}

// StageAll stages every change in the working tree
func (c *CLI) StageAll(ctx context.Context) error {
	if _, err := c.runner.Run(ctx, "add", "--all"); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}
	return nil
}

// HasStagedChanges reports whether the index differs from HEAD
func (c *CLI) HasStagedChanges(ctx context.Context) (bool, error) {
	_, err := c.runner.Run(ctx, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	if ExitCode(err) == 1 {
		return true, nil
	}
	return false, fmt.Errorf("failed to check staged changes: %w", err)
}

// Commit records the staged changes and returns the new commit SHA
func (c *CLI) Commit(ctx context.Context, opts CommitOptions) (string, error) {
	var args []string
	if !opts.Committer.IsZero() {
		args = append(args, "-c", "user.name="+opts.Committer.Name, "-c", "user.email="+opts.Committer.Email)
	}
	args = append(args, "commit", "--no-verify", "--cleanup=verbatim", "--file=-")
	if !opts.Author.IsZero() {
		args = append(args, "--author="+opts.Author.String())
	}
	if opts.AllowEmpty {
		args = append(args, "--allow-empty")
	}
	if _, err := c.runner.RunWithInput(ctx, opts.Message, args...); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return c.RevParse(ctx, "HEAD")
}

// Push pushes refspec to remote
func (c *CLI) Push(ctx context.Context, remote, refspec string, force bool) error {
	args := []string{"push", "--porcelain"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, remote, refspec)
	if _, err := c.runner.Run(ctx, args...); err != nil {
		return fmt.Errorf("failed to push %s to %s: %w", refspec, remote, err)
	}
	return nil
}

// HeadRefspec returns a refspec pushing HEAD to the named branch
func HeadRefspec(branch string) string {
	return "HEAD:refs/heads/" + strings.TrimPrefix(branch, "refs/heads/")
}
