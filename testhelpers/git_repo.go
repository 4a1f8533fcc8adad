package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Test identity used by repositories created here
const (
	TestUserName  = "Test User"
	TestUserEmail = "test@example.com"
)

// GitRepo represents a Git working copy for testing purposes.
type GitRepo struct {
	Dir string
}

// NewGitRepo initializes a new Git repository in the specified directory using 'git init'.
func NewGitRepo(dir string) (*GitRepo, error) {
	cmd := exec.Command("git", "-c", "init.defaultBranch=main", "-c", "core.autocrlf=false", "init", "-b", "main", dir)
	cmd.Env = gitEnv()
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("failed to init repo: %w: %s", err, out)
	}
	return configureRepo(dir)
}

// CloneGitRepo clones repoURL into dir.
func CloneGitRepo(dir, repoURL string) (*GitRepo, error) {
	cmd := exec.Command("git", "clone", repoURL, dir)
	cmd.Env = gitEnv()
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("failed to clone repo: %w: %s", err, out)
	}
	return configureRepo(dir)
}

// NewBareRepo initializes a bare repository whose default branch is main.
func NewBareRepo(dir string) (*GitRepo, error) {
	cmd := exec.Command("git", "init", "--bare", "-b", "main", dir)
	cmd.Env = gitEnv()
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("failed to init bare repo: %w: %s", err, out)
	}
	return &GitRepo{Dir: dir}, nil
}

func configureRepo(dir string) (*GitRepo, error) {
	repo := &GitRepo{Dir: dir}
	// Configure Git user (required for commits)
	if err := repo.RunGitCommand("config", "user.name", TestUserName); err != nil {
		return nil, err
	}
	if err := repo.RunGitCommand("config", "user.email", TestUserEmail); err != nil {
		return nil, err
	}
	return repo, nil
}

// gitEnv avoids reading global git config in tests
func gitEnv(extra ...string) []string {
	env := append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null", "GIT_CONFIG_NOSYSTEM=1")
	return append(env, extra...)
}

// RunGitCommand executes a git command and returns an error if it fails.
func (r *GitRepo) RunGitCommand(args ...string) error {
	_, err := r.RunGitCommandAndGetOutput(args...)
	return err
}

// RunGitCommandAndGetOutput executes a git command and returns its trimmed output.
func (r *GitRepo) RunGitCommandAndGetOutput(args ...string) (string, error) {
	return r.runGit(nil, args...)
}

func (r *GitRepo) runGit(env []string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = gitEnv(env...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return strings.TrimSpace(string(output)), nil
}

// WriteFile writes content to a path relative to the repository root.
func (r *GitRepo) WriteFile(path, content string) error {
	fullPath := filepath.Join(r.Dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// WriteFiles writes every path/content pair.
func (r *GitRepo) WriteFiles(files map[string]string) error {
	for path, content := range files {
		if err := r.WriteFile(path, content); err != nil {
			return err
		}
	}
	return nil
}

// DeleteFile removes a path relative to the repository root.
func (r *GitRepo) DeleteFile(path string) error {
	return os.Remove(filepath.Join(r.Dir, filepath.FromSlash(path)))
}

// MoveFile renames a path relative to the repository root.
func (r *GitRepo) MoveFile(from, to string) error {
	return r.RunGitCommand("mv", from, to)
}

// CommitAll stages everything and commits it as the test user.
func (r *GitRepo) CommitAll(message string) error {
	return r.CommitAllAs(message, TestUserName, TestUserEmail)
}

// CommitAllAs stages everything and commits it with the given author.
func (r *GitRepo) CommitAllAs(message, name, email string) error {
	if err := r.RunGitCommand("add", "--all"); err != nil {
		return err
	}
	_, err := r.runGit([]string{
		"GIT_AUTHOR_NAME=" + name,
		"GIT_AUTHOR_EMAIL=" + email,
	}, "commit", "--allow-empty", "-m", message)
	return err
}

// CheckoutBranch creates or resets branch at the current commit and checks it out.
func (r *GitRepo) CheckoutBranch(branch string) error {
	return r.RunGitCommand("checkout", "-B", branch)
}

// Push pushes a local branch to the same branch on origin.
func (r *GitRepo) Push(branch string) error {
	return r.RunGitCommand("push", "--force", "origin", branch+":refs/heads/"+branch)
}

// SHA resolves rev to a commit SHA.
func (r *GitRepo) SHA(rev string) (string, error) {
	return r.RunGitCommandAndGetOutput("rev-parse", "--verify", rev+"^{commit}")
}
