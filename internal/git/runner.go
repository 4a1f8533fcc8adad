package git

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"os"
	"os/exec"
	"strings"

	hubsyncerrors "hubsync.dev/hubsync/internal/errors"
)

// CommandRunner handles execution of git commands in one directory
type CommandRunner struct {
	workingDir string
	env        []string
}

// NewCommandRunner creates a new CommandRunner. Extra environment entries
// are appended to the process environment of every command.
func NewCommandRunner(workingDir string, env ...string) *CommandRunner {
	return &CommandRunner{workingDir: workingDir, env: env}
}

// Dir returns the directory commands run in
func (r *CommandRunner) Dir() string {
	return r.workingDir
}

// Run executes a git command and returns its trimmed output
func (r *CommandRunner) Run(ctx context.Context, args ...string) (string, error) {
	return r.runInternal(ctx, "", true, args...)
}

// RunRaw executes a git command and returns the raw output (no trimming)
func (r *CommandRunner) RunRaw(ctx context.Context, args ...string) (string, error) {
	return r.runInternal(ctx, "", false, args...)
}

// RunWithInput executes a git command feeding input on stdin
func (r *CommandRunner) RunWithInput(ctx context.Context, input string, args ...string) (string, error) {
	return r.runInternal(ctx, input, true, args...)
}

func (r *CommandRunner) runInternal(ctx context.Context, input string, trim bool, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	cmd.Env = append(cmd.Env, r.env...)
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", hubsyncerrors.NewGitCommandError("git", redactArgs(args), stdout.String(), stderr.String(), err)
	}
	if trim {
		return strings.TrimSpace(stdout.String()), nil
	}
	return stdout.String(), nil
}

// ExitCode returns the exit status carried by a failed git command, or -1
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// redactArgs strips credentials from URL arguments so they never reach logs
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = RedactURL(arg)
	}
	return out
}

// RedactURL replaces the password of a URL with "***". A URL carrying only a
// username (a bare token) has the username replaced. Non-URLs are returned
// unchanged.
func RedactURL(raw string) string {
	if !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	userinfo := "***"
	if _, ok := u.User.Password(); ok {
		userinfo = url.User(u.User.Username()).String() + ":***"
	}
	// url.Userinfo escapes '*', so the userinfo is spliced in by hand
	u.User = nil
	rest := strings.TrimPrefix(u.String(), u.Scheme+"://")
	return u.Scheme + "://" + userinfo + "@" + rest
}
