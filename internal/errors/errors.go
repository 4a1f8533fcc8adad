// Package errors provides sentinel errors and custom error types for hubsync.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Sentinel errors for the error taxonomy
var (
	// ErrConfig indicates that the mapping document is missing, unparseable or invalid
	ErrConfig = errors.New("invalid configuration")

	// ErrMapping indicates that no mapping entry exists for a repository
	ErrMapping = errors.New("no mapping")

	// ErrApply indicates that a patch could not be applied to a working copy
	ErrApply = errors.New("patch did not apply")

	// ErrPush indicates that a commit was made but could not be pushed
	ErrPush = errors.New("push failed")
)

// ConfigError represents a problem with the mapping document
type ConfigError struct {
	Revision string
	Reason   string
}

func (e *ConfigError) Error() string {
	if e.Revision != "" {
		return fmt.Sprintf("invalid configuration at %s: %s", e.Revision, e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// Is returns true if the target error is ErrConfig
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NewConfigError creates a new ConfigError
func NewConfigError(revision, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Revision: revision, Reason: fmt.Sprintf(format, args...)}
}

// MappingError represents a repository without a usable mapping
type MappingError struct {
	RepoName string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("no mapping found for repository %s", e.RepoName)
}

// Is returns true if the target error is ErrMapping
func (e *MappingError) Is(target error) bool {
	return target == ErrMapping
}

// NewMappingError creates a new MappingError
func NewMappingError(repoName string) *MappingError {
	return &MappingError{RepoName: repoName}
}

// ApplyError represents a patch that failed to apply to one repository.
// The underlying tool output is kept in Err for logging; Error() does not
// include it.
type ApplyError struct {
	RepoName string
	Err      error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("changes could not be applied to %s", e.RepoName)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrApply
func (e *ApplyError) Is(target error) bool {
	return target == ErrApply
}

// NewApplyError creates a new ApplyError
func NewApplyError(repoName string, err error) *ApplyError {
	return &ApplyError{RepoName: repoName, Err: err}
}

// PushError represents a commit that could not be pushed to the default branch
type PushError struct {
	RepoName string
	SHA      string
	Err      error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("failed to push %s to %s: %v", shortSHA(e.SHA), e.RepoName, e.Err)
}

func (e *PushError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrPush
func (e *PushError) Is(target error) bool {
	return target == ErrPush
}

// NewPushError creates a new PushError
func NewPushError(repoName, sha string, err error) *PushError {
	return &PushError{RepoName: repoName, SHA: sha, Err: err}
}

// FallbackError is raised by land when one or more repositories could not be
// pushed to their default branch. The commits were preserved on Branch.
type FallbackError struct {
	Branch string
	// Failures holds one *PushError per affected repository
	Failures *multierror.Error
}

// Repos returns the sorted names of every repository that needs a manual merge
func (e *FallbackError) Repos() []string {
	var names []string
	for _, err := range e.Failures.WrappedErrors() {
		var pushErr *PushError
		if errors.As(err, &pushErr) {
			names = append(names, pushErr.RepoName)
		}
	}
	sort.Strings(names)
	return names
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf(
		"could not push to the default branch of %s; the change was pushed to branch %q instead and must be merged manually",
		strings.Join(e.Repos(), ", "), e.Branch,
	)
}

func (e *FallbackError) Unwrap() error {
	return e.Failures
}

// Is returns true if the target error is ErrPush
func (e *FallbackError) Is(target error) bool {
	return target == ErrPush
}

// NewFallbackError creates a FallbackError from the collected push failures
func NewFallbackError(branch string, failures []*PushError) *FallbackError {
	var merr *multierror.Error
	for _, f := range failures {
		merr = multierror.Append(merr, f)
	}
	return &FallbackError{Branch: branch, Failures: merr}
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
