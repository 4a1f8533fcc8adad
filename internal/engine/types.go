package engine

import (
	"fmt"

	"hubsync.dev/hubsync/internal/utils"
)

// ImportRequest pulls one branch of a mapped repository into a new hub branch
type ImportRequest struct {
	// BaseRepoName is the mapped repository the change targets
	BaseRepoName string
	// HeadRepoName is the repository the branch lives in; a fork when it
	// differs from BaseRepoName
	HeadRepoName string
	HeadBranch   string
	Message      string
	// NewBranch is the hub branch to create; it is force-pushed
	NewBranch string
}

func (r ImportRequest) validate() error {
	switch {
	case r.BaseRepoName == "":
		return fmt.Errorf("import requires a base repository")
	case r.HeadBranch == "":
		return fmt.Errorf("import requires a head branch")
	case r.NewBranch == "":
		return fmt.Errorf("import requires a new branch name")
	case r.Message == "":
		return fmt.Errorf("import requires a commit message")
	}
	return validateBranches(r.HeadBranch, r.NewBranch)
}

// CommitMessages holds the generic land message and per-repository overrides
type CommitMessages struct {
	Generic string
	PerRepo map[string]string
}

// For returns the message for a repository
func (m CommitMessages) For(repoName string) string {
	if msg, ok := m.PerRepo[repoName]; ok && msg != "" {
		return msg
	}
	return m.Generic
}

// LandRequest pushes a hub branch to the hub and every mapped repository
type LandRequest struct {
	CommitMessages CommitMessages
	// FallbackBranch receives the commit of any repository whose default
	// branch rejected the push
	FallbackBranch string
	HeadBranch     string
	// HeadRepoName is the repository the branch lives in; a fork of the hub
	// when set and different from the hub
	HeadRepoName string
}

func (r LandRequest) validate() error {
	switch {
	case r.HeadBranch == "":
		return fmt.Errorf("land requires a head branch")
	case r.FallbackBranch == "":
		return fmt.Errorf("land requires a fallback branch")
	case r.CommitMessages.Generic == "":
		return fmt.Errorf("land requires a commit message")
	}
	return validateBranches(r.HeadBranch, r.FallbackBranch)
}

func validateBranches(names ...string) error {
	for _, name := range names {
		if err := utils.ValidateBranchName(name); err != nil {
			return err
		}
	}
	return nil
}

// LandedCommit is the commit a land produced in one repository
type LandedCommit struct {
	SHA string
}

// LandResult maps repository name to the commit pushed to its default
// branch. Repositories without a relevant change are absent.
type LandResult map[string]LandedCommit

// SHAs returns the result as a name to SHA map
func (r LandResult) SHAs() map[string]string {
	out := make(map[string]string, len(r))
	for name, c := range r {
		out[name] = c.SHA
	}
	return out
}
