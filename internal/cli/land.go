package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hubsync.dev/hubsync/internal/cli/common"
	"hubsync.dev/hubsync/internal/engine"
	"hubsync.dev/hubsync/internal/runtime"
	"hubsync.dev/hubsync/internal/utils"
)

// newLandCmd creates the land command
func newLandCmd() *cobra.Command {
	var (
		req          engine.LandRequest
		repoMessages []string
	)

	cmd := &cobra.Command{
		Use:   "land",
		Short: "Land a hub branch on the hub and every mapped repository",
		Long: `Land squashes a hub branch into one commit per repository and pushes it to
the hub and every mapped repository it touches. If the change does not apply
cleanly everywhere, nothing is committed. Repositories whose push is rejected
receive the commit on the fallback branch instead.

Examples:
  hubsync land --head-branch feature -m "Add feature"
  hubsync land --head-branch feature --fallback-branch landing/feature -m "Add feature" \
      --repo-message acme/widgets="Add feature to widgets"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return common.Run(cmd, func(ctx *runtime.Context) error {
				perRepo, err := parseRepoMessages(repoMessages)
				if err != nil {
					return err
				}
				req.CommitMessages.PerRepo = perRepo
				if req.FallbackBranch == "" {
					req.FallbackBranch = "hubsync/fallback/" + utils.SanitizeBranchName(req.HeadBranch)
				}

				hub, err := ctx.Hub(cmd.Context())
				if err != nil {
					return err
				}
				_, err = hub.Land(cmd.Context(), req)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&req.HeadBranch, "head-branch", "", "Branch to land")
	cmd.Flags().StringVar(&req.HeadRepoName, "head-repo", "", "Fork of the hub holding the branch")
	cmd.Flags().StringVar(&req.FallbackBranch, "fallback-branch", "", "Branch to push to when a default branch rejects the push (default hubsync/fallback/<head-branch>)")
	cmd.Flags().StringVarP(&req.CommitMessages.Generic, "message", "m", "", "Commit message for every repository")
	cmd.Flags().StringArrayVar(&repoMessages, "repo-message", nil, "Commit message for one repository, as name=message (repeatable)")
	_ = cmd.MarkFlagRequired("head-branch")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

// parseRepoMessages parses name=message pairs
func parseRepoMessages(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	messages := make(map[string]string, len(values))
	for _, value := range values {
		name, message, ok := strings.Cut(value, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --repo-message %q: expected name=message", value)
		}
		messages[name] = message
	}
	return messages, nil
}
