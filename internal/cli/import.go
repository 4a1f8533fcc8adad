package cli

import (
	"github.com/spf13/cobra"

	"hubsync.dev/hubsync/internal/cli/common"
	"hubsync.dev/hubsync/internal/engine"
	"hubsync.dev/hubsync/internal/runtime"
	"hubsync.dev/hubsync/internal/utils"
)

// newImportCmd creates the import command
func newImportCmd() *cobra.Command {
	var req engine.ImportRequest

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a branch of a mapped repository into a new hub branch",
		Long: `Import squashes a branch of a mapped repository (or a fork of it) into a
single commit and pushes it to a new branch of the hub.

Examples:
  hubsync import --base acme/widgets --head-branch fix-typo -m "Fix typo"
  hubsync import --base acme/widgets --head-repo alice/widgets --head-branch feature \
      --new-branch import/feature --message "Add feature"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.NewBranch == "" {
				req.NewBranch = "import/" + utils.SanitizeBranchName(req.BaseRepoName+"/"+req.HeadBranch)
			}
			return common.Run(cmd, func(ctx *runtime.Context) error {
				hub, err := ctx.Hub(cmd.Context())
				if err != nil {
					return err
				}
				return hub.Import(cmd.Context(), req)
			})
		},
	}

	cmd.Flags().StringVar(&req.BaseRepoName, "base", "", "Mapped repository the branch belongs to")
	cmd.Flags().StringVar(&req.HeadRepoName, "head-repo", "", "Fork holding the branch (defaults to --base)")
	cmd.Flags().StringVar(&req.HeadBranch, "head-branch", "", "Branch to import")
	cmd.Flags().StringVarP(&req.Message, "message", "m", "", "Commit message for the squashed commit")
	cmd.Flags().StringVar(&req.NewBranch, "new-branch", "", "Hub branch to create (default import/<base>/<head-branch>)")
	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("head-branch")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}
