package cli

import (
	"github.com/spf13/cobra"

	"hubsync.dev/hubsync/internal/cli/common"
	"hubsync.dev/hubsync/internal/runtime"
)

// newMappingCmd creates the mapping command
func newMappingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Inspect the hub's mapping document",
	}

	cmd.AddCommand(newMappingShowCmd())
	cmd.AddCommand(newMappingValidateCmd())

	return cmd
}

// newMappingShowCmd creates the mapping show command
func newMappingShowCmd() *cobra.Command {
	var rev string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the mapping at a hub revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return common.Run(cmd, func(ctx *runtime.Context) error {
				hub, err := ctx.Hub(cmd.Context())
				if err != nil {
					return err
				}
				cfg, err := hub.Mapping(cmd.Context(), rev)
				if err != nil {
					return err
				}
				names := cfg.RepoNames()
				if len(names) == 0 {
					ctx.Splog.Info("No repositories are mapped at %s.", rev)
					return nil
				}
				for _, name := range names {
					repoMapping, _ := cfg.For(name)
					ctx.Splog.Info("%s", name)
					for _, entry := range repoMapping {
						ctx.Splog.Info("  %s -> %s", displayPath(entry.HubPath), displayPath(entry.RepoPath))
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&rev, "rev", "HEAD", "Hub revision to read the mapping from")

	return cmd
}

// newMappingValidateCmd creates the mapping validate command
func newMappingValidateCmd() *cobra.Command {
	var rev string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that the mapping at a hub revision is valid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return common.Run(cmd, func(ctx *runtime.Context) error {
				hub, err := ctx.Hub(cmd.Context())
				if err != nil {
					return err
				}
				cfg, err := hub.Mapping(cmd.Context(), rev)
				if err != nil {
					return err
				}
				ctx.Splog.Info("Mapping at %s is valid (%d repositories).", rev, len(cfg.RepoNames()))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&rev, "rev", "HEAD", "Hub revision to read the mapping from")

	return cmd
}

func displayPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
