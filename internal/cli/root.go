package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"hubsync.dev/hubsync/internal/config"
	"hubsync.dev/hubsync/internal/output"
	"hubsync.dev/hubsync/internal/runtime"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	var (
		configPath string
		hub        string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:   "hubsync",
		Short: "Keep a hub repository and its mapped repositories in sync",
		Long: `hubsync keeps a hub repository and a set of mapped repositories in sync.

Changes made in a mapped repository are imported into the hub as a branch,
and branches merged in the hub are landed on the hub and every mapped
repository at once.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}

			path := configPath
			allowMissing := path == ""
			if path == "" {
				path = os.Getenv("HUBSYNC_CONFIG")
				allowMissing = path == ""
			}
			if path == "" {
				path = config.DefaultPath()
			}
			settings, err := config.Load(path, allowMissing)
			if err != nil {
				return err
			}
			settings.ApplyEnv(os.Getenv)
			if hub != "" {
				settings.Hub = hub
			}

			splog, err := output.NewSplogWithOptions(output.Options{
				Writer:  cmd.OutOrStdout(),
				LogFile: settings.LogFile,
				Debug:   debug || os.Getenv("DEBUG") != "",
			})
			if err != nil {
				return err
			}

			cmd.SetContext(runtime.WithContext(cmd.Context(), runtime.NewContext(settings, splog)))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the settings file (default ~/.hubsync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&hub, "hub", "", "Name of the hub repository, overriding settings")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Print debug output")

	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newLandCmd())
	rootCmd.AddCommand(newMappingCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	return rootCmd
}
