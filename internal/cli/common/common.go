// Package common provides shared helper functions for CLI commands.
package common

import (
	"github.com/spf13/cobra"

	"hubsync.dev/hubsync/internal/runtime"
)

// Run is a helper that provides a runtime context to a command's execution
// function. The context is closed when fn returns, whether or not it failed.
func Run(cmd *cobra.Command, fn func(ctx *runtime.Context) error) (err error) {
	ctx, err := runtime.GetContext(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := ctx.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(ctx)
}
