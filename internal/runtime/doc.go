// Package runtime provides the execution context for hubsync commands.
//
// It holds the settings and logger resolved by the root command and creates
// the hub engine on first use.
package runtime
