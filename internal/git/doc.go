// Package git provides low-level Git operations on working copies.
//
// Commands that mutate a working copy shell out to the git binary through
// CommandRunner; read-only access to committed trees and refs goes through
// go-git. The package also holds the PatchSet codec used to move changes
// between repositories, and WorkingCopies, which owns the one clone kept per
// repository.
//
// This package should be the only place where direct git commands are executed.
package git
