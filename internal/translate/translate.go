// Package translate moves a PatchSet between directory scopes of different
// repositories.
package translate

import (
	"errors"
	"fmt"
	"strings"

	"hubsync.dev/hubsync/internal/git"
)

// ErrCrossBoundaryMove is returned for a rename or copy whose source and
// destination lie on different sides of the tracked scope. Such a change
// cannot be expressed without the file contents; diffs produced with
// git.CLI.DiffStaged never contain one because renames are split into a
// deletion and an addition.
var ErrCrossBoundaryMove = errors.New("move crosses the tracked directory boundary")

// Within reports whether path lies under scope. The empty scope contains
// every path.
func Within(path, scope string) bool {
	if scope == "" {
		return true
	}
	return strings.HasPrefix(path, scope+"/")
}

// Rebase replaces the from prefix of path with to. path must lie within from.
func Rebase(path, from, to string) string {
	rel := path
	if from != "" {
		rel = strings.TrimPrefix(path, from+"/")
	}
	if to == "" {
		return rel
	}
	return to + "/" + rel
}

// Translate keeps the entries of patch that lie under fromScope and moves
// them under toScope. Entries outside fromScope are dropped; a patch filtered
// to nothing is an empty PatchSet, not an error.
func Translate(patch git.PatchSet, fromScope, toScope string) (git.PatchSet, error) {
	var out []git.FilePatch
	for _, f := range patch.Files() {
		oldIn := f.OldPath != "" && Within(f.OldPath, fromScope)
		newIn := f.NewPath != "" && Within(f.NewPath, fromScope)

		switch f.Op {
		case git.OpAdd:
			if newIn {
				out = append(out, f.WithPaths("", Rebase(f.NewPath, fromScope, toScope)))
			}
		case git.OpDelete:
			if oldIn {
				out = append(out, f.WithPaths(Rebase(f.OldPath, fromScope, toScope), ""))
			}
		case git.OpRename, git.OpCopy:
			if oldIn != newIn {
				return git.PatchSet{}, fmt.Errorf("%s %s -> %s: %w", f.Op, f.OldPath, f.NewPath, ErrCrossBoundaryMove)
			}
			if oldIn {
				out = append(out, f.WithPaths(Rebase(f.OldPath, fromScope, toScope), Rebase(f.NewPath, fromScope, toScope)))
			}
		default:
			if oldIn && newIn {
				out = append(out, f.WithPaths(Rebase(f.OldPath, fromScope, toScope), Rebase(f.NewPath, fromScope, toScope)))
			}
		}
	}
	return git.NewPatchSet(out...), nil
}
