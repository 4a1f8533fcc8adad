package git

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// Op is the kind of change a FilePatch makes
type Op int

const (
	OpModify Op = iota
	OpAdd
	OpDelete
	OpRename
	OpCopy
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpDelete:
		return "delete"
	case OpRename:
		return "rename"
	case OpCopy:
		return "copy"
	default:
		return "modify"
	}
}

// FilePatch is the change to a single file, as one "diff --git" section.
// OldPath is empty for additions and NewPath is empty for deletions.
type FilePatch struct {
	Op      Op
	OldPath string
	NewPath string
	file    *gitdiff.File
}

func newFilePatch(file *gitdiff.File) FilePatch {
	f := FilePatch{Op: OpModify, OldPath: file.OldName, NewPath: file.NewName}
	switch {
	case file.IsNew:
		f.Op = OpAdd
		if f.NewPath == "" {
			f.NewPath = f.OldPath
		}
		f.OldPath = ""
	case file.IsDelete:
		f.Op = OpDelete
		if f.OldPath == "" {
			f.OldPath = f.NewPath
		}
		f.NewPath = ""
	case file.IsRename:
		f.Op = OpRename
	case file.IsCopy:
		f.Op = OpCopy
	default:
		if f.OldPath == "" {
			f.OldPath = f.NewPath
		}
		if f.NewPath == "" {
			f.NewPath = f.OldPath
		}
	}
	normalized := *file
	normalized.OldName, normalized.NewName = f.OldPath, f.NewPath
	f.file = &normalized
	return f
}

// WithPaths returns a copy of the patch naming the given paths. Hunks and
// binary data are shared with the receiver and never modified.
func (f FilePatch) WithPaths(oldPath, newPath string) FilePatch {
	file := *f.file
	file.OldName, file.NewName = oldPath, newPath
	return FilePatch{Op: f.Op, OldPath: oldPath, NewPath: newPath, file: &file}
}

// IsBinary reports whether the file is changed by a binary patch
func (f FilePatch) IsBinary() bool {
	return f.file != nil && f.file.IsBinary
}

// String renders the section back to git patch text
func (f FilePatch) String() string {
	if f.file == nil {
		return ""
	}
	return f.file.String()
}

// PatchSet is an immutable, ordered collection of file changes produced by
// diffing two commits of one repository.
type PatchSet struct {
	files []FilePatch
}

// NewPatchSet creates a PatchSet from file patches
func NewPatchSet(files ...FilePatch) PatchSet {
	ps := PatchSet{files: make([]FilePatch, len(files))}
	copy(ps.files, files)
	return ps
}

// Files returns a copy of the file patches
func (p PatchSet) Files() []FilePatch {
	out := make([]FilePatch, len(p.files))
	copy(out, p.files)
	return out
}

// Len returns the number of file patches
func (p PatchSet) Len() int {
	return len(p.files)
}

// IsEmpty reports whether the patch changes nothing
func (p PatchSet) IsEmpty() bool {
	return len(p.files) == 0
}

// String renders the whole patch as text suitable for "git apply"
func (p PatchSet) String() string {
	var b strings.Builder
	for _, f := range p.files {
		b.WriteString(f.String())
	}
	return b.String()
}

// ParsePatch parses the output of "git diff" into a PatchSet. Text before
// the first file header is rejected.
func ParsePatch(text string) (PatchSet, error) {
	files, preamble, err := gitdiff.Parse(strings.NewReader(text))
	if err != nil {
		return PatchSet{}, fmt.Errorf("error parsing patch: %w", err)
	}
	if strings.TrimSpace(preamble) != "" {
		return PatchSet{}, fmt.Errorf("patch had unexpected preamble %q", preamble)
	}

	out := make([]FilePatch, 0, len(files))
	for _, file := range files {
		out = append(out, newFilePatch(file))
	}
	return PatchSet{files: out}, nil
}
