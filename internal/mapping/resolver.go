package mapping

import (
	"context"
	"errors"
	"os"

	"hubsync.dev/hubsync/internal/git"
	"hubsync.dev/hubsync/internal/output"
)

// FileReader reads a file as committed at a revision of a local repository
type FileReader func(dir, revision, path string) ([]byte, error)

// Resolver loads the mapping document from a revision of the hub
type Resolver struct {
	path  string
	read  FileReader
	splog *output.Splog
}

// NewResolver creates a Resolver reading the document at path (DefaultPath
// when empty) with go-git
func NewResolver(path string, splog *output.Splog) *Resolver {
	if path == "" {
		path = DefaultPath
	}
	return &Resolver{path: path, read: git.ReadFileAtRevision, splog: splog}
}

// Path returns the document path inside the hub
func (r *Resolver) Path() string {
	return r.path
}

// GetConfig reads the document at revision of the repository in dir. A
// missing or unparseable document yields nil and a diagnostic, not an error.
func (r *Resolver) GetConfig(_ context.Context, dir, revision string) *Document {
	data, err := r.read(dir, revision, r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.splog.Warn("No mapping document %s at %s.", r.path, revision)
		} else {
			r.splog.Warn("Could not read mapping document %s at %s.", r.path, revision)
		}
		r.splog.Debug("mapping read error: %v", err)
		return nil
	}

	doc, err := ParseDocument(data)
	if err != nil {
		r.splog.Warn("Mapping document %s at %s is not valid JSON.", r.path, revision)
		r.splog.Debug("mapping parse error: %v", err)
		return nil
	}
	return doc
}

// Load reads and validates the mapping at revision
func (r *Resolver) Load(ctx context.Context, dir, revision string) (*Config, error) {
	return ValidateConfig(r.GetConfig(ctx, dir, revision), revision)
}
