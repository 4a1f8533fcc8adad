package git

import (
	"errors"
	"fmt"
	"os"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ReadFileAtRevision returns the content of path as committed at revision in
// the repository at dir. The working tree is never consulted. A missing file
// is reported as an error wrapping os.ErrNotExist.
func ReadFileAtRevision(dir, revision, path string) ([]byte, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %s: %w", revision, err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}

	file, err := commit.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
			return nil, fmt.Errorf("%s at %s: %w", path, revision, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to read %s at %s: %w", path, revision, err)
	}

	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s at %s: %w", path, revision, err)
	}
	return []byte(contents), nil
}

// RemoteHead returns the branch the remote's HEAD points at, e.g. "main"
func RemoteHead(dir, remote string) (string, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("failed to open repository: %w", err)
	}

	ref, err := repo.Reference(plumbing.NewRemoteHEADReferenceName(remote), false)
	if err != nil {
		return "", fmt.Errorf("failed to read %s/HEAD: %w", remote, err)
	}
	if ref.Type() != plumbing.SymbolicReference {
		return "", fmt.Errorf("%s/HEAD is not a symbolic reference", remote)
	}

	target := ref.Target().String()
	prefix := "refs/remotes/" + remote + "/"
	if !strings.HasPrefix(target, prefix) {
		return "", fmt.Errorf("unexpected %s/HEAD target %s", remote, target)
	}
	return strings.TrimPrefix(target, prefix), nil
}
