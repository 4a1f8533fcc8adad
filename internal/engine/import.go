package engine

import (
	"context"
	"fmt"

	hubsyncerrors "hubsync.dev/hubsync/internal/errors"
	"hubsync.dev/hubsync/internal/git"
	"hubsync.dev/hubsync/internal/translate"
)

// doImport squashes a branch of a mapped repository into one commit on a new
// hub branch. Cleanup only runs when every step succeeded; a failed import
// may leave a temporary remote or a dirty working copy for the next refresh
// to discard.
func (h *Hub) doImport(ctx context.Context, req ImportRequest) error {
	if err := req.validate(); err != nil {
		return err
	}
	if req.BaseRepoName == h.name {
		return fmt.Errorf("cannot import %s into itself", h.name)
	}

	hub, hubBranch, err := h.copies.Refresh(ctx, h.name)
	if err != nil {
		return err
	}
	cfg, err := h.configs.Load(ctx, hub.Dir(), "HEAD")
	if err != nil {
		return err
	}
	repoMapping, ok := cfg.For(req.BaseRepoName)
	if !ok {
		return hubsyncerrors.NewMappingError(req.BaseRepoName)
	}

	fork := isFork(req.HeadRepoName, req.BaseRepoName)
	remoteName := git.DefaultRemote
	if fork {
		remoteName = forkRemoteName(req.HeadRepoName)
	}

	var (
		base       git.Client
		baseBranch string
		headSHA    string
	)
	err = failFast(
		func() error {
			_, _, err := h.copies.Refresh(ctx, h.name)
			return err
		},
		func() error {
			client, branch, err := h.copies.Refresh(ctx, req.BaseRepoName)
			if err != nil {
				return err
			}
			if fork {
				forkURL, err := h.copies.ResolveURL(ctx, req.HeadRepoName)
				if err != nil {
					return err
				}
				if err := client.AddRemote(ctx, remoteName, forkURL); err != nil {
					return err
				}
			}
			sha, err := client.Fetch(ctx, remoteName, req.HeadBranch)
			if err != nil {
				return err
			}
			base, baseBranch, headSHA = client, branch, sha
			return nil
		},
	)
	if err != nil {
		return err
	}

	h.splog.Info("Importing %s from %s into %s.", req.HeadBranch, headRepo(req.HeadRepoName, req.BaseRepoName), h.name)

	plan, err := h.planCommit(ctx, base, remoteBranch(baseBranch)+".."+headSHA, repoMapping.RepoPaths(), req.Message)
	if err != nil {
		return err
	}

	if err := base.MergeSquash(ctx, headSHA); err != nil {
		return h.applyFailed(req.BaseRepoName, err)
	}
	patch, err := base.DiffStaged(ctx)
	if err != nil {
		return err
	}

	if err := hub.CreateBranch(ctx, req.NewBranch, remoteBranch(hubBranch)); err != nil {
		return err
	}
	for _, entry := range repoMapping {
		translated, err := translate.Translate(patch, entry.RepoPath, entry.HubPath)
		if err != nil {
			return h.applyFailed(h.name, err)
		}
		if err := hub.Apply(ctx, translated); err != nil {
			return h.applyFailed(h.name, err)
		}
	}

	if err := hub.StageAll(ctx); err != nil {
		return err
	}
	sha, err := hub.Commit(ctx, git.CommitOptions{
		Message:    plan.message,
		Author:     plan.author,
		Committer:  h.operator,
		AllowEmpty: true,
	})
	if err != nil {
		return err
	}
	if err := hub.Push(ctx, git.DefaultRemote, git.HeadRefspec(req.NewBranch), true); err != nil {
		return err
	}
	h.splog.Debug("imported %s as %s", req.HeadBranch, sha)

	cleanup := map[string]func() error{
		h.name: func() error {
			if err := hub.Checkout(ctx, hubBranch); err != nil {
				return err
			}
			return hub.DeleteBranch(ctx, req.NewBranch)
		},
		req.BaseRepoName: func() error {
			if err := base.ResetHard(ctx, ""); err != nil {
				return err
			}
			if fork {
				return base.RemoveRemote(ctx, remoteName)
			}
			return nil
		},
	}
	bestEffort(h.splog, cleanup)

	h.splog.Imported(h.name, req.NewBranch)
	return nil
}

// applyFailed logs the raw diagnostic and returns the user-facing error
func (h *Hub) applyFailed(repoName string, err error) error {
	h.splog.Debug("apply to %s failed: %v", repoName, err)
	return hubsyncerrors.NewApplyError(repoName, err)
}

func headRepo(head, base string) string {
	if head == "" {
		return base
	}
	return head
}
