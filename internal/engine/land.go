package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"

	hubsyncerrors "hubsync.dev/hubsync/internal/errors"
	"hubsync.dev/hubsync/internal/git"
	"hubsync.dev/hubsync/internal/mapping"
	"hubsync.dev/hubsync/internal/translate"
)

// workCopy is a refreshed working copy and its default branch
type workCopy struct {
	client git.Client
	branch string
}

// doLand runs prepare, apply-all, commit-and-push and fallback recovery.
// No repository receives a commit unless the change applied everywhere.
func (h *Hub) doLand(ctx context.Context, req LandRequest) (LandResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	hub, hubBranch, err := h.copies.Refresh(ctx, h.name)
	if err != nil {
		return nil, err
	}

	remoteName := git.DefaultRemote
	if isFork(req.HeadRepoName, h.name) {
		remoteName = forkRemoteName(req.HeadRepoName)
		defer func() {
			if err := hub.RemoveRemote(context.WithoutCancel(ctx), remoteName); err != nil {
				h.splog.Warn("Could not remove temporary remote %s.", remoteName)
				h.splog.Debug("remove remote %s: %v", remoteName, err)
			}
		}()
		forkURL, err := h.copies.ResolveURL(ctx, req.HeadRepoName)
		if err != nil {
			return nil, err
		}
		if err := hub.AddRemote(ctx, remoteName, forkURL); err != nil {
			return nil, err
		}
	}

	headSHA, err := hub.Fetch(ctx, remoteName, req.HeadBranch)
	if err != nil {
		return nil, err
	}

	// The mapping comes from the incoming branch so that mapping changes land
	// together with the change that introduces them
	cfg, err := h.configs.Load(ctx, hub.Dir(), headSHA)
	if err != nil {
		return nil, err
	}

	if err := hub.MergeSquash(ctx, headSHA); err != nil {
		return nil, h.applyFailed(h.name, err)
	}
	patch, err := hub.DiffStaged(ctx)
	if err != nil {
		return nil, err
	}

	var targets []string
	for _, name := range cfg.RepoNames() {
		if name == h.name {
			h.splog.Warn("Ignoring mapping of the hub %s onto itself.", name)
			continue
		}
		targets = append(targets, name)
	}
	h.splog.Info("Landing %s on %s and %d mapped repositories.", req.HeadBranch, h.name, len(targets))

	copies, err := h.applyAll(ctx, cfg, targets, patch)
	if err != nil {
		return nil, err
	}
	copies[h.name] = workCopy{client: hub, branch: hubBranch}

	revRange := remoteBranch(hubBranch) + ".." + headSHA
	plans := make(map[string]commitPlan, len(copies))
	for name := range copies {
		var paths []string
		if name != h.name {
			repoMapping, _ := cfg.For(name)
			paths = repoMapping.HubPaths()
		}
		plan, err := h.planCommit(ctx, hub, revRange, paths, req.CommitMessages.For(name))
		if err != nil {
			return nil, err
		}
		plans[name] = plan
	}

	names := make([]string, 0, len(copies))
	for name := range copies {
		names = append(names, name)
	}
	sort.Strings(names)

	outcomes := collectAll(names, func(name string) (string, error) {
		return h.commitAndPush(ctx, name, copies[name], plans[name])
	})

	result := LandResult{}
	var pushFailures []*hubsyncerrors.PushError
	var failures *multierror.Error
	for _, name := range names {
		o := outcomes[name]
		var pushErr *hubsyncerrors.PushError
		switch {
		case errors.As(o.Err, &pushErr):
			pushFailures = append(pushFailures, pushErr)
		case o.Err != nil:
			failures = multierror.Append(failures, fmt.Errorf("%s: %w", name, o.Err))
		case o.Value != "":
			result[name] = LandedCommit{SHA: o.Value}
		}
	}

	if len(pushFailures) > 0 {
		for _, pushErr := range pushFailures {
			if err := h.pushFallback(ctx, pushErr.RepoName, copies[pushErr.RepoName], req.FallbackBranch); err != nil {
				failures = multierror.Append(failures, err)
			}
		}
		fallbackErr := hubsyncerrors.NewFallbackError(req.FallbackBranch, pushFailures)
		if failures != nil {
			return nil, multierror.Append(fallbackErr, failures.Errors...)
		}
		return nil, fallbackErr
	}
	if failures != nil {
		return nil, failures.ErrorOrNil()
	}

	h.splog.Landed(result.SHAs())
	return result, nil
}

// applyAll refreshes every target and applies its translation of patch. The
// first failure aborts the land; nothing has been committed at that point.
func (h *Hub) applyAll(ctx context.Context, cfg *mapping.Config, targets []string, patch git.PatchSet) (map[string]workCopy, error) {
	copies := make(map[string]workCopy, len(targets)+1)
	var mu sync.Mutex

	tasks := make([]func() error, 0, len(targets))
	for _, name := range targets {
		name := name
		repoMapping, _ := cfg.For(name)
		tasks = append(tasks, func() error {
			client, branch, err := h.copies.Refresh(ctx, name)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			for _, entry := range repoMapping {
				translated, err := translate.Translate(patch, entry.HubPath, entry.RepoPath)
				if err != nil {
					return h.applyFailed(name, err)
				}
				if err := client.Apply(ctx, translated); err != nil {
					return h.applyFailed(name, err)
				}
			}
			mu.Lock()
			copies[name] = workCopy{client: client, branch: branch}
			mu.Unlock()
			return nil
		})
	}

	if err := failFast(tasks...); err != nil {
		return nil, err
	}
	return copies, nil
}

// commitAndPush commits the staged change of one working copy and pushes it
// to the default branch. It returns an empty SHA when there was nothing to
// commit, and a *PushError when only the push failed.
func (h *Hub) commitAndPush(ctx context.Context, name string, wc workCopy, plan commitPlan) (string, error) {
	if err := wc.client.StageAll(ctx); err != nil {
		return "", err
	}
	staged, err := wc.client.HasStagedChanges(ctx)
	if err != nil {
		return "", err
	}
	if !staged {
		h.splog.Debug("%s: no relevant changes", name)
		return "", nil
	}

	sha, err := wc.client.Commit(ctx, git.CommitOptions{
		Message:   plan.message,
		Author:    plan.author,
		Committer: h.operator,
	})
	if err != nil {
		return "", err
	}

	if err := wc.client.Push(ctx, git.DefaultRemote, git.HeadRefspec(wc.branch), false); err != nil {
		h.splog.Debug("push to %s failed: %v", name, err)
		return sha, hubsyncerrors.NewPushError(name, sha, err)
	}
	return sha, nil
}

// pushFallback preserves an unpushed commit on the fallback branch
func (h *Hub) pushFallback(ctx context.Context, name string, wc workCopy, branch string) error {
	if err := wc.client.Push(ctx, git.DefaultRemote, git.HeadRefspec(branch), true); err != nil {
		h.splog.Error("Could not push the change for %s to %s either.", name, branch)
		return fmt.Errorf("%s: fallback push: %w", name, err)
	}
	h.splog.Warn("Pushed the change for %s to %s; it needs to be merged manually.", name, branch)
	return nil
}
