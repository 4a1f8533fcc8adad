package engine

import (
	"context"
	"fmt"

	"hubsync.dev/hubsync/internal/authors"
	"hubsync.dev/hubsync/internal/config"
	"hubsync.dev/hubsync/internal/git"
	"hubsync.dev/hubsync/internal/mapping"
	"hubsync.dev/hubsync/internal/output"
	"hubsync.dev/hubsync/internal/queue"
	"hubsync.dev/hubsync/internal/remote"
)

// Options configures a Hub
type Options struct {
	// Hub is the name of the hub repository
	Hub string
	// WorkDir holds one working copy per repository
	WorkDir string
	// MappingPath is the mapping document inside the hub
	MappingPath string
	// Operator is the identity hubsync commits as
	Operator git.Identity
	// Resolver maps repository names to remote URLs
	Resolver git.URLResolver
	Splog    *output.Splog
	// NewClient overrides how working-copy clients are created
	NewClient git.ClientFactory
}

// Hub runs import and land operations against one hub repository
type Hub struct {
	name     string
	operator git.Identity
	copies   *git.WorkingCopies
	configs  *mapping.Resolver
	queue    *queue.Queue
	splog    *output.Splog
}

// NewHub creates a Hub from opts
func NewHub(opts Options) (*Hub, error) {
	if opts.Hub == "" {
		return nil, fmt.Errorf("hub repository name is required")
	}
	if opts.WorkDir == "" {
		return nil, fmt.Errorf("working-copy directory is required")
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("remote resolver is required")
	}
	if opts.Operator.IsZero() {
		return nil, fmt.Errorf("operator identity is required")
	}

	splog := opts.Splog
	if splog == nil {
		splog = output.NewSplog()
	}
	newClient := opts.NewClient
	if newClient == nil {
		operator := opts.Operator
		newClient = func(dir string) git.Client { return git.NewCLI(dir, operator) }
	}

	return &Hub{
		name:     opts.Hub,
		operator: opts.Operator,
		copies:   git.NewWorkingCopies(opts.WorkDir, opts.Resolver, newClient),
		configs:  mapping.NewResolver(opts.MappingPath, splog),
		queue:    queue.New(),
		splog:    splog,
	}, nil
}

// NewHubFromSettings creates a Hub from process settings
func NewHubFromSettings(ctx context.Context, s config.Settings, splog *output.Splog) (*Hub, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	resolver, err := s.Resolver(ctx)
	if err != nil {
		return nil, err
	}
	return NewHub(Options{
		Hub:         s.Hub,
		WorkDir:     s.WorkDir,
		MappingPath: s.MappingPath,
		Operator:    s.OperatorIdentity(),
		Resolver:    resolver,
		Splog:       splog,
	})
}

// Name returns the hub repository name
func (h *Hub) Name() string {
	return h.name
}

// Import pulls req.HeadBranch into a new hub branch. Calls on one Hub run
// one at a time in submission order.
func (h *Hub) Import(ctx context.Context, req ImportRequest) error {
	return h.queue.Do(func() error {
		return h.doImport(ctx, req)
	})
}

// Land lands req.HeadBranch on the hub and every mapped repository. Calls on
// one Hub run one at a time in submission order.
func (h *Hub) Land(ctx context.Context, req LandRequest) (LandResult, error) {
	return queue.Submit(h.queue, func() (LandResult, error) {
		return h.doLand(ctx, req)
	})
}

// Mapping returns the validated mapping at a hub revision ("HEAD" for the
// latest default branch)
func (h *Hub) Mapping(ctx context.Context, revision string) (*mapping.Config, error) {
	return queue.Submit(h.queue, func() (*mapping.Config, error) {
		hub, _, err := h.copies.Refresh(ctx, h.name)
		if err != nil {
			return nil, err
		}
		sha, err := hub.RevParse(ctx, revision)
		if err != nil {
			return nil, err
		}
		return h.configs.Load(ctx, hub.Dir(), sha)
	})
}

// Close waits for queued operations and stops the queue
func (h *Hub) Close() {
	h.queue.Close()
}

// commitPlan is the authorship and message of one squash commit
type commitPlan struct {
	author  git.Identity
	message string
}

// planCommit attributes the commits of revRange touching paths and builds
// the squash commit message
func (h *Hub) planCommit(ctx context.Context, log authors.LogReader, revRange string, paths []string, baseMessage string) (commitPlan, error) {
	attr, err := authors.New(log).Attribute(ctx, revRange, paths)
	if err != nil {
		return commitPlan{}, err
	}

	author := h.operator
	if attr.SquashAuthor != "" {
		if id, parseErr := git.ParseIdentity(attr.SquashAuthor); parseErr == nil {
			author = id
		} else {
			h.splog.Debug("unparseable author %q, committing as operator", attr.SquashAuthor)
		}
	}

	return commitPlan{
		author:  author,
		message: authors.BuildMessage(baseMessage, attr.Authors, author.String(), h.operator.String()),
	}, nil
}

// isFork reports whether head names a repository other than base
func isFork(head, base string) bool {
	return head != "" && head != base
}

// forkRemoteName is the temporary remote used for a fork, keyed by owner
func forkRemoteName(repoName string) string {
	return "fork-" + git.SanitizeName(remote.Owner(repoName))
}

func remoteBranch(branch string) string {
	return "refs/remotes/" + git.DefaultRemote + "/" + branch
}
