package engine_test

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"hubsync.dev/hubsync/internal/engine"
	hubsyncerrors "hubsync.dev/hubsync/internal/errors"
	"hubsync.dev/hubsync/internal/git"
	"hubsync.dev/hubsync/internal/mapping"
	"hubsync.dev/hubsync/testhelpers"
)

func landRequest(branch string) engine.LandRequest {
	return engine.LandRequest{
		CommitMessages: engine.CommitMessages{Generic: "Add feature"},
		FallbackBranch: "landing/" + branch,
		HeadBranch:     branch,
	}
}

// featureChanges touches both mapped repositories and an unmapped hub file
func featureChanges() []change {
	return []change{
		{
			author: "Ann", email: "ann@example.com", message: "Change widgets and lib",
			edit: writes(map[string]string{
				"widgets/main.go": "package main\n\nfunc main() {}",
				"libs/core/a.go":  "package core\n\nconst A = 1",
			}),
		},
		{
			author: "Bob", email: "bob@example.com",
			message: "Add docs\n\nCo-authored-by: Cid <cid@example.com>",
			edit: writes(map[string]string{
				"widgets/docs/guide.md": "guide",
				"top.txt":               "top v2",
			}),
		},
	}
}

func TestLand(t *testing.T) {
	ctx := context.Background()

	t.Run("lands on the hub and every touched repository", func(t *testing.T) {
		scene := newScene(t)
		hub, _ := newHub(t, scene)
		pushFeature(t, scene, hubName, "feature", featureChanges()...)

		result, err := hub.Land(ctx, landRequest("feature"))
		require.NoError(t, err)
		require.Len(t, result, 3)
		for _, name := range []string{hubName, widgetsName, libName} {
			require.Contains(t, result, name)
			require.Equal(t, scene.SHA(name, "main"), result[name].SHA, name)
		}

		testhelpers.ExpectTree(t, scene, hubName, "main", map[string]string{
			mapping.DefaultPath:     hubMapping,
			"top.txt":               "top v2",
			"widgets/README.md":     "widgets readme",
			"widgets/main.go":       "package main\n\nfunc main() {}",
			"widgets/docs/guide.md": "guide",
			"libs/core/a.go":        "package core\n\nconst A = 1",
		})
		testhelpers.ExpectTree(t, scene, widgetsName, "main", map[string]string{
			"README.md":     "widgets readme",
			"main.go":       "package main\n\nfunc main() {}",
			"docs/guide.md": "guide",
		})
		testhelpers.ExpectTree(t, scene, libName, "main", map[string]string{
			"src/a.go":  "package core\n\nconst A = 1",
			"other.txt": "not mirrored",
		})
	})

	t.Run("attributes each repository's commit to its own authors", func(t *testing.T) {
		scene := newScene(t)
		hub, _ := newHub(t, scene)
		pushFeature(t, scene, hubName, "feature", featureChanges()...)

		_, err := hub.Land(ctx, landRequest("feature"))
		require.NoError(t, err)

		for _, name := range []string{hubName, widgetsName, libName} {
			require.Equal(t, "Ann <ann@example.com>", scene.Commit(name, "main", "%an <%ae>"), name)
			require.Equal(t, "Hub Bot <bot@example.com>", scene.Commit(name, "main", "%cn <%ce>"), name)
		}
		trailers := "Add feature\n\nCo-authored-by: Bob <bob@example.com>\nCo-authored-by: Cid <cid@example.com>"
		require.Equal(t, trailers, scene.Commit(hubName, "main", "%B"))
		require.Equal(t, trailers, scene.Commit(widgetsName, "main", "%B"))
		// Only Ann's commit touched libs/core
		require.Equal(t, "Add feature", scene.Commit(libName, "main", "%B"))
	})

	t.Run("uses per-repository messages", func(t *testing.T) {
		scene := newScene(t)
		hub, _ := newHub(t, scene)
		pushFeature(t, scene, hubName, "feature", featureChanges()[0])

		req := landRequest("feature")
		req.CommitMessages.PerRepo = map[string]string{libName: "Bump core"}
		_, err := hub.Land(ctx, req)
		require.NoError(t, err)

		require.Equal(t, "Bump core", scene.Commit(libName, "main", "%B"))
		require.Equal(t, "Add feature", scene.Commit(widgetsName, "main", "%B"))
	})

	t.Run("skips repositories without relevant changes", func(t *testing.T) {
		scene := newScene(t)
		hub, _ := newHub(t, scene)
		widgetsBefore := scene.SHA(widgetsName, "main")
		libBefore := scene.SHA(libName, "main")
		pushFeature(t, scene, hubName, "feature", change{
			author: "Ann", email: "ann@example.com", message: "Hub only",
			edit: writes(map[string]string{"top.txt": "changed"}),
		})

		result, err := hub.Land(ctx, landRequest("feature"))
		require.NoError(t, err)
		require.Equal(t, []string{hubName}, keys(result))
		testhelpers.ExpectUnchanged(t, scene, widgetsName, widgetsBefore)
		testhelpers.ExpectUnchanged(t, scene, libName, libBefore)
	})

	t.Run("lands deletions and additions under a mapped directory", func(t *testing.T) {
		const childName = "acme/child"
		childMapping := `{"mapping": {"acme/child": {"subdir": ""}}}`

		scene := testhelpers.NewScene(t)
		scene.CreateRemote(hubName, map[string]string{
			mapping.DefaultPath: childMapping,
			"subdir/a.txt":      "a",
		})
		scene.CreateRemote(childName, map[string]string{"a.txt": "a"})
		hub, _ := newHub(t, scene)

		pushFeature(t, scene, hubName, "replace", change{
			author: "Ann", email: "ann@example.com", message: "Replace a with b",
			edit: func(r *testhelpers.GitRepo) error {
				if err := r.DeleteFile("subdir/a.txt"); err != nil {
					return err
				}
				return r.WriteFile("subdir/b.txt", "b")
			},
		})

		result, err := hub.Land(ctx, landRequest("replace"))
		require.NoError(t, err)
		require.Equal(t, []string{childName, hubName}, keys(result))

		testhelpers.ExpectTree(t, scene, childName, "main", map[string]string{"b.txt": "b"})
		testhelpers.ExpectTree(t, scene, hubName, "main", map[string]string{
			mapping.DefaultPath: childMapping,
			"subdir/b.txt":      "b",
		})
	})

	t.Run("lands a move between mapped repositories", func(t *testing.T) {
		scene := newScene(t)
		hub, _ := newHub(t, scene)
		pushFeature(t, scene, hubName, "move", change{
			author: "Ann", email: "ann@example.com", message: "Move main into core",
			edit: func(r *testhelpers.GitRepo) error {
				return r.MoveFile("widgets/main.go", "libs/core/main.go")
			},
		})

		_, err := hub.Land(ctx, landRequest("move"))
		require.NoError(t, err)

		testhelpers.ExpectTree(t, scene, widgetsName, "main", map[string]string{
			"README.md": "widgets readme",
		})
		testhelpers.ExpectTree(t, scene, libName, "main", map[string]string{
			"src/a.go":    "package core",
			"src/main.go": "package main",
			"other.txt":   "not mirrored",
		})
		require.Equal(t, "package main", scene.Tree(hubName, "main")["libs/core/main.go"])
		require.NotContains(t, scene.Tree(hubName, "main"), "widgets/main.go")
	})

	t.Run("commits nothing anywhere when one repository does not apply", func(t *testing.T) {
		scene := newScene(t)
		hub, buf := newHub(t, scene)

		// acme/lib diverged from the hub copy
		lib := scene.Clone(libName)
		require.NoError(t, lib.WriteFile("src/a.go", "package diverged"))
		require.NoError(t, lib.CommitAll("Diverge"))
		require.NoError(t, lib.Push("main"))

		before := map[string]string{}
		for _, name := range []string{hubName, widgetsName, libName} {
			before[name] = scene.SHA(name, "main")
		}
		pushFeature(t, scene, hubName, "feature", featureChanges()...)

		result, err := hub.Land(ctx, landRequest("feature"))
		require.Error(t, err)
		require.Nil(t, result)
		require.True(t, errors.Is(err, hubsyncerrors.ErrApply))

		var applyErr *hubsyncerrors.ApplyError
		require.True(t, errors.As(err, &applyErr))
		require.Equal(t, libName, applyErr.RepoName)
		require.Equal(t, "changes could not be applied to acme/lib", err.Error())
		require.Contains(t, buf.String(), "apply to acme/lib failed")

		for name, sha := range before {
			testhelpers.ExpectUnchanged(t, scene, name, sha)
		}
	})

	t.Run("pushes rejected commits to the fallback branch", func(t *testing.T) {
		scene := newScene(t)
		hub, _ := newHub(t, scene)
		widgetsBefore := scene.SHA(widgetsName, "main")
		scene.RejectPushesTo(widgetsName, "main")
		pushFeature(t, scene, hubName, "feature", featureChanges()...)

		result, err := hub.Land(ctx, landRequest("feature"))
		require.Error(t, err)
		require.Nil(t, result)
		require.True(t, errors.Is(err, hubsyncerrors.ErrPush))

		var fallbackErr *hubsyncerrors.FallbackError
		require.True(t, errors.As(err, &fallbackErr))
		require.Equal(t, []string{widgetsName}, fallbackErr.Repos())
		require.Equal(t, "landing/feature", fallbackErr.Branch)

		// The other pushes still went through
		require.Equal(t, "package core\n\nconst A = 1", scene.Tree(libName, "main")["src/a.go"])
		require.Equal(t, "top v2", scene.Tree(hubName, "main")["top.txt"])

		testhelpers.ExpectUnchanged(t, scene, widgetsName, widgetsBefore)
		require.True(t, scene.HasBranch(widgetsName, "landing/feature"))
		require.Equal(t, "guide", scene.Tree(widgetsName, "landing/feature")["docs/guide.md"])
		require.False(t, scene.HasBranch(libName, "landing/feature"))
	})

	t.Run("reads the mapping from the landed branch", func(t *testing.T) {
		scene := newScene(t)
		scene.CreateRemote("acme/new", map[string]string{"README.md": "new"})
		hub, _ := newHub(t, scene)

		pushFeature(t, scene, hubName, "feature", change{
			author: "Ann", email: "ann@example.com", message: "Map acme/new",
			edit: writes(map[string]string{
				mapping.DefaultPath: `{"mapping": {"acme/widgets": {"widgets": ""}, "acme/lib": {"libs/core": "src"}, "acme/new": {"newdir": "pkg"}}}`,
				"newdir/file.txt":   "hello",
			}),
		})

		result, err := hub.Land(ctx, landRequest("feature"))
		require.NoError(t, err)
		require.Equal(t, []string{"acme/hub", "acme/new"}, keys(result))
		testhelpers.ExpectTree(t, scene, "acme/new", "main", map[string]string{
			"README.md":    "new",
			"pkg/file.txt": "hello",
		})
	})

	t.Run("lands from a fork of the hub", func(t *testing.T) {
		scene := newScene(t)
		scene.Fork(hubName, "alice/hub")
		hub, _ := newHub(t, scene)
		pushFeature(t, scene, "alice/hub", "feature", featureChanges()[0])

		req := landRequest("feature")
		req.HeadRepoName = "alice/hub"
		result, err := hub.Land(ctx, req)
		require.NoError(t, err)
		require.Equal(t, []string{hubName, libName, widgetsName}, keys(result))

		hubCopy := &testhelpers.GitRepo{Dir: filepath.Join(scene.WorkDir, git.SanitizeName(hubName))}
		remotes, err := hubCopy.RunGitCommandAndGetOutput("remote")
		require.NoError(t, err)
		require.Equal(t, "origin", remotes)
	})

	t.Run("fails on an invalid mapping", func(t *testing.T) {
		scene := newScene(t)
		hub, _ := newHub(t, scene)
		pushFeature(t, scene, hubName, "feature", change{
			author: "Ann", email: "ann@example.com", message: "Break mapping",
			edit: writes(map[string]string{mapping.DefaultPath: `{"nope": {}}`}),
		})

		_, err := hub.Land(ctx, landRequest("feature"))
		require.True(t, errors.Is(err, hubsyncerrors.ErrConfig))
	})

	t.Run("validates the request", func(t *testing.T) {
		scene := newScene(t)
		hub, _ := newHub(t, scene)

		_, err := hub.Land(ctx, engine.LandRequest{HeadBranch: "x", FallbackBranch: "y"})
		require.Error(t, err)
		_, err = hub.Land(ctx, engine.LandRequest{CommitMessages: engine.CommitMessages{Generic: "m"}, HeadBranch: "x"})
		require.Error(t, err)
	})

	t.Run("runs lands back to back", func(t *testing.T) {
		scene := newScene(t)
		hub, _ := newHub(t, scene)
		pushFeature(t, scene, hubName, "one", change{
			author: "Ann", email: "ann@example.com", message: "One",
			edit: writes(map[string]string{"widgets/one.txt": "1"}),
		})
		pushFeature(t, scene, hubName, "two", change{
			author: "Bob", email: "bob@example.com", message: "Two",
			edit: writes(map[string]string{"libs/core/two.go": "package core"}),
		})

		errs := make(chan error, 2)
		for _, branch := range []string{"one", "two"} {
			branch := branch
			go func() {
				_, err := hub.Land(ctx, landRequest(branch))
				errs <- err
			}()
		}
		require.NoError(t, <-errs)
		require.NoError(t, <-errs)

		require.Equal(t, "1", scene.Tree(widgetsName, "main")["one.txt"])
		require.Equal(t, "package core", scene.Tree(libName, "main")["src/two.go"])
	})
}

func keys(result engine.LandResult) []string {
	var names []string
	for name := range result.SHAs() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
