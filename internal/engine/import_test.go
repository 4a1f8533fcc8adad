package engine_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"hubsync.dev/hubsync/internal/engine"
	hubsyncerrors "hubsync.dev/hubsync/internal/errors"
	"hubsync.dev/hubsync/internal/git"
	"hubsync.dev/hubsync/internal/mapping"
	"hubsync.dev/hubsync/testhelpers"
)

func importRequest(base, branch string) engine.ImportRequest {
	return engine.ImportRequest{
		BaseRepoName: base,
		HeadBranch:   branch,
		Message:      "Import " + branch,
		NewBranch:    "import/" + branch,
	}
}

func workCopy(scene *testhelpers.Scene, name string) *testhelpers.GitRepo {
	return &testhelpers.GitRepo{Dir: filepath.Join(scene.WorkDir, git.SanitizeName(name))}
}

func TestImport(t *testing.T) {
	ctx := context.Background()

	t.Run("imports a root-mapped repository into its hub directory", func(t *testing.T) {
		scene := newScene(t)
		hub, _ := newHub(t, scene)
		hubBefore := scene.SHA(hubName, "main")

		pushFeature(t, scene, widgetsName, "fix",
			change{
				author: "Ann", email: "ann@example.com", message: "Tweak main",
				edit: writes(map[string]string{
					"main.go":          "package main\n\n// tweaked",
					"cmd/tool/main.go": "package main",
				}),
			},
			change{
				author: "Bob", email: "bob@example.com", message: "Reshuffle",
				edit: func(r *testhelpers.GitRepo) error {
					if err := r.DeleteFile("README.md"); err != nil {
						return err
					}
					return r.MoveFile("main.go", "app.go")
				},
			},
		)

		require.NoError(t, hub.Import(ctx, importRequest(widgetsName, "fix")))

		testhelpers.ExpectTree(t, scene, hubName, "import/fix", map[string]string{
			mapping.DefaultPath:        hubMapping,
			"top.txt":                  "top",
			"widgets/app.go":           "package main\n\n// tweaked",
			"widgets/cmd/tool/main.go": "package main",
			"libs/core/a.go":           "package core",
		})
		require.Equal(t, "Ann <ann@example.com>", scene.Commit(hubName, "import/fix", "%an <%ae>"))
		require.Equal(t, "Hub Bot <bot@example.com>", scene.Commit(hubName, "import/fix", "%cn <%ce>"))
		require.Equal(t, "Import fix\n\nCo-authored-by: Bob <bob@example.com>", scene.Commit(hubName, "import/fix", "%B"))
		require.Equal(t, hubBefore, scene.SHA(hubName, "import/fix~1"))

		// Nothing lands on the default branch, and the local branch is gone
		testhelpers.ExpectUnchanged(t, scene, hubName, hubBefore)
		branches, err := workCopy(scene, hubName).RunGitCommandAndGetOutput("branch", "--format=%(refname:short)")
		require.NoError(t, err)
		require.Equal(t, "main", branches)
	})

	t.Run("imports a subdirectory mapping and ignores unmapped files", func(t *testing.T) {
		scene := newScene(t)
		hub, _ := newHub(t, scene)

		pushFeature(t, scene, libName, "bump", change{
			author: "Ann", email: "ann@example.com", message: "Bump",
			edit: writes(map[string]string{
				"src/a.go":   "package core\n\nconst B = 2",
				"other.txt":  "ignored",
				"src/new.go": "package core",
			}),
		})

		require.NoError(t, hub.Import(ctx, importRequest(libName, "bump")))
		testhelpers.ExpectTree(t, scene, hubName, "import/bump", map[string]string{
			mapping.DefaultPath: hubMapping,
			"top.txt":           "top",
			"widgets/README.md": "widgets readme",
			"widgets/main.go":   "package main",
			"libs/core/a.go":    "package core\n\nconst B = 2",
			"libs/core/new.go":  "package core",
		})
	})

	t.Run("creates an empty commit when nothing maps into the hub", func(t *testing.T) {
		scene := newScene(t)
		hub, _ := newHub(t, scene)
		hubBefore := scene.SHA(hubName, "main")

		pushFeature(t, scene, libName, "docs", change{
			author: "Ann", email: "ann@example.com", message: "Docs",
			edit: writes(map[string]string{"other.txt": "only unmapped"}),
		})

		require.NoError(t, hub.Import(ctx, importRequest(libName, "docs")))
		require.Equal(t, scene.Tree(hubName, "main"), scene.Tree(hubName, "import/docs"))
		require.Equal(t, hubBefore, scene.SHA(hubName, "import/docs~1"))
		// No commit touched the mapped directory
		require.Equal(t, "Hub Bot <bot@example.com>", scene.Commit(hubName, "import/docs", "%an <%ae>"))
	})

	t.Run("imports from a fork and removes its remote", func(t *testing.T) {
		scene := newScene(t)
		scene.Fork(widgetsName, "alice/widgets")
		hub, _ := newHub(t, scene)

		pushFeature(t, scene, "alice/widgets", "feature", change{
			author: "Alice", email: "alice@example.com", message: "From a fork",
			edit: writes(map[string]string{"fork.txt": "forked"}),
		})

		req := importRequest(widgetsName, "feature")
		req.HeadRepoName = "alice/widgets"
		require.NoError(t, hub.Import(ctx, req))

		require.Equal(t, "forked", scene.Tree(hubName, "import/feature")["widgets/fork.txt"])
		require.Equal(t, "Alice <alice@example.com>", scene.Commit(hubName, "import/feature", "%an <%ae>"))

		remotes, err := workCopy(scene, widgetsName).RunGitCommandAndGetOutput("remote")
		require.NoError(t, err)
		require.Equal(t, "origin", remotes)
	})

	t.Run("re-importing replaces the branch", func(t *testing.T) {
		scene := newScene(t)
		hub, _ := newHub(t, scene)

		pushFeature(t, scene, widgetsName, "fix", change{
			author: "Ann", email: "ann@example.com", message: "First",
			edit: writes(map[string]string{"main.go": "v1"}),
		})
		require.NoError(t, hub.Import(ctx, importRequest(widgetsName, "fix")))

		pushFeature(t, scene, widgetsName, "fix", change{
			author: "Ann", email: "ann@example.com", message: "Second",
			edit: writes(map[string]string{"main.go": "v2"}),
		})
		require.NoError(t, hub.Import(ctx, importRequest(widgetsName, "fix")))
		require.Equal(t, "v2", scene.Tree(hubName, "import/fix")["widgets/main.go"])
	})

	t.Run("fails for an unmapped repository", func(t *testing.T) {
		scene := newScene(t)
		hub, _ := newHub(t, scene)

		err := hub.Import(ctx, importRequest("acme/unknown", "fix"))
		require.True(t, errors.Is(err, hubsyncerrors.ErrMapping))
		var mappingErr *hubsyncerrors.MappingError
		require.True(t, errors.As(err, &mappingErr))
		require.Equal(t, "acme/unknown", mappingErr.RepoName)
	})

	t.Run("refuses to import the hub into itself", func(t *testing.T) {
		scene := newScene(t)
		hub, _ := newHub(t, scene)
		require.Error(t, hub.Import(ctx, importRequest(hubName, "fix")))
	})

	t.Run("validates the request", func(t *testing.T) {
		scene := newScene(t)
		hub, _ := newHub(t, scene)
		req := importRequest(widgetsName, "fix")
		req.NewBranch = ""
		require.Error(t, hub.Import(ctx, req))
	})
}
