package cli_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"hubsync.dev/hubsync/internal/cli"
	"hubsync.dev/hubsync/internal/mapping"
	"hubsync.dev/hubsync/testhelpers"
)

// runCLI runs hubsync in-process against the scene and returns its output
func runCLI(t *testing.T, scene *testhelpers.Scene, args ...string) (string, error) {
	t.Helper()

	configPath := filepath.Join(scene.Dir, "config.yaml")
	settings := fmt.Sprintf(`hub: acme/hub
workdir: %s
logFile: %s
operator:
  name: Hub Bot
  email: bot@example.com
remote:
  policy: template
  template: %s
`, scene.WorkDir, filepath.Join(scene.Dir, "hubsync.log"), scene.RemoteTemplate())
	require.NoError(t, os.WriteFile(configPath, []byte(settings), 0600))

	var out bytes.Buffer
	cmd := cli.NewRootCmd("1.2.3", "abc123", "2026-01-01")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newScene(t *testing.T) *testhelpers.Scene {
	t.Helper()
	scene := testhelpers.NewScene(t)
	scene.CreateRemote("acme/hub", map[string]string{
		mapping.DefaultPath: `{"mapping": {"acme/widgets": {"widgets": ""}}}`,
		"widgets/main.go":   "package main",
	})
	scene.CreateRemote("acme/widgets", map[string]string{
		"main.go": "package main",
	})
	return scene
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := cli.NewRootCmd("1.2.3", "abc123", "2026-01-01")
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "hubsync 1.2.3 (commit abc123, built 2026-01-01)\n", out.String())
}

func TestMappingCmd(t *testing.T) {
	scene := newScene(t)

	out, err := runCLI(t, scene, "mapping", "show")
	require.NoError(t, err)
	require.Contains(t, out, "acme/widgets\n  widgets -> /\n")

	out, err = runCLI(t, scene, "mapping", "validate")
	require.NoError(t, err)
	require.Contains(t, out, "Mapping at HEAD is valid (1 repositories).")

	_, err = runCLI(t, scene, "mapping", "show", "--rev", "does-not-exist")
	require.Error(t, err)
}

func TestLandCmd(t *testing.T) {
	scene := newScene(t)

	feature := scene.Clone("acme/hub")
	require.NoError(t, feature.CheckoutBranch("feature"))
	require.NoError(t, feature.WriteFile("widgets/main.go", "package main\n\nfunc main() {}"))
	require.NoError(t, feature.CommitAll("Add main"))
	require.NoError(t, feature.Push("feature"))

	out, err := runCLI(t, scene, "land",
		"--head-branch", "feature",
		"--fallback-branch", "landing/feature",
		"-m", "Add main",
		"--repo-message", "acme/widgets=Add main to widgets",
	)
	require.NoError(t, err)
	require.Contains(t, out, "Landed in 2 repositories:")
	require.Equal(t, "Add main to widgets", scene.Commit("acme/widgets", "main", "%B"))
	require.Equal(t, "Add main", scene.Commit("acme/hub", "main", "%B"))

	_, err = runCLI(t, scene, "land", "--head-branch", "feature", "--fallback-branch", "x", "-m", "m", "--repo-message", "no-equals")
	require.Error(t, err)

	_, err = runCLI(t, scene, "land", "--head-branch", "feature")
	require.Error(t, err)
}

func TestImportCmd(t *testing.T) {
	scene := newScene(t)

	fix := scene.Clone("acme/widgets")
	require.NoError(t, fix.CheckoutBranch("fix"))
	require.NoError(t, fix.WriteFile("fix.txt", "fixed"))
	require.NoError(t, fix.CommitAll("Fix"))
	require.NoError(t, fix.Push("fix"))

	out, err := runCLI(t, scene, "import",
		"--base", "acme/widgets",
		"--head-branch", "fix",
		"-m", "Import fix",
	)
	require.NoError(t, err)
	require.Contains(t, out, "Imported into acme/hub on branch import/acme/widgets/fix")
	require.Equal(t, "fixed", scene.Tree("acme/hub", "import/acme/widgets/fix")["widgets/fix.txt"])
}
