// Package testhelpers provides testing utilities for hubsync, including a
// scene of bare remote repositories, Git working-copy helpers, and custom
// assertions.
package testhelpers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Must is a generic helper function that panics if err is not nil,
// otherwise returns the value.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// ExpectTree asserts that the remote name holds exactly expected at rev.
func ExpectTree(t *testing.T, scene *Scene, name, rev string, expected map[string]string) {
	t.Helper()
	require.Equal(t, expected, scene.Tree(name, rev), "tree of %s at %s does not match", name, rev)
}

// ExpectUnchanged asserts that the main branch of name is still at sha.
func ExpectUnchanged(t *testing.T, scene *Scene, name, sha string) {
	t.Helper()
	require.Equal(t, sha, scene.SHA(name, "main"), "%s received a commit", name)
}
