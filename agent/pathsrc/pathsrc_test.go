package pathsrc_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ludios/reapfrog/agent/pathsrc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type source interface {
	Next() (string, bool)
}

func drain(s source) []string {
	var out []string
	for {
		p, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, p)
	}
}

func TestSlice(t *testing.T) {
	s := pathsrc.Slice("a", "b", "c")
	assert.Equal(t, []string{"a", "b", "c"}, drain(s))

	_, ok := s.Next()
	assert.False(t, ok)

	assert.Empty(t, drain(pathsrc.Slice()))
}

func TestLines(t *testing.T) {
	s := pathsrc.Lines(strings.NewReader("/a/b\n\n/c\r\n/d e\n"))
	assert.Equal(t, []string{"/a/b", "/c", "/d e"}, drain(s))
	assert.NoError(t, s.Err())

	_, ok := s.Next()
	assert.False(t, ok)
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(path), 0o644))
}

func TestWalkOrder(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"b/2", "b/1", "a", "c/d/e", "c/0"} {
		writeFile(t, filepath.Join(dir, p))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o755))

	w := pathsrc.Walk([]string{dir})
	got := drain(w)
	require.NoError(t, w.Err())

	var rel []string
	for _, p := range got {
		r, err := filepath.Rel(dir, p)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{"a", "b/1", "b/2", "c/0", "c/d/e"}, rel)
}

func TestWalkRoots(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	writeFile(t, file)
	missing := filepath.Join(dir, "missing")

	got := drain(pathsrc.Walk([]string{file, missing, file}))
	assert.Equal(t, []string{file, missing, file}, got)
}

func TestWalkDedupLinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no inode numbers")
	}
	dir := t.TempDir()
	orig := filepath.Join(dir, "a")
	writeFile(t, orig)
	require.NoError(t, os.Link(orig, filepath.Join(dir, "b")))
	writeFile(t, filepath.Join(dir, "c"))

	assert.Len(t, drain(pathsrc.Walk([]string{dir})), 3)

	got := drain(pathsrc.Walk([]string{dir}, pathsrc.WithDedupLinks(16)))
	assert.Equal(t, []string{orig, filepath.Join(dir, "c")}, got)
}

func TestWalkSkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	writeFile(t, target)
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "link")))

	assert.Equal(t, []string{target}, drain(pathsrc.Walk([]string{dir})))
}
