package fadvise_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ludios/reapfrog/agent/fadvise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "sequential", fadvise.Sequential.String())
	assert.Equal(t, "willneed", fadvise.WillNeed.String())
	assert.Equal(t, "dontneed", fadvise.DontNeed.String())
	assert.Panics(t, func() { _ = fadvise.Kind(42).String() })
}

func TestDefaultAdvisor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, make([]byte, 128*1024), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	a := fadvise.Default()
	require.NotNil(t, a)
	for _, k := range []fadvise.Kind{fadvise.Sequential, fadvise.WillNeed, fadvise.DontNeed} {
		assert.NoError(t, a.Advise(f, 0, 0, k), k.String())
	}
	assert.NoError(t, a.Advise(f, 64*1024, 64*1024, fadvise.WillNeed))
}

func TestNop(t *testing.T) {
	assert.NoError(t, fadvise.Nop{}.Advise(nil, 1, 2, fadvise.DontNeed))
}
