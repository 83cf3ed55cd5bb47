package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/ludios/reapfrog/agent/fadvise"
	"github.com/ludios/reapfrog/agent/pathsrc"
	"github.com/ludios/reapfrog/agent/readahead"
	"github.com/ludios/reapfrog/config"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFiles(t *testing.T, contents ...string) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for i, c := range contents {
		p := filepath.Join(dir, fmt.Sprintf("f%d", i))
		require.NoError(t, os.WriteFile(p, []byte(c), 0o644))
		paths = append(paths, p)
	}
	return paths
}

func TestStreamChecksums(t *testing.T) {
	big := strings.Repeat("reapfrog", 100000)
	paths := writeTestFiles(t, "hello", "", big)
	missing := filepath.Join(filepath.Dir(paths[0]), "missing")

	src := pathsrc.Slice(paths[0], missing, paths[1], paths[2])
	p := readahead.New(src, readahead.WithAdvisor(fadvise.Nop{}))
	defer p.Close()

	var out bytes.Buffer
	sum := stream(p, &out, zerolog.Nop(), 4096, true)

	assert.Equal(t, uint64(3), sum.files)
	assert.Equal(t, uint64(1), sum.failed)
	assert.Equal(t, int64(5+len(big)), sum.bytes)

	want := fmt.Sprintf("%016x  %s\n%016x  %s\n%016x  %s\n",
		xxhash.Sum64String("hello"), paths[0],
		xxhash.Sum64String(""), paths[1],
		xxhash.Sum64String(big), paths[2])
	assert.Equal(t, want, out.String())
}

func TestStreamWithoutChecksum(t *testing.T) {
	paths := writeTestFiles(t, "a", "bc")
	p := readahead.New(pathsrc.Slice(paths...), readahead.WithAdvisor(fadvise.Nop{}))
	defer p.Close()

	var out bytes.Buffer
	sum := stream(p, &out, zerolog.Nop(), 1, false)
	assert.Equal(t, summary{files: 2, bytes: 3}, sum)
	assert.Empty(t, out.String())
}

func TestNewPathSource(t *testing.T) {
	t.Cleanup(func() {
		viper.Set(config.KeyRunRecursive, false)
		viper.Set(config.KeyRunStdin, false)
	})

	_, err := newPathSource(nil, nil)
	assert.Error(t, err)

	src, err := newPathSource([]string{"a", "b"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &pathsrc.SliceSource{}, src)

	viper.Set(config.KeyRunRecursive, true)
	src, err = newPathSource([]string{"a"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &pathsrc.WalkSource{}, src)

	viper.Set(config.KeyRunStdin, true)
	_, err = newPathSource([]string{"a"}, nil)
	assert.Error(t, err)

	src, err = newPathSource(nil, strings.NewReader("x\ny\n"))
	require.NoError(t, err)
	p, ok := src.Next()
	assert.True(t, ok)
	assert.Equal(t, "x", p)
}

func TestRunCommand(t *testing.T) {
	paths := writeTestFiles(t, "one", "two")

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs(append([]string{"run", "--checksum", "--log-format", "zerolog", "--budget", "1MiB"}, paths...))
	defer RootCmd.SetArgs(nil)

	require.NoError(t, RootCmd.Execute())

	want := fmt.Sprintf("%016x  %s\n%016x  %s\n",
		xxhash.Sum64String("one"), paths[0],
		xxhash.Sum64String("two"), paths[1])
	assert.Equal(t, want, out.String())

	missing := filepath.Join(filepath.Dir(paths[0]), "missing")
	RootCmd.SetArgs([]string{"run", "--log-format", "zerolog", paths[0], missing})
	err := RootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files failed")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs([]string{"version"})
	defer RootCmd.SetArgs(nil)

	require.NoError(t, RootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "reapfrog "), out.String())
}

func TestMetricsDisabledWithoutSubmissionURL(t *testing.T) {
	m, err := newMetrics()
	require.NoError(t, err)
	assert.Equal(t, nopMetrics{}, m)
	m.Increment(config.MetricsFileOpenCount)
	m.Flush()
}
