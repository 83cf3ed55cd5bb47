// Copyright © 2017 Sean Chittenden <sean@chittenden.org>
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/alecthomas/units"
	"github.com/cespare/xxhash/v2"
	"github.com/ludios/reapfrog/agent/pathsrc"
	"github.com/ludios/reapfrog/agent/readahead"
	"github.com/ludios/reapfrog/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run [path...]",
	Short: "Read files sequentially through the readahead pipeline",
	Long: `
Read every file named on the command line (or on stdin with --stdin) to the
end, in order.  Directories are descended into with --recursive.  Files that
cannot be opened or read are logged and skipped; the exit status is non-zero
if any file failed.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		budget, err := config.ParseBytes(viper.Get(config.KeyReadaheadBudget))
		if err != nil {
			return errors.Wrap(err, "invalid readahead budget")
		}

		bufSize, err := config.ParseBytes(viper.Get(config.KeyRunBufferSize))
		switch {
		case err != nil:
			return errors.Wrap(err, "invalid buffer size")
		case bufSize == 0:
			return errors.New("buffer size must be greater than zero")
		}

		src, err := newPathSource(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		metrics, err := newMetrics()
		if err != nil {
			return errors.Wrap(err, "unable to initialize metrics")
		}
		defer metrics.Flush()

		p := readahead.New(src,
			readahead.WithBudget(budget),
			readahead.WithDropBehind(viper.GetBool(config.KeyReadaheadDropBehind)),
			readahead.WithMaxOpen(viper.GetInt(config.KeyReadaheadMaxOpen)),
			readahead.WithLogger(log.Logger),
			readahead.WithMetrics(metrics),
		)
		defer p.Close()

		start := time.Now()
		sum := stream(p, cmd.OutOrStdout(), log.Logger, int(bufSize), viper.GetBool(config.KeyRunChecksum))
		elapsed := time.Since(start)

		if serr, ok := src.(interface{ Err() error }); ok && serr.Err() != nil {
			log.Error().Err(serr.Err()).Msg("path source failed")
			sum.failed++
		}

		st := p.Stats()
		log.Debug().
			Uint64("willneed-hints", st.WillNeedHints).
			Uint64("willneed-bytes", st.WillNeedBytes).
			Uint64("dontneed-hints", st.DontNeedHints).
			Msg("advice issued")

		rate := units.Base2Bytes(0)
		if secs := elapsed.Seconds(); secs > 0 {
			rate = units.Base2Bytes(float64(sum.bytes) / secs)
		}
		log.Info().
			Uint64("files", sum.files).
			Uint64("failed", sum.failed).
			Int64("bytes", sum.bytes).
			Dur("duration", elapsed).
			Str("throughput", rate.String()+"/s").
			Msg("done")

		if sum.failed > 0 {
			return errors.Errorf("%d of %d files failed", sum.failed, sum.files+sum.failed)
		}
		return nil
	},
}

type summary struct {
	files  uint64
	failed uint64
	bytes  int64
}

// stream reads every file of p to EOF.  Per-file failures are logged and
// counted, never fatal.  With checksum set, an xxhash64 line per file is
// written to w.
func stream(p *readahead.Pipeline, w io.Writer, l zerolog.Logger, bufSize int, checksum bool) summary {
	var sum summary
	buf := make([]byte, bufSize)

	for {
		r, err := p.Next()
		if err == io.EOF {
			return sum
		}
		if err != nil {
			l.Warn().Err(err).Msg("skipping file")
			sum.failed++
			continue
		}

		var h *xxhash.Digest
		var dst io.Writer = io.Discard
		if checksum {
			h = xxhash.New()
			dst = h
		}

		// Hide io.ReaderFrom so that reads honor bufSize.
		n, err := io.CopyBuffer(struct{ io.Writer }{dst}, r, buf)
		sum.bytes += n
		if err != nil {
			l.Warn().Err(err).Str("path", r.Path()).Int64("offset", n).Msg("read failed")
			sum.failed++
			continue
		}
		sum.files++

		if checksum {
			fmt.Fprintf(w, "%016x  %s\n", h.Sum64(), r.Path())
		}
	}
}

type pathSource interface {
	Next() (string, bool)
}

func newPathSource(args []string, stdin io.Reader) (pathSource, error) {
	switch {
	case viper.GetBool(config.KeyRunStdin):
		if len(args) > 0 {
			return nil, errors.New("paths given on the command line and --stdin are mutually exclusive")
		}
		return pathsrc.Lines(stdin), nil
	case len(args) == 0:
		return nil, errors.New("no paths given")
	case viper.GetBool(config.KeyRunRecursive):
		opts := []pathsrc.WalkOption{pathsrc.WithWalkLogger(log.Logger)}
		if n := viper.GetInt(config.KeyRunDedupLinks); n > 0 {
			opts = append(opts, pathsrc.WithDedupLinks(n))
		}
		return pathsrc.Walk(args, opts...), nil
	default:
		return pathsrc.Slice(args...), nil
	}
}

func init() {
	RootCmd.AddCommand(runCmd)

	{
		const (
			key          = config.KeyReadaheadBudget
			longName     = "budget"
			shortName    = "b"
			defaultValue = "8MiB"
			envVar       = "REAPFROG_BUDGET"
			description  = "Maximum bytes of readahead outstanding at once"
		)

		runCmd.Flags().StringP(longName, shortName, defaultValue, description)
		viper.BindPFlag(key, runCmd.Flags().Lookup(longName))
		viper.BindEnv(key, envVar)
		viper.SetDefault(key, defaultValue)
	}

	{
		const (
			key          = config.KeyReadaheadDropBehind
			longName     = "drop-behind"
			shortName    = "d"
			defaultValue = false
			envVar       = "REAPFROG_DROP_BEHIND"
			description  = "Evict pages from the page cache once they have been read"
		)

		runCmd.Flags().BoolP(longName, shortName, defaultValue, description)
		viper.BindPFlag(key, runCmd.Flags().Lookup(longName))
		viper.BindEnv(key, envVar)
		viper.SetDefault(key, defaultValue)
	}

	{
		const (
			key          = config.KeyReadaheadMaxOpen
			longName     = "max-open"
			shortName    = ""
			defaultValue = readahead.DefaultMaxOpen
			description  = "Maximum number of files opened ahead of the reader"
		)

		runCmd.Flags().IntP(longName, shortName, defaultValue, description)
		viper.BindPFlag(key, runCmd.Flags().Lookup(longName))
		viper.SetDefault(key, defaultValue)
	}

	{
		const (
			key          = config.KeyRunBufferSize
			longName     = "buffer-size"
			shortName    = ""
			defaultValue = "64KiB"
			description  = "Size of each read(2)"
		)

		runCmd.Flags().StringP(longName, shortName, defaultValue, description)
		viper.BindPFlag(key, runCmd.Flags().Lookup(longName))
		viper.SetDefault(key, defaultValue)
	}

	{
		const (
			key          = config.KeyRunChecksum
			longName     = "checksum"
			shortName    = "c"
			defaultValue = false
			description  = "Print an xxhash64 checksum of every file to stdout"
		)

		runCmd.Flags().BoolP(longName, shortName, defaultValue, description)
		viper.BindPFlag(key, runCmd.Flags().Lookup(longName))
		viper.SetDefault(key, defaultValue)
	}

	{
		const (
			key          = config.KeyRunRecursive
			longName     = "recursive"
			shortName    = "r"
			defaultValue = false
			description  = "Descend into directories"
		)

		runCmd.Flags().BoolP(longName, shortName, defaultValue, description)
		viper.BindPFlag(key, runCmd.Flags().Lookup(longName))
		viper.SetDefault(key, defaultValue)
	}

	{
		const (
			key          = config.KeyRunDedupLinks
			longName     = "dedup-links"
			shortName    = ""
			defaultValue = 0
			description  = "With --recursive, remember up to this many hard-linked inodes and read each once"
		)

		runCmd.Flags().IntP(longName, shortName, defaultValue, description)
		viper.BindPFlag(key, runCmd.Flags().Lookup(longName))
		viper.SetDefault(key, defaultValue)
	}

	{
		const (
			key          = config.KeyRunStdin
			longName     = "stdin"
			shortName    = ""
			defaultValue = false
			description  = "Read newline-separated paths from stdin"
		)

		runCmd.Flags().BoolP(longName, shortName, defaultValue, description)
		viper.BindPFlag(key, runCmd.Flags().Lookup(longName))
		viper.SetDefault(key, defaultValue)
	}
}
