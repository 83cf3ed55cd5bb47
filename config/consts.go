package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	KeyLogLevel = "log.level"

	KeyAgentLogFormat = "run.log-format"
	KeyAgentUseColor  = "run.use-color"
	KeyGopsEnable     = "run.gops.enable"
	KeyPProfEnable    = "run.pprof.enable"
	KeyPProfPort      = "run.pprof.port"

	KeyCirconusAPIToken      = "metrics.circonus.api-token"
	KeyCirconusSubmissionURL = "metrics.circonus.submission-url"

	KeyReadaheadBudget     = "readahead.budget"
	KeyReadaheadDropBehind = "readahead.drop-behind"
	KeyReadaheadMaxOpen    = "readahead.max-open"

	KeyRunBufferSize = "run.buffer-size"
	KeyRunChecksum   = "run.checksum"
	KeyRunDedupLinks = "run.dedup-links"
	KeyRunRecursive  = "run.recursive"
	KeyRunStdin      = "run.stdin"
)

const (
	MetricsFileOpenCount      = "ra-file-open-count"
	MetricsFileOpenErrorCount = "ra-file-open-error-count"
	MetricsFileRetiredCount   = "ra-file-retired-count"
	MetricsReadBytes          = "ra-read-bytes"
	MetricsReadErrorCount     = "ra-read-error-count"
	MetricsWillNeedBytes      = "ra-willneed-bytes"
	MetricsWillNeedCount      = "ra-willneed-count"
	MetricsDontNeedCount      = "ra-dontneed-count"
	MetricsAdviseErrorCount   = "ra-advise-error-count"
)

const (
	// Use a log format that resembles time.RFC3339Nano but includes all trailing
	// zeros so that we get fixed-width logging.
	LogTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

	// 8601 Extended Format: YYYY-MM-DDTHH:mm:ss.sssZ
	LogTimeFormatBunyan = "2006-01-02T15:04:05.000Z"

	StatsInterval = 60 * time.Second
)

type LogFormat uint

const (
	LogFormatAuto LogFormat = iota
	LogFormatZerolog
	LogFormatBunyan
	LogFormatHuman
)

func (f LogFormat) String() string {
	switch f {
	case LogFormatAuto:
		return "auto"
	case LogFormatZerolog:
		return "zerolog"
	case LogFormatBunyan:
		return "bunyan"
	case LogFormatHuman:
		return "human"
	default:
		panic(fmt.Sprintf("unknown log format: %d", f))
	}
}

func LogFormatParse(s string) (LogFormat, error) {
	switch logFormat := strings.ToLower(s); logFormat {
	case "auto":
		return LogFormatAuto, nil
	case "json", "zerolog":
		return LogFormatZerolog, nil
	case "bunyan":
		return LogFormatBunyan, nil
	case "human":
		return LogFormatHuman, nil
	default:
		return LogFormatAuto, fmt.Errorf("unsupported log format: %q", logFormat)
	}
}
