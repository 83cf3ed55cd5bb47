package cmd

import (
	cgm "github.com/circonus-labs/circonus-gometrics"
	"github.com/ludios/reapfrog/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type flusher interface {
	Increment(metric string)
	Add(metric string, val uint64)
	Flush()
}

type nopMetrics struct{}

func (nopMetrics) Increment(string) {}
func (nopMetrics) Add(string, uint64) {}
func (nopMetrics) Flush() {}

// newMetrics submits pipeline counters to Circonus when a submission URL is
// configured.
func newMetrics() (flusher, error) {
	submissionURL := viper.GetString(config.KeyCirconusSubmissionURL)
	if submissionURL == "" {
		log.Debug().Msg("metrics disabled")
		return nopMetrics{}, nil
	}

	cfg := &cgm.Config{}
	cfg.Interval = config.StatsInterval.String()
	cfg.CheckManager.Check.SubmissionURL = submissionURL
	cfg.CheckManager.API.TokenKey = viper.GetString(config.KeyCirconusAPIToken)

	metrics, err := cgm.NewCirconusMetrics(cfg)
	if err != nil {
		return nil, err
	}
	metrics.Start()

	log.Debug().Str("submission-url", submissionURL).Msg("circonus metrics enabled")
	return metrics, nil
}
