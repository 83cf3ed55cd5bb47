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
	_ "expvar"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"

	"github.com/google/gops/agent"
	"github.com/ludios/reapfrog/buildtime"
	"github.com/ludios/reapfrog/config"
	isatty "github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CLI flags
var (
	cfgFile string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   buildtime.PROGNAME,
	Short: buildtime.PROGNAME + ` streams files with bounded kernel readahead`,
	Long: `
Reading many files one after another leaves the disk idle between the end of
one file and the first read of the next: the kernel only reads ahead within a
file it has already seen.  ` + buildtime.PROGNAME + `(1) opens files ahead of the
reader and issues posix_fadvise(2) WILLNEED hints for them under a fixed byte
budget, so the device stays busy while the current file is consumed.

With drop-behind enabled, pages that have already been read are handed back to
the kernel with POSIX_FADV_DONTNEED so that a large scan does not evict the
rest of the page cache.

`,
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Re-initialize logging with user-supplied configuration parameters
		{
			// Logs go to stderr, stdout carries checksums.  os.Stderr isn't
			// guaranteed to be thread-safe, wrap in a sync writer.  Files are
			// guaranteed to be safe, terminals are not.
			var logWriter io.Writer
			if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
				logWriter = zerolog.SyncWriter(os.Stderr)
			} else {
				logWriter = os.Stderr
			}

			logFmt, err := config.LogFormatParse(viper.GetString(config.KeyAgentLogFormat))
			if err != nil {
				return errors.Wrap(err, "unable to parse log format")
			}

			if logFmt == config.LogFormatAuto {
				if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
					logFmt = config.LogFormatHuman
				} else {
					logFmt = config.LogFormatZerolog
				}
			}

			var zlog zerolog.Logger
			switch logFmt {
			case config.LogFormatZerolog:
				zlog = zerolog.New(logWriter).With().Timestamp().Logger()
			case config.LogFormatBunyan:
				hostname, err := os.Hostname()
				switch {
				case err != nil:
					return errors.Wrap(err, "unable to determine the hostname")
				case hostname == "":
					return fmt.Errorf("unable to use bunyan logging with an empty hostname")
				}

				zerolog.LevelFieldName = "level"

				zerolog.TimeFieldFormat = config.LogTimeFormatBunyan
				zerolog.TimestampFieldName = "time"
				zerolog.MessageFieldName = "msg"

				zlog = zerolog.New(logWriter).With().
					Timestamp().
					Int("v", 0). // Bunyan version
					Str("name", buildtime.PROGNAME).
					Str("hostname", hostname).
					Int("pid", os.Getpid()).
					Logger()
			case config.LogFormatHuman:
				useColor := viper.GetBool(config.KeyAgentUseColor)
				w := zerolog.ConsoleWriter{
					Out:     logWriter,
					NoColor: !useColor,
				}
				zlog = zerolog.New(w).With().Timestamp().Logger()
			default:
				return fmt.Errorf("unsupported log format: %q", logFmt)
			}

			log.Logger = zlog

			stdlog.SetFlags(0)
			stdlog.SetOutput(zlog)
		}

		// Perform input validation

		switch logLevel := strings.ToUpper(viper.GetString(config.KeyLogLevel)); logLevel {
		case "DEBUG":
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		case "INFO":
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		case "WARN":
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		case "ERROR":
			zerolog.SetGlobalLevel(zerolog.ErrorLevel)
		case "FATAL":
			zerolog.SetGlobalLevel(zerolog.FatalLevel)
		default:
			// FIXME(seanc@): move the supported log levels into a global constant
			return fmt.Errorf("unsupported error level: %q (supported levels: %s)", logLevel,
				strings.Join([]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}, " "))
		}

		go func() {
			if !viper.GetBool(config.KeyPProfEnable) {
				log.Debug().Msg("pprof endpoint disabled by request")
				return
			}

			pprofPort := viper.GetInt(config.KeyPProfPort)
			log.Debug().Int("pprof-port", pprofPort).Msg("starting pprof endpoint agent")
			if err := http.ListenAndServe(fmt.Sprintf("localhost:%d", pprofPort), nil); err != nil {
				log.Fatal().Err(err).Msg("unable to start the pprof listener")
			}
		}()

		if viper.GetBool(config.KeyGopsEnable) {
			if err := agent.Listen(agent.Options{}); err != nil {
				return errors.Wrap(err, "unable to start the gops agent")
			}
			log.Debug().Msg("gops agent started")
		}

		return nil
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		agent.Close()
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	zerolog.TimeFieldFormat = config.LogTimeFormat
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	// os.Stderr isn't guaranteed to be thread-safe, wrap in a sync writer.  Files
	// are guaranteed to be safe, terminals are not.
	zlog := zerolog.New(zerolog.SyncWriter(os.Stderr)).With().Timestamp().Logger()
	log.Logger = zlog

	stdlog.SetFlags(0)
	stdlog.SetOutput(zlog)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+buildtime.PROGNAME+".toml)")

	{
		const (
			key          = config.KeyLogLevel
			longName     = "log-level"
			shortName    = "l"
			defaultValue = "INFO"
			description  = "Log level"
		)

		RootCmd.PersistentFlags().StringP(longName, shortName, defaultValue, description)
		viper.BindPFlag(key, RootCmd.PersistentFlags().Lookup(longName))
		viper.SetDefault(key, defaultValue)
	}

	{
		const (
			key         = config.KeyAgentLogFormat
			longName    = "log-format"
			shortName   = "F"
			description = `Specify the log format ("auto", "zerolog", "human", or "bunyan")`
		)

		defaultValue := config.LogFormatAuto.String()
		RootCmd.PersistentFlags().StringP(longName, shortName, defaultValue, description)
		viper.BindPFlag(key, RootCmd.PersistentFlags().Lookup(longName))
		viper.SetDefault(key, defaultValue)
	}

	{
		const (
			key         = config.KeyAgentUseColor
			longName    = "use-color"
			shortName   = "C"
			description = "Use ASCII colors"
		)

		defaultValue := false
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			defaultValue = true
		}

		RootCmd.PersistentFlags().BoolP(longName, shortName, defaultValue, description)
		viper.BindPFlag(key, RootCmd.PersistentFlags().Lookup(longName))
		viper.SetDefault(key, defaultValue)
	}

	{
		const (
			key          = config.KeyGopsEnable
			longName     = "enable-gops"
			shortName    = ""
			defaultValue = false
			description  = "Enable the gops diagnostics agent"
		)

		RootCmd.PersistentFlags().BoolP(longName, shortName, defaultValue, description)
		viper.BindPFlag(key, RootCmd.PersistentFlags().Lookup(longName))
		viper.SetDefault(key, defaultValue)
	}

	{
		const (
			key          = config.KeyPProfEnable
			longName     = "enable-pprof"
			shortName    = ""
			defaultValue = false
			description  = "Enable the pprof endpoint interface"
		)

		RootCmd.PersistentFlags().BoolP(longName, shortName, defaultValue, description)
		viper.BindPFlag(key, RootCmd.PersistentFlags().Lookup(longName))
		viper.SetDefault(key, defaultValue)
	}

	{
		const (
			key          = config.KeyPProfPort
			longName     = "pprof-port"
			shortName    = ""
			defaultValue = 4242
			description  = "Specify the pprof port"
		)

		RootCmd.PersistentFlags().Uint16P(longName, shortName, defaultValue, description)
		viper.BindPFlag(key, RootCmd.PersistentFlags().Lookup(longName))
		viper.SetDefault(key, defaultValue)
	}

	{
		const (
			key          = config.KeyCirconusSubmissionURL
			longName     = "circonus-submission-url"
			shortName    = ""
			defaultValue = ""
			envVar       = "CIRCONUS_SUBMISSION_URL"
			description  = "Circonus HTTPTrap submission URL (metrics are disabled when empty)"
		)

		RootCmd.PersistentFlags().StringP(longName, shortName, defaultValue, description)
		viper.BindPFlag(key, RootCmd.PersistentFlags().Lookup(longName))
		viper.BindEnv(key, envVar)
		viper.SetDefault(key, defaultValue)
	}

	{
		const (
			key          = config.KeyCirconusAPIToken
			defaultValue = ""
			envVar       = "CIRCONUS_API_TOKEN"
		)

		viper.BindEnv(key, envVar)
		viper.SetDefault(key, defaultValue)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetConfigName(buildtime.PROGNAME)

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		d, err := os.Getwd()
		if err != nil {
			log.Warn().Err(err).Msg("unable to find the current working directory")
		} else {
			viper.AddConfigPath(d)
		}
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return
		}
		log.Warn().Err(err).Msg("Unable to read config file")
	}
}
