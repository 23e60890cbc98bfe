package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind          string
	port          int
	countdownSecs int64
	raceWordCount int
	origin        string
	verbose       bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.countdownSecs < 1 {
		return fmt.Errorf("countdown must be at least 1 second: %d", c.countdownSecs)
	}
	if c.raceWordCount < 1 {
		return fmt.Errorf("race word count must be positive: %d", c.raceWordCount)
	}
	return nil
}

func (c *Config) addr() string {
	return fmt.Sprintf("%s:%d", c.bind, c.port)
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("RACEBACKEND")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "race-backend",
		Short:         "Multiplayer typing race coordination server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: RACEBACKEND_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: RACEBACKEND_PORT)")
	fs.Int64Var(&cfg.countdownSecs, "countdown", 5, "pre-race countdown in seconds (env: RACEBACKEND_COUNTDOWN)")
	fs.IntVar(&cfg.raceWordCount, "race-words", 40, "words per race text (env: RACEBACKEND_RACE_WORDS)")
	fs.StringVar(&cfg.origin, "origin", "http://localhost:3000", "allowed CORS origin (env: RACEBACKEND_ORIGIN)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "development logging (env: RACEBACKEND_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}
