package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	server    string
	username  string
	profile   string
	exportDir string
	rounds    int
	strokes   int
	verbose   bool
}

func (c *Config) validate() error {
	if c.server == "" {
		return errors.New("--server is required")
	}
	if !strings.HasPrefix(c.server, "ws://") && !strings.HasPrefix(c.server, "wss://") {
		return fmt.Errorf("invalid server url (must start with ws:// or wss://): %s", c.server)
	}
	if c.rounds < 0 {
		return fmt.Errorf("invalid rounds (must not be negative): %d", c.rounds)
	}
	if c.strokes < 1 {
		return fmt.Errorf("invalid strokes (must be at least 1): %d", c.strokes)
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DUELBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "duelbot",
		Short:         "Joins the sketch duel queue and plays rounds with random scribbles.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return Play(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.server, "server", "s", "ws://localhost:8080/ws", "session authority websocket url (env: DUELBOT_SERVER)")
	fs.StringVarP(&cfg.username, "username", "u", "", "display name, saved to the profile (env: DUELBOT_USERNAME)")
	fs.StringVar(&cfg.profile, "profile", "duelbot.yaml", "path to the local profile file (env: DUELBOT_PROFILE)")
	fs.StringVar(&cfg.exportDir, "export-dir", "", "write each finished round as png and pdf here (env: DUELBOT_EXPORT_DIR)")
	fs.IntVarP(&cfg.rounds, "rounds", "n", 1, "rounds to play before exiting, 0 plays forever (env: DUELBOT_ROUNDS)")
	fs.IntVar(&cfg.strokes, "strokes", 4, "strokes drawn per round (env: DUELBOT_STROKES)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: DUELBOT_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("duelbot v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
