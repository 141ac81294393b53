package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every flag the server binary accepts, per spec.md §6's CLI
// surface plus the bind/seed knobs a real deployment needs.
type Config struct {
	workingDir     string
	bind           string
	port           int
	nonInteractive bool
	seed           int64
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("LASERHOCKEY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "laserhockey-server",
		Short:         "Competition server for laser-hockey reinforcement-learning matches.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.workingDir, "working-dir", "/tmp/laser-hockey-rl/server/logs", "directory for persisted avatars, leaderboard, stats, and replays (env: LASERHOCKEY_WORKING_DIR)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: LASERHOCKEY_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 33000, "port to listen on (env: LASERHOCKEY_PORT)")
	fs.BoolVar(&cfg.nonInteractive, "non-interactive", false, "disable the admin console (env: LASERHOCKEY_NON_INTERACTIVE)")
	fs.Int64Var(&cfg.seed, "seed", 0, "seed for the matchmaker's weighted random choice and the environment's physics (env: LASERHOCKEY_SEED)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceUsage = true

	return cmd
}
