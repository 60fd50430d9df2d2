package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/deepnoodle-ai/numvm/config"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdin).ExecuteContext(ctx); err != nil {
		stop()
		fatal(err)
	}
}

// app holds state shared by all commands of one invocation.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger zerolog.Logger
	stdin  io.Reader
}

func newRootCmd(stdin io.Reader) *cobra.Command {
	a := &app{
		v:      viper.New(),
		cfg:    config.Default(),
		logger: zerolog.Nop(),
		stdin:  stdin,
	}
	root := &cobra.Command{
		Use:           "numvm",
		Short:         "Run and inspect numeric bytecode",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	// Global flags
	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default ~/.numvm.toml)")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	_ = a.v.BindPFlags(flags)

	a.v.SetEnvPrefix("numvm")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindEnv("no-color", "NUMVM_NO_COLOR", "NO_COLOR")

	root.AddCommand(
		a.newRunCmd(),
		a.newDisCmd(),
		a.newBuildCmd(),
		a.newDemoCmd(),
		a.newVersionCmd(),
	)
	return root
}

// setup loads the config file, then applies it beneath flags and
// environment variables.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.v.GetString("config")
	optional := path == ""
	if optional {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.v.SetDefault("trace", cfg.Trace)
	a.v.SetDefault("stack-max", cfg.StackMax)
	a.v.SetDefault("output", cfg.Output)
	a.v.SetDefault("log-level", cfg.LogLevel)

	processGlobalFlags(a.v, cfg)

	level, err := (&config.Config{LogLevel: a.v.GetString("log-level")}).Level()
	if err != nil {
		return err
	}
	a.logger = newLogger(cmd.ErrOrStderr(), level)
	a.logger.Debug().Str("config", cfg.Path).Str("command", cmd.Name()).Msg("configured")
	return nil
}

// bindFlags binds the named local flags of cmd so that they take
// precedence over the config file.
func (a *app) bindFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = a.v.BindPFlag(name, f)
		}
	}
}

func (a *app) useColor() bool {
	return !color.NoColor
}
