package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loykin/servermgr/internal/app"
	"github.com/loykin/servermgr/internal/config"
	"github.com/loykin/servermgr/internal/logger"
	"github.com/loykin/servermgr/internal/process"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// usageError is the message printed when the process arguments are missing.
func usageError(name string) error {
	return fmt.Errorf("Syntax:\n\t%s \"path/to/server/process\" \"path/to/working/dir\" arg1 arg2 arg3...", name)
}

func newRootCommand() *cobra.Command {
	v := config.NewViper()
	name := filepath.Base(os.Args[0])

	root := &cobra.Command{
		Use:   name + " <server executable> <working dir> [args...]",
		Short: "Run a server process and relay its console to Discord",
		Long: `Runs a server process, shows its output in a local console and relays it
to the configured Discord channels. Commands can be sent to the process from
the console, from the servermanager slash commands and from the optional
localhost management listener.

Examples:
  servermgr ./bin/server /srv/game -port 27015
  ServerManagerBot_ManagementPort=8085 servermgr ./bin/server /srv/game`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return usageError(name)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, args)
		},
	}
	// everything after the working dir belongs to the server process
	root.Flags().SetInterspersed(false)
	if err := config.BindFlags(v, root.Flags()); err != nil {
		panic(err)
	}
	return root
}

func run(cmd *cobra.Command, v *viper.Viper, args []string) error {
	settings := config.LoadSettings(v)

	bot, err := config.LoadBot(settings.ConfPath)
	if err != nil {
		return fmt.Errorf("Discord configuration could not be loaded from %s", settings.ConfPath)
	}

	logCfg := logger.Config{
		Slog: logger.SlogConfig{
			Level:      logger.Level(settings.LogLevel),
			Format:     logger.FormatText,
			Color:      true,
			TimeStamps: true,
		},
		File: logger.FileConfig{Path: settings.LogFile, Compress: true},
	}
	w := logCfg.Writer()
	defer func() { _ = w.Close() }()
	log := logCfg.NewSlogger(w)

	spec := process.Spec{
		Path:      args[0],
		WorkDir:   args[1],
		Args:      args[2:],
		Transport: process.TransportFor(settings.UsePTY),
	}
	log.Info("servermgr starting", "path", spec.Path, "work_dir", spec.WorkDir, "transport", spec.Transport)

	a, err := app.New(spec, settings, bot, app.WithLogger(log), app.WithLogConfig(logCfg))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Run(ctx)
}
