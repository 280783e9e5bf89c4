package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	dotenv "github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/roman-kulish/cansat-telemetry/cmd/cansat/app"
)

// version is set at build time with -ldflags "-X main.version=1.2.3"
var version = "dev"

const configEnv = "CANSAT_CONFIG"

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	if err := dotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error(fmt.Sprintf("failed to load .env file: %s", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand(logger, &logLevel).ExecuteContext(ctx); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}

func newRootCommand(logger *slog.Logger, logLevel *slog.LevelVar) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cansat",
		Short:         "cansat decodes CanSat telemetry lines and reports live status",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newRunCommand(logger, logLevel))
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

func newRunCommand(logger *slog.Logger, logLevel *slog.LevelVar) *cobra.Command {
	var configPath, inputPath string

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Read telemetry lines from a file, device node or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := app.NewConfig()
			if configPath != "" {
				var err error
				if config, err = app.LoadConfig(configPath); err != nil {
					return fmt.Errorf("failed to load configuration file '%s': %w", configPath, err)
				}
			}

			if cmd.Flags().Changed("input") {
				config.Input.Path = inputPath
			}

			level, err := config.Level()
			if err != nil {
				return err
			}
			logLevel.Set(level)

			return app.Run(cmd.Context(), config, logger)
		},
	}

	runCmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv(configEnv), "Path to the configuration file")
	runCmd.Flags().StringVarP(&inputPath, "input", "i", app.StdinPath, "Telemetry input path, '-' for stdin")
	return runCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the application version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", version)
			return nil
		},
	}
}
