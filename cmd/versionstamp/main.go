package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/terrpan/versionstamp/internal/buildinfo"
	"github.com/terrpan/versionstamp/internal/config"
	"github.com/terrpan/versionstamp/internal/otel"
	"github.com/terrpan/versionstamp/internal/stamp"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// %+v prints the stack recorded by pkg/errors.
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "versionstamp",
	Short: "Write public/version.json for the front-end",
	Long: `versionstamp reads package.json in the current directory and writes
public/version.json with the package version, the short commit from
$GITHUB_SHA and the current time:

  {"version":"2.3.1","commit":"abcdef1","date":"2026-02-19T12:34:56.789Z"}

A missing package.json is not an error: the command logs it and exits 0
so later build steps keep running. Malformed JSON or a failed write exits 1.

Logging and telemetry are configured through VERSIONSTAMP_LOG_LEVEL,
VERSIONSTAMP_LOG_FORMAT, OTEL_EXPORTER_OTLP_ENDPOINT,
VERSIONSTAMP_OTEL_STDOUT and VERSIONSTAMP_METRICS_TEXTFILE.`,
	Version:       buildinfo.String(),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()

		wd, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "resolving working directory")
		}
		return execute(ctx, config.FromEnv(os.Getenv, wd), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

// execute validates cfg, sets up logging and telemetry, and stamps.  The
// confirmation line goes to out; the skip line and warnings go to errOut.
func execute(ctx context.Context, cfg *config.Config, out, errOut io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	logger := cfg.NewLogger(out)
	errLogger := cfg.NewLogger(errOut)
	logger.Debug("configuration loaded",
		slog.String("workDir", cfg.WorkDir),
		slog.Bool("commitSet", cfg.CommitSHA != ""),
		slog.Bool("otlp", cfg.OTel.Endpoint != ""),
		slog.String("metricsTextfile", cfg.Metrics.Textfile),
	)

	shutdown, err := otel.SetupOTelSDK(ctx, "versionstamp", cfg.TelemetryConfig())
	if err != nil {
		return errors.Wrap(err, "setting up telemetry")
	}
	defer func() {
		if sErr := shutdown(context.WithoutCancel(ctx)); sErr != nil {
			errLogger.Warn("failed to flush telemetry", slog.String("error", sErr.Error()))
		}
	}()

	return run(ctx, cfg, logger, errLogger)
}

// run stamps cfg.WorkDir.  A missing descriptor is logged to errLogger and
// swallowed; every other error is returned and ends the process with status 1.
func run(ctx context.Context, cfg *config.Config, logger, errLogger *slog.Logger) error {
	s := stamp.New(stamp.Options{
		Dir:       cfg.WorkDir,
		CommitSHA: cfg.CommitSHA,
		Logger:    logger,
	})

	if _, err := s.Run(ctx); err != nil {
		if errors.Is(err, stamp.ErrDescriptorNotFound) {
			errLogger.Error("descriptor not found, skipping",
				slog.String("path", s.DescriptorPath()),
			)
			return nil
		}
		return err
	}
	return nil
}
