package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roman-kulish/cansat-telemetry/internal/channel"
	"github.com/roman-kulish/cansat-telemetry/internal/ingest"
	"github.com/roman-kulish/cansat-telemetry/internal/metrics"
	"github.com/roman-kulish/cansat-telemetry/internal/readout"
	"github.com/roman-kulish/cansat-telemetry/internal/source"
	"github.com/roman-kulish/cansat-telemetry/internal/telemetry"
)

// Run reads telemetry lines from the configured input until it ends or ctx
// is cancelled, printing periodic status readouts to stdout.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	in, name, err := openInput(config.Input.Path)
	if err != nil {
		return err
	}

	return run(ctx, config, logger, in, name, os.Stdout)
}

func openInput(path string) (io.ReadCloser, string, error) {
	if path == StdinPath {
		return os.Stdin, "stdin", nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening input '%s': %w", path, err)
	}
	return f, path, nil
}

func run(ctx context.Context, config *Config, logger *slog.Logger, in io.ReadCloser, name string, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)

	// the input is closed here only; closing it also releases a Read
	// blocked on a quiet device
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		<-ctx.Done()
		_ = in.Close()
	}()
	defer func() {
		cancel()
		<-closed
	}()

	pipeline, err := createPipeline(config, logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	opts := []func(*source.Reader){source.WithLogger(logger)}
	if config.Input.MaxLineLength > 0 {
		opts = append(opts, source.WithMaxLineLength(config.Input.MaxLineLength))
	}
	reader := source.NewReader(name, in, opts...)

	var wg sync.WaitGroup
	if config.Readout.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			printReadouts(ctx, pipeline, time.Duration(config.Readout.Interval), out, logger)
		}()
	}

	err = reader.Run(ctx, pipeline)

	cancel()
	wg.Wait()

	stats := pipeline.Stats()
	logger.Info("telemetry ingest finished",
		slog.Group("stats",
			slog.Uint64("lines", reader.Lines()),
			slog.Uint64("dropped", reader.Dropped()),
			slog.Uint64("applied", stats.Applied),
			slog.Uint64("rejected", stats.Rejected),
		))

	if config.Readout.Enabled {
		if rerr := readout.Render(out, pipeline.Snapshot(), time.Now()); rerr != nil {
			logger.Error(fmt.Sprintf("rendering readout: %s", rerr.Error()))
		}
	}

	if err != nil {
		return fmt.Errorf("reading telemetry: %w", err)
	}
	return nil
}

func createPipeline(config *Config, logger *slog.Logger, reg prometheus.Registerer) (*ingest.Pipeline, error) {
	opts := []func(*channel.Bank){channel.WithCapacity(config.Buffers.Capacity)}
	if config.Buffers.EnvironmentChannels {
		opts = append(opts, channel.WithEnvironmentChannels())
	}

	bank, err := channel.NewBank(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating channel bank: %w", err)
	}

	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("creating metrics collector: %w", err)
	}

	return ingest.NewPipeline(bank, telemetry.NewState(),
		ingest.WithLogger(logger),
		ingest.WithSink(ingest.NewLogSink(logger)),
		ingest.WithSink(collector),
	), nil
}

func printReadouts(ctx context.Context, pipeline *ingest.Pipeline, interval time.Duration, out io.Writer, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-ctx.Done():
			return

		case now := <-ticker.C:
			s := pipeline.Snapshot()
			if s.Seq == lastSeq && s.Status == ingest.StatusStreaming {
				continue // nothing new since the last readout
			}
			lastSeq = s.Seq

			if err := readout.Render(out, s, now); err != nil {
				logger.Error(fmt.Sprintf("rendering readout: %s", err.Error()))
			}
		}
	}
}
