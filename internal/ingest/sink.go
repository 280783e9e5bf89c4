package ingest

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roman-kulish/cansat-telemetry/internal/telemetry"
)

// Applied is emitted after a frame has been applied to the bank and state
type Applied struct {
	Seq        uint64 // 1-based sequence number within the session
	Frame      telemetry.Frame
	ReceivedAt time.Time
}

// Rejected is emitted for a line that could not be decoded.
// Err is a *telemetry.FieldCountError or *telemetry.FieldParseError.
type Rejected struct {
	Line       string
	Err        error
	ReceivedAt time.Time
}

// Sink is notified about every line handled by the Pipeline. Notifications
// are delivered on the goroutine calling OnLine, in arrival order. A sink
// may call Pipeline.Snapshot from within a notification.
type Sink interface {
	FrameApplied(e Applied)
	FrameRejected(e Rejected)
}

// SinkFuncs adapts a pair of functions to the Sink interface. Nil functions are skipped.
type SinkFuncs struct {
	OnApplied  func(e Applied)
	OnRejected func(e Rejected)
}

func (s SinkFuncs) FrameApplied(e Applied) {
	if s.OnApplied != nil {
		s.OnApplied(e)
	}
}

func (s SinkFuncs) FrameRejected(e Rejected) {
	if s.OnRejected != nil {
		s.OnRejected(e)
	}
}

// LogSink logs rejected lines at warn level and applied frames at debug level
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a new LogSink writing to logger
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) FrameApplied(e Applied) {
	s.logger.Debug("frame applied",
		slog.Uint64("seq", e.Seq),
		slog.Bool("freeFall", e.Frame.Status.FreeFall),
		slog.String("sdStatus", e.Frame.Status.SDStatus))
}

func (s *LogSink) FrameRejected(e Rejected) {
	s.logger.Warn(fmt.Sprintf("error parsing telemetry: %s", e.Err.Error()),
		slog.String("reason", telemetry.Reason(e.Err)),
		slog.String("line", e.Line))
}
