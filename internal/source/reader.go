package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"sync/atomic"
)

// ErrBrokenPipe is returned when reading from the underlying stream fails
var ErrBrokenPipe = errors.New("broken pipe")

// LineHandler consumes a single telemetry line
type LineHandler interface {
	OnLine(line string)
}

// LineHandlerFunc adapts a function to the LineHandler interface
type LineHandlerFunc func(line string)

func (f LineHandlerFunc) OnLine(line string) {
	f(line)
}

// WithLogger sets the logger for the reader
func WithLogger(logger *slog.Logger) func(r *Reader) {
	return func(r *Reader) {
		r.logger = logger.With(slog.String("source", r.name))
	}
}

// WithMaxLineLength sets the longest line accepted from the stream. Longer
// lines are dropped up to the next newline. Non-positive values are ignored.
func WithMaxLineLength(n int) func(r *Reader) {
	return func(r *Reader) {
		if n > 0 {
			r.maxLineLength = n
		}
	}
}

// Reader delivers lines from a byte stream, one telemetry record per line.
// Blank lines are skipped and surrounding whitespace is trimmed. Oversized
// lines are counted and dropped without ending the stream.
type Reader struct {
	name string
	src  io.Reader

	maxLineLength int
	isReading     atomic.Bool
	lines         atomic.Uint64
	dropped       atomic.Uint64

	logger *slog.Logger
}

// NewReader creates a new Reader with a discard logger
func NewReader(name string, src io.Reader, options ...func(r *Reader)) *Reader {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	r := Reader{
		name:          name,
		src:           src,
		maxLineLength: bufio.MaxScanTokenSize,
		logger:        logger,
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Run reads lines and hands them to h until the stream ends, the context is
// cancelled or a read error occurs. End of stream is not an error, and
// neither is a line longer than the configured maximum.
//
// Cancellation is checked between lines; a Read blocked on the underlying
// stream is released by closing the stream.
func (r *Reader) Run(ctx context.Context, h LineHandler) error {
	if !r.isReading.CompareAndSwap(false, true) {
		return fmt.Errorf("source %s is already being read", r.name)
	}
	defer r.isReading.Store(false)

	r.logger.Info("reading telemetry lines...")

	br := bufio.NewReaderSize(r.src, min(4096, r.maxLineLength))

	for {
		line, dropped, err := r.readLine(br)
		if ctx.Err() != nil {
			r.logger.Info("line source stopped", slog.Uint64("lines", r.lines.Load()))
			return nil
		}

		if dropped > 0 {
			r.dropped.Add(1)
			r.logger.Warn("dropping oversized line",
				slog.Int("bytes", dropped),
				slog.Int("maxLineLength", r.maxLineLength))
		} else if s := strings.TrimSpace(string(line)); s != "" {
			r.lines.Add(1)
			h.OnLine(s)
		}

		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, fs.ErrClosed) {
				break
			}
			return fmt.Errorf("%w: error reading %s: %w", ErrBrokenPipe, r.name, err)
		}
	}

	r.logger.Info("line source drained",
		slog.Uint64("lines", r.lines.Load()),
		slog.Uint64("dropped", r.dropped.Load()))
	return nil
}

// readLine returns the next line without its terminator. When the line
// exceeds maxLineLength its bytes are discarded through the next newline
// and only their count is returned.
func (r *Reader) readLine(br *bufio.Reader) (line []byte, dropped int, err error) {
	for {
		var chunk []byte
		chunk, err = br.ReadSlice('\n')
		if dropped > 0 {
			dropped += len(chunk)
		} else {
			line = append(line, chunk...)
			if len(bytes.TrimRight(line, "\r\n")) > r.maxLineLength {
				dropped, line = len(line), nil
			}
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return bytes.TrimRight(line, "\r\n"), dropped, err
	}
}

// Lines returns the number of non-blank lines delivered so far
func (r *Reader) Lines() uint64 {
	return r.lines.Load()
}

// Dropped returns the number of oversized lines discarded so far
func (r *Reader) Dropped() uint64 {
	return r.dropped.Load()
}

// IsReading returns true while Run is active
func (r *Reader) IsReading() bool {
	return r.isReading.Load()
}
