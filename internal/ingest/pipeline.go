package ingest

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roman-kulish/cansat-telemetry/internal/channel"
	"github.com/roman-kulish/cansat-telemetry/internal/telemetry"
)

const (
	// StatusIdle means no frame was applied in the current session yet
	StatusIdle Status = iota
	// StatusStreaming means at least one frame was applied
	StatusStreaming
)

// Status is the ingest state of a session
type Status int

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Stats holds the line counters of the current session
type Stats struct {
	Applied            uint64
	Rejected           uint64
	ConsecutiveRejects uint64
}

// Snapshot is a consistent view of the pipeline taken under a single lock
type Snapshot struct {
	Status   Status
	Seq      uint64
	Frame    telemetry.Frame
	HasFrame bool
	Channels map[channel.Channel][]float64
	Order    []channel.Channel // channels in display order
	Stats    Stats

	UpdatedAt time.Time // ReceivedAt of the applied Frame, zero without a frame
}

// WithLogger sets the logger for the pipeline
func WithLogger(logger *slog.Logger) func(*Pipeline) {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithSink registers a sink notified about every handled line
func WithSink(s Sink) func(*Pipeline) {
	return func(p *Pipeline) {
		p.sinks = append(p.sinks, s)
	}
}

// WithClock sets the time source used to stamp notifications and snapshots
func WithClock(now func() time.Time) func(*Pipeline) {
	return func(p *Pipeline) {
		p.now = now
	}
}

// Pipeline turns raw telemetry lines into bank and state updates.
//
// A decoded frame is applied to the channel bank and the telemetry state
// under one write lock, then sinks are notified with Applied. A malformed
// line leaves both untouched and sinks are notified with Rejected; the
// pipeline keeps accepting lines afterward.
type Pipeline struct {
	bank  *channel.Bank
	state *telemetry.State

	// lineMu serializes OnLine so frames are applied and notified in arrival order
	lineMu sync.Mutex

	// mu guards the per-frame update of bank, state and the fields below
	mu        sync.RWMutex
	status    Status
	seq       uint64
	stats     Stats
	updatedAt time.Time

	sinksMu sync.RWMutex
	sinks   []Sink

	now    func() time.Time
	logger *slog.Logger
}

// NewPipeline creates a new Pipeline in the Idle state
func NewPipeline(bank *channel.Bank, state *telemetry.State, options ...func(*Pipeline)) *Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	p := Pipeline{
		bank:   bank,
		state:  state,
		status: StatusIdle,
		now:    time.Now,
		logger: logger,
	}

	for _, option := range options {
		option(&p)
	}

	return &p
}

// AddSink registers a sink after the pipeline was created
func (p *Pipeline) AddSink(s Sink) {
	p.sinksMu.Lock()
	defer p.sinksMu.Unlock()

	p.sinks = append(p.sinks, s)
}

// OnLine handles a single raw telemetry line. It never fails: decoding
// errors are reported to the sinks as Rejected notifications.
func (p *Pipeline) OnLine(line string) {
	p.lineMu.Lock()
	defer p.lineMu.Unlock()

	receivedAt := p.now()

	f, err := telemetry.Parse(line)
	if err != nil {
		p.mu.Lock()
		p.stats.Rejected++
		p.stats.ConsecutiveRejects++
		p.mu.Unlock()

		p.notifyRejected(Rejected{Line: line, Err: err, ReceivedAt: receivedAt})
		return
	}

	p.mu.Lock()
	p.bank.Ingest(f)
	p.state.Replace(f)
	p.seq++
	p.updatedAt = receivedAt
	p.stats.Applied++
	p.stats.ConsecutiveRejects = 0

	seq := p.seq
	if p.status == StatusIdle {
		p.status = StatusStreaming
		p.logger.Info("first frame applied, streaming")
	}
	p.mu.Unlock()

	p.notifyApplied(Applied{Seq: seq, Frame: f, ReceivedAt: receivedAt})
}

// Status returns the current session status
func (p *Pipeline) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.status
}

// Stats returns the line counters of the current session
func (p *Pipeline) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.stats
}

// Snapshot returns the latest frame together with all channel windows,
// guaranteed to reflect the same applied frame.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	f, ok := p.state.Current()
	return Snapshot{
		Status:   p.status,
		Seq:      p.seq,
		Frame:    f,
		HasFrame: ok,
		Channels: p.bank.SnapshotAll(),
		Order:    p.bank.Channels(),
		Stats:    p.stats,

		UpdatedAt: p.updatedAt,
	}
}

// Reset starts a new session: windows are refilled with zero samples,
// the state reports no data and the pipeline returns to Idle.
func (p *Pipeline) Reset() {
	p.lineMu.Lock()
	defer p.lineMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.bank.Reset()
	p.state.Reset()
	p.status = StatusIdle
	p.seq = 0
	p.stats = Stats{}
	p.updatedAt = time.Time{}

	p.logger.Info("session reset")
}

func (p *Pipeline) notifyApplied(e Applied) {
	p.sinksMu.RLock()
	defer p.sinksMu.RUnlock()

	for _, s := range p.sinks {
		s.FrameApplied(e)
	}
}

func (p *Pipeline) notifyRejected(e Rejected) {
	p.sinksMu.RLock()
	defer p.sinksMu.RUnlock()

	for _, s := range p.sinks {
		s.FrameRejected(e)
	}
}
