package channel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roman-kulish/cansat-telemetry/internal/telemetry"
	"github.com/roman-kulish/cansat-telemetry/internal/window"
)

const (
	AccelX    Channel = "accelX"
	AccelY    Channel = "accelY"
	AccelZ    Channel = "accelZ"
	GyroPitch Channel = "gyroPitch"
	GyroRoll  Channel = "gyroRoll"
	GyroYaw   Channel = "gyroYaw"

	// Environment channels, only present if enabled with WithEnvironmentChannels
	Altitude Channel = "altitude"
	TempBMP  Channel = "tempBmp"
	TempDHT  Channel = "tempDht"
)

// ErrUnknownChannel is returned when reading a channel the bank does not hold
var ErrUnknownChannel = errors.New("unknown channel")

var (
	imuChannels         = []Channel{AccelX, AccelY, AccelZ, GyroPitch, GyroRoll, GyroYaw}
	environmentChannels = []Channel{Altitude, TempBMP, TempDHT}
)

// Channel names a single scalar time series
type Channel string

func (c Channel) String() string {
	return string(c)
}

// WithCapacity sets the number of samples kept per channel
func WithCapacity(capacity int) func(*Bank) {
	return func(b *Bank) {
		b.capacity = capacity
	}
}

// WithEnvironmentChannels enables the altitude and temperature history channels
func WithEnvironmentChannels() func(*Bank) {
	return func(b *Bank) {
		b.environment = true
	}
}

// Bank owns one sliding window per plotted channel and updates all of them
// from a single frame in one critical section. Readers never observe some
// channels reflecting a frame while others still reflect the previous one.
type Bank struct {
	capacity    int
	environment bool

	mu       sync.RWMutex
	channels []Channel
	windows  map[Channel]*window.Window[float64]
}

// NewBank creates a Bank with pre-filled windows for the IMU channels and,
// optionally, the environment channels.
func NewBank(options ...func(*Bank)) (*Bank, error) {
	b := Bank{
		capacity: window.DefaultCapacity,
		windows:  make(map[Channel]*window.Window[float64]),
	}

	for _, option := range options {
		option(&b)
	}

	b.channels = append(b.channels, imuChannels...)
	if b.environment {
		b.channels = append(b.channels, environmentChannels...)
	}

	for _, ch := range b.channels {
		w, err := window.New[float64](b.capacity)
		if err != nil {
			return nil, fmt.Errorf("creating window for channel %s: %w", ch, err)
		}
		b.windows[ch] = w
	}

	return &b, nil
}

// Ingest appends the frame samples to their channels
func (b *Bank) Ingest(f telemetry.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.windows[AccelX].Append(float64(f.IMU.AccelX))
	b.windows[AccelY].Append(float64(f.IMU.AccelY))
	b.windows[AccelZ].Append(float64(f.IMU.AccelZ))
	b.windows[GyroPitch].Append(float64(f.IMU.Pitch))
	b.windows[GyroRoll].Append(float64(f.IMU.Roll))
	b.windows[GyroYaw].Append(float64(f.IMU.Yaw))

	if b.environment {
		b.windows[Altitude].Append(f.GPS.Altitude)
		b.windows[TempBMP].Append(float64(f.Environment.TempBMP))
		b.windows[TempDHT].Append(float64(f.Environment.TempDHT))
	}
}

// Snapshot returns a copy of the channel samples ordered oldest-first
func (b *Bank) Snapshot(ch Channel) ([]float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	w, ok := b.windows[ch]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, ch)
	}
	return w.Values(), nil
}

// SnapshotAll returns a copy of every channel taken under a single lock
func (b *Bank) SnapshotAll() map[Channel][]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[Channel][]float64, len(b.windows))
	for ch, w := range b.windows {
		out[ch] = w.Values()
	}
	return out
}

// Channels returns the channels held by the bank in display order
func (b *Bank) Channels() []Channel {
	return append([]Channel(nil), b.channels...)
}

// Capacity returns the number of samples kept per channel
func (b *Bank) Capacity() int {
	return b.capacity
}

// Reset refills every window with zero samples
func (b *Bank) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range b.windows {
		w.Reset()
	}
}
