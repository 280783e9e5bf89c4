package ingest

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/roman-kulish/cansat-telemetry/internal/channel"
	"github.com/roman-kulish/cansat-telemetry/internal/telemetry"
)

const sampleLine = "12.34,56.78,100.5,5.2,7,1.0,2.0,3.0,0.1,0.2,0.3,25.4,1013.2,24.9,45.0,7.4,80,3.3,1.2,400.5,2.1,0,Idle"

// recorder captures sink notifications
type recorder struct {
	mu       sync.Mutex
	applied  []Applied
	rejected []Rejected
}

func (r *recorder) FrameApplied(e Applied) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, e)
}

func (r *recorder) FrameRejected(e Rejected) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, e)
}

func newTestPipeline(t *testing.T, options ...func(*Pipeline)) (*Pipeline, *recorder) {
	t.Helper()

	bank, err := channel.NewBank(channel.WithEnvironmentChannels())
	if err != nil {
		t.Fatalf("Failed to create bank: %v", err)
	}

	rec := &recorder{}
	options = append(options, WithSink(rec))
	return NewPipeline(bank, telemetry.NewState(), options...), rec
}

func lastSample(t *testing.T, s Snapshot, ch channel.Channel) float64 {
	t.Helper()

	values, ok := s.Channels[ch]
	if !ok {
		t.Fatalf("Channel %s missing from snapshot", ch)
	}
	return values[len(values)-1]
}

func TestPipeline_AppliesValidLine(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p, rec := newTestPipeline(t, WithClock(func() time.Time { return fixed }))

	if p.Status() != StatusIdle {
		t.Fatalf("Expected idle pipeline, got %s", p.Status())
	}

	p.OnLine(sampleLine)

	if p.Status() != StatusStreaming {
		t.Errorf("Expected streaming pipeline, got %s", p.Status())
	}

	s := p.Snapshot()
	if !s.HasFrame {
		t.Fatal("Expected a frame in snapshot")
	}
	if !s.UpdatedAt.Equal(fixed) {
		t.Errorf("Expected snapshot stamped with %s, got %s", fixed, s.UpdatedAt)
	}
	if s.Frame.GPS.Latitude != 12.34 {
		t.Errorf("Expected latitude 12.34, got %v", s.Frame.GPS.Latitude)
	}
	if s.Frame.Status.FreeFall {
		t.Error("Expected free fall to be false")
	}
	if s.Frame.Status.SDStatus != "Idle" {
		t.Errorf("Expected SD status Idle, got %q", s.Frame.Status.SDStatus)
	}
	if v := lastSample(t, s, channel.AccelX); v != 1.0 {
		t.Errorf("Expected accelX last sample 1.0, got %v", v)
	}
	if v := lastSample(t, s, channel.GyroYaw); v != float64(float32(0.3)) {
		t.Errorf("Expected gyroYaw last sample 0.3, got %v", v)
	}
	if v := lastSample(t, s, channel.Altitude); v != 100.5 {
		t.Errorf("Expected altitude last sample 100.5, got %v", v)
	}

	if len(rec.applied) != 1 || len(rec.rejected) != 0 {
		t.Fatalf("Expected 1 applied and 0 rejected notifications, got %d and %d", len(rec.applied), len(rec.rejected))
	}
	if e := rec.applied[0]; e.Seq != 1 || !e.ReceivedAt.Equal(fixed) || e.Frame != s.Frame {
		t.Errorf("Unexpected applied notification: %+v", e)
	}
}

func TestPipeline_RejectedLineLeavesStateUnchanged(t *testing.T) {
	testCases := []struct {
		name   string
		line   string
		target error
	}{
		{"non-numeric yaw", strings.Replace(sampleLine, ",0.3,", ",abc,", 1), telemetry.ErrFieldParse},
		{"ten fields", "1,2,3,4,5,6,7,8,9,10", telemetry.ErrFieldCount},
		{"empty line", "", telemetry.ErrFieldCount},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, rec := newTestPipeline(t)
			p.OnLine(sampleLine)

			before := p.Snapshot()
			p.OnLine(tc.line)
			after := p.Snapshot()

			if after.Frame != before.Frame || after.Seq != before.Seq || after.Status != before.Status {
				t.Errorf("State changed by rejected line: before %+v, after %+v", before.Frame, after.Frame)
			}
			for ch, values := range before.Channels {
				for i := range values {
					if after.Channels[ch][i] != values[i] {
						t.Fatalf("Channel %s changed by rejected line at sample %d", ch, i)
					}
				}
			}

			if len(rec.rejected) != 1 {
				t.Fatalf("Expected 1 rejected notification, got %d", len(rec.rejected))
			}
			if e := rec.rejected[0]; e.Line != tc.line || !errors.Is(e.Err, tc.target) {
				t.Errorf("Unexpected rejected notification: %+v", e)
			}
			if after.Stats.Rejected != 1 || after.Stats.ConsecutiveRejects != 1 {
				t.Errorf("Unexpected stats: %+v", after.Stats)
			}
		})
	}
}

func TestPipeline_RejectedDetails(t *testing.T) {
	p, rec := newTestPipeline(t)

	p.OnLine(strings.Replace(sampleLine, ",0.3,", ",abc,", 1))
	p.OnLine("1,2,3,4,5,6,7,8,9,10")

	if p.Status() != StatusIdle {
		t.Errorf("Expected pipeline to stay idle, got %s", p.Status())
	}
	if p.Snapshot().HasFrame {
		t.Error("Expected no frame after rejected lines only")
	}

	var parseErr *telemetry.FieldParseError
	if !errors.As(rec.rejected[0].Err, &parseErr) || parseErr.Index != 10 || parseErr.Value != "abc" {
		t.Errorf("Expected FieldParseError(10, \"abc\"), got %v", rec.rejected[0].Err)
	}

	var countErr *telemetry.FieldCountError
	if !errors.As(rec.rejected[1].Err, &countErr) || countErr.Expected != 23 || countErr.Actual != 10 {
		t.Errorf("Expected FieldCountError(23, 10), got %v", rec.rejected[1].Err)
	}
}

func TestPipeline_KeepsAcceptingAfterRejects(t *testing.T) {
	p, rec := newTestPipeline(t)

	for i := 0; i < 50; i++ {
		p.OnLine("garbage")
	}
	p.OnLine(sampleLine)

	stats := p.Stats()
	if stats.Applied != 1 || stats.Rejected != 50 || stats.ConsecutiveRejects != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if len(rec.applied) != 1 {
		t.Errorf("Expected 1 applied notification, got %d", len(rec.applied))
	}
}

func TestPipeline_SequenceInArrivalOrder(t *testing.T) {
	p, rec := newTestPipeline(t)

	for i := 1; i <= 5; i++ {
		p.OnLine(strings.Replace(sampleLine, "1.0,2.0,3.0", fmt.Sprintf("%d,2.0,3.0", i), 1))
	}

	for i, e := range rec.applied {
		if e.Seq != uint64(i+1) {
			t.Errorf("Notification %d: expected seq %d, got %d", i, i+1, e.Seq)
		}
		if e.Frame.IMU.AccelX != float32(i+1) {
			t.Errorf("Notification %d: expected accelX %d, got %v", i, i+1, e.Frame.IMU.AccelX)
		}
	}
}

func TestPipeline_SinkMaySnapshot(t *testing.T) {
	p, _ := newTestPipeline(t)

	var seen []uint64
	p.AddSink(SinkFuncs{
		OnApplied: func(e Applied) {
			seen = append(seen, p.Snapshot().Seq)
		},
	})

	p.OnLine(sampleLine)
	p.OnLine("bad")
	p.OnLine(sampleLine)

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("Expected snapshot sequences [1 2], got %v", seen)
	}
}

func TestPipeline_Reset(t *testing.T) {
	p, _ := newTestPipeline(t)

	p.OnLine(sampleLine)
	p.Reset()

	s := p.Snapshot()
	if s.Status != StatusIdle || s.HasFrame || s.Seq != 0 || s.Stats != (Stats{}) || !s.UpdatedAt.IsZero() {
		t.Errorf("Unexpected snapshot after reset: %+v", s)
	}
	if v := lastSample(t, s, channel.AccelX); v != 0 {
		t.Errorf("Expected zero accelX after reset, got %v", v)
	}
}

func TestPipeline_ConcurrentReadersSeeConsistentFrames(t *testing.T) {
	p, _ := newTestPipeline(t)

	const frames = 1000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 1; i <= frames; i++ {
			v := fmt.Sprintf("%d", i)
			fields := strings.Split(sampleLine, ",")
			for _, idx := range []int{
				telemetry.FieldAccelX, telemetry.FieldAccelY, telemetry.FieldAccelZ,
				telemetry.FieldPitch, telemetry.FieldRoll, telemetry.FieldYaw,
			} {
				fields[idx] = v
			}
			p.OnLine(strings.Join(fields, ","))
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < frames; i++ {
			s := p.Snapshot()
			expected := float64(s.Frame.IMU.AccelX)
			for _, ch := range []channel.Channel{
				channel.AccelX, channel.AccelY, channel.AccelZ,
				channel.GyroPitch, channel.GyroRoll, channel.GyroYaw,
			} {
				values := s.Channels[ch]
				if v := values[len(values)-1]; v != expected {
					t.Errorf("Torn snapshot: channel %s = %v, frame accelX = %v", ch, v, expected)
					return
				}
			}
		}
	}()

	wg.Wait()
}
