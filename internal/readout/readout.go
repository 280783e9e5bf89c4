package readout

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/cansat-telemetry/internal/channel"
	"github.com/roman-kulish/cansat-telemetry/internal/ingest"
	"github.com/roman-kulish/cansat-telemetry/internal/telemetry"
)

const (
	placeholder = "-"
	digits      = 2
)

// Panel is a titled group of status labels
type Panel struct {
	Title  string
	Labels []string
}

// Panels builds the status labels for a frame. A nil frame renders
// placeholders for every value.
func Panels(f *telemetry.Frame) []Panel {
	num := func(v float64, unit string) string {
		if f == nil {
			return withUnit(placeholder, unit)
		}
		return withUnit(humanize.FtoaWithDigits(v, digits), unit)
	}
	num32 := func(v float32, unit string) string {
		return num(widen(v), unit)
	}

	var frame telemetry.Frame
	if f != nil {
		frame = *f
	}

	freeFall := "No"
	sdStatus := "Idle"
	if f != nil {
		if frame.Status.FreeFall {
			freeFall = "Yes"
		}
		sdStatus = frame.Status.SDStatus
	}

	return []Panel{
		{
			Title: "GPS Data",
			Labels: []string{
				"Latitude: " + num(frame.GPS.Latitude, ""),
				"Longitude: " + num(frame.GPS.Longitude, ""),
				"Altitude (GPS): " + num(frame.GPS.Altitude, "m"),
				"Speed: " + num(frame.GPS.Speed, "m/s"),
			},
		},
		{
			Title: "System Status",
			Labels: []string{
				"Battery: " + num32(frame.Power.BatteryVoltage, "V"),
				"Charge: " + num32(frame.Power.BatteryPercent, "%"),
				"Regulator: " + num32(frame.Power.RegulatorVoltage, "V"),
				"SD Card: " + sdStatus,
			},
		},
		{
			Title: "Environment",
			Labels: []string{
				"Temp (BMP): " + num32(frame.Environment.TempBMP, "°C"),
				"Temp (DHT): " + num32(frame.Environment.TempDHT, "°C"),
				"Humidity: " + num32(frame.Environment.Humidity, "%"),
				"Pressure: " + num32(frame.Environment.Pressure, "hPa"),
			},
		},
		{
			Title: "Gas Sensors",
			Labels: []string{
				"CO: " + num32(frame.Gas.CO, "ppm"),
				"CO₂: " + num32(frame.Gas.CO2, "ppm"),
				"CH₄: " + num32(frame.Gas.CH4, "ppm"),
				"Free Fall: " + freeFall,
			},
		},
	}
}

// Latest builds the status labels from the most recent frame of p
func Latest(p telemetry.Provider) []Panel {
	f, ok := p.Current()
	if !ok {
		return Panels(nil)
	}
	return Panels(&f)
}

// ChannelSummary describes the recent history of a channel
type ChannelSummary struct {
	Channel channel.Channel
	Last    float64
	Min     float64
	Max     float64
}

// Summarize returns last, min and max of every channel in display order.
// NaN samples are skipped for min and max.
func Summarize(s ingest.Snapshot) []ChannelSummary {
	out := make([]ChannelSummary, 0, len(s.Order))
	for _, ch := range s.Order {
		values := s.Channels[ch]
		if len(values) == 0 {
			continue
		}

		sum := ChannelSummary{
			Channel: ch,
			Last:    values[len(values)-1],
			Min:     math.Inf(1),
			Max:     math.Inf(-1),
		}
		for _, v := range values {
			if math.IsNaN(v) {
				continue
			}
			sum.Min = min(sum.Min, v)
			sum.Max = max(sum.Max, v)
		}
		out = append(out, sum)
	}
	return out
}

// Render writes the status panels, channel summaries and ingest counters of s to w
func Render(w io.Writer, s ingest.Snapshot, now time.Time) error {
	var b strings.Builder

	var frame *telemetry.Frame
	if s.HasFrame {
		frame = &s.Frame
	}

	for _, p := range Panels(frame) {
		b.WriteString(p.Title)
		b.WriteByte('\n')
		for _, label := range p.Labels {
			b.WriteString("  ")
			b.WriteString(label)
			b.WriteByte('\n')
		}
	}

	if s.HasFrame {
		b.WriteString("History\n")
		for _, sum := range Summarize(s) {
			fmt.Fprintf(&b, "  %-10s last %s  min %s  max %s\n",
				sum.Channel,
				humanize.FtoaWithDigits(sum.Last, digits),
				humanize.FtoaWithDigits(sum.Min, digits),
				humanize.FtoaWithDigits(sum.Max, digits))
		}
	}

	lastFrame := "never"
	if !s.UpdatedAt.IsZero() {
		lastFrame = humanize.RelTime(s.UpdatedAt, now, "ago", "from now")
	}
	fmt.Fprintf(&b, "Frames: %s applied, %s rejected (%s), last frame %s\n",
		humanize.Comma(int64(s.Stats.Applied)),
		humanize.Comma(int64(s.Stats.Rejected)),
		s.Status,
		lastFrame)

	_, err := io.WriteString(w, b.String())
	return err
}

// widen converts v to the float64 closest to its shortest decimal form,
// so 25.4 reads back as 25.4 rather than 25.399999618530273.
func widen(v float32) float64 {
	w, err := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'g', -1, 32), 64)
	if err != nil {
		return float64(v)
	}
	return w
}

func withUnit(v, unit string) string {
	if unit == "" {
		return v
	}
	return v + " " + unit
}
