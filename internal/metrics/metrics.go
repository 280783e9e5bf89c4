package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roman-kulish/cansat-telemetry/internal/ingest"
	"github.com/roman-kulish/cansat-telemetry/internal/telemetry"
)

const namespace = "cansat"

// Collector is an ingest.Sink exporting frame counters and the latest
// power and status readings as Prometheus metrics.
type Collector struct {
	framesApplied  prometheus.Counter
	framesRejected *prometheus.CounterVec

	batteryVolts   prometheus.Gauge
	batteryPercent prometheus.Gauge
	regulatorVolts prometheus.Gauge
	altitudeMeters prometheus.Gauge
	freeFall       prometheus.Gauge
	lastFrameTime  prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := Collector{
		framesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_applied_total",
			Help:      "Total number of telemetry frames applied.",
		}),
		framesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_rejected_total",
			Help:      "Total number of telemetry lines rejected, by reason.",
		}, []string{"reason"}),
		batteryVolts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_volts",
			Help:      "Latest battery voltage.",
		}),
		batteryPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_percent",
			Help:      "Latest battery charge in percent.",
		}),
		regulatorVolts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "regulator_volts",
			Help:      "Latest voltage regulator output.",
		}),
		altitudeMeters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gps_altitude_meters",
			Help:      "Latest GPS altitude.",
		}),
		freeFall: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "free_fall",
			Help:      "1 if the payload reports free fall, 0 otherwise.",
		}),
		lastFrameTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_frame_timestamp_seconds",
			Help:      "Unix time the last frame was applied.",
		}),
	}

	// pre-create reason series so they are exported as zero
	for _, reason := range []string{telemetry.ReasonFieldCount, telemetry.ReasonFieldParse} {
		c.framesRejected.WithLabelValues(reason)
	}

	for _, collector := range []prometheus.Collector{
		c.framesApplied,
		c.framesRejected,
		c.batteryVolts,
		c.batteryPercent,
		c.regulatorVolts,
		c.altitudeMeters,
		c.freeFall,
		c.lastFrameTime,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("registering collector: %w", err)
		}
	}

	return &c, nil
}

func (c *Collector) FrameApplied(e ingest.Applied) {
	c.framesApplied.Inc()

	c.batteryVolts.Set(float64(e.Frame.Power.BatteryVoltage))
	c.batteryPercent.Set(float64(e.Frame.Power.BatteryPercent))
	c.regulatorVolts.Set(float64(e.Frame.Power.RegulatorVoltage))
	c.altitudeMeters.Set(e.Frame.GPS.Altitude)

	if e.Frame.Status.FreeFall {
		c.freeFall.Set(1)
	} else {
		c.freeFall.Set(0)
	}

	c.lastFrameTime.Set(float64(e.ReceivedAt.UnixNano()) / 1e9)
}

func (c *Collector) FrameRejected(e ingest.Rejected) {
	c.framesRejected.WithLabelValues(telemetry.Reason(e.Err)).Inc()
}
