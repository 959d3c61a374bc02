// Package metrics exposes radio operation counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors groups the service's Prometheus collectors.
type Collectors struct {
	Operations      *prometheus.CounterVec
	OperationTime   *prometheus.HistogramVec
	AccessPointOpen prometheus.Gauge
	StationActive   prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lacylights_wifi",
			Name:      "operations_total",
			Help:      "Radio operations by name and outcome.",
		}, []string{"operation", "result"}),
		OperationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lacylights_wifi",
			Name:      "operation_duration_seconds",
			Help:      "Time spent in radio operations.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		AccessPointOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lacylights_wifi",
			Name:      "access_point_open",
			Help:      "1 while the access point holds an address.",
		}),
		StationActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lacylights_wifi",
			Name:      "station_connected",
			Help:      "1 while the station holds an address.",
		}),
	}
	reg.MustRegister(c.Operations, c.OperationTime, c.AccessPointOpen, c.StationActive)
	return c
}

// Observe records one finished operation. kind is empty on success.
func (c *Collectors) Observe(operation, kind string, seconds float64) {
	if c == nil {
		return
	}
	result := "success"
	if kind != "" {
		result = kind
	}
	c.Operations.WithLabelValues(operation, result).Inc()
	c.OperationTime.WithLabelValues(operation).Observe(seconds)
}

// SetState records whether the access point and station are up.
func (c *Collectors) SetState(apOpen, connected bool) {
	if c == nil {
		return
	}
	c.AccessPointOpen.Set(boolToFloat(apOpen))
	c.StationActive.Set(boolToFloat(connected))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
