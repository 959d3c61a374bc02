package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.Observe("connect", "", 0.2)
	c.Observe("connect", "ConnectionTimeout", 10)
	c.Observe("connect", "ConnectionTimeout", 10)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Operations.WithLabelValues("connect", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Operations.WithLabelValues("connect", "ConnectionTimeout")))
}

func TestSetState(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.SetState(true, false)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AccessPointOpen))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.StationActive))
}

func TestNilCollectors(t *testing.T) {
	var c *Collectors
	assert.NotPanics(t, func() {
		c.Observe("scan", "", 0)
		c.SetState(true, true)
	})
}
