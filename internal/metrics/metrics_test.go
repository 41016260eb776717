package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGetIsSingleton(t *testing.T) {
	assert.Same(t, Get(), Initialize())
}

func TestCountersRecord(t *testing.T) {
	m := Get()
	before := testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("metrics_test"))
	m.CacheHitsTotal.WithLabelValues("metrics_test").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("metrics_test")))
}
