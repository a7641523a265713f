// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCounter(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCounter(registry, "test_total", "help")
	c.Add(3)

	assert.Equal(t, 3.0, testutil.ToFloat64(c))
}

func TestNewCounterVec(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCounterVec(registry, "test_by_kind_total", "help", []string{"kind"})
	c.WithLabelValues("a").Inc()
	c.WithLabelValues("b").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.WithLabelValues("a")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.WithLabelValues("b")))
}

func TestNewGauges(t *testing.T) {
	registry := prometheus.NewRegistry()
	g := NewGauge(registry, "test_gauge", "help")
	gv := NewGaugeVec(registry, "test_gauge_vec", "help", []string{"template"})

	g.Set(7)
	gv.WithLabelValues("a.ftl").Set(4)

	assert.Equal(t, 7.0, testutil.ToFloat64(g))
	assert.Equal(t, 4.0, testutil.ToFloat64(gv.WithLabelValues("a.ftl")))
}

func TestNewHistogramVec_DefaultBuckets(t *testing.T) {
	registry := prometheus.NewRegistry()
	h := NewHistogramVec(registry, "test_seconds", "help", nil, []string{"kind"})
	h.WithLabelValues("render").Observe(0.02)

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)

	buckets := families[0].GetMetric()[0].GetHistogram().GetBucket()
	assert.Len(t, buckets, len(DurationBuckets()))
}

func TestDurationBuckets_Ascending(t *testing.T) {
	b := DurationBuckets()
	for i := 1; i < len(b); i++ {
		assert.Greater(t, b[i], b[i-1])
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	first := prometheus.NewRegistry()
	second := prometheus.NewRegistry()

	NewCounter(first, "same_name_total", "help").Inc()
	NewCounter(second, "same_name_total", "help")

	n, err := testutil.GatherAndCount(first)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = testutil.GatherAndCount(second)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Panics(t, func() {
		NewCounter(first, "same_name_total", "help")
	})
}
