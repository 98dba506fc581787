package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

// withIsolatedManager swaps the global manager for one on a fresh registry.
func withIsolatedManager(t *testing.T, opts ...Option) (*Manager, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	prev := globalManager
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(reg)}, opts...)...)
	t.Cleanup(func() { globalManager = prev })
	return globalManager, reg
}

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		reg := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithPrometheusRegistry(reg),
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
			)

			Convey("Then the options should apply", func() {
				So(m.namespace, ShouldEqual, "test")
				So(m.subsystem, ShouldEqual, "unit")
				So(m.histogramBuckets, ShouldResemble, []float64{1, 10, 100})
			})

			Convey("And the collectors should be registered under the namespace", func() {
				m.matchupsServed.Inc()
				families, err := reg.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_matchups_served_total"], ShouldBeTrue)
			})
		})

		Convey("When empty option values are given", func() {
			m := NewManager(WithPrometheusRegistry(reg), WithNamespace(""), WithHistogramBuckets(nil))

			Convey("Then defaults should be kept", func() {
				So(m.namespace, ShouldEqual, "elo")
				So(m.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestRankingMetrics(t *testing.T) {
	Convey("Given an isolated manager", t, func() {
		m, _ := withIsolatedManager(t)

		Convey("When matchups and outcomes flow through", func() {
			RecordMatchupServed()
			RecordMatchupServed()
			RecordSelectionFallback()
			RecordOutcomeSubmitted()
			RecordOutcomeDuplicate()
			RecordOutcomeApplied(64, -16)
			RecordOutcomeApplied(40, 3.5)
			RecordOutcomeFailed()
			UpdateCatalogSize(42)

			Convey("Then the counters should reflect them", func() {
				So(testutil.ToFloat64(m.matchupsServed), ShouldEqual, 2)
				So(testutil.ToFloat64(m.selectionFallbacks), ShouldEqual, 1)
				So(testutil.ToFloat64(m.outcomesSubmitted), ShouldEqual, 1)
				So(testutil.ToFloat64(m.outcomesDuplicate), ShouldEqual, 1)
				So(testutil.ToFloat64(m.outcomesApplied), ShouldEqual, 2)
				So(testutil.ToFloat64(m.outcomesFailed), ShouldEqual, 1)
				So(testutil.ToFloat64(m.kFactorApplied.WithLabelValues("64")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.kFactorApplied.WithLabelValues("40")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.catalogSize), ShouldEqual, 42)
			})
		})
	})
}

func TestOperationalMetrics(t *testing.T) {
	Convey("Given an isolated manager", t, func() {
		m, _ := withIsolatedManager(t)

		Convey("When queue and worker metrics are updated", func() {
			UpdateQueueCapacity(100)
			UpdateQueueSize(25)
			UpdateQueueUtilization(0.25)
			RecordQueueEnqueue()
			RecordQueueDequeue()
			RecordQueueEnqueueError()
			UpdateWorkerActiveCount(2)
			RecordWorkerError()

			Convey("Then gauges and counters should hold the values", func() {
				So(testutil.ToFloat64(m.queueCapacity), ShouldEqual, 100)
				So(testutil.ToFloat64(m.queueSize), ShouldEqual, 25)
				So(testutil.ToFloat64(m.queueUtilization), ShouldEqual, 0.25)
				So(testutil.ToFloat64(m.queueEnqueued), ShouldEqual, 1)
				So(testutil.ToFloat64(m.queueDequeued), ShouldEqual, 1)
				So(testutil.ToFloat64(m.queueEnqueueErrors), ShouldEqual, 1)
				So(testutil.ToFloat64(m.workerActiveCount), ShouldEqual, 2)
				So(testutil.ToFloat64(m.workerErrors), ShouldEqual, 1)
			})
		})

		Convey("When HTTP, store, error and system metrics are recorded", func() {
			Convey("Then nothing should panic", func() {
				So(func() {
					RecordHTTPRequest("/matchup", "GET", "200")
					RecordHTTPRequestDuration("/matchup", "GET", "200", 1.5)
					RecordStoreLatency("record_round", 2.0)
					RecordWorkerProcessingLatency(3.0)
					RecordErrorByComponent("store", "write_failed")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
				So(testutil.ToFloat64(m.httpRequests.WithLabelValues("/matchup", "GET", "200")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.errorsByComponent.WithLabelValues("store", "write_failed")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.systemGoroutineCount), ShouldEqual, 12)
			})
		})
	})

	Convey("Given the package registry", t, func() {
		Convey("Then it should be the custom one", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
