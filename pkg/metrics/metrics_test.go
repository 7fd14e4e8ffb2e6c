package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"region": "north"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then every collector is registered on that registry", func() {
				So(m, ShouldNotBeNil)
				m.submissions.WithLabelValues(OutcomeAccepted).Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_submissions_total")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording submissions", func() {
			before := testutil.ToFloat64(globalManager.submissions.WithLabelValues(OutcomeLocked))
			RecordSubmission(OutcomeLocked, 3)

			Convey("Then the outcome counter increases", func() {
				after := testutil.ToFloat64(globalManager.submissions.WithLabelValues(OutcomeLocked))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When recording the remaining metrics", func() {
			So(func() {
				RecordReconcileApplied()
				RecordReconcileDuplicate()
				RecordReconcileRejected("decode")
				RecordRankingLatency(1.5)
				RecordStandingsLatency(2.5)
				RecordFetchFailure("scores")
				RecordLoadDuration(12)
				RecordIdentityFallback()
				UpdateDatasetRecords("events", 4)
				UpdateDedupeIDs(7)
				RecordHTTPRequest("ranking", "GET", "200", 4)
			}, ShouldNotPanic)

			Convey("Then gauges reflect the last value", func() {
				So(testutil.ToFloat64(globalManager.datasetRecords.WithLabelValues("events")), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.dedupeIDs), ShouldEqual, 7)
			})
		})

		Convey("Then the custom registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
