package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(
			WithNamespace("test_namespace"),
			WithSubsystem("test_subsystem"),
			WithMetricPrefix("test_prefix"),
			WithLatencyBuckets([]float64{0.1, 0.5, 1.0}),
			WithScoreBuckets([]float64{50, 80}),
			WithMetricsEnabled(true),
			WithRefreshInterval(5*time.Second),
			WithConstLabels(map[string]string{"env": "test"}),
			WithRegistry(registry),
		)

		Convey("Then the manager reflects them", func() {
			So(manager, ShouldNotBeNil)
			So(manager.Enabled(), ShouldBeTrue)
			So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)
			So(manager.scoreBuckets, ShouldResemble, []float64{50, 80})
			So(manager.constLabels, ShouldResemble, map[string]string{"env": "test"})
		})

		Convey("And metric names carry namespace, subsystem and prefix", func() {
			manager.RecordPrediction("high", 91)
			families, err := registry.Gather()
			So(err, ShouldBeNil)

			found := false
			for _, f := range families {
				if f.GetName() == "test_namespace_test_subsystem_test_prefix_predictions_total" {
					found = true
					So(f.GetMetric()[0].GetLabel(), ShouldNotBeEmpty)
				}
			}
			So(found, ShouldBeTrue)
		})

		Convey("And empty option values keep defaults", func() {
			m := NewManager(WithNamespace(""), WithSubsystem(""), WithRefreshInterval(0))
			So(m.namespace, ShouldEqual, "examscore")
			So(m.subsystem, ShouldEqual, "predictor")
			So(m.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}

func TestManagerRecording(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		manager := NewManager(WithRegistry(prometheus.NewRegistry()))

		Convey("When recording predictions by tier", func() {
			manager.RecordPrediction("high", 85)
			manager.RecordPrediction("high", 92)
			manager.RecordPrediction("low", 40)

			Convey("Then counters are split by tier", func() {
				So(testutil.ToFloat64(manager.predictions.WithLabelValues("high")), ShouldEqual, 2)
				So(testutil.ToFloat64(manager.predictions.WithLabelValues("low")), ShouldEqual, 1)
				So(testutil.CollectAndCount(manager.predictedScore), ShouldEqual, 1)
			})
		})

		Convey("When recording errors and clamps", func() {
			manager.RecordPredictionError("model")
			manager.RecordClampedScore("high")
			manager.RecordClampedScore("high")

			Convey("Then they are counted", func() {
				So(testutil.ToFloat64(manager.predictionErrors.WithLabelValues("model")), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.clampedScores.WithLabelValues("high")), ShouldEqual, 2)
			})
		})

		Convey("When metrics are disabled", func() {
			disabled := NewManager(WithRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
			disabled.RecordPrediction("medium", 70)
			disabled.RecordPredictionLatency(3)

			Convey("Then nothing is recorded", func() {
				So(testutil.ToFloat64(disabled.predictions.WithLabelValues("medium")), ShouldEqual, 0)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global recorders", t, func() {
		Convey("Then they should not panic", func() {
			So(func() {
				RecordPrediction("medium", 72.5)
				RecordPredictionError("schema")
				RecordPredictionLatency(1.5)
				RecordClampedScore("low")
				RecordBatchSize(4)
				SetModelInfo("exam-score", "1", "gbdt", 11)
				RecordHTTPRequest("predict", "POST", "200")
				RecordHTTPRequestDuration("predict", "POST", "200", 2)
				RecordRateLimited("predict")
				RecordErrorByComponent("predictor", "model")
				RecordErrorByType("server_error", "high")
				RecordErrorByEndpoint("predict", "POST", "server_error")
				RecordErrorLatency("http", "server_error", 3)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})

		Convey("And the custom registry exposes them", func() {
			SetModelInfo("exam-score", "2", "gbdt", 11)
			expected := `
# HELP examscore_predictor_model_info Loaded model identity; value is always 1
# TYPE examscore_predictor_model_info gauge
examscore_predictor_model_info{kind="gbdt",name="exam-score",version="2"} 1
`
			err := testutil.GatherAndCompare(GetRegistry(), strings.NewReader(expected), "examscore_predictor_model_info")
			So(err, ShouldBeNil)
			So(Global(), ShouldNotBeNil)
		})
	})
}
