package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/okian/examscore/internal/adapters/http/api"
	service "github.com/okian/examscore/internal/app"
	"github.com/okian/examscore/internal/domain/features"
	"github.com/okian/examscore/internal/domain/inputs"
	"github.com/okian/examscore/internal/domain/scoring"
	"github.com/okian/examscore/internal/domain/tier"
	"github.com/okian/examscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type mockStatsProvider struct {
	stats    map[string]interface{}
	notReady bool
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func (m *mockStatsProvider) Ready() bool {
	return !m.notReady
}

// mockDependencies records the last inputs it was asked to predict.
type mockDependencies struct {
	last      inputs.Raw
	err       error
	batchErr  error
	schemaErr error
}

func (m *mockDependencies) Predict(_ context.Context, raw inputs.Raw) (*service.Outcome, error) {
	m.last = raw
	if m.err != nil {
		return nil, m.err
	}
	return &service.Outcome{
		RawScore: 85, Score: 85, Tier: tier.High, Color: "#16a34a",
		Recommendation: "Excellent! Keep up the great work!",
		Markup:         `<div class="score-gauge">85.0</div>`,
	}, nil
}

func (m *mockDependencies) PredictBatch(ctx context.Context, batch []inputs.Raw) ([]service.BatchItem, error) {
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	items := make([]service.BatchItem, len(batch))
	for i, raw := range batch {
		out, _ := m.Predict(ctx, raw)
		items[i] = service.BatchItem{Index: i, Outcome: out}
	}
	return items, nil
}

func (m *mockDependencies) ResetDefaults() (inputs.Raw, string) {
	return inputs.Defaults(), ""
}

func (m *mockDependencies) Schema() (service.Schema, error) {
	if m.schemaErr != nil {
		return service.Schema{}, m.schemaErr
	}
	return service.Schema{Features: features.Supplied(), Domains: inputs.Domains()}, nil
}

func newMux(deps api.Dependencies, opts ...api.ServerOption) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, opts...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Then health endpoint serves metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("And stats endpoint should be accessible", func() {
			w := do(mux, http.MethodGet, "/stats", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("And stats rejects other methods", func() {
			w := do(mux, http.MethodPost, "/stats", "", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And the ready endpoint reports ready", func() {
			w := do(mux, http.MethodGet, "/readyz", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"ready":true`)
		})
	})

	Convey("Given a service that is not ready", t, func() {
		server := api.NewServer(&mockDependencies{}, &mockStatsProvider{notReady: true})
		mux := http.NewServeMux()
		server.Register(context.Background(), mux)

		Convey("Then the ready endpoint answers 503", func() {
			w := do(mux, http.MethodGet, "/readyz", "", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(w.Body.String(), ShouldContainSubstring, `"ready":false`)
		})
	})
}

func TestPredictMarkup(t *testing.T) {
	Convey("Given the markup route", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When posting a full form", func() {
			form := url.Values{
				"attendance":      {"90"},
				"study_hours":     {"6"},
				"sleep_hours":     {"8"},
				"course":          {"b.sc"},
				"study_method":    {"coaching"},
				"sleep_quality":   {"good"},
				"facility_rating": {"high"},
				"exam_difficulty": {"easy"},
			}
			w := do(mux, http.MethodPost, "/predict", "application/x-www-form-urlencoded", form.Encode())

			Convey("Then the fragment is returned as HTML", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "text/html")
				So(w.Body.String(), ShouldContainSubstring, "score-gauge")
				So(w.Header().Get(api.HeaderRequestID), ShouldNotBeEmpty)
			})

			Convey("And the inputs reach the service", func() {
				So(deps.last.Attendance, ShouldEqual, 90.0)
				So(deps.last.Course, ShouldEqual, "b.sc")
				So(deps.last.ExamDifficulty, ShouldEqual, "easy")
			})
		})

		Convey("When posting a partial form", func() {
			w := do(mux, http.MethodPost, "/predict", "application/x-www-form-urlencoded", "study_hours=7.5")

			Convey("Then missing fields take the reset defaults", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				want := inputs.Defaults()
				want.StudyHours = 7.5
				So(deps.last, ShouldResemble, want)
			})
		})

		Convey("When posting JSON", func() {
			w := do(mux, http.MethodPost, "/predict", "application/json", `{"attendance": 60, "course": "BCA"}`)

			Convey("Then it is accepted too", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.last.Attendance, ShouldEqual, 60.0)
			})
		})

		Convey("When a value is out of its domain", func() {
			w := do(mux, http.MethodPost, "/predict", "application/x-www-form-urlencoded", "attendance=140&course=mba")

			Convey("Then a failure fragment with 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "Prediction failed")
				So(w.Body.String(), ShouldContainSubstring, "attendance")
				So(w.Body.String(), ShouldContainSubstring, "course")
			})
		})

		Convey("When a number does not parse", func() {
			w := do(mux, http.MethodPost, "/predict", "application/x-www-form-urlencoded", "sleep_hours=lots")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the model fails", func() {
			deps.err = &scoring.PredictionError{Err: errors.New("boom")}
			w := do(mux, http.MethodPost, "/predict", "application/x-www-form-urlencoded", "")

			Convey("Then a failure fragment with 502 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(w.Body.String(), ShouldContainSubstring, "Prediction failed")
				So(w.Body.String(), ShouldNotContainSubstring, "boom")
			})
		})

		Convey("When using GET", func() {
			w := do(mux, http.MethodGet, "/predict", "", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPredictJSON(t *testing.T) {
	Convey("Given the JSON prediction route", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When posting valid inputs", func() {
			w := do(mux, http.MethodPost, "/api/predict", "application/json", `{"attendance": 90, "study_hours": 6}`)

			Convey("Then the outcome is returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out service.Outcome
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out.Tier, ShouldEqual, tier.High)
				So(out.Color, ShouldEqual, "#16a34a")
			})
		})

		Convey("When the body has unknown fields", func() {
			w := do(mux, http.MethodPost, "/api/predict", "application/json", `{"attendence": 90}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, `"code":"bad_request"`)
			})
		})

		Convey("When hours are not half steps", func() {
			w := do(mux, http.MethodPost, "/api/predict", "application/json", `{"study_hours": 4.3}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the service is not ready", func() {
			deps.err = service.ErrNotStarted
			w := do(mux, http.MethodPost, "/api/predict", "application/json", `{}`)

			Convey("Then 503 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, `"code":"not_ready"`)
			})
		})

		Convey("When the model fails", func() {
			deps.err = &scoring.PredictionError{Err: errors.New("boom")}
			w := do(mux, http.MethodPost, "/api/predict", "application/json", `{}`)

			Convey("Then 502 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(w.Body.String(), ShouldContainSubstring, `"code":"prediction_failed"`)
			})
		})

		Convey("When the caller supplies a request id", func() {
			id := "3f1c1d7e-4a7b-4a53-9d55-1a1b2c3d4e5f"
			req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{}`))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(api.HeaderRequestID, id)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is echoed back", func() {
				So(w.Header().Get(api.HeaderRequestID), ShouldEqual, id)
			})
		})
	})
}

func TestPredictBatch(t *testing.T) {
	Convey("Given the batch route", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When posting an array of inputs", func() {
			w := do(mux, http.MethodPost, "/api/predict/batch", "application/json", `[{}, {"attendance": 50}]`)

			Convey("Then one item per input is returned in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Items []service.BatchItem `json:"items"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(len(body.Items), ShouldEqual, 2)
				So(body.Items[1].Index, ShouldEqual, 1)
			})
		})

		Convey("When one item is invalid", func() {
			w := do(mux, http.MethodPost, "/api/predict/batch", "application/json", `[{}, {"sleep_quality": "restless"}]`)

			Convey("Then the whole batch is rejected naming the item", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "item 1")
			})
		})

		Convey("When an item carries an unknown field", func() {
			w := do(mux, http.MethodPost, "/api/predict/batch", "application/json", `[{}, {"attendence": 50}]`)

			Convey("Then it is rejected like the single route", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "attendence")

				single := do(mux, http.MethodPost, "/api/predict", "application/json", `{"attendence": 50}`)
				So(single.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the batch is too large", func() {
			deps.batchErr = service.ErrBatchTooLarge
			w := do(mux, http.MethodPost, "/api/predict/batch", "application/json", `[{}]`)

			Convey("Then 413 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			})
		})
	})
}

func TestDefaultsAndSchema(t *testing.T) {
	Convey("Given the defaults and schema routes", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When reading the defaults", func() {
			w := do(mux, http.MethodGet, "/api/defaults", "", "")

			Convey("Then the reset values and an empty result are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Inputs inputs.Raw `json:"inputs"`
					Result string     `json:"result"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Inputs, ShouldResemble, inputs.Defaults())
				So(body.Result, ShouldEqual, "")
			})
		})

		Convey("When reading the schema", func() {
			w := do(mux, http.MethodGet, "/api/schema", "", "")

			Convey("Then the feature order is listed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"class_attendance"`)
			})
		})

		Convey("When the schema is not available yet", func() {
			deps.schemaErr = service.ErrNotStarted
			w := do(mux, http.MethodGet, "/api/schema", "", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestRateLimit(t *testing.T) {
	Convey("Given a server limited to a burst of two", t, func() {
		mux := newMux(&mockDependencies{}, api.WithRateLimit(0.001, 2))

		Convey("When three predictions arrive at once", func() {
			codes := make([]int, 0, 3)
			for i := 0; i < 3; i++ {
				codes = append(codes, do(mux, http.MethodPost, "/api/predict", "application/json", `{}`).Code)
			}

			Convey("Then the third is rejected with 429", func() {
				So(codes, ShouldResemble, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests})
			})
		})

		Convey("When reading the defaults", func() {
			for i := 0; i < 5; i++ {
				So(do(mux, http.MethodGet, "/api/defaults", "", "").Code, ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestEndToEnd(t *testing.T) {
	Convey("Given the API backed by a real service", t, func() {
		svc := service.New(service.WithModel(scoring.Constant(130)))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		mux := newMux(svc, api.WithRequestTimeout(time.Second))

		Convey("When the model overshoots", func() {
			w := do(mux, http.MethodPost, "/api/predict", "application/json", `{}`)

			Convey("Then the clamped outcome is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out service.Outcome
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out.Score, ShouldEqual, 100.0)
				So(out.RawScore, ShouldEqual, 130.0)
				So(out.Tier, ShouldEqual, tier.High)
				So(out.Gauge.Offset, ShouldEqual, 0.0)
				So(out.Markup, ShouldContainSubstring, ">100.0<")
			})
		})
	})
}
