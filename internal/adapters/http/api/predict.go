package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/examscore/internal/app"
	"github.com/okian/examscore/internal/domain/gauge"
	"github.com/okian/examscore/internal/domain/inputs"
	"github.com/okian/examscore/pkg/logger"
)

// PredictHandler serves the prediction routes.
type PredictHandler struct {
	deps    Dependencies
	timeout time.Duration
}

// NewPredictHandler creates a new prediction handler.
func NewPredictHandler(deps Dependencies, timeout time.Duration) *PredictHandler {
	return &PredictHandler{deps: deps, timeout: timeout}
}

// HandlePredictMarkup handles POST /predict. It accepts form or JSON inputs
// and answers with the rendered gauge fragment, or a failure fragment with a
// non-2xx status.
func (h *PredictHandler) HandlePredictMarkup(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_markup"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	raw, err := decodeInputs(w, r)
	if err != nil {
		writeHTML(w, http.StatusBadRequest, gauge.RenderFailure(err.Error()))
		return
	}

	ctx, cancel := h.bounded(r.Context())
	defer cancel()

	out, err := h.deps.Predict(ctx, raw)
	if err != nil {
		err = WrapKind(op, ErrPrediction, err)
		status, _ := classify(err)
		logFailure(ctx, op, err)
		writeHTML(w, status, gauge.RenderFailure("The score could not be predicted. Please try again."))
		return
	}
	writeHTML(w, http.StatusOK, out.Markup)
}

// HandlePredict handles POST /api/predict.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	raw, err := decodeInputs(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ctx, cancel := h.bounded(r.Context())
	defer cancel()

	out, err := h.deps.Predict(ctx, raw)
	if err != nil {
		status, code := classify(err)
		logFailure(ctx, op, err)
		writeError(w, status, code, WrapKind(op, kindFor(status), err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type batchResponse struct {
	Items []service.BatchItem `json:"items"`
}

// HandlePredictBatch handles POST /api/predict/batch. The body is a JSON
// array of inputs; every element is validated before any is evaluated.
func (h *PredictHandler) HandlePredictBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var batch []jsonInputs
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&batch); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("invalid JSON body: %w", err)))
		return
	}
	raws := make([]inputs.Raw, len(batch))
	for i, item := range batch {
		raw := item.raw()
		if err := raw.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("item %d: %w", i, err)))
			return
		}
		raws[i] = raw
	}

	ctx, cancel := h.bounded(r.Context())
	defer cancel()

	items, err := h.deps.PredictBatch(ctx, raws)
	if err != nil {
		status, code := classify(err)
		logFailure(ctx, op, err)
		writeError(w, status, code, WrapKind(op, kindFor(status), err))
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Items: items})
}

func (h *PredictHandler) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}

func kindFor(status int) error {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return ErrBadRequest
	case http.StatusServiceUnavailable:
		return ErrNotReady
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrPrediction
	}
}

func logFailure(ctx context.Context, op string, err error) {
	logger.Get().Error(ctx, "prediction request failed",
		logger.String("op", op),
		logger.String("request_id", RequestIDFromContext(ctx)),
		logger.Error(err),
	)
}

// jsonInputs uses pointers so absent fields fall back to the form defaults.
type jsonInputs struct {
	Attendance     *float64 `json:"attendance"`
	StudyHours     *float64 `json:"study_hours"`
	SleepHours     *float64 `json:"sleep_hours"`
	Course         *string  `json:"course"`
	StudyMethod    *string  `json:"study_method"`
	SleepQuality   *string  `json:"sleep_quality"`
	FacilityRating *string  `json:"facility_rating"`
	ExamDifficulty *string  `json:"exam_difficulty"`
}

func (j jsonInputs) raw() inputs.Raw {
	raw := inputs.Defaults()
	setFloat(&raw.Attendance, j.Attendance)
	setFloat(&raw.StudyHours, j.StudyHours)
	setFloat(&raw.SleepHours, j.SleepHours)
	setString(&raw.Course, j.Course)
	setString(&raw.StudyMethod, j.StudyMethod)
	setString(&raw.SleepQuality, j.SleepQuality)
	setString(&raw.FacilityRating, j.FacilityRating)
	setString(&raw.ExamDifficulty, j.ExamDifficulty)
	return raw
}

func setFloat(dst, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst, src *string) {
	if src != nil {
		*dst = *src
	}
}

// decodeInputs reads JSON or form inputs, fills absent fields from the
// defaults and validates the result. Out-of-range values are rejected here
// rather than clamped.
func decodeInputs(w http.ResponseWriter, r *http.Request) (inputs.Raw, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var (
		raw inputs.Raw
		err error
	)
	if isJSON(r) {
		raw, err = decodeJSONInputs(r)
	} else {
		raw, err = decodeFormInputs(r)
	}
	if err != nil {
		return inputs.Raw{}, err
	}
	if err := validateRaw(raw); err != nil {
		return inputs.Raw{}, err
	}
	return raw, nil
}

func validateRaw(raw inputs.Raw) error {
	if err := raw.Validate(); err != nil {
		var verr *inputs.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%w: %s", ErrBadRequest, strings.Join(verr.Problems, "; "))
		}
		return err
	}
	return nil
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func decodeJSONInputs(r *http.Request) (inputs.Raw, error) {
	var in jsonInputs
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return inputs.Raw{}, fmt.Errorf("%w: invalid JSON body: %w", ErrBadRequest, err)
	}
	return in.raw(), nil
}

func decodeFormInputs(r *http.Request) (inputs.Raw, error) {
	if err := r.ParseForm(); err != nil {
		return inputs.Raw{}, fmt.Errorf("%w: invalid form body: %w", ErrBadRequest, err)
	}
	raw := inputs.Defaults()
	numbers := []struct {
		key string
		dst *float64
	}{
		{"attendance", &raw.Attendance},
		{"study_hours", &raw.StudyHours},
		{"sleep_hours", &raw.SleepHours},
	}
	for _, n := range numbers {
		v := strings.TrimSpace(r.PostForm.Get(n.key))
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return inputs.Raw{}, fmt.Errorf("%w: %s is not a number", ErrBadRequest, n.key)
		}
		*n.dst = f
	}
	texts := []struct {
		key string
		dst *string
	}{
		{"course", &raw.Course},
		{"study_method", &raw.StudyMethod},
		{"sleep_quality", &raw.SleepQuality},
		{"facility_rating", &raw.FacilityRating},
		{"exam_difficulty", &raw.ExamDifficulty},
	}
	for _, t := range texts {
		if v := r.PostForm.Get(t.key); v != "" {
			*t.dst = v
		}
	}
	return raw, nil
}
