// Package scoring defines the model boundary and the predictor that invokes it.
package scoring

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/okian/examscore/internal/domain/features"
	"github.com/okian/examscore/pkg/metrics"
)

// Model is a pretrained regression model with a fixed, named input schema.
// Implementations are read-only after load and safe for concurrent use.
type Model interface {
	// FeatureNames returns the declared feature order.
	FeatureNames() []string

	// Predict scores one record.
	Predict(ctx context.Context, rec features.Record) (float64, error)
}

// Describer is optionally implemented by models that carry identity metadata.
type Describer interface {
	Describe() Info
}

// Typed is optionally implemented by models that declare a type for each
// feature, aligned with FeatureNames. The vocabulary is that of
// features.Kind.Satisfies.
type Typed interface {
	FeatureTypes() []string
}

// Info identifies a loaded model.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Kind    string `json:"kind"`
}

// ModelFunc adapts a function and a schema into a Model. Handy for stubs.
type ModelFunc struct {
	Names []string
	Fn    func(ctx context.Context, rec features.Record) (float64, error)
}

func (m ModelFunc) FeatureNames() []string { return slices.Clone(m.Names) }

func (m ModelFunc) Predict(ctx context.Context, rec features.Record) (float64, error) {
	return m.Fn(ctx, rec)
}

// Constant returns a stub model that always scores v over the reference order.
func Constant(v float64) ModelFunc {
	return ModelFunc{
		Names: features.Supplied(),
		Fn: func(context.Context, features.Record) (float64, error) {
			return v, nil
		},
	}
}

// Option applies a configuration option to the Predictor.
type Option func(*Predictor)

// WithClock overrides the time source used for latency metrics.
func WithClock(now func() time.Time) Option {
	return func(p *Predictor) {
		if now != nil {
			p.now = now
		}
	}
}

// Predictor invokes the model for one record and returns the raw score.
type Predictor struct {
	model Model
	now   func() time.Time
}

// NewPredictor wraps model.
func NewPredictor(model Model, opts ...Option) *Predictor {
	p := &Predictor{model: model, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Predict returns the raw, unclamped model output. Every failure, including
// a cancelled context or a non-finite output, is a *PredictionError.
func (p *Predictor) Predict(ctx context.Context, rec features.Record) (float64, error) {
	if err := ctx.Err(); err != nil {
		metrics.RecordPredictionError("cancelled")
		return 0, &PredictionError{Err: fmt.Errorf("context cancelled: %w", err)}
	}

	start := p.now()
	score, err := p.model.Predict(ctx, rec)
	metrics.RecordPredictionLatency(float64(p.now().Sub(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordPredictionError("model")
		return 0, &PredictionError{Err: err}
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		metrics.RecordPredictionError("non_finite")
		return 0, &PredictionError{Err: fmt.Errorf("model returned non-finite score %v", score)}
	}
	return score, nil
}
