// Package service wires the prediction pipeline (assembler, predictor,
// classifier and gauge renderer) behind the operations the HTTP API and the
// command line tools call.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/examscore/internal/adapters/modelfile"
	"github.com/okian/examscore/internal/domain/features"
	"github.com/okian/examscore/internal/domain/gauge"
	"github.com/okian/examscore/internal/domain/inputs"
	"github.com/okian/examscore/internal/domain/scoring"
	"github.com/okian/examscore/internal/domain/tier"
	"github.com/okian/examscore/pkg/logger"
	"github.com/okian/examscore/pkg/metrics"
)

// DefaultModelPath is where the shipped model lives relative to the working
// directory.
const DefaultModelPath = "models/exam_score.yaml"

// Outcome is the full result of one prediction.
type Outcome struct {
	RawScore       float64        `json:"raw_score"`
	Score          float64        `json:"score"`
	Tier           tier.Tier      `json:"tier"`
	Color          string         `json:"color"`
	Recommendation string         `json:"recommendation"`
	Gauge          gauge.Geometry `json:"gauge"`
	Markup         string         `json:"markup"`
}

// BatchItem is the result for one element of a batch. Exactly one of
// Outcome and Error is set.
type BatchItem struct {
	Index   int      `json:"index"`
	Outcome *Outcome `json:"outcome,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Schema describes the loaded model and the accepted inputs.
type Schema struct {
	Model       scoring.Info        `json:"model"`
	Features    []string            `json:"features"`
	Categorical []string            `json:"categorical"`
	Domains     map[string][]string `json:"domains"`
	Defaults    inputs.Raw          `json:"defaults"`
}

// Service implements the API dependencies for the score predictor.
type Service struct {
	mu sync.RWMutex

	// Core components
	model     scoring.Model
	predictor *scoring.Predictor
	assembler *features.Assembler
	table     tier.Table
	info      scoring.Info

	// Configuration
	modelPath        string
	batchMaxSize     int
	batchConcurrency int

	// State
	started   bool
	startedAt time.Time

	predictions atomic.Int64
	failures    atomic.Int64
	batches     atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithModel uses model instead of loading one from disk.
func WithModel(model scoring.Model) Option {
	return func(s *Service) {
		s.model = model
	}
}

// WithModelPath sets the model file loaded on Start.
func WithModelPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.modelPath = path
		}
	}
}

// WithTierTable replaces the default tier table.
func WithTierTable(t tier.Table) Option {
	return func(s *Service) {
		if len(t) > 0 {
			s.table = t
		}
	}
}

// WithBatchMaxSize caps the number of inputs accepted by PredictBatch.
func WithBatchMaxSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchMaxSize = n
		}
	}
}

// WithBatchConcurrency bounds how many batch items are evaluated at once.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		modelPath:        DefaultModelPath,
		table:            tier.Default,
		batchMaxSize:     100,
		batchConcurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the model and checks that its feature names and, when the
// model declares them, its feature types are the ones the assembler
// supplies. A schema mismatch is fatal.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting score service...")

	if err := s.table.Validate(); err != nil {
		return fmt.Errorf("tier table: %w", err)
	}

	model := s.model
	if model == nil {
		loaded, err := modelfile.Load(ctx, s.modelPath)
		if err != nil {
			return fmt.Errorf("load model: %w", err)
		}
		model = loaded
	}

	info := scoring.Info{Name: "unnamed", Kind: "custom"}
	if d, ok := model.(scoring.Describer); ok {
		info = d.Describe()
	}
	if s.model == nil {
		s.logger.Info(ctx, "model loaded",
			logger.String("path", s.modelPath),
			logger.String("name", info.Name),
			logger.String("version", info.Version),
			logger.String("kind", info.Kind),
		)
	}

	names := model.FeatureNames()
	asm, err := features.NewAssembler(names)
	if err == nil {
		if typed, ok := model.(scoring.Typed); ok {
			err = asm.CheckTypes(typed.FeatureTypes())
		}
	}
	if err != nil {
		s.logger.Error(ctx, "model feature schema does not match supplied inputs", logger.Error(err))
		return fmt.Errorf("model %w", err)
	}
	metrics.SetModelInfo(info.Name, info.Version, info.Kind, len(names))

	s.model = model
	s.info = info
	s.assembler = asm
	s.predictor = scoring.NewPredictor(model)
	s.started = true
	s.startedAt = time.Now()

	s.logger.Info(ctx, "score service started",
		logger.String("model", info.Name),
		logger.String("version", info.Version),
		logger.Int("features", len(names)),
		logger.Int("batchMaxSize", s.batchMaxSize),
		logger.Int("batchConcurrency", s.batchConcurrency),
	)
	return nil
}

// Stop marks the service as stopped. Predictions fail with ErrNotStarted
// afterwards.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "score service stopped",
		logger.Any("predictions", s.predictions.Load()),
		logger.Any("failures", s.failures.Load()),
	)
}

type pipeline struct {
	assembler *features.Assembler
	predictor *scoring.Predictor
	table     tier.Table
}

func (s *Service) pipeline() (pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return pipeline{}, ErrNotStarted
	}
	return pipeline{assembler: s.assembler, predictor: s.predictor, table: s.table}, nil
}

// Predict runs one set of inputs through the pipeline.
func (s *Service) Predict(ctx context.Context, raw inputs.Raw) (*Outcome, error) {
	p, err := s.pipeline()
	if err != nil {
		return nil, err
	}

	rec := p.assembler.Assemble(raw)
	score, err := p.predictor.Predict(ctx, rec)
	if err != nil {
		s.failures.Add(1)
		s.logger.Error(ctx, "prediction failed", logger.Error(err))
		return nil, err
	}

	result := p.table.Classify(score)
	markup, err := gauge.Render(result.Clamped, result.Color, result.Recommendation)
	if err != nil {
		s.failures.Add(1)
		s.logger.Error(ctx, "gauge rendering failed", logger.Error(err))
		return nil, fmt.Errorf("render outcome: %w", err)
	}

	s.predictions.Add(1)
	metrics.RecordPrediction(string(result.Tier), result.Clamped)
	s.logger.Debug(ctx, "prediction",
		logger.Float64("raw", score),
		logger.Float64("score", result.Clamped),
		logger.String("tier", string(result.Tier)),
	)

	return &Outcome{
		RawScore:       score,
		Score:          result.Clamped,
		Tier:           result.Tier,
		Color:          result.Color,
		Recommendation: result.Recommendation,
		Gauge:          gauge.For(result.Clamped),
		Markup:         markup,
	}, nil
}

// PredictMarkup returns only the rendered gauge fragment.
func (s *Service) PredictMarkup(ctx context.Context, raw inputs.Raw) (string, error) {
	out, err := s.Predict(ctx, raw)
	if err != nil {
		return "", err
	}
	return out.Markup, nil
}

// PredictBatch evaluates every input with bounded concurrency. A failing
// item carries its own error and does not affect the others. Results keep
// the input order.
func (s *Service) PredictBatch(ctx context.Context, batch []inputs.Raw) ([]BatchItem, error) {
	if _, err := s.pipeline(); err != nil {
		return nil, err
	}
	if len(batch) > s.batchMaxSize {
		return nil, fmt.Errorf("%w: %d items, limit %d", ErrBatchTooLarge, len(batch), s.batchMaxSize)
	}

	s.batches.Add(1)
	metrics.RecordBatchSize(len(batch))

	items := make([]BatchItem, len(batch))
	var g errgroup.Group
	g.SetLimit(s.batchConcurrency)
	for i, raw := range batch {
		g.Go(func() error {
			items[i].Index = i
			out, err := s.Predict(ctx, raw)
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}
			items[i].Outcome = out
			return nil
		})
	}
	_ = g.Wait()
	return items, nil
}

// ResetDefaults returns the form defaults and an empty result.
func (s *Service) ResetDefaults() (inputs.Raw, string) {
	return inputs.Defaults(), ""
}

// Schema describes the loaded model and the accepted inputs.
func (s *Service) Schema() (Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return Schema{}, ErrNotStarted
	}
	return Schema{
		Model:       s.info,
		Features:    s.assembler.Order(),
		Categorical: append([]string(nil), features.CategoricalFields...),
		Domains:     inputs.Domains(),
		Defaults:    inputs.Defaults(),
	}, nil
}

// Ready reports whether the service accepts predictions.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"modelPath":        s.modelPath,
		"batchMaxSize":     s.batchMaxSize,
		"batchConcurrency": s.batchConcurrency,
		"predictions":      s.predictions.Load(),
		"failures":         s.failures.Load(),
		"batches":          s.batches.Load(),
	}

	if s.started {
		stats["model"] = s.info.Name
		stats["modelVersion"] = s.info.Version
		stats["modelKind"] = s.info.Kind
		stats["features"] = len(s.assembler.Order())
		stats["uptimeSeconds"] = time.Since(s.startedAt).Seconds()
	}

	return stats
}
