package loadgen

import (
	"context"
	"fmt"

	"github.com/okian/examscore/internal/domain/tier"
	"github.com/okian/examscore/pkg/logger"
)

// verifySamples checks every successful sample against the shipped tier
// table and that the server echoed the request id. It returns ErrMismatch
// when any sample disagrees.
func verifySamples(ctx context.Context, config *Config, samples []Sample, stats *Stats) error {
	log := logger.Get()
	stats.ByTier = make(map[string]int)

	for i := range samples {
		s := &samples[i]
		if s.Result == nil {
			continue
		}
		stats.ByTier[s.Result.Tier]++

		if problem := checkSample(s); problem != "" {
			stats.Mismatched++
			if config.Verbose {
				log.Warn(ctx, "sample mismatch",
					logger.String("requestID", s.RequestID),
					logger.String("problem", problem))
			}
		}
	}

	if stats.Mismatched > 0 {
		return fmt.Errorf("%w: %d of %d samples", ErrMismatch, stats.Mismatched, stats.Successful)
	}
	log.Info(ctx, "all samples consistent", logger.Int("checked", stats.Successful))
	return nil
}

// checkSample returns a description of the first inconsistency, or "".
func checkSample(s *Sample) string {
	want := tier.Classify(s.Result.RawScore)
	got := s.Result

	switch {
	case s.EchoedID != s.RequestID:
		return fmt.Sprintf("request id %q echoed as %q", s.RequestID, s.EchoedID)
	case got.Score != want.Clamped:
		return fmt.Sprintf("score %v is not the clamp of %v", got.Score, got.RawScore)
	case got.Tier != string(want.Tier):
		return fmt.Sprintf("tier %q for score %v, want %q", got.Tier, got.Score, want.Tier)
	case got.Color != want.Color:
		return fmt.Sprintf("color %q for tier %q, want %q", got.Color, got.Tier, want.Color)
	case got.Recommendation != want.Recommendation:
		return fmt.Sprintf("recommendation for tier %q does not match", got.Tier)
	}
	return ""
}
