// Package tier clamps raw scores and maps them to severity tiers.
package tier

import (
	"fmt"
	"math"

	"github.com/okian/examscore/pkg/metrics"
)

// Score domain bounds.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Tier is a severity bucket of the clamped score.
type Tier string

const (
	High   Tier = "high"
	Medium Tier = "medium"
	Low    Tier = "low"
)

// Row is one entry of a classification table.
type Row struct {
	Threshold      float64 // inclusive lower bound
	Tier           Tier
	Color          string
	Recommendation string
}

// Table is evaluated top-down; the first row whose threshold is at or below
// the score wins. Thresholds must be strictly decreasing and the last row
// must accept MinScore.
type Table []Row

// Default is the shipped three-tier table.
var Default = Table{
	{Threshold: 80, Tier: High, Color: "#16a34a", Recommendation: "Excellent! Keep up the great work!"},
	{Threshold: 60, Tier: Medium, Color: "#3b82f6", Recommendation: "Good performance! Consider increasing study hours for even better results."},
	{Threshold: MinScore, Tier: Low, Color: "#dc2626", Recommendation: "Focus on improving class attendance and study hours for better results!"},
}

// Result is the classifier output.
type Result struct {
	Clamped        float64 `json:"score"`
	Tier           Tier    `json:"tier"`
	Color          string  `json:"color"`
	Recommendation string  `json:"recommendation"`
}

// Clamp limits raw to [MinScore, MaxScore]. NaN clamps to MinScore.
func Clamp(raw float64) float64 {
	if math.IsNaN(raw) {
		return MinScore
	}
	return math.Max(MinScore, math.Min(MaxScore, raw))
}

// Validate checks the table invariants.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("tier table is empty")
	}
	for i := 1; i < len(t); i++ {
		if t[i].Threshold >= t[i-1].Threshold {
			return fmt.Errorf("tier table row %d: threshold %v not below %v", i, t[i].Threshold, t[i-1].Threshold)
		}
	}
	if last := t[len(t)-1]; last.Threshold > MinScore {
		return fmt.Errorf("tier table leaves scores below %v unclassified", last.Threshold)
	}
	return nil
}

// Classify clamps raw and looks up its row.
func (t Table) Classify(raw float64) Result {
	clamped := Clamp(raw)
	switch {
	case raw < MinScore:
		metrics.RecordClampedScore("low")
	case raw > MaxScore:
		metrics.RecordClampedScore("high")
	}
	row := t.lookup(clamped)
	return Result{
		Clamped:        clamped,
		Tier:           row.Tier,
		Color:          row.Color,
		Recommendation: row.Recommendation,
	}
}

func (t Table) lookup(score float64) Row {
	for _, row := range t {
		if score >= row.Threshold {
			return row
		}
	}
	return t[len(t)-1]
}

// Classify uses the Default table.
func Classify(raw float64) Result {
	return Default.Classify(raw)
}
