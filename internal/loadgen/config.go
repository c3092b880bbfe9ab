// Package loadgen drives a running server with random valid inputs and
// checks that every returned tier and color agrees with the returned score.
package loadgen

import (
	"time"

	"github.com/okian/examscore/internal/domain/inputs"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Requests   int           // Number of predictions to request
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Optional JSON dump of every sample
	Verbose    bool          // Log every mismatch and progress tick
}

// Result is the part of a prediction response the run checks.
type Result struct {
	RawScore       float64 `json:"raw_score"`
	Score          float64 `json:"score"`
	Tier           string  `json:"tier"`
	Color          string  `json:"color"`
	Recommendation string  `json:"recommendation"`
}

// Sample is one request and what came back for it.
type Sample struct {
	RequestID string     `json:"request_id"`
	Inputs    inputs.Raw `json:"inputs"`
	Status    int        `json:"status"`
	EchoedID  string     `json:"echoed_id,omitempty"`
	Result    *Result    `json:"result,omitempty"`
	Err       string     `json:"error,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	Generated   int
	Submitted   int
	Successful  int
	RateLimited int
	Failed      int
	Mismatched  int
	ByTier      map[string]int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}
