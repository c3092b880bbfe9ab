package loadgen

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/examscore/pkg/logger"
)

// SetupLogging writes logs to the console and, when logFile is set, to a
// rotating file as well.
func SetupLogging(logFile string, verbose bool) error {
	opts := []logger.Option{logger.WithOutput(os.Stdout)}
	if logFile != "" {
		opts = append(opts, logger.WithFile(logFile))
	}
	if err := logger.Init(opts...); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the load generator.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Exam Score Load Generator
=========================

Submits random valid study-habit inputs to a running server and checks that
every returned tier, color and recommendation agrees with the returned score.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -requests int
        Number of predictions to request (default 1000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -output string
        Write every sample to this JSON file
  -log string
        Also write logs to this rotating file
  -verbose
        Log progress and every mismatch
  -help
        Show this help message

Examples:
  go run ./cmd/loadgen -requests 5000 -workers 16
  go run ./cmd/loadgen -url http://localhost:8080 -output samples.json
`)
}
