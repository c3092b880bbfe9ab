package loadgen

import (
	"errors"
	"time"
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
	progressInterval        = time.Second
	PercentageMultiplier    = 100
)

// Run failures.
var (
	ErrUnhealthy = errors.New("service unhealthy")
	ErrNoSuccess = errors.New("no prediction succeeded")
	ErrMismatch  = errors.New("tier does not match score")
)
