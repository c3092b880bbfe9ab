package scoring

import "errors"

// ErrPrediction is matched by *PredictionError via errors.Is.
var ErrPrediction = errors.New("prediction failed")

// PredictionError wraps a failure of the underlying scoring call.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string {
	return ErrPrediction.Error() + ": " + e.Err.Error()
}

func (e *PredictionError) Unwrap() error { return e.Err }

func (e *PredictionError) Is(target error) bool {
	return target == ErrPrediction
}
