package loadgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/okian/examscore/internal/domain/inputs"
	"github.com/okian/examscore/pkg/logger"
)

// hourSteps is the number of selectable values in [MinHours, MaxHours].
const hourSteps = int64((inputs.MaxHours-inputs.MinHours)/inputs.HoursStep) + 1

// randomInt returns a uniform integer in [0, n) using crypto/rand.
func randomInt(n int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0
	}
	return v.Int64()
}

func pick(domain []string) string {
	return domain[randomInt(int64(len(domain)))]
}

func randomHours() float64 {
	return inputs.MinHours + float64(randomInt(hourSteps))*inputs.HoursStep
}

// randomInputs draws one set of inputs uniformly from the closed domains.
func randomInputs() inputs.Raw {
	return inputs.Raw{
		Attendance:     float64(inputs.MinAttendance + randomInt(inputs.MaxAttendance-inputs.MinAttendance+1)),
		StudyHours:     randomHours(),
		SleepHours:     randomHours(),
		Course:         pick(inputs.Courses),
		StudyMethod:    pick(inputs.StudyMethods),
		SleepQuality:   pick(inputs.SleepQualities),
		FacilityRating: pick(inputs.FacilityRatings),
		ExamDifficulty: pick(inputs.ExamDifficulties),
	}
}

// generateInputs creates n random input sets.
func generateInputs(ctx context.Context, n int, stats *Stats) ([]inputs.Raw, error) {
	logger.Get().Info(ctx, "generating inputs", logger.Int("count", n))

	out := make([]inputs.Raw, n)
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		out[i] = randomInputs()
	}

	stats.Generated = len(out)
	return out, nil
}
