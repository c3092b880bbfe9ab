// Package inputs contains the user-adjustable study-habit quantities fed to
// the prediction pipeline, their closed value domains, and reset defaults.
package inputs

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Numeric domain bounds.
const (
	MinAttendance = 0
	MaxAttendance = 100
	MinHours      = 0
	MaxHours      = 12
	HoursStep     = 0.5
)

// Enumerated value domains.
var (
	Courses          = []string{"b.tech", "b.sc", "b.com", "bca", "bba", "ba", "diploma"}
	StudyMethods     = []string{"coaching", "self-study", "mixed", "group study", "online videos"}
	SleepQualities   = []string{"good", "average", "poor"}
	FacilityRatings  = []string{"high", "medium", "low"}
	ExamDifficulties = []string{"easy", "moderate", "hard"}
)

// Raw is one set of inputs as supplied by the UI boundary.
type Raw struct {
	Attendance     float64 `json:"attendance"`
	StudyHours     float64 `json:"study_hours"`
	SleepHours     float64 `json:"sleep_hours"`
	Course         string  `json:"course"`
	StudyMethod    string  `json:"study_method"`
	SleepQuality   string  `json:"sleep_quality"`
	FacilityRating string  `json:"facility_rating"`
	ExamDifficulty string  `json:"exam_difficulty"`
}

// Defaults returns the values the form resets to.
func Defaults() Raw {
	return Raw{
		Attendance:     75,
		StudyHours:     4,
		SleepHours:     7,
		Course:         "b.tech",
		StudyMethod:    "mixed",
		SleepQuality:   "average",
		FacilityRating: "medium",
		ExamDifficulty: "moderate",
	}
}

// Normalize returns a copy with numeric fields clamped into their domains
// and enumerated fields lower-cased and trimmed. NaN numerics fall back to
// the reset default. Unknown enumerated values are kept as-is.
func (r Raw) Normalize() Raw {
	d := Defaults()
	r.Attendance = clamp(orDefault(r.Attendance, d.Attendance), MinAttendance, MaxAttendance)
	r.StudyHours = clamp(orDefault(r.StudyHours, d.StudyHours), MinHours, MaxHours)
	r.SleepHours = clamp(orDefault(r.SleepHours, d.SleepHours), MinHours, MaxHours)
	r.Course = canonical(r.Course)
	r.StudyMethod = canonical(r.StudyMethod)
	r.SleepQuality = canonical(r.SleepQuality)
	r.FacilityRating = canonical(r.FacilityRating)
	r.ExamDifficulty = canonical(r.ExamDifficulty)
	return r
}

// Validate checks r against the closed domains. The core pipeline never
// calls it; outer surfaces without widget constraints do.
func (r Raw) Validate() error {
	var problems []string
	if bad(r.Attendance) || r.Attendance < MinAttendance || r.Attendance > MaxAttendance || r.Attendance != math.Trunc(r.Attendance) {
		problems = append(problems, fmt.Sprintf("attendance must be an integer in [%d,%d]", MinAttendance, MaxAttendance))
	}
	if !validHours(r.StudyHours) {
		problems = append(problems, fmt.Sprintf("study_hours must be in [%d,%d] in steps of %.1f", MinHours, MaxHours, HoursStep))
	}
	if !validHours(r.SleepHours) {
		problems = append(problems, fmt.Sprintf("sleep_hours must be in [%d,%d] in steps of %.1f", MinHours, MaxHours, HoursStep))
	}
	problems = appendEnum(problems, "course", r.Course, Courses)
	problems = appendEnum(problems, "study_method", r.StudyMethod, StudyMethods)
	problems = appendEnum(problems, "sleep_quality", r.SleepQuality, SleepQualities)
	problems = appendEnum(problems, "facility_rating", r.FacilityRating, FacilityRatings)
	problems = appendEnum(problems, "exam_difficulty", r.ExamDifficulty, ExamDifficulties)
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Domains returns every enumerated domain keyed by field name.
func Domains() map[string][]string {
	return map[string][]string{
		"course":          slices.Clone(Courses),
		"study_method":    slices.Clone(StudyMethods),
		"sleep_quality":   slices.Clone(SleepQualities),
		"facility_rating": slices.Clone(FacilityRatings),
		"exam_difficulty": slices.Clone(ExamDifficulties),
	}
}

func appendEnum(problems []string, field, value string, domain []string) []string {
	if slices.Contains(domain, canonical(value)) {
		return problems
	}
	return append(problems, fmt.Sprintf("%s must be one of [%s], got %q", field, strings.Join(domain, ", "), value))
}

func validHours(v float64) bool {
	if bad(v) || v < MinHours || v > MaxHours {
		return false
	}
	steps := v / HoursStep
	return steps == math.Trunc(steps)
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func orDefault(v, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
