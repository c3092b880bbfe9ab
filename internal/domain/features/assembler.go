package features

import (
	"fmt"
	"slices"

	"github.com/okian/examscore/internal/domain/inputs"
)

// Assembler builds records in a fixed schema order. It is immutable after
// construction and safe for concurrent use.
type Assembler struct {
	order       []string
	categorical map[string]struct{}
}

// NewAssembler validates the model's declared order against the supplied
// feature set and returns an assembler bound to it. Any disagreement is a
// *SchemaMismatchError.
func NewAssembler(order []string) (*Assembler, error) {
	if err := CheckSchema(order); err != nil {
		return nil, err
	}
	cat := make(map[string]struct{}, len(CategoricalFields))
	for _, name := range CategoricalFields {
		cat[name] = struct{}{}
	}
	return &Assembler{order: slices.Clone(order), categorical: cat}, nil
}

// Order returns the schema order the assembler emits.
func (a *Assembler) Order() []string { return slices.Clone(a.order) }

// Assemble merges raw with the fixed defaults and emits the record in
// schema order. Numeric inputs are clamped into their domains first.
func (a *Assembler) Assemble(raw inputs.Raw) Record {
	raw = raw.Normalize()
	merged := map[string]Value{
		Course:          Text(raw.Course),
		StudyHours:      Number(raw.StudyHours),
		ClassAttendance: Number(raw.Attendance),
		SleepHours:      Number(raw.SleepHours),
		SleepQuality:    Text(raw.SleepQuality),
		StudyMethod:     Text(raw.StudyMethod),
		FacilityRating:  Text(raw.FacilityRating),
		ExamDifficulty:  Text(raw.ExamDifficulty),

		Age:            Number(DefaultAge),
		Gender:         Text(DefaultGender),
		InternetAccess: Text(DefaultInternetAccess),
	}

	fields := make([]Field, len(a.order))
	for i, name := range a.order {
		v := merged[name]
		if _, ok := a.categorical[name]; ok {
			v = Category(v.Str)
		}
		fields[i] = Field{Name: name, Value: v}
	}
	return NewRecord(fields...)
}

// CheckTypes compares the model's declared type of each feature, aligned
// with Order, against the kind Assemble emits. Any disagreement is a
// *SchemaMismatchError listing the mistyped features.
func (a *Assembler) CheckTypes(declared []string) error {
	var mismatch SchemaMismatchError
	if len(declared) != len(a.order) {
		mismatch.Mistyped = append(mismatch.Mistyped,
			fmt.Sprintf("%d types declared for %d features", len(declared), len(a.order)))
		return &mismatch
	}
	for i, f := range a.Assemble(inputs.Defaults()).Fields() {
		if !f.Value.Kind.Satisfies(declared[i]) {
			mismatch.Mistyped = append(mismatch.Mistyped,
				fmt.Sprintf("%s is %s, model declares %s", f.Name, f.Value.Kind, declared[i]))
		}
	}
	if mismatch.empty() {
		return nil
	}
	return &mismatch
}

// CheckSchema reports a *SchemaMismatchError when order is not a
// permutation of Supplied().
func CheckSchema(order []string) error {
	supplied := make(map[string]bool, len(ReferenceOrder))
	for _, name := range ReferenceOrder {
		supplied[name] = false
	}

	var mismatch SchemaMismatchError
	for _, name := range order {
		seen, known := supplied[name]
		switch {
		case !known:
			mismatch.Unexpected = append(mismatch.Unexpected, name)
		case seen:
			mismatch.Duplicate = append(mismatch.Duplicate, name)
		default:
			supplied[name] = true
		}
	}
	for _, name := range ReferenceOrder {
		if !supplied[name] {
			mismatch.Missing = append(mismatch.Missing, name)
		}
	}
	if mismatch.empty() {
		return nil
	}
	return &mismatch
}
