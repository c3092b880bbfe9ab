// Package features assembles the ordered, typed feature record that the
// regression model scores.
package features

import (
	"slices"
	"strconv"
)

// Feature names as declared by the model.
const (
	Age             = "age"
	Gender          = "gender"
	Course          = "course"
	StudyHours      = "study_hours"
	ClassAttendance = "class_attendance"
	InternetAccess  = "internet_access"
	SleepHours      = "sleep_hours"
	SleepQuality    = "sleep_quality"
	StudyMethod     = "study_method"
	FacilityRating  = "facility_rating"
	ExamDifficulty  = "exam_difficulty"
)

// Values supplied for every request regardless of user input.
const (
	DefaultAge            = 21
	DefaultGender         = "other"
	DefaultInternetAccess = "yes"
)

// CategoricalFields is the declared set of categorical-typed features.
var CategoricalFields = []string{Course, SleepQuality, StudyMethod, FacilityRating, ExamDifficulty}

// ReferenceOrder is the feature order of the shipped model.
var ReferenceOrder = []string{
	Age, Gender, Course, StudyHours, ClassAttendance, InternetAccess,
	SleepHours, SleepQuality, StudyMethod, FacilityRating, ExamDifficulty,
}

// Kind is the typing of a feature value.
type Kind int

const (
	KindNumeric Kind = iota
	KindText
	KindCategorical
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "string"
	case KindCategorical:
		return "categorical"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Satisfies reports whether a value of kind k fits a feature declared as
// declared ("numeric", "categorical" or "string"). Plain strings accept
// categorical values as well.
func (k Kind) Satisfies(declared string) bool {
	switch declared {
	case KindNumeric.String():
		return k == KindNumeric
	case KindCategorical.String():
		return k == KindCategorical
	case KindText.String():
		return k == KindText || k == KindCategorical
	}
	return false
}

// Value is one typed feature value. Num is set for KindNumeric, Str otherwise.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

// Number builds a numeric value.
func Number(v float64) Value { return Value{Kind: KindNumeric, Num: v} }

// Text builds a plain string value.
func Text(s string) Value { return Value{Kind: KindText, Str: s} }

// Category builds a categorical value.
func Category(s string) Value { return Value{Kind: KindCategorical, Str: s} }

func (v Value) String() string {
	if v.Kind == KindNumeric {
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	}
	return v.Str
}

// Field is a named feature value.
type Field struct {
	Name  string
	Value Value
}

// Record is an ordered feature record. The zero value is empty.
type Record struct {
	fields []Field
}

// NewRecord builds a record in the given field order.
func NewRecord(fields ...Field) Record {
	return Record{fields: slices.Clone(fields)}
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Fields returns a copy of the ordered fields.
func (r Record) Fields() []Field { return slices.Clone(r.fields) }

// At returns the i-th field.
func (r Record) At(i int) Field { return r.fields[i] }

// Lookup returns the value for name.
func (r Record) Lookup(name string) (Value, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Categorical returns the names of categorical-typed fields in record order.
func (r Record) Categorical() []string {
	var names []string
	for _, f := range r.fields {
		if f.Value.Kind == KindCategorical {
			names = append(names, f.Name)
		}
	}
	return names
}

// Supplied lists every feature name the assembler knows how to produce.
func Supplied() []string {
	return slices.Clone(ReferenceOrder)
}
