package inputs_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/examscore/internal/domain/inputs"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaults(t *testing.T) {
	Convey("Given the reset defaults", t, func() {
		d := inputs.Defaults()

		Convey("Then they match the form's initial values", func() {
			So(d.Attendance, ShouldEqual, 75)
			So(d.StudyHours, ShouldEqual, 4)
			So(d.SleepHours, ShouldEqual, 7)
			So(d.Course, ShouldEqual, "b.tech")
			So(d.StudyMethod, ShouldEqual, "mixed")
			So(d.SleepQuality, ShouldEqual, "average")
			So(d.FacilityRating, ShouldEqual, "medium")
			So(d.ExamDifficulty, ShouldEqual, "moderate")
		})

		Convey("And they are valid", func() {
			So(d.Validate(), ShouldBeNil)
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given out-of-range inputs", t, func() {
		raw := inputs.Raw{
			Attendance:     140,
			StudyHours:     -3,
			SleepHours:     math.NaN(),
			Course:         "  B.Tech ",
			StudyMethod:    "Group Study",
			SleepQuality:   "GOOD",
			FacilityRating: "high",
			ExamDifficulty: "unheard-of",
		}

		Convey("When normalized", func() {
			n := raw.Normalize()

			Convey("Then numerics are clamped and NaN falls back to the default", func() {
				So(n.Attendance, ShouldEqual, 100)
				So(n.StudyHours, ShouldEqual, 0)
				So(n.SleepHours, ShouldEqual, 7)
			})

			Convey("And enumerations are canonicalized but unknown values kept", func() {
				So(n.Course, ShouldEqual, "b.tech")
				So(n.StudyMethod, ShouldEqual, "group study")
				So(n.SleepQuality, ShouldEqual, "good")
				So(n.ExamDifficulty, ShouldEqual, "unheard-of")
			})

			Convey("And the original value is untouched", func() {
				So(raw.Attendance, ShouldEqual, 140)
			})
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given inputs outside the closed domains", t, func() {
		raw := inputs.Defaults()
		raw.Attendance = 75.5
		raw.StudyHours = 4.25
		raw.SleepHours = 13
		raw.Course = "mba"

		Convey("Then every problem is reported", func() {
			err := raw.Validate()
			So(err, ShouldNotBeNil)
			So(errors.Is(err, inputs.ErrInvalidInput), ShouldBeTrue)

			var verr *inputs.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(len(verr.Problems), ShouldEqual, 4)
			So(err.Error(), ShouldContainSubstring, `course must be one of`)
		})
	})

	Convey("Given every enumerated value", t, func() {
		Convey("Then each validates", func() {
			for field, domain := range inputs.Domains() {
				for _, v := range domain {
					raw := inputs.Defaults()
					switch field {
					case "course":
						raw.Course = v
					case "study_method":
						raw.StudyMethod = v
					case "sleep_quality":
						raw.SleepQuality = v
					case "facility_rating":
						raw.FacilityRating = v
					case "exam_difficulty":
						raw.ExamDifficulty = v
					}
					So(raw.Validate(), ShouldBeNil)
				}
			}
		})

		Convey("And half-step hours at the bounds are accepted", func() {
			raw := inputs.Defaults()
			raw.StudyHours = 12
			raw.SleepHours = 0.5
			raw.Attendance = 0
			So(raw.Validate(), ShouldBeNil)
		})
	})
}
