package scoring_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/examscore/internal/domain/features"
	"github.com/okian/examscore/internal/domain/inputs"
	"github.com/okian/examscore/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func assembled() features.Record {
	a, err := features.NewAssembler(features.ReferenceOrder)
	if err != nil {
		panic(err)
	}
	return a.Assemble(inputs.Defaults())
}

func TestPredictor_Predict(t *testing.T) {
	Convey("Given a predictor over a constant stub model", t, func() {
		p := scoring.NewPredictor(scoring.Constant(85.0))

		Convey("When predicting", func() {
			score, err := p.Predict(context.Background(), assembled())

			Convey("Then the raw score is returned unchanged", func() {
				So(err, ShouldBeNil)
				So(score, ShouldEqual, 85.0)
			})
		})

		Convey("When the model extrapolates beyond 100", func() {
			p := scoring.NewPredictor(scoring.Constant(130.0))
			score, err := p.Predict(context.Background(), assembled())

			Convey("Then the predictor does not clamp", func() {
				So(err, ShouldBeNil)
				So(score, ShouldEqual, 130.0)
			})
		})
	})

	Convey("Given a model that sees the record", t, func() {
		var seen features.Record
		model := scoring.ModelFunc{
			Names: features.Supplied(),
			Fn: func(_ context.Context, rec features.Record) (float64, error) {
				seen = rec
				v, _ := rec.Lookup(features.ClassAttendance)
				return v.Num, nil
			},
		}
		p := scoring.NewPredictor(model)

		Convey("Then it receives the assembled record", func() {
			score, err := p.Predict(context.Background(), assembled())
			So(err, ShouldBeNil)
			So(score, ShouldEqual, 75)
			So(seen.Names(), ShouldResemble, features.ReferenceOrder)
			So(model.FeatureNames(), ShouldResemble, features.ReferenceOrder)
		})
	})
}

func TestPredictor_Errors(t *testing.T) {
	Convey("Given a failing model", t, func() {
		cause := errors.New("tree walk failed")
		p := scoring.NewPredictor(scoring.ModelFunc{
			Names: features.Supplied(),
			Fn: func(context.Context, features.Record) (float64, error) {
				return 0, cause
			},
		})

		Convey("Then the failure surfaces as a PredictionError", func() {
			score, err := p.Predict(context.Background(), assembled())
			So(score, ShouldEqual, 0)
			So(errors.Is(err, scoring.ErrPrediction), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)

			var perr *scoring.PredictionError
			So(errors.As(err, &perr), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "prediction failed: tree walk failed")
		})
	})

	Convey("Given a model returning NaN", t, func() {
		p := scoring.NewPredictor(scoring.Constant(math.NaN()))

		Convey("Then no number is synthesized", func() {
			_, err := p.Predict(context.Background(), assembled())
			So(errors.Is(err, scoring.ErrPrediction), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "non-finite")
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		called := false
		p := scoring.NewPredictor(scoring.ModelFunc{
			Names: features.Supplied(),
			Fn: func(context.Context, features.Record) (float64, error) {
				called = true
				return 50, nil
			},
		})

		Convey("Then the model is not invoked", func() {
			_, err := p.Predict(ctx, assembled())
			So(errors.Is(err, scoring.ErrPrediction), ShouldBeTrue)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(called, ShouldBeFalse)
		})
	})

	Convey("Given a fixed clock", t, func() {
		ticks := 0
		now := func() time.Time {
			ticks++
			return time.Unix(0, int64(ticks)*int64(time.Millisecond))
		}
		p := scoring.NewPredictor(scoring.Constant(60), scoring.WithClock(now))

		Convey("Then prediction reads the clock around the model call", func() {
			_, err := p.Predict(context.Background(), assembled())
			So(err, ShouldBeNil)
			So(ticks, ShouldEqual, 2)
		})
	})
}
