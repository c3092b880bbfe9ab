// Package gauge renders a predicted score as a circular SVG progress gauge.
package gauge

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/examscore/internal/domain/tier"
)

// Fixed gauge dimensions.
const (
	Radius      = 80.0
	StrokeWidth = 20
	Size        = 200
	TrackColor  = "#e5e7eb"
)

// ErrInvalidColor is returned when the arc color is not a #rrggbb token.
var ErrInvalidColor = errors.New("invalid gauge color")

//go:embed templates/gauge.html.tmpl
var templateFS embed.FS

var (
	tmpl       = template.Must(template.ParseFS(templateFS, "templates/gauge.html.tmpl"))
	colorToken = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// Geometry holds the arc parameters for a score.
type Geometry struct {
	Radius        float64 `json:"radius"`
	Circumference float64 `json:"circumference"`
	Offset        float64 `json:"offset"`
}

// For computes the geometry of score. Scores outside [0,100] are clamped.
func For(score float64) Geometry {
	score = tier.Clamp(score)
	c := 2 * math.Pi * Radius
	return Geometry{
		Radius:        Radius,
		Circumference: c,
		Offset:        c * (1 - score/tier.MaxScore),
	}
}

// FilledFraction is the share of the ring drawn in the tier color.
func (g Geometry) FilledFraction() float64 {
	return (g.Circumference - g.Offset) / g.Circumference
}

type view struct {
	Size           int
	Center         int
	Stroke         int
	Radius         string
	Track          string
	Color          string
	Dasharray      string
	Dashoffset     string
	Label          string
	Recommendation string
}

// Render produces the markup fragment for a clamped score. The output is a
// pure function of its arguments.
func Render(score float64, color, recommendation string) (string, error) {
	if !colorToken.MatchString(color) {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, color)
	}
	g := For(score)
	v := view{
		Size:           Size,
		Center:         Size / 2,
		Stroke:         StrokeWidth,
		Radius:         formatFloat(g.Radius),
		Track:          TrackColor,
		Color:          color,
		Dasharray:      formatFloat(g.Circumference),
		Dashoffset:     formatFloat(g.Offset),
		Label:          Label(score),
		Recommendation: recommendation,
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, "gauge", v); err != nil {
		return "", fmt.Errorf("render gauge: %w", err)
	}
	return b.String(), nil
}

// RenderFailure produces the fragment shown instead of a gauge when a
// prediction fails.
func RenderFailure(message string) string {
	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, "failure", message); err != nil {
		return template.HTMLEscapeString(message)
	}
	return b.String()
}

// Label formats the clamped score to one decimal place.
func Label(score float64) string {
	return strconv.FormatFloat(tier.Clamp(score), 'f', 1, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
