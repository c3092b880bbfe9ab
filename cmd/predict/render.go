package main

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	app "github.com/okian/examscore/internal/app"
	"github.com/okian/examscore/internal/domain/gauge"
)

const barWidth = 30

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	trackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(gauge.TrackColor))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

// renderText draws the outcome as a bordered card with a horizontal bar in
// place of the circular gauge.
func renderText(o *app.Outcome) string {
	accent := lipgloss.NewStyle().Foreground(lipgloss.Color(o.Color))

	lines := []string{
		labelStyle.Render("Predicted Exam Score"),
		accent.Bold(true).Render(gauge.Label(o.Score)) + labelStyle.Render(" / 100"),
		bar(o, accent),
		labelStyle.Render("Tier: ") + accent.Render(strings.ToUpper(string(o.Tier))),
		o.Recommendation,
	}
	return boxStyle.BorderForeground(lipgloss.Color(o.Color)).Render(strings.Join(lines, "\n"))
}

func bar(o *app.Outcome, accent lipgloss.Style) string {
	filled := int(math.Round(o.Gauge.FilledFraction() * barWidth))
	return accent.Render(strings.Repeat("█", filled)) + trackStyle.Render(strings.Repeat("░", barWidth-filled))
}
