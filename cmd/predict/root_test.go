package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/okian/examscore/internal/app"
	"github.com/okian/examscore/internal/domain/inputs"
	"github.com/okian/examscore/internal/domain/tier"
)

const shippedModel = "../../models/exam_score.yaml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--model", shippedModel}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestPredictDefaults(t *testing.T) {
	out, err := execute(t, "--format", "json")
	require.NoError(t, err)

	var outcome app.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	assert.InDelta(t, 70.0, outcome.Score, 1e-9)
	assert.Equal(t, tier.Medium, outcome.Tier)
	assert.Equal(t, "#3b82f6", outcome.Color)
	assert.NotEmpty(t, outcome.Markup)
}

func TestPredictStrongHabits(t *testing.T) {
	out, err := execute(t, "-o", "json",
		"--attendance", "90", "--study-hours", "6", "--sleep-hours", "8",
		"--course", "B.Tech", "--study-method", "mixed", "--sleep-quality", "good",
		"--facility-rating", "high", "--exam-difficulty", "moderate",
	)
	require.NoError(t, err)

	var outcome app.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	assert.InDelta(t, 87.0, outcome.RawScore, 1e-9)
	assert.Equal(t, tier.High, outcome.Tier)
}

func TestPredictFormats(t *testing.T) {
	html, err := execute(t, "--format", "html")
	require.NoError(t, err)
	assert.Contains(t, html, ">70.0<")
	assert.Contains(t, html, "#3b82f6")

	text, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, text, "70.0")
	assert.Contains(t, text, "MEDIUM")
	assert.Contains(t, text, tier.Default[1].Recommendation)
}

func TestPredictRejectsBadInput(t *testing.T) {
	_, err := execute(t, "--course", "law")
	require.Error(t, err)
	assert.ErrorIs(t, err, inputs.ErrInvalidInput)

	_, err = execute(t, "--study-hours", "4.3")
	assert.ErrorIs(t, err, inputs.ErrInvalidInput)

	_, err = execute(t, "--format", "yaml")
	assert.ErrorIs(t, err, errUnknownFormat)
}

func TestPredictMissingModel(t *testing.T) {
	_, err := execute(t, "--model", filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start")
}

func TestSchemaCommand(t *testing.T) {
	out, err := execute(t, "schema")
	require.NoError(t, err)

	var schema app.Schema
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, "exam-score-gbdt", schema.Model.Name)
	assert.Len(t, schema.Features, 11)
	assert.Equal(t, inputs.Defaults(), schema.Defaults)
	assert.Contains(t, schema.Domains, "course")
}
