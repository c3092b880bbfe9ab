package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	app "github.com/okian/examscore/internal/app"
	"github.com/okian/examscore/internal/domain/inputs"
	"github.com/okian/examscore/pkg/logger"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatHTML = "html"
)

var errUnknownFormat = errors.New("unknown output format")

type options struct {
	modelPath string
	format    string
	logLevel  string
	raw       inputs.Raw
}

func newRootCmd() *cobra.Command {
	opts := &options{raw: inputs.Defaults()}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict an exam score from study habits",
		Long: `predict loads a model file, scores the given study habits and prints
the score, its tier and the recommendation.

Unset flags take the same defaults as the form's reset button.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return err
			}
			return logger.SetLevelString(opts.logLevel)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPredict(cmd, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.modelPath, "model", app.DefaultModelPath, "model file")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "o", formatText, "output format (text, json, html)")
	f.Float64Var(&opts.raw.Attendance, "attendance", opts.raw.Attendance, "class attendance percent")
	f.Float64Var(&opts.raw.StudyHours, "study-hours", opts.raw.StudyHours, "study hours per day")
	f.Float64Var(&opts.raw.SleepHours, "sleep-hours", opts.raw.SleepHours, "sleep hours per night")
	f.StringVar(&opts.raw.Course, "course", opts.raw.Course, "course: "+strings.Join(inputs.Courses, ", "))
	f.StringVar(&opts.raw.StudyMethod, "study-method", opts.raw.StudyMethod, "study method: "+strings.Join(inputs.StudyMethods, ", "))
	f.StringVar(&opts.raw.SleepQuality, "sleep-quality", opts.raw.SleepQuality, "sleep quality: "+strings.Join(inputs.SleepQualities, ", "))
	f.StringVar(&opts.raw.FacilityRating, "facility-rating", opts.raw.FacilityRating, "facility rating: "+strings.Join(inputs.FacilityRatings, ", "))
	f.StringVar(&opts.raw.ExamDifficulty, "exam-difficulty", opts.raw.ExamDifficulty, "exam difficulty: "+strings.Join(inputs.ExamDifficulties, ", "))

	cmd.AddCommand(newSchemaCmd(opts))
	return cmd
}

func runPredict(cmd *cobra.Command, opts *options) error {
	if !slices.Contains([]string{formatText, formatJSON, formatHTML}, opts.format) {
		return fmt.Errorf("%w: %q", errUnknownFormat, opts.format)
	}
	if err := opts.raw.Validate(); err != nil {
		return err
	}

	svc, err := startService(cmd, opts)
	if err != nil {
		return err
	}
	defer svc.Stop()

	outcome, err := svc.Predict(cmd.Context(), opts.raw)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}

	out := cmd.OutOrStdout()
	switch opts.format {
	case formatJSON:
		return writeJSON(out, outcome)
	case formatHTML:
		_, err = fmt.Fprintln(out, outcome.Markup)
		return err
	default:
		_, err = fmt.Fprintln(out, renderText(outcome))
		return err
	}
}

func newSchemaCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the model's feature schema and input domains",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := startService(cmd, opts)
			if err != nil {
				return err
			}
			defer svc.Stop()

			schema, err := svc.Schema()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), schema)
		},
	}
}

func startService(cmd *cobra.Command, opts *options) (*app.Service, error) {
	svc := app.New(
		app.WithLogger(logger.Named("predict")),
		app.WithModelPath(opts.modelPath),
	)
	if err := svc.Start(cmd.Context()); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	return svc, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
