// Package evaluation measures trained predictors against labeled records,
// reporting overall accuracy and per-class recall as formatted
// percentages. Evaluation never mutates predictor state and is safe to
// repeat.
package evaluation

import (
	"fmt"
	"strings"

	"github.com/clinicstack/noshow-engine/internal/features"
	"github.com/clinicstack/noshow-engine/internal/models"
	"github.com/clinicstack/noshow-engine/internal/predictor"
)

// VectorRunner is the inference-only slice of a numeric model.
type VectorRunner interface {
	Run(input []float64) (float64, error)
}

// TextRunner is the inference-only slice of a text model.
type TextRunner interface {
	Run(text string) (string, error)
}

// counts tallies the binary confusion outcomes needed for accuracy and
// per-class recall. Positive class = no-show.
type counts struct {
	total     int
	correct   int
	actualPos int
	actualNeg int
	caughtPos int
	caughtNeg int
}

// EvaluateVector scores every record through the numeric model. A score
// strictly above 0.5 predicts a no-show; exactly 0.5 predicts attendance.
func EvaluateVector(model VectorRunner, records []models.Record, builder *features.Builder) (models.AccuracyReport, error) {
	var c counts
	for _, r := range records {
		score, err := model.Run(builder.FromRecord(r))
		if err != nil {
			return models.AccuracyReport{}, fmt.Errorf("run numeric model: %w", err)
		}
		c.observe(score > 0.5, r.NoShow == 1)
	}
	return c.report(), nil
}

// EvaluateText scores every record through the text model. A case-folded
// output starting with "n" counts as a no-show prediction.
func EvaluateText(model TextRunner, records []models.Record) (models.AccuracyReport, error) {
	var c counts
	for _, r := range records {
		out, err := model.Run(features.CleanText(features.RecordText(r)))
		if err != nil {
			return models.AccuracyReport{}, fmt.Errorf("run text model: %w", err)
		}
		c.observe(PredictsNoShow(out), r.NoShow == 1)
	}
	return c.report(), nil
}

// PredictsNoShow interprets a raw text-model output label.
func PredictsNoShow(output string) bool {
	return strings.HasPrefix(strings.ToLower(output), "n")
}

func (c *counts) observe(predictedPos, actualPos bool) {
	c.total++
	if predictedPos == actualPos {
		c.correct++
	}
	if actualPos {
		c.actualPos++
		if predictedPos {
			c.caughtPos++
		}
	} else {
		c.actualNeg++
		if !predictedPos {
			c.caughtNeg++
		}
	}
}

func (c *counts) report() models.AccuracyReport {
	return models.AccuracyReport{
		Overall:      percent(c.correct, c.total),
		RecallNoShow: percent(c.caughtPos, c.actualPos),
		RecallShow:   percent(c.caughtNeg, c.actualNeg),
	}
}

// percent formats num/den as a one-decimal percentage, reporting "0.0" on
// a zero denominator instead of failing.
func percent(num, den int) string {
	if den == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(num)/float64(den)*100)
}

// Guard against accidental interface drift between packages.
var (
	_ VectorRunner = (*predictor.FeedForward)(nil)
	_ TextRunner   = (*predictor.TokenPerceptron)(nil)
)
