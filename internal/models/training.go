package models

import "time"

// ModelKind names the two trainable model flavours.
type ModelKind string

const (
	ModelNumeric ModelKind = "numeric"
	ModelText    ModelKind = "text"
)

// AccuracyReport carries evaluation percentages formatted to one decimal
// place. Zero-denominator recalls report "0.0" rather than failing.
type AccuracyReport struct {
	Overall      string `json:"overall"`
	RecallNoShow string `json:"recallNoShow"`
	RecallShow   string `json:"recallShow"`
}

// TextMetrics summarises a completed text-model run: honest accuracy on the
// untouched validation and test partitions plus per-class test recall.
type TextMetrics struct {
	ValidationAccuracy string `json:"validationAccuracy"`
	TestAccuracy       string `json:"testAccuracy"`
	TestRecallNoShow   string `json:"testRecallNoShow"`
	TestRecallShow     string `json:"testRecallShow"`
}

// TrainingReport is the record of one completed training run kept in the
// service's bounded in-memory history.
type TrainingReport struct {
	RunID      string          `json:"runId"`
	Model      ModelKind       `json:"model"`
	Iterations int             `json:"iterations"`
	Error      float64         `json:"error"`
	Report     *AccuracyReport `json:"report,omitempty"`
	Text       *TextMetrics    `json:"textMetrics,omitempty"`
	Duration   time.Duration   `json:"-"`
	DurationMS int64           `json:"durationMs"`
	CreatedAt  time.Time       `json:"createdAt"`
}
