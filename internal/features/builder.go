// Package features turns appointment records into the two model input
// representations: an 8-dimensional normalized vector for the numeric
// model and a compact token string for the text model.
package features

import (
	"github.com/clinicstack/noshow-engine/internal/models"
)

// VectorSize is the fixed numeric feature dimensionality: normalized age,
// normalized wait, and six binary flags. Neighbourhood is deliberately
// excluded: 37 sparse categories over ~150 records collapse the model.
const VectorSize = 8

// Builder maps records and prediction inputs onto normalized feature
// vectors using precomputed dataset bounds.
type Builder struct {
	bounds models.FeatureBounds
}

// NewBuilder creates a Builder around the dataset's feature bounds.
func NewBuilder(bounds models.FeatureBounds) *Builder {
	return &Builder{bounds: bounds}
}

// Normalize rescales v into [0,1] via min-max scaling. A zero-range bound
// maps every value to 0.5: no information, so report the midpoint.
func Normalize(v float64, b models.Bounds) float64 {
	if b.Min == b.Max {
		return 0.5
	}
	return (v - b.Min) / (b.Max - b.Min)
}

// Denormalize inverts Normalize. Exact for values inside the bounds up to
// floating-point rounding.
func Denormalize(norm float64, b models.Bounds) float64 {
	return norm*(b.Max-b.Min) + b.Min
}

// FromRecord builds the feature vector for a stored record.
func (bl *Builder) FromRecord(r models.Record) []float64 {
	return bl.vector(r)
}

// FromInput builds the feature vector for a user-supplied prediction
// input. Inputs are taken as-is; validation is the caller's concern.
func (bl *Builder) FromInput(in models.PredictionInput) []float64 {
	return bl.vector(in.ToRecord())
}

func (bl *Builder) vector(r models.Record) []float64 {
	return []float64{
		Normalize(float64(r.Age), bl.bounds.Age),
		Normalize(float64(r.DaysWait), bl.bounds.DaysWait),
		float64(r.Gender),
		float64(r.SMSReceived),
		float64(r.Scholarship),
		float64(r.Hypertension),
		float64(r.Diabetes),
		float64(r.Alcoholism),
	}
}

// Samples converts records into labeled vector samples for training.
func (bl *Builder) Samples(records []models.Record) []models.VectorSample {
	samples := make([]models.VectorSample, 0, len(records))
	for _, r := range records {
		samples = append(samples, models.VectorSample{
			Input:  bl.vector(r),
			Target: float64(r.NoShow),
		})
	}
	return samples
}
