// Package sampling corrects the class imbalance of the appointment data
// before training. The source distribution is roughly 78/22 in favour of
// attended appointments; duplicating each no-show three times brings the
// training signal close to balance without touching evaluation data.
package sampling

import (
	"math/rand"

	"github.com/clinicstack/noshow-engine/internal/models"
)

// OversampleFactor is the total emission count for each positive
// (no-show) record: 22% x 3 ~= 49% of the inflated set.
const OversampleFactor = 3

// OversampleVectors emits one sample per record plus OversampleFactor-1
// extra copies of each no-show, then shuffles the whole list so duplicates
// are interleaved with originals. Empty input yields empty output.
func OversampleVectors(samples []models.VectorSample, rng *rand.Rand) []models.VectorSample {
	out := make([]models.VectorSample, 0, len(samples)*2)
	for _, s := range samples {
		out = append(out, s)
		if s.Target == 1 {
			for i := 1; i < OversampleFactor; i++ {
				out = append(out, s)
			}
		}
	}
	shuffleVectors(out, rng)
	return out
}

// OversampleTexts applies the same duplication policy to text samples.
// Extra copies are appended after the base slice before the final shuffle.
func OversampleTexts(samples []models.TextSample, rng *rand.Rand) []models.TextSample {
	out := make([]models.TextSample, 0, len(samples)*2)
	out = append(out, samples...)
	for _, s := range samples {
		if s.Label == models.LabelNoShow {
			for i := 1; i < OversampleFactor; i++ {
				out = append(out, s)
			}
		}
	}
	shuffleTexts(out, rng)
	return out
}

// shuffleVectors is an in-place Fisher-Yates shuffle.
func shuffleVectors(samples []models.VectorSample, rng *rand.Rand) {
	rng.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})
}

func shuffleTexts(samples []models.TextSample, rng *rand.Rand) {
	rng.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})
}
