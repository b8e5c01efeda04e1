package sampling

import (
	"math/rand"

	"github.com/clinicstack/noshow-engine/internal/models"
)

// Partitions holds the disjoint train/validation/test record sets.
type Partitions struct {
	Train      []models.Record
	Validation []models.Record
	Test       []models.Record
}

// Split shuffles a copy of the records and cuts it 70/15/15 using
// floor-based indices. Validation and test keep the true class
// distribution so evaluation stays honest; only Train is ever rebalanced.
func Split(records []models.Record, rng *rand.Rand) Partitions {
	shuffled := make([]models.Record, len(records))
	copy(shuffled, records)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := len(shuffled)
	trainEnd := int(float64(n) * 0.70)
	valEnd := int(float64(n) * 0.85)

	return Partitions{
		Train:      shuffled[:trainEnd],
		Validation: shuffled[trainEnd:valEnd],
		Test:       shuffled[valEnd:],
	}
}
