package sampling

import (
	"math/rand"
	"testing"

	"github.com/clinicstack/noshow-engine/internal/models"
)

func TestOversampleVectorsCounts(t *testing.T) {
	// 1 positive, 2 negatives: expect 1*3 + 2 = 5 samples, 60% positive.
	samples := []models.VectorSample{
		{Input: []float64{1}, Target: 1},
		{Input: []float64{2}, Target: 0},
		{Input: []float64{3}, Target: 0},
	}

	out := OversampleVectors(samples, rand.New(rand.NewSource(1)))
	if len(out) != 5 {
		t.Fatalf("expected 5 samples, got %d", len(out))
	}

	positives := 0
	for _, s := range out {
		if s.Target == 1 {
			positives++
		}
	}
	if positives != 3 {
		t.Fatalf("expected 3 positives after oversampling, got %d", positives)
	}
}

func TestOversampleVectorsBalance(t *testing.T) {
	// 22/78 source split should land near even after 3x duplication.
	var samples []models.VectorSample
	for i := 0; i < 22; i++ {
		samples = append(samples, models.VectorSample{Input: []float64{float64(i)}, Target: 1})
	}
	for i := 0; i < 78; i++ {
		samples = append(samples, models.VectorSample{Input: []float64{float64(i)}, Target: 0})
	}

	out := OversampleVectors(samples, rand.New(rand.NewSource(2)))
	if len(out) != 22*3+78 {
		t.Fatalf("expected %d samples, got %d", 22*3+78, len(out))
	}

	positives := 0
	for _, s := range out {
		if s.Target == 1 {
			positives++
		}
	}
	fraction := float64(positives) / float64(len(out))
	if fraction < 0.4 || fraction > 0.6 {
		t.Fatalf("expected near-even balance, got positive fraction %v", fraction)
	}
}

func TestOversampleVectorsEmpty(t *testing.T) {
	out := OversampleVectors(nil, rand.New(rand.NewSource(3)))
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %d samples", len(out))
	}
}

func TestOversampleTextsCounts(t *testing.T) {
	samples := []models.TextSample{
		{Text: "a", Label: models.LabelNoShow},
		{Text: "b", Label: models.LabelShow},
		{Text: "c", Label: models.LabelShow},
	}

	out := OversampleTexts(samples, rand.New(rand.NewSource(4)))
	if len(out) != 5 {
		t.Fatalf("expected 5 samples, got %d", len(out))
	}

	noShows := 0
	for _, s := range out {
		if s.Label == models.LabelNoShow {
			noShows++
		}
	}
	if noShows != 3 {
		t.Fatalf("expected 3 no-show samples, got %d", noShows)
	}
}

func TestOversampleShuffles(t *testing.T) {
	// With a large ordered input, the odds of the shuffle returning the
	// original order are negligible.
	var samples []models.VectorSample
	for i := 0; i < 200; i++ {
		samples = append(samples, models.VectorSample{Input: []float64{float64(i)}, Target: 0})
	}

	out := OversampleVectors(samples, rand.New(rand.NewSource(5)))
	inOrder := true
	for i := range out {
		if out[i].Input[0] != float64(i) {
			inOrder = false
			break
		}
	}
	if inOrder {
		t.Fatalf("expected the sample order to change")
	}
}
