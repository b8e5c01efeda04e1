package sampling

import (
	"math/rand"
	"testing"

	"github.com/clinicstack/noshow-engine/internal/models"
)

func makeRecords(n int) []models.Record {
	records := make([]models.Record, n)
	for i := range records {
		records[i] = models.Record{Age: i}
	}
	return records
}

func TestSplitSizes(t *testing.T) {
	records := makeRecords(100)
	parts := Split(records, rand.New(rand.NewSource(1)))

	if len(parts.Train) != 70 {
		t.Fatalf("expected 70 train records, got %d", len(parts.Train))
	}
	if len(parts.Validation) != 15 {
		t.Fatalf("expected 15 validation records, got %d", len(parts.Validation))
	}
	if len(parts.Test) != 15 {
		t.Fatalf("expected 15 test records, got %d", len(parts.Test))
	}
}

func TestSplitFloorRounding(t *testing.T) {
	records := makeRecords(11)
	parts := Split(records, rand.New(rand.NewSource(2)))

	// trainEnd = floor(11*0.70) = 7, valEnd = floor(11*0.85) = 9.
	if len(parts.Train) != 7 || len(parts.Validation) != 2 || len(parts.Test) != 2 {
		t.Fatalf("unexpected partition sizes: %d/%d/%d",
			len(parts.Train), len(parts.Validation), len(parts.Test))
	}
}

func TestSplitDisjointAndComplete(t *testing.T) {
	records := makeRecords(60)
	parts := Split(records, rand.New(rand.NewSource(3)))

	seen := make(map[int]int)
	for _, r := range parts.Train {
		seen[r.Age]++
	}
	for _, r := range parts.Validation {
		seen[r.Age]++
	}
	for _, r := range parts.Test {
		seen[r.Age]++
	}

	if len(seen) != 60 {
		t.Fatalf("expected all 60 records across partitions, got %d", len(seen))
	}
	for age, count := range seen {
		if count != 1 {
			t.Fatalf("record %d appears %d times", age, count)
		}
	}
}

func TestSplitSmallInput(t *testing.T) {
	parts := Split(makeRecords(2), rand.New(rand.NewSource(4)))
	total := len(parts.Train) + len(parts.Validation) + len(parts.Test)
	if total != 2 {
		t.Fatalf("expected partitions to cover 2 records, got %d", total)
	}
}

func TestSplitDoesNotMutateInput(t *testing.T) {
	records := makeRecords(30)
	Split(records, rand.New(rand.NewSource(5)))
	for i, r := range records {
		if r.Age != i {
			t.Fatalf("input records were reordered at %d", i)
		}
	}
}
