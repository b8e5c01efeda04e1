// Package dataset loads the appointment record set and derives the
// read-only state the rest of the engine depends on: feature bounds for
// min-max scaling and the list of distinct neighbourhoods.
package dataset

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/gocarina/gocsv"

	"github.com/clinicstack/noshow-engine/internal/models"
)

//go:embed appointments.csv
var embeddedCSV []byte

// Store holds the immutable record set and its derived state. Populate it
// once at startup; all accessors return copies or read-only views.
type Store struct {
	records        []models.Record
	bounds         models.FeatureBounds
	neighbourhoods []string
}

// Load builds a Store from the embedded appointment data.
func Load() (*Store, error) {
	return fromCSV(embeddedCSV)
}

// LoadFile builds a Store from an operator-supplied CSV with the same
// schema as the embedded dataset.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return fromCSV(data)
}

func fromCSV(data []byte) (*Store, error) {
	var records []models.Record
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return nil, fmt.Errorf("parse dataset csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}

	s := &Store{records: records}
	s.bounds = computeBounds(records)
	s.neighbourhoods = distinctNeighbourhoods(records)
	return s, nil
}

// Records returns a copy of the record set so callers can shuffle and
// partition without touching shared state.
func (s *Store) Records() []models.Record {
	out := make([]models.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Bounds returns the precomputed min/max per numeric feature.
func (s *Store) Bounds() models.FeatureBounds {
	return s.bounds
}

// Neighbourhoods returns the sorted distinct neighbourhood values. The
// feature pipeline deliberately ignores them (too many sparse categories
// for this sample size); they are exposed for reporting only.
func (s *Store) Neighbourhoods() []string {
	out := make([]string, len(s.neighbourhoods))
	copy(out, s.neighbourhoods)
	return out
}

// NoShowCount returns how many records carry the positive (no-show) label.
func (s *Store) NoShowCount() int {
	count := 0
	for _, r := range s.records {
		if r.NoShow == 1 {
			count++
		}
	}
	return count
}

// computeBounds scans the full record set once. Bounds are recomputed
// wholesale on reload, never adjusted incrementally.
func computeBounds(records []models.Record) models.FeatureBounds {
	b := models.FeatureBounds{
		Age:      models.Bounds{Min: float64(records[0].Age), Max: float64(records[0].Age)},
		DaysWait: models.Bounds{Min: float64(records[0].DaysWait), Max: float64(records[0].DaysWait)},
	}
	for _, r := range records[1:] {
		b.Age = widen(b.Age, float64(r.Age))
		b.DaysWait = widen(b.DaysWait, float64(r.DaysWait))
	}
	return b
}

func widen(b models.Bounds, v float64) models.Bounds {
	if v < b.Min {
		b.Min = v
	}
	if v > b.Max {
		b.Max = v
	}
	return b
}

func distinctNeighbourhoods(records []models.Record) []string {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.Neighbourhood == "" {
			continue
		}
		seen[r.Neighbourhood] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for hood := range seen {
		out = append(out, hood)
	}
	sort.Strings(out)
	return out
}
