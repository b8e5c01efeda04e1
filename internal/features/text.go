package features

import (
	"fmt"
	"strings"

	"github.com/clinicstack/noshow-engine/internal/models"
)

// RecordText renders a record as a short token sequence for the text
// model. Conditional tokens appear only when the flag is set, keeping the
// sequences information-dense and training fast.
func RecordText(r models.Record) string {
	var sb strings.Builder

	if r.Gender == 1 {
		sb.WriteString("female")
	} else {
		sb.WriteString("male")
	}
	fmt.Fprintf(&sb, " age%d", r.Age)

	if r.DaysWait == 0 {
		sb.WriteString(" sameday")
	} else {
		fmt.Fprintf(&sb, " wait%d", r.DaysWait)
	}

	if r.SMSReceived == 1 {
		sb.WriteString(" sms")
	} else {
		sb.WriteString(" nosms")
	}

	if r.Scholarship == 1 {
		sb.WriteString(" scholarship")
	}
	if r.Hypertension == 1 {
		sb.WriteString(" hypertension")
	}
	if r.Diabetes == 1 {
		sb.WriteString(" diabetes")
	}
	if r.Alcoholism == 1 {
		sb.WriteString(" alcoholism")
	}

	return sb.String()
}

// TextSamples encodes records into cleaned, labeled text samples.
func TextSamples(records []models.Record) []models.TextSample {
	samples := make([]models.TextSample, 0, len(records))
	for _, r := range records {
		label := models.LabelShow
		if r.NoShow == 1 {
			label = models.LabelNoShow
		}
		samples = append(samples, models.TextSample{
			Text:  CleanText(RecordText(r)),
			Label: label,
		})
	}
	return samples
}

// CleanText lower-cases the input, strips everything outside [a-z0-9\s],
// collapses whitespace runs to single spaces, and trims. Idempotent.
func CleanText(s string) string {
	lowered := strings.ToLower(s)

	var sb strings.Builder
	sb.Grow(len(lowered))
	lastSpace := true
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastSpace = false
		case r == ' ', r == '\t', r == '\n', r == '\r', r == '\f', r == '\v':
			if !lastSpace {
				sb.WriteByte(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimRight(sb.String(), " ")
}
