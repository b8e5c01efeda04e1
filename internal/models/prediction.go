package models

// NumericPrediction is the numeric model's answer for one input.
type NumericPrediction struct {
	Score  float64   `json:"score"`
	NoShow bool      `json:"noShow"`
	Vector []float64 `json:"vector"`
}

// TextPrediction is the text model's answer for one input.
type TextPrediction struct {
	Label       string `json:"label"`
	NoShow      bool   `json:"noShow"`
	CleanedText string `json:"cleanedText"`
}

// DatasetInfo summarises the loaded record set for reporting endpoints.
type DatasetInfo struct {
	Records        int      `json:"records"`
	NoShows        int      `json:"noShows"`
	Neighbourhoods []string `json:"neighbourhoods"`
	AgeMin         float64  `json:"ageMin"`
	AgeMax         float64  `json:"ageMax"`
	DaysWaitMin    float64  `json:"daysWaitMin"`
	DaysWaitMax    float64  `json:"daysWaitMax"`
}
