package models

// Record is one historical appointment. The record set is loaded once at
// startup and treated as read-only afterwards.
type Record struct {
	Age           int    `csv:"age" json:"age"`
	DaysWait      int    `csv:"days_wait" json:"daysWait"`
	Gender        int    `csv:"gender" json:"gender"`
	SMSReceived   int    `csv:"sms_received" json:"smsReceived"`
	Scholarship   int    `csv:"scholarship" json:"scholarship"`
	Hypertension  int    `csv:"hypertension" json:"hypertension"`
	Diabetes      int    `csv:"diabetes" json:"diabetes"`
	Alcoholism    int    `csv:"alcoholism" json:"alcoholism"`
	Neighbourhood string `csv:"neighbourhood" json:"neighbourhood"`
	NoShow        int    `csv:"no_show" json:"noShow"`
}

// Bounds holds the observed minimum and maximum for one numeric feature.
// Computed by a single scan over the record set; never shrunk incrementally.
type Bounds struct {
	Min float64
	Max float64
}

// FeatureBounds carries the per-feature bounds used for min-max scaling.
type FeatureBounds struct {
	Age      Bounds
	DaysWait Bounds
}

// VectorSample pairs a normalized feature vector with its numeric label
// (1 = no-show, 0 = attended).
type VectorSample struct {
	Input  []float64
	Target float64
}

// TextSample pairs an encoded appointment string with its class label.
type TextSample struct {
	Text  string
	Label string
}

const (
	// LabelShow marks an attended appointment.
	LabelShow = "yes"
	// LabelNoShow marks a missed appointment.
	LabelNoShow = "no"
)

// PredictionInput is the explicit per-request selection of patient
// attributes. It replaces any ambient toggle state: every prediction call
// carries its own copy.
type PredictionInput struct {
	Age          int `json:"age"`
	DaysWait     int `json:"daysWait"`
	Gender       int `json:"gender"`
	SMSReceived  int `json:"smsReceived"`
	Scholarship  int `json:"scholarship"`
	Hypertension int `json:"hypertension"`
	Diabetes     int `json:"diabetes"`
	Alcoholism   int `json:"alcoholism"`
}

// ToRecord maps the input onto a Record with an unset label, so the feature
// and text encoders can be reused unchanged at prediction time.
func (in PredictionInput) ToRecord() Record {
	return Record{
		Age:          in.Age,
		DaysWait:     in.DaysWait,
		Gender:       in.Gender,
		SMSReceived:  in.SMSReceived,
		Scholarship:  in.Scholarship,
		Hypertension: in.Hypertension,
		Diabetes:     in.Diabetes,
		Alcoholism:   in.Alcoholism,
	}
}
