package domain

import "time"

type FinalSource string

const (
	SourceAccepted   FinalSource = "accepted"
	SourceCorrection FinalSource = "human_correction"
)

// PredictionRecord pairs a model prediction with its eventual
// human-confirmed value. Append-only; one record per corrected field
// per correction event.
type PredictionRecord struct {
	ID                  string      `json:"id"`
	SessionID           string      `json:"session_id"`
	EntityType          string      `json:"entity_type"`
	EntityID            string      `json:"entity_id"`
	Field               string      `json:"field"`
	PredictedValue      string      `json:"predicted_value"`
	PredictedConfidence float64     `json:"predicted_confidence"`
	PredictedByPass     int         `json:"predicted_by_pass"`
	PredictedByModel    string      `json:"predicted_by_model,omitempty"`
	FinalValue          string      `json:"final_value"`
	FinalSource         FinalSource `json:"final_source"`
	WasCorrect          bool        `json:"was_correct"`
	Context             string      `json:"context,omitempty"`
	RecordedAt          time.Time   `json:"recorded_at"`
}
