package store

import (
	"encoding/json"
	"time"
)

// Entry is one extracted file in the ledger
type Entry struct {
	Hash        string    `json:"hash"`
	Filename    string    `json:"filename"`
	OutputPath  string    `json:"output_path"`
	Format      string    `json:"format"`
	Method      string    `json:"method"`
	RFQNumber   string    `json:"rfq_number,omitempty"`
	Items       int       `json:"items"`
	NeedsReview bool      `json:"needs_review"`
	ProcessedAt time.Time `json:"processed_at"`
}

func ToJSON(v interface{}) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func FromJSON(data json.RawMessage, v interface{}) error {
	return json.Unmarshal(data, v)
}
