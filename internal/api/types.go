package api

import "example.com/gymstore/internal/domain"

// RecordsResponse wraps a collection listing.
type RecordsResponse struct {
	Items []domain.Record `json:"items"`
}

// SeparationResponse is returned by the separation check.
type SeparationResponse struct {
	Separated        bool `json:"separated"`
	ManualInSuperset int  `json:"manualInSuperset"`
	SupersetInManual int  `json:"supersetInManual"`
}

// FixResponse reports how many records a repair moved.
type FixResponse struct {
	Moved int `json:"moved"`
}

// ImportResponse acknowledges an import.
type ImportResponse struct {
	Imported bool `json:"imported"`
}
