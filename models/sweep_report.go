package models

import "time"

// ExportedHandOff records where a lapsed red block was exported.
type ExportedHandOff struct {
	ClientID string `json:"cliente"`
	Expiry   Date   `json:"vencimiento"`
	Location string `json:"ubicacion"`
}

// SweepReport summarises one lifecycle sweep.
type SweepReport struct {
	RanAt           time.Time         `json:"ran_at"`
	Today           Date              `json:"today"`
	Holidays        int               `json:"holidays"`
	Clients         int               `json:"clients"`
	Incomplete      []string          `json:"incomplete"`
	StatusChanges   int               `json:"status_changes"`
	PersistErrors   int               `json:"persist_errors"`
	Active          int               `json:"active"`
	Expired         int               `json:"expired"`
	Exported        []ExportedHandOff `json:"exported"`
	AlreadyExported int               `json:"already_exported"`
	ExportErrors    int               `json:"export_errors"`
}
