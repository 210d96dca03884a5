package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ClosingState values written by the supercloser follow-up.
const (
	ClosingClosed    = "CERRADO"
	ClosingFinished  = "FINALIZADO"
	ClosingToCentral = "ESCALAR A CENTRAL"
	CloserEscalate   = "ESCALAR A SUPER"
)

// DailyRecord is one day of a client's three-day intake window, as stored by
// the remote record store (one row per client per day).
type DailyRecord struct {
	ClientID  string `json:"CLIENTE"`
	Cal       string `json:"CAL"`
	Comercial string `json:"COMERCIAL"`
	DayDate   Date   `json:"DIA"`
	EntryDate Date   `json:"FECHA_ENTRADA"`
	Status    Status `json:"SEMAFORO"`

	Products ProductFlags `json:"-"`

	AssignedCloser        string `json:"ASIGNADO_CLOSER"`
	CloserAssignedAt      Date   `json:"FECHA_ASIGNACION_CLOSER"`
	AssignedSupercloser   string `json:"ASIGNADO_SUPERCLOSER"`
	SupercloserAssignedAt Date   `json:"FECHA_ASIGNACION_SUPERCLOSER"`
	ClosingState          string `json:"ESTADO_CIERRE"`

	CloserNotes         string       `json:"SEGUIMIENTO_CLOSER"`
	SupercloserNotes    string       `json:"SEGUIMIENTO_SUPERCLOSER"`
	CloserProducts      ProductFlags `json:"-"`
	SupercloserProducts ProductFlags `json:"-"`
	CloserHandled       bool         `json:"-"`
	SupercloserHandled  bool         `json:"-"`
}

const (
	closerPrefix      = "CLOSER_"
	supercloserPrefix = "SUPERCLOSER_"
	closerHandledKey  = "GESTIONADO_CLOSER"
	superHandledKey   = "GESTIONADO_SUPER"
)

// Key identifies a row in the record store.
func (r DailyRecord) Key() string {
	return fmt.Sprintf("%s_%s", r.ClientID, r.DayDate)
}

// HasAssignment reports whether a closer or supercloser already owns the client.
func (r DailyRecord) HasAssignment() bool {
	return strings.TrimSpace(r.AssignedCloser) != "" || strings.TrimSpace(r.AssignedSupercloser) != ""
}

// IsClosed reports whether the closing state halts further lifecycle actions.
func (r DailyRecord) IsClosed() bool {
	switch strings.ToUpper(strings.TrimSpace(r.ClosingState)) {
	case ClosingClosed, ClosingFinished:
		return true
	}
	return false
}

// Clone returns a deep copy so derived views never share flag maps.
func (r DailyRecord) Clone() DailyRecord {
	out := r
	out.Products = r.Products.Clone()
	out.CloserProducts = r.CloserProducts.Clone()
	out.SupercloserProducts = r.SupercloserProducts.Clone()
	return out
}

// UnmarshalJSON reads the flat row format. Product columns are the ones
// carrying a check mark; CLOSER_/SUPERCLOSER_ prefixes route them to the
// follow-up flag sets.
func (r *DailyRecord) UnmarshalJSON(data []byte) error {
	type Alias DailyRecord
	aux := (*Alias)(r)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	var columns map[string]interface{}
	if err := json.Unmarshal(data, &columns); err != nil {
		return err
	}

	r.ClientID = NormalizeName(r.ClientID)
	r.Cal = NormalizeName(r.Cal)
	r.Products = ProductFlags{}
	r.CloserProducts = ProductFlags{}
	r.SupercloserProducts = ProductFlags{}

	for key, value := range columns {
		key = strings.ToUpper(strings.TrimSpace(key))
		switch key {
		case closerHandledKey:
			r.CloserHandled = truthy(value)
			continue
		case superHandledKey:
			r.SupercloserHandled = truthy(value)
			continue
		}

		mark, ok := value.(string)
		if !ok {
			continue
		}
		mark = strings.TrimSpace(mark)
		if mark != MarkConfirmed && mark != MarkNotConfirmed {
			continue
		}
		confirmed := mark == MarkConfirmed

		switch {
		case strings.HasPrefix(key, supercloserPrefix):
			r.SupercloserProducts[Product(strings.TrimPrefix(key, supercloserPrefix))] = confirmed
		case strings.HasPrefix(key, closerPrefix):
			r.CloserProducts[Product(strings.TrimPrefix(key, closerPrefix))] = confirmed
		default:
			r.Products[Product(key)] = confirmed
		}
	}
	return nil
}

// MarshalJSON writes the flat row format back.
func (r DailyRecord) MarshalJSON() ([]byte, error) {
	type Alias DailyRecord
	base, err := json.Marshal(Alias(r))
	if err != nil {
		return nil, err
	}

	columns := map[string]interface{}{}
	if err := json.Unmarshal(base, &columns); err != nil {
		return nil, err
	}
	for p, v := range r.Products {
		columns[string(p)] = Mark(v)
	}
	for p, v := range r.CloserProducts {
		columns[closerPrefix+string(p)] = Mark(v)
	}
	for p, v := range r.SupercloserProducts {
		columns[supercloserPrefix+string(p)] = Mark(v)
	}
	columns[closerHandledKey] = r.CloserHandled
	columns[superHandledKey] = r.SupercloserHandled
	return json.Marshal(columns)
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "si", "sí", "yes":
			return true
		}
	}
	return false
}
