package models

// Status is the traffic-light outcome of one daily record. The string values
// are the ones stored by the PHP record store.
type Status string

const (
	StatusEmpty    Status = ""
	StatusGreen    Status = "VERDE"
	StatusYellow   Status = "AMARILLO"
	StatusRed      Status = "ROJO"
	StatusBlueDone Status = "AZUL - FINALIZADO"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusBlueDone, StatusGreen, StatusYellow, StatusRed, StatusEmpty}

// StatusColor is the background/foreground pair used by reports.
type StatusColor struct {
	Background string
	Foreground string
}

var statusColors = map[Status]StatusColor{
	StatusBlueDone: {"#0070C0", "#ffffff"},
	StatusGreen:    {"#00B050", "#ffffff"},
	StatusYellow:   {"#FFFF00", "#000000"},
	StatusRed:      {"#FF0000", "#ffffff"},
	StatusEmpty:    {"#F2F2F2", "#000000"},
}

// Color returns the report colors of a status.
func (s Status) Color() StatusColor {
	return statusColors[s]
}

// Label is the display name, with a placeholder for the empty status.
func (s Status) Label() string {
	if s == StatusEmpty {
		return "SIN ESTADO"
	}
	return string(s)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusColors[s]
	return ok
}
