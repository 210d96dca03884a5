package models

// ClientSummary is the one-row-per-client view used by workflow stages,
// exports and handlers. It carries the client's latest record.
type ClientSummary struct {
	ClientID            string `json:"cliente"`
	Cal                 string `json:"cal"`
	Comercial           string `json:"comercial"`
	EntryDate           Date   `json:"fecha_entrada"`
	LatestDay           Date   `json:"dia"`
	Status              Status `json:"semaforo"`
	AssignedCloser      string `json:"asignado_closer"`
	AssignedSupercloser string `json:"asignado_supercloser"`
	ClosingState        string `json:"estado_cierre"`
	CloserHandled       bool   `json:"gestionado_closer"`
	SupercloserHandled  bool   `json:"gestionado_super"`
	BusinessDays        int    `json:"dias_habiles"`
	WindowClose         Date   `json:"cierre_ventana"`
	Expired             bool   `json:"vencido"`

	Products ProductFlags `json:"productos"`
}

// IsClosed mirrors DailyRecord.IsClosed for the summary view.
func (s ClientSummary) IsClosed() bool {
	return DailyRecord{ClosingState: s.ClosingState}.IsClosed()
}
