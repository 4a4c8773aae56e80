package models

import (
	"time"
)

// ContextDatetimeLayout is the layout used for context start/end datetimes
// in the reference table.
const ContextDatetimeLayout = "02/01/2006 15:04:05"

// DefaultSearchRadius is the search radius in meters applied when a context
// row carries none.
const DefaultSearchRadius = 5000

// ContextTimeLocation is the zone context window bounds are expressed in.
// The reference table stores Rio de Janeiro wall-clock times without an
// offset.
var ContextTimeLocation = loadContextLocation()

func loadContextLocation() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		// No tzdata on the host. São Paulo has not observed DST since
		// 2019, so a fixed offset is equivalent.
		return time.FixedZone("-03", -3*60*60)
	}
	return loc
}

// MonitoredContext is a geographic/temporal region of interest (for example
// a protected event's perimeter) that incidents are checked against.
//
// Geometria holds the WKT geometry and may be empty; a context with no
// geometry is only reachable through the whole-city path when CidadeInteira
// is set.
type MonitoredContext struct {
	ID                    string   `json:"id"`
	Tipo                  string   `json:"tipo"`
	DatahoraInicio        string   `json:"datahora_inicio"`
	DatahoraFim           string   `json:"datahora_fim"`
	Nome                  string   `json:"nome"`
	Descricao             string   `json:"descricao"`
	InformacoesAdicionais string   `json:"informacoes_adicionais"`
	Endereco              string   `json:"endereco"`
	Local                 string   `json:"local"`
	Geometria             string   `json:"geometria"`
	RaioDeBusca           int      `json:"raio_de_busca"`
	CidadeInteira         bool     `json:"cidade_inteira"`
	Solicitantes          []string `json:"solicitante"`
}

// SearchRadius returns the configured radius, falling back to the default.
func (c *MonitoredContext) SearchRadius() int {
	if c.RaioDeBusca <= 0 {
		return DefaultSearchRadius
	}
	return c.RaioDeBusca
}

// ActiveAt reports whether t falls inside the context's validity window.
// Bounds are interpreted in ContextTimeLocation; unparsable bounds are
// treated as open.
func (c *MonitoredContext) ActiveAt(t time.Time) bool {
	if start, err := time.ParseInLocation(ContextDatetimeLayout, c.DatahoraInicio, ContextTimeLocation); err == nil {
		if t.Before(start) {
			return false
		}
	}
	if end, err := time.ParseInLocation(ContextDatetimeLayout, c.DatahoraFim, ContextTimeLocation); err == nil {
		if t.After(end) {
			return false
		}
	}
	return true
}
