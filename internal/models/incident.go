package models

import (
	"strings"
	"time"
)

// TipoSubtipo is one (type, subtypes) pair attached to an incident.
type TipoSubtipo struct {
	Tipo    string   `json:"tipo"`
	Subtipo []string `json:"subtipo"`
}

// Incident is one reported public-safety event pulled from the warehouse.
//
// Latitude/Longitude of exactly 0.0 mean "not geocoded", never a valid
// coordinate. Descricao is always non-nil (empty string when absent).
type Incident struct {
	IDReport         string        `json:"id_report"`
	IDSource         string        `json:"id_source"`
	IDReportOriginal string        `json:"id_report_original"`
	DataReport       time.Time     `json:"data_report"`
	EventTime        *time.Time    `json:"event_time,omitempty"`
	Orgaos           []string      `json:"orgaos"`
	Categoria        string        `json:"categoria"`
	TipoSubtipo      []TipoSubtipo `json:"tipo_subtipo"`
	Descricao        string        `json:"descricao"`
	Logradouro       string        `json:"logradouro"`
	NumeroLogradouro string        `json:"numero_logradouro"`
	Latitude         float64       `json:"latitude"`
	Longitude        float64       `json:"longitude"`

	// Quality flags derived during the transform stage.
	HasCoordinates  bool `json:"has_coordinates"`
	HasValidAddress bool `json:"has_valid_address"`
	Geocodable      bool `json:"geocodable"`
}

// invalidAddresses are logradouro values that cannot be geocoded.
var invalidAddresses = []string{"", "n.i.", "não informado", "na", "nan", "none", "n.i. não informado"}

// HasPoint reports whether the incident carries real coordinates.
func (i *Incident) HasPoint() bool {
	return i.Latitude != 0 && i.Longitude != 0
}

// AddressIsValid reports whether Logradouro looks like a geocodable address.
func (i *Incident) AddressIsValid() bool {
	addr := strings.ToLower(strings.TrimSpace(i.Logradouro))
	for _, invalid := range invalidAddresses {
		if addr == invalid {
			return false
		}
	}
	return true
}

// SetQualityFlags recomputes the derived quality flags.
func (i *Incident) SetQualityFlags() {
	i.HasCoordinates = i.HasPoint()
	i.HasValidAddress = i.AddressIsValid()
	i.Geocodable = !i.HasCoordinates && i.HasValidAddress
}

// TipoSubtipoString flattens the type/subtype pairs for prompt rendering.
func (i *Incident) TipoSubtipoString() string {
	if len(i.TipoSubtipo) == 0 {
		return ""
	}
	parts := make([]string, 0, len(i.TipoSubtipo))
	for _, ts := range i.TipoSubtipo {
		if len(ts.Subtipo) > 0 {
			parts = append(parts, ts.Tipo+": "+strings.Join(ts.Subtipo, ", "))
		} else {
			parts = append(parts, ts.Tipo)
		}
	}
	return strings.Join(parts, "; ")
}
