// Package prompt renders relevance-analysis prompts and computes the
// deterministic fingerprints used for reprocessing skip and alert identity.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bluelight-labs/vigia/internal/models"
)

// Placeholder names form a closed set. Rendering substitutes every one of
// them; values that are absent substitute as the empty string, never as a
// literal "None" or "null".
const (
	SlotDataReport        = "__data_report__"
	SlotCategoria         = "__categoria__"
	SlotTipoSubtipo       = "__tipo_subtipo__"
	SlotOrgaos            = "__orgaos__"
	SlotDescricao         = "__descricao__"
	SlotEventTypes        = "__event_types__"
	SlotLocations         = "__locations__"
	SlotTimes             = "__times__"
	SlotPeople            = "__people__"
	SlotContextoNome      = "__contexto_nome__"
	SlotContextoDescricao = "__contexto_descricao__"
	SlotContextoLocal     = "__contexto_local__"
	SlotContextoEndereco  = "__contexto_endereco__"
	SlotContextoRaio      = "__contexto_raio__"
	SlotLocaisImportantes = "__locais_importantes__"
)

// slots is the full closed set, used to validate templates.
var slots = []string{
	SlotDataReport,
	SlotCategoria,
	SlotTipoSubtipo,
	SlotOrgaos,
	SlotDescricao,
	SlotEventTypes,
	SlotLocations,
	SlotTimes,
	SlotPeople,
	SlotContextoNome,
	SlotContextoDescricao,
	SlotContextoLocal,
	SlotContextoEndereco,
	SlotContextoRaio,
	SlotLocaisImportantes,
}

// Renderer substitutes incident and context values into a template string.
type Renderer struct {
	template string
}

// NewRenderer validates the template and returns a renderer. A template
// containing a "__..."-style marker outside the closed slot set is rejected
// so typos fail loudly instead of shipping unsubstituted text to the model.
func NewRenderer(template string) (*Renderer, error) {
	if strings.TrimSpace(template) == "" {
		return nil, fmt.Errorf("prompt template is empty")
	}
	if unknown := unknownMarkers(template); len(unknown) > 0 {
		return nil, fmt.Errorf("unknown template placeholders: %s", strings.Join(unknown, ", "))
	}
	return &Renderer{template: template}, nil
}

// Render builds the relevance prompt for one (incident, context) pair.
// entities may be nil when extraction did not run for the incident.
func (r *Renderer) Render(incident *models.Incident, ctx *models.MonitoredContext, entities *models.EntitiesResult) string {
	var eventTypes, locations, times, people string
	if entities != nil {
		eventTypes = strings.Join(entities.EventTypes, ", ")
		locations = strings.Join(entities.Locations, ", ")
		times = strings.Join(entities.EventTime, ", ")
		people = strings.Join(entities.People, ", ")
	}

	dataReport := ""
	if !incident.DataReport.IsZero() {
		dataReport = incident.DataReport.Format("2006-01-02 15:04:05")
	}

	replacer := strings.NewReplacer(
		SlotDataReport, dataReport,
		SlotCategoria, incident.Categoria,
		SlotTipoSubtipo, incident.TipoSubtipoString(),
		SlotOrgaos, strings.Join(incident.Orgaos, ", "),
		SlotDescricao, incident.Descricao,
		SlotEventTypes, eventTypes,
		SlotLocations, locations,
		SlotTimes, times,
		SlotPeople, people,
		SlotContextoNome, ctx.Nome,
		SlotContextoDescricao, ctx.Descricao,
		SlotContextoLocal, ctx.Local,
		SlotContextoEndereco, ctx.Endereco,
		SlotContextoRaio, strconv.Itoa(ctx.SearchRadius()),
		SlotLocaisImportantes, ctx.InformacoesAdicionais,
	)
	return replacer.Replace(r.template)
}

// unknownMarkers returns "__name__" markers in the template that are not in
// the closed slot set.
func unknownMarkers(template string) []string {
	known := make(map[string]bool, len(slots))
	for _, s := range slots {
		known[s] = true
	}

	var unknown []string
	rest := template
	for {
		start := strings.Index(rest, "__")
		if start < 0 {
			break
		}
		end := strings.Index(rest[start+2:], "__")
		if end < 0 {
			break
		}
		marker := rest[start : start+2+end+2]
		// Markers containing whitespace are prose, not slots.
		if !strings.ContainsAny(marker, " \t\n") && !known[marker] {
			unknown = append(unknown, marker)
		}
		rest = rest[start+2+end+2:]
	}
	return unknown
}
