package alert

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/bluelight-labs/vigia/internal/models"
	"github.com/bluelight-labs/vigia/internal/prompt"
)

const (
	defaultEventType   = "Ocorrência"
	riskHigh           = "Alto Risco"
	riskPotential      = "Risco Potencial"
	messageDateLayout  = "02/01/2006 15:04:05"
	notInformed        = "Não Informado"
	unknownSource      = "Desconhecido"
	unspecifiedFactor  = "Fator não especificado"
	unnamedContextName = "Sem nome"
)

// Builder turns relevance judgments into requester-scoped alerts.
type Builder struct {
	now func() time.Time
}

// NewBuilder creates a Builder using the wall clock.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// groupKey identifies one alert: one requester, one incident.
type groupKey struct {
	solicitante string
	idReport    string
}

type group struct {
	incident    *models.Incident
	entities    *models.EntitiesResult
	results     []*models.RelevanceResult
	contexts    []*models.MonitoredContext
	relationIDs []string
	wholeCity   bool
}

// Build fans relevant (incident, context) judgments out to each context's
// requesters and renders one alert per (requester, incident) pair.
// Non-relevant judgments and contexts without requesters are skipped.
func (b *Builder) Build(
	incidents []*models.Incident,
	entities map[string]*models.EntitiesResult,
	contexts []*models.MonitoredContext,
	results []*models.RelevanceResult,
) []*models.Alert {
	if len(results) == 0 {
		log.Printf("alert: no relevance judgments, nothing to build")
		return nil
	}

	incidentByID := make(map[string]*models.Incident, len(incidents))
	for _, inc := range incidents {
		incidentByID[inc.IDReport] = inc
	}
	contextByID := make(map[string]*models.MonitoredContext, len(contexts))
	for _, ctx := range contexts {
		contextByID[ctx.ID] = ctx
	}

	groups := make(map[groupKey]*group)
	for _, res := range results {
		if !res.IsRelevant {
			continue
		}
		incident, ok := incidentByID[res.IDReport]
		if !ok {
			log.Printf("alert: relevance judgment %s references unknown report %s, skipping", res.IDRelacao, res.IDReport)
			continue
		}
		context, ok := contextByID[res.ContextoID]
		if !ok {
			log.Printf("alert: relevance judgment %s references unknown context %s, skipping", res.IDRelacao, res.ContextoID)
			continue
		}
		for _, solicitante := range context.Solicitantes {
			solicitante = strings.TrimSpace(solicitante)
			if solicitante == "" {
				continue
			}
			key := groupKey{solicitante: solicitante, idReport: res.IDReport}
			g, ok := groups[key]
			if !ok {
				g = &group{incident: incident, entities: entities[res.IDReport]}
				groups[key] = g
			}
			g.results = append(g.results, res)
			g.contexts = append(g.contexts, context)
			g.relationIDs = append(g.relationIDs, res.IDRelacao)
			if context.CidadeInteira {
				g.wholeCity = true
			}
		}
	}

	if len(groups) == 0 {
		log.Printf("alert: no relevant judgments with requesters, nothing to build")
		return nil
	}

	executionDate := b.now().UTC().Format("2006-01-02")
	alerts := make([]*models.Alert, 0, len(groups))
	for key, g := range groups {
		alerts = append(alerts, b.render(key, g, executionDate))
	}
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Solicitante != alerts[j].Solicitante {
			return alerts[i].Solicitante < alerts[j].Solicitante
		}
		return alerts[i].IDReport < alerts[j].IDReport
	})

	log.Printf("alert: built %d alerts from %d relevant judgments", len(alerts), len(results))
	return alerts
}

func (b *Builder) render(key groupKey, g *group, executionDate string) *models.Alert {
	eventType := defaultEventType
	if g.entities != nil && len(g.entities.EventTypes) > 0 {
		eventType = g.entities.EventTypes[0]
	}
	riskLevel := riskPotential
	if strings.Contains(strings.ToLower(eventType), "tiroteio") {
		riskLevel = riskHigh
	}

	description := g.incident.Descricao
	if strings.TrimSpace(description) == "" {
		description = notInformed
	}
	address := g.incident.Logradouro
	if address == "" && g.entities != nil && len(g.entities.Locations) > 0 {
		address = g.entities.Locations[0]
	}
	if address == "" {
		address = notInformed
	}
	source := g.incident.IDSource
	if source == "" {
		source = unknownSource
	}

	var contextsInfo strings.Builder
	contextNames := make([]string, 0, len(g.contexts))
	seenNames := make(map[string]bool, len(g.contexts))
	for i, ctx := range g.contexts {
		name := ctx.Nome
		if name == "" {
			name = unnamedContextName
		}
		factor := g.results[i].RelevanceReasoning
		if factor == "" {
			factor = unspecifiedFactor
		}
		fmt.Fprintf(&contextsInfo, "🧭 Contexto: %s\n• ID: %s\n• Vigência: %s a %s\n• Fator: %s\n",
			name, ctx.ID, contextDatetime(ctx.DatahoraInicio), contextDatetime(ctx.DatahoraFim), factor)
		if !seenNames[name] {
			seenNames[name] = true
			contextNames = append(contextNames, name)
		}
	}

	message := fmt.Sprintf(
		"🧾 Solicitante: %s\n"+
			"🆔 ID do Report: %s\n\n"+
			"➡️ %s - %s\n"+
			"• Data: %s\n"+
			"• Atraso: %s\n"+
			"• Endereço: %s\n"+
			"• Fonte: %s\n"+
			"• Descrição: %s\n\n"+
			"📌 Contextos Relacionados:\n\n%s",
		key.solicitante,
		key.idReport,
		eventType,
		riskLevel,
		g.incident.DataReport.Format(messageDateLayout),
		ElapsedString(g.incident.DataReport, b.now()),
		address,
		source,
		description,
		contextsInfo.String(),
	)

	return &models.Alert{
		ID:           prompt.AlertFingerprint(key.solicitante, g.wholeCity, executionDate, g.relationIDs),
		Solicitante:  key.solicitante,
		IDReport:     key.idReport,
		WholeCity:    g.wholeCity,
		Message:      message,
		RelationIDs:  append([]string(nil), g.relationIDs...),
		ContextNames: contextNames,
		CreatedAt:    b.now().UTC(),
	}
}

// contextDatetime formats a context window bound for display, passing
// unparsable values through untouched.
func contextDatetime(raw string) string {
	t, err := time.Parse(models.ContextDatetimeLayout, raw)
	if err != nil {
		return raw
	}
	return t.Format(messageDateLayout)
}
