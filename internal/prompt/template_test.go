package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/bluelight-labs/vigia/internal/models"
)

func testIncident() *models.Incident {
	return &models.Incident{
		IDReport:   "RPT-1",
		DataReport: time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC),
		Categoria:  "Segurança",
		TipoSubtipo: []models.TipoSubtipo{
			{Tipo: "Tiroteio", Subtipo: []string{"Confronto"}},
		},
		Orgaos:    []string{"PM", "DPCA"},
		Descricao: "Tiros ouvidos perto da estação.",
	}
}

func testContext() *models.MonitoredContext {
	return &models.MonitoredContext{
		ID:          "CTX-1",
		Nome:        "Cúpula",
		Descricao:   "Reunião de chefes de estado",
		Local:       "Centro de convenções",
		Endereco:    "Av. Principal, 100",
		RaioDeBusca: 4000,
	}
}

func TestRendererSubstitutesAllSlots(t *testing.T) {
	template := strings.Join(slots, "|")
	r, err := NewRenderer(template)
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}

	entities := &models.EntitiesResult{
		EventTypes: []string{"tiroteio", "confronto"},
		Locations:  []string{"estação"},
		EventTime:  []string{"2025-03-10 13:00:00"},
		People:     []string{"facção X"},
	}

	out := r.Render(testIncident(), testContext(), entities)
	if strings.Contains(out, "__") {
		t.Errorf("rendered output still contains placeholders: %q", out)
	}
	for _, want := range []string{
		"2025-03-10 14:30:00",
		"Tiroteio: Confronto",
		"PM, DPCA",
		"tiroteio, confronto",
		"Cúpula",
		"4000",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered output missing %q", want)
		}
	}
}

func TestRendererMissingValuesRenderEmpty(t *testing.T) {
	r, err := NewRenderer("ev=[__event_types__] people=[__people__] times=[__times__]")
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}

	out := r.Render(testIncident(), testContext(), nil)
	if out != "ev=[] people=[] times=[]" {
		t.Errorf("missing entities should render empty, got %q", out)
	}
	for _, forbidden := range []string{"None", "null", "nil"} {
		if strings.Contains(out, forbidden) {
			t.Errorf("rendered output contains %q", forbidden)
		}
	}
}

func TestRendererDefaultRadius(t *testing.T) {
	r, err := NewRenderer("raio=__contexto_raio__")
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}

	ctx := testContext()
	ctx.RaioDeBusca = 0
	if out := r.Render(testIncident(), ctx, nil); out != "raio=5000" {
		t.Errorf("zero radius should fall back to default, got %q", out)
	}
}

func TestNewRendererRejectsUnknownPlaceholder(t *testing.T) {
	if _, err := NewRenderer("__descricao__ and __typo_slot__"); err == nil {
		t.Error("expected error for unknown placeholder")
	}
	if _, err := NewRenderer("   "); err == nil {
		t.Error("expected error for empty template")
	}
}

func TestDefaultRelevanceTemplateIsValid(t *testing.T) {
	r, err := NewRenderer(DefaultRelevanceTemplate)
	if err != nil {
		t.Fatalf("default template should validate: %v", err)
	}

	out := r.Render(testIncident(), testContext(), nil)
	if strings.Contains(out, "__contexto_nome__") {
		t.Error("context name placeholder not substituted")
	}
	if !strings.Contains(out, "Critério 1") || !strings.Contains(out, "Critério 2") {
		t.Error("default template must keep both evaluation criteria")
	}
}
