package classifier

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/bluelight-labs/vigia/internal/llm"
	"github.com/bluelight-labs/vigia/internal/metrics"
	"github.com/bluelight-labs/vigia/internal/models"
)

// CatchAllCategory is assigned when the model returns nothing usable.
const CatchAllCategory = "Sem classificação"

// DefaultCategories is the fixed vocabulary. The catch-all entry must stay
// last and always present.
var DefaultCategories = []string{
	"Violência Urbana",
	"Crimes Patrimoniais",
	"Tráfico e Drogas",
	"Facções, Milícias e Armas",
	"Ameaças e Risco Coletivo",
	"Ações Policiais e Ocorrências",
	"Infrações e Conduta Irregular",
	"Segurança Pública e Falta de Policiamento",
	"Terrorismo",
	CatchAllCategory,
}

// fewShotExample pairs a description with its expected categories.
type fewShotExample struct {
	descricao  string
	categorias []string
}

var trainingExamples = []fewShotExample{
	{"Mulher é agredida com socos pelo companheiro dentro de casa, vizinhos chamam a polícia.", []string{"Violência Urbana"}},
	{"Homem armado rende funcionários de mercado e rouba dinheiro do caixa.", []string{"Crimes Patrimoniais"}},
	{"Adolescente é flagrado com entorpecentes em mochila perto de escola.", []string{"Tráfico e Drogas"}},
	{"Moradores relatam presença de milicianos armados com fuzis patrulhando a região.", []string{"Facções, Milícias e Armas"}},
	{"Criança é atingida por bala perdida durante confronto entre facção e polícia.", []string{"Ameaças e Risco Coletivo"}},
	{"PM realiza operação no morro e prende três suspeitos após troca de tiros.", []string{"Ações Policiais e Ocorrências"}},
	{"Motorista alcoolizado é flagrado dirigindo em alta velocidade durante a madrugada.", []string{"Infrações e Conduta Irregular"}},
	{"Moradores denunciam falta de policiamento noturno no bairro e aumento da criminalidade.", []string{"Segurança Pública e Falta de Policiamento"}},
	{"Suspeito tenta detonar artefato explosivo em estação de metrô movimentada.", []string{"Terrorismo"}},
	{"Cachorro solto na rua está latindo muito alto e incomodando os vizinhos.", []string{CatchAllCategory}},
}

// maxFewShotExamples caps how many exemplars go into the prompt.
const maxFewShotExamples = 5

// FixedCategories assigns incidents to the fixed vocabulary using few-shot
// exemplars. When exemplar selection yields nothing (all examples reference
// categories outside the configured vocabulary) the classifier falls back to
// a bare prompt and reports the fallback.
type FixedCategories struct {
	client      llm.Client
	categories  []string
	temperature float64
	maxTokens   int
	usage       *UsageLog
	system      string
	trained     bool
}

// NewFixedCategories creates the classifier. Passing nil categories uses
// DefaultCategories.
func NewFixedCategories(client llm.Client, categories []string, usage *UsageLog) *FixedCategories {
	if len(categories) == 0 {
		categories = append([]string(nil), DefaultCategories...)
	}
	c := &FixedCategories{
		client:      client,
		categories:  categories,
		temperature: 0.5,
		maxTokens:   1024,
		usage:       usage,
	}
	c.train()
	return c
}

// Name returns the stage discriminator.
func (c *FixedCategories) Name() string { return models.ClassificationFixedCategories }

// Trained reports whether few-shot exemplars made it into the prompt.
func (c *FixedCategories) Trained() bool { return c.trained }

// train builds the system prompt, embedding up to maxFewShotExamples
// exemplars whose categories exist in the configured vocabulary.
func (c *FixedCategories) train() {
	log.Printf("%s: configuring with %d categories", c.Name(), len(c.categories))

	allowed := make(map[string]bool, len(c.categories))
	for _, cat := range c.categories {
		allowed[cat] = true
	}

	var examples []fewShotExample
	for _, ex := range trainingExamples {
		var valid []string
		for _, cat := range ex.categorias {
			if allowed[cat] {
				valid = append(valid, cat)
			}
		}
		if len(valid) > 0 {
			examples = append(examples, fewShotExample{ex.descricao, valid})
		}
		if len(examples) == maxFewShotExamples {
			break
		}
	}

	var b strings.Builder
	b.WriteString("Você é um classificador de ocorrências policiais.\n")
	b.WriteString("Classifique a descrição em uma ou mais das categorias permitidas abaixo. ")
	b.WriteString("Use APENAS categorias desta lista.\n\nCategorias permitidas:\n")
	for _, cat := range c.categories {
		b.WriteString("- " + cat + "\n")
	}
	b.WriteString("\nResponda EXATAMENTE no formato, sem texto adicional:\ncategorias: categoria1; categoria2\n")

	if len(examples) == 0 {
		log.Printf("%s: no valid training examples found, using base classifier", c.Name())
		metrics.ClassifierFallbackTotal.Inc()
		c.system = b.String()
		c.trained = false
		return
	}

	b.WriteString("\nExemplos:\n")
	for _, ex := range examples {
		b.WriteString("Descrição: " + ex.descricao + "\n")
		b.WriteString("categorias: " + strings.Join(ex.categorias, "; ") + "\n\n")
	}

	log.Printf("%s: configured with %d few-shot examples", c.Name(), len(examples))
	c.system = b.String()
	c.trained = true
}

// ClassifySingle classifies one incident description into the vocabulary.
// Anything outside the vocabulary is filtered; an empty outcome becomes the
// catch-all category.
func (c *FixedCategories) ClassifySingle(ctx context.Context, incident *models.Incident) models.CategoriesResult {
	descricao := strings.TrimSpace(incident.Descricao)
	if descricao == "" {
		metrics.ClassificationsTotal.WithLabelValues(c.Name(), "skipped").Inc()
		return c.errorResult(incident.IDReport)
	}

	start := time.Now()
	resp, err := c.client.Generate(ctx, llm.Request{
		SystemPrompt: c.system,
		UserPrompt:   "Descrição: " + descricao,
		Temperature:  c.temperature,
		MaxTokens:    c.maxTokens,
	})
	metrics.ClassificationDuration.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Printf("%s: error classifying report %s: %v", c.Name(), incident.IDReport, err)
		metrics.ClassificationsTotal.WithLabelValues(c.Name(), "error").Inc()
		return c.errorResult(incident.IDReport)
	}

	c.usage.Record(c.Name(), incident.IDReport, "", resp.Model, c.temperature, resp)
	metrics.ClassificationsTotal.WithLabelValues(c.Name(), "ok").Inc()

	fields := llm.ParseFields(resp.Content, "categorias")
	return models.CategoriesResult{
		IDReport:           incident.IDReport,
		Categorias:         c.filterCategories(fields["categorias"]),
		ClassificationType: models.ClassificationFixedCategories,
	}
}

// ClassifyBatch classifies incidents preserving input order.
func (c *FixedCategories) ClassifyBatch(ctx context.Context, incidents []*models.Incident, opts BatchOptions) []models.CategoriesResult {
	return mapBatch(ctx, c.Name(), incidents, opts, c.ClassifySingle)
}

// filterCategories parses the model's "; "-separated list and keeps only
// vocabulary entries.
func (c *FixedCategories) filterCategories(raw string) []string {
	allowed := make(map[string]bool, len(c.categories))
	for _, cat := range c.categories {
		allowed[cat] = true
	}

	var valid []string
	seen := make(map[string]bool)
	// Split on ";" only: category names themselves contain commas.
	for _, part := range strings.Split(raw, ";") {
		cat := strings.TrimSpace(part)
		if allowed[cat] && !seen[cat] {
			valid = append(valid, cat)
			seen[cat] = true
		}
	}
	if len(valid) == 0 {
		valid = []string{CatchAllCategory}
	}
	return valid
}

func (c *FixedCategories) errorResult(idReport string) models.CategoriesResult {
	return models.CategoriesResult{
		IDReport:           idReport,
		Categorias:         []string{CatchAllCategory},
		ClassificationType: models.ClassificationFixedCategories,
	}
}
