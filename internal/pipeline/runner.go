package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bluelight-labs/vigia/internal/alert"
	"github.com/bluelight-labs/vigia/internal/classifier"
	"github.com/bluelight-labs/vigia/internal/geo"
	"github.com/bluelight-labs/vigia/internal/geocode"
	"github.com/bluelight-labs/vigia/internal/metrics"
	"github.com/bluelight-labs/vigia/internal/models"
	"github.com/bluelight-labs/vigia/internal/prompt"
	"github.com/bluelight-labs/vigia/internal/warehouse"
)

// Store is the warehouse surface the pipeline needs.
type Store interface {
	Incidents(ctx context.Context, since time.Time, excludeSources []string) ([]*models.Incident, error)
	Contexts(ctx context.Context) ([]*models.MonitoredContext, error)
	ExistingRelationIDs(ctx context.Context, ids []string) (map[string]bool, error)
	InsertEnrichedReports(ctx context.Context, reports []warehouse.EnrichedReport) error
	InsertRelevanceResults(ctx context.Context, results []models.RelevanceResult, dateExecution time.Time) error
	InsertAlerts(ctx context.Context, alerts []*models.Alert, dateExecution time.Time) error
	InsertUsageLogs(ctx context.Context, entries []models.UsageLogEntry) error
}

// Sender is the alert delivery surface the pipeline needs.
type Sender interface {
	Send(ctx context.Context, alerts []*models.Alert) (alert.SendStats, error)
}

// Options tunes one pipeline run.
type Options struct {
	// Lookback bounds the incident window: incidents newer than
	// now-Lookback are processed.
	Lookback time.Duration

	// ExcludeSources drops incidents from these source ids.
	ExcludeSources []string

	// EnableCategories turns the fixed-categories stage on. Off by
	// default: the category vocabulary is advisory and not used
	// downstream.
	EnableCategories bool

	// BufferMeters widens every context's search radius.
	BufferMeters int

	// Batch controls classifier batch execution.
	Batch classifier.BatchOptions

	// Template overrides the relevance prompt template.
	Template string
}

func (o Options) withDefaults() Options {
	if o.Lookback <= 0 {
		o.Lookback = 30 * time.Minute
	}
	if o.BufferMeters <= 0 {
		o.BufferMeters = geo.DefaultBufferMeters
	}
	if o.Template == "" {
		o.Template = prompt.DefaultRelevanceTemplate
	}
	return o
}

// Stage names, in run order.
const (
	StageLoadIncidents = "load_incidents"
	StageLoadContexts  = "load_contexts"
	StageGeocode       = "geocode"
	StageSafety        = "public_safety"
	StageCategories    = "fixed_categories"
	StageEntities      = "entity_extraction"
	StagePersistEnrich = "persist_enriched"
	StageAssociate     = "associate_contexts"
	StagePrompts       = "build_prompts"
	StageRelevance     = "context_relevance"
	StagePersistRel    = "persist_relevance"
	StageAlerts        = "alerts"
)

// Result summarizes one pipeline run.
type Result struct {
	Incidents      int
	SafetyRelated  int
	Prompts        int
	SkippedKnown   int
	Relevant       int
	Alerts         alert.SendStats
	Usage          classifier.UsageSummary
	ShortCircuitAt string
}

// Runner executes the enrichment and alerting pipeline.
type Runner struct {
	store       Store
	classifiers *classifier.Set
	geocoder    geocode.Geocoder
	builder     *alert.Builder
	sender      Sender
	renderer    *prompt.Renderer
	opts        Options
	now         func() time.Time
}

// NewRunner wires a Runner. geocoder may be nil to skip address
// backfilling; sender may be nil to build alerts without delivering them.
func NewRunner(store Store, classifiers *classifier.Set, geocoder geocode.Geocoder, sender Sender, opts Options) (*Runner, error) {
	opts = opts.withDefaults()
	renderer, err := prompt.NewRenderer(opts.Template)
	if err != nil {
		return nil, fmt.Errorf("invalid relevance template: %w", err)
	}
	return &Runner{
		store:       store,
		classifiers: classifiers,
		geocoder:    geocoder,
		builder:     alert.NewBuilder(),
		sender:      sender,
		renderer:    renderer,
		opts:        opts,
		now:         time.Now,
	}, nil
}

// Run executes one full pass: load, enrich, associate, judge, alert.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result := &Result{}
	execTime := r.now().UTC()

	incidents, err := r.loadIncidents(ctx, execTime)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	result.Incidents = len(incidents)
	if len(incidents) == 0 {
		return r.shortCircuit(result, StageLoadIncidents), nil
	}

	contexts, err := r.loadContexts(ctx, execTime)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(contexts) == 0 {
		return r.shortCircuit(result, StageLoadContexts), nil
	}

	if r.geocoder != nil {
		r.timed(StageGeocode, func() {
			geocode.Backfill(ctx, r.geocoder, incidents)
		})
	}

	var safetyResults []models.SafetyResult
	r.timed(StageSafety, func() {
		safetyResults = r.classifiers.Safety.ClassifyBatch(ctx, incidents, r.opts.Batch)
	})

	var related []*models.Incident
	safetyByID := make(map[string]models.SafetyResult, len(safetyResults))
	for i, res := range safetyResults {
		safetyByID[res.IDReport] = res
		if res.IsRelated {
			related = append(related, incidents[i])
		}
	}
	result.SafetyRelated = len(related)
	log.Printf("pipeline: %d of %d incidents are public-safety related", len(related), len(incidents))

	categoriesByID := make(map[string]models.CategoriesResult)
	if r.opts.EnableCategories {
		r.timed(StageCategories, func() {
			for _, res := range r.classifiers.Categories.ClassifyBatch(ctx, related, r.opts.Batch) {
				categoriesByID[res.IDReport] = res
			}
		})
	}

	entitiesByID := make(map[string]*models.EntitiesResult, len(related))
	r.timed(StageEntities, func() {
		for _, res := range r.classifiers.Entities.ClassifyBatch(ctx, related, r.opts.Batch) {
			res := res
			entitiesByID[res.IDReport] = &res
		}
	})

	if err := r.persistEnriched(ctx, incidents, safetyByID, categoriesByID, entitiesByID, execTime); err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if len(related) == 0 {
		r.flushUsage(ctx, result)
		return r.shortCircuit(result, StageSafety), nil
	}

	prompts := r.buildPrompts(related, contexts, entitiesByID)
	prompts, skipped, err := r.dropKnownRelations(ctx, prompts)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	result.Prompts = len(prompts)
	result.SkippedKnown = skipped
	if len(prompts) == 0 {
		r.flushUsage(ctx, result)
		return r.shortCircuit(result, StagePrompts), nil
	}

	var relevance []models.RelevanceResult
	r.timed(StageRelevance, func() {
		relevance = r.classifiers.Relevance.ClassifyBatch(ctx, prompts, r.opts.Batch)
	})
	for _, res := range relevance {
		if res.IsRelevant {
			result.Relevant++
		}
	}

	var persistErr error
	r.timed(StagePersistRel, func() {
		persistErr = r.store.InsertRelevanceResults(ctx, relevance, execTime)
	})
	if persistErr != nil {
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to persist relevance results: %w", persistErr)
	}
	r.flushUsage(ctx, result)

	r.timed(StageAlerts, func() {
		relevancePtrs := make([]*models.RelevanceResult, len(relevance))
		for i := range relevance {
			relevancePtrs[i] = &relevance[i]
		}
		alerts := r.builder.Build(related, entitiesByID, contexts, relevancePtrs)
		if len(alerts) == 0 {
			return
		}
		if err := r.store.InsertAlerts(ctx, alerts, execTime); err != nil {
			log.Printf("pipeline: failed to persist alert messages: %v", err)
		}
		if r.sender == nil {
			return
		}
		stats, err := r.sender.Send(ctx, alerts)
		result.Alerts = stats
		if err != nil {
			log.Printf("pipeline: alert delivery: %v", err)
		}
	})

	metrics.PipelineRunsTotal.WithLabelValues("completed").Inc()
	log.Printf("pipeline: run completed, incidents=%d related=%d prompts=%d relevant=%d sent=%d",
		result.Incidents, result.SafetyRelated, result.Prompts, result.Relevant, result.Alerts.Sent)
	return result, nil
}

func (r *Runner) loadIncidents(ctx context.Context, execTime time.Time) ([]*models.Incident, error) {
	var incidents []*models.Incident
	var err error
	r.timed(StageLoadIncidents, func() {
		since := execTime.Add(-r.opts.Lookback)
		incidents, err = r.store.Incidents(ctx, since, r.opts.ExcludeSources)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load incidents: %w", err)
	}
	return dedupeByDescription(incidents), nil
}

func (r *Runner) loadContexts(ctx context.Context, execTime time.Time) ([]*models.MonitoredContext, error) {
	var contexts []*models.MonitoredContext
	var err error
	r.timed(StageLoadContexts, func() {
		var all []*models.MonitoredContext
		all, err = r.store.Contexts(ctx)
		if err != nil {
			return
		}
		for _, c := range all {
			if c.ActiveAt(execTime) {
				contexts = append(contexts, c)
			}
		}
		log.Printf("pipeline: %d of %d contexts active at %s", len(contexts), len(all), execTime.Format(time.RFC3339))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load contexts: %w", err)
	}
	return contexts, nil
}

// dedupeByDescription drops incidents repeating an earlier incident's
// description, keeping the first occurrence. Sources mirror the same
// report across channels.
func dedupeByDescription(incidents []*models.Incident) []*models.Incident {
	seen := make(map[string]bool, len(incidents))
	out := make([]*models.Incident, 0, len(incidents))
	for _, inc := range incidents {
		if seen[inc.Descricao] {
			continue
		}
		seen[inc.Descricao] = true
		out = append(out, inc)
	}
	if len(out) < len(incidents) {
		log.Printf("pipeline: dropped %d duplicate descriptions", len(incidents)-len(out))
	}
	return out
}

func (r *Runner) persistEnriched(
	ctx context.Context,
	incidents []*models.Incident,
	safety map[string]models.SafetyResult,
	categories map[string]models.CategoriesResult,
	entities map[string]*models.EntitiesResult,
	execTime time.Time,
) error {
	var err error
	r.timed(StagePersistEnrich, func() {
		reports := make([]warehouse.EnrichedReport, 0, len(incidents))
		for _, inc := range incidents {
			report := warehouse.EnrichedReport{
				Incident:      inc,
				Safety:        safety[inc.IDReport],
				Categories:    categories[inc.IDReport],
				DateExecution: execTime,
			}
			if ents := entities[inc.IDReport]; ents != nil {
				report.Entities = *ents
			}
			reports = append(reports, report)
		}
		err = r.store.InsertEnrichedReports(ctx, reports)
	})
	if err != nil {
		return fmt.Errorf("failed to persist enriched reports: %w", err)
	}
	return nil
}

// buildPrompts renders one relevance prompt per (incident, context) pair:
// contexts in range of the incident, plus every city-wide context crossed
// with every incident. Pairs are deduplicated on relation id.
func (r *Runner) buildPrompts(
	incidents []*models.Incident,
	contexts []*models.MonitoredContext,
	entities map[string]*models.EntitiesResult,
) []models.RelevancePrompt {
	matcher := geo.NewMatcher(contexts, r.opts.BufferMeters)
	associations := matcher.Associate(incidents)
	wholeCity := matcher.WholeCityContexts()

	var prompts []models.RelevancePrompt
	seen := make(map[string]bool)
	add := func(inc *models.Incident, ctx *models.MonitoredContext) {
		id := prompt.RelationFingerprint(inc.IDReport, ctx.ID)
		if seen[id] {
			return
		}
		seen[id] = true
		prompts = append(prompts, models.RelevancePrompt{
			IDRelacao:  id,
			IDReport:   inc.IDReport,
			ContextoID: ctx.ID,
			PromptLLM:  r.renderer.Render(inc, ctx, entities[inc.IDReport]),
		})
	}

	for _, assoc := range associations {
		for _, match := range assoc.Matches {
			add(assoc.Incident, match.Context)
		}
	}
	for _, ctx := range wholeCity {
		for _, inc := range incidents {
			add(inc, ctx)
		}
	}

	log.Printf("pipeline: built %d relevance prompts (%d city-wide contexts)", len(prompts), len(wholeCity))
	return prompts
}

// dropKnownRelations removes pairs already judged in a previous run.
func (r *Runner) dropKnownRelations(ctx context.Context, prompts []models.RelevancePrompt) ([]models.RelevancePrompt, int, error) {
	if len(prompts) == 0 {
		return nil, 0, nil
	}
	ids := make([]string, len(prompts))
	for i, p := range prompts {
		ids[i] = p.IDRelacao
	}
	existing, err := r.store.ExistingRelationIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to check existing relations: %w", err)
	}
	fresh := prompts[:0]
	for _, p := range prompts {
		if existing[p.IDRelacao] {
			continue
		}
		fresh = append(fresh, p)
	}
	skipped := len(prompts) - len(fresh)
	if skipped > 0 {
		log.Printf("pipeline: skipped %d already-judged relations", skipped)
	}
	return fresh, skipped, nil
}

func (r *Runner) flushUsage(ctx context.Context, result *Result) {
	result.Usage = r.classifiers.Usage.Summary()
	entries := r.classifiers.Usage.Entries()
	if len(entries) == 0 {
		return
	}
	if err := r.store.InsertUsageLogs(ctx, entries); err != nil {
		log.Printf("pipeline: failed to persist usage logs: %v", err)
		return
	}
	r.classifiers.Usage.Reset()
}

func (r *Runner) shortCircuit(result *Result, stage string) *Result {
	result.ShortCircuitAt = stage
	metrics.PipelineRunsTotal.WithLabelValues("short_circuit").Inc()
	log.Printf("pipeline: nothing to do after %s, stopping run", stage)
	return result
}

func (r *Runner) timed(stage string, fn func()) {
	start := time.Now()
	fn()
	metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
