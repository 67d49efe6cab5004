package assemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"scribe.app/engine/common/logger"
	"scribe.app/engine/internal/block"
	"scribe.app/engine/internal/check"
	"scribe.app/engine/internal/extract"
	"scribe.app/engine/internal/generate"
	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/priority"
	"scribe.app/engine/internal/properties"
	"scribe.app/engine/internal/template"
)

// ErrEmptyDocument means neither the template nor the brief produced any
// content. The run fails rather than persisting an empty page.
var ErrEmptyDocument = errors.New("assembled document is empty")

type Extractor interface {
	Extract(ctx context.Context, brief model.Brief, complexity model.Complexity) (model.ExtractedData, extract.Outcome)
}

type PropertyMapper interface {
	Map(ctx context.Context, schema properties.Schema, data map[string]any) (map[string]any, error)
}

// Request is one brief to assemble. Complexity falls back to the template tier.
type Request struct {
	Brief      model.Brief
	Template   template.Identity
	Complexity model.Complexity
	Schema     properties.Schema
}

type Stats struct {
	Sections           int           `json:"sections"`
	Matched            int           `json:"matched"`
	Skipped            int           `json:"skipped"`
	Placeholders       int           `json:"placeholders"`
	Leftovers          int           `json:"leftovers"`
	Blocks             int           `json:"blocks"`
	ToggleDepth        int           `json:"toggle_depth"`
	TemplateSOPs       int           `json:"template_sops"`
	TemplateVariables  int           `json:"template_variables"`
	ExtractionFallback bool          `json:"extraction_fallback"`
	Duration           time.Duration `json:"duration"`
}

type Result struct {
	Blocks       []block.Block
	Properties   map[string]any
	Extracted    model.ExtractedData
	Flags        []model.Flag
	Conflicts    []model.Conflict
	SectionOrder []string
	Stats        Stats
}

// Engine assembles documents. It keeps no per-run state, so one Engine
// serves concurrent runs.
type Engine struct {
	templates template.Source
	extractor Extractor
	mapper    PropertyMapper
	gen       *generate.Generator
}

// NewEngine wires the engine. A nil mapper skips property mapping.
func NewEngine(templates template.Source, extractor Extractor, mapper PropertyMapper, gen *generate.Generator) *Engine {
	if gen == nil {
		gen = generate.New(generate.Options{})
	}
	return &Engine{templates: templates, extractor: extractor, mapper: mapper, gen: gen}
}

// Run assembles one brief. Extraction and organization failures degrade
// inside the run; the errors returned are template fetch failures,
// property mapping failures (a *properties.TerminalError once corrections
// are spent) and ErrEmptyDocument.
func (e *Engine) Run(ctx context.Context, req Request) (Result, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component:    "scribe.assemble.engine",
		TemplateType: logger.Ptr(req.Template.Key()),
	})
	sc := logger.StartSpan(ctx, "assemble.run")
	defer sc.End()
	ctx = sc.Context()
	start := time.Now()

	brief := req.Brief
	if brief == nil {
		brief = model.Brief{}
	}
	complexity := req.Complexity
	if complexity == "" {
		complexity = req.Template.Complexity
	}

	var (
		flags     []model.Flag
		conflicts []model.Conflict
		extracted model.ExtractedData
		outcome   extract.Outcome
		tmpl      []block.Block
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		flags = check.Completeness(brief)
		conflicts = check.Conflicts(brief)
		return nil
	})
	g.Go(func() error {
		extracted, outcome = e.extractor.Extract(gctx, brief, complexity)
		return nil
	})
	g.Go(func() error {
		blocks, err := e.templates.Fetch(gctx, req.Template)
		if err != nil {
			return fmt.Errorf("fetching template %s: %w", req.Template.Key(), err)
		}
		tmpl = blocks
		return nil
	})
	if err := g.Wait(); err != nil {
		sc.RecordError(err)
		return Result{}, err
	}

	if extracted == nil {
		extracted = model.ExtractedData{}
	}
	extracted.SetConflicts(conflicts)

	data := brief.Clone()
	for k, v := range extracted {
		data[k] = v
	}

	parsed := template.Parse(tmpl)
	a := newAssembler(e.gen, data)
	a.walk(ctx, tmpl, parsed)
	a.appendLeftovers(ctx, brief)
	if len(a.out) == 0 {
		sc.RecordError(ErrEmptyDocument)
		return Result{}, ErrEmptyDocument
	}

	urgency, hasUrgency := extracted.Urgency()
	blocks := append(Callouts(urgency, hasUrgency, conflicts, flags), a.out...)
	blocks = dedupe(blocks)

	order := priority.Prioritize(a.sections, priority.Signals{
		Urgency:   urgency,
		Conflicts: conflicts,
		BriefText: model.Text(map[string]any(brief)),
	})

	props := map[string]any{}
	if e.mapper != nil && len(req.Schema) > 0 {
		mapped, err := e.mapper.Map(ctx, req.Schema, data)
		if err != nil {
			sc.RecordError(err)
			return Result{}, fmt.Errorf("mapping properties: %w", err)
		}
		props = mapped
	}

	stats := a.stats
	stats.Blocks = len(blocks)
	stats.ToggleDepth = block.ToggleDepth(blocks)
	stats.TemplateSOPs = parsed.TotalSOPs
	stats.TemplateVariables = parsed.TotalVariables
	stats.ExtractionFallback = outcome.Fallback
	stats.Duration = time.Since(start)

	sc.SetAttributes(
		attribute.Int("scribe.sections", stats.Sections),
		attribute.Int("scribe.matched", stats.Matched),
		attribute.Int("scribe.blocks", stats.Blocks),
		attribute.Bool("scribe.extraction_fallback", stats.ExtractionFallback),
	)
	slog.InfoContext(ctx, "document assembled",
		"sections", stats.Sections,
		"matched", stats.Matched,
		"skipped", stats.Skipped,
		"leftovers", stats.Leftovers,
		"blocks", stats.Blocks,
		"conflicts", len(conflicts),
		"flags", len(flags),
		"extraction_fallback", stats.ExtractionFallback,
		"duration_ms", stats.Duration.Milliseconds())

	return Result{
		Blocks:       blocks,
		Properties:   props,
		Extracted:    extracted,
		Flags:        flags,
		Conflicts:    conflicts,
		SectionOrder: priority.Headings(order),
		Stats:        stats,
	}, nil
}
