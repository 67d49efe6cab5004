// Package pipeline wires the assembly engine from configuration.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"scribe.app/engine/common/llm"
	"scribe.app/engine/core/config"
	"scribe.app/engine/internal/assemble"
	"scribe.app/engine/internal/evals"
	"scribe.app/engine/internal/extract"
	"scribe.app/engine/internal/generate"
	"scribe.app/engine/internal/properties"
	"scribe.app/engine/internal/store"
	"scribe.app/engine/internal/template"
)

type Options struct {
	// Reasoner serves extraction and property mapping. Nil means every
	// brief takes the local fallbacks.
	Reasoner llm.Client
	// Organizer lays out structured sections. Nil expands them mechanically.
	Organizer        llm.Client
	OrganizerTimeout time.Duration
	Templates        template.Source
	// Evals is optional; without it reasoning calls are not recorded.
	Evals            store.LLMEvalStore
	MaxCharsPerBlock int
	MaxCorrections   int
}

func New(opts Options) *assemble.Engine {
	recorder := evals.NewRecorder(opts.Evals)

	extractor := extract.NewOrchestrator(opts.Reasoner, recorder)
	mapper := properties.NewMapper(opts.Reasoner, recorder, opts.MaxCorrections)

	genOpts := generate.Options{MaxCharsPerBlock: opts.MaxCharsPerBlock}
	if opts.Organizer != nil {
		genOpts.Organizer = generate.NewLLMOrganizer(opts.Organizer, recorder, opts.OrganizerTimeout)
	}

	return assemble.NewEngine(opts.Templates, extractor, mapper, generate.New(genOpts))
}

// FromConfig builds the reasoning clients cfg enables and wires the engine.
func FromConfig(cfg config.Config, templates template.Source, evalStore store.LLMEvalStore) (*assemble.Engine, error) {
	opts := Options{
		OrganizerTimeout: cfg.OrganizerLLM.Timeout,
		Templates:        templates,
		Evals:            evalStore,
		MaxCharsPerBlock: cfg.Engine.MaxCharsPerBlock,
		MaxCorrections:   cfg.Engine.MaxCorrections,
	}

	if cfg.ReasonerLLM.Enabled() {
		client, err := newClient(cfg.ReasonerLLM)
		if err != nil {
			return nil, fmt.Errorf("creating reasoner client: %w", err)
		}
		opts.Reasoner = client
	} else {
		slog.Warn("reasoner disabled, briefs will use local extraction")
	}

	if cfg.Engine.OrganizerEnabled && cfg.OrganizerLLM.Enabled() {
		client, err := newClient(cfg.OrganizerLLM)
		if err != nil {
			return nil, fmt.Errorf("creating organizer client: %w", err)
		}
		opts.Organizer = client
	}

	return New(opts), nil
}

func newClient(cfg config.LLMConfig) (llm.Client, error) {
	return llm.New(llm.Config{
		Provider:  cfg.Provider,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
	})
}
