package service

import (
	"log/slog"

	"scribe.app/engine/internal/queue"
	"scribe.app/engine/internal/store"
)

type ServicesConfig struct {
	Stores        *store.Stores
	BriefProducer queue.Producer
	TemplateCache TemplateCache
	Logger        *slog.Logger
}

type Services struct {
	cfg ServicesConfig
}

func NewServices(cfg ServicesConfig) *Services {
	return &Services{cfg: cfg}
}

func (s *Services) Briefs() BriefService {
	return NewBriefService(s.cfg.Stores.Runs(), s.cfg.Stores.LLMEvals(), s.cfg.BriefProducer, s.cfg.Logger)
}

func (s *Services) Templates() TemplateService {
	return NewTemplateService(s.cfg.TemplateCache)
}
