package service

import (
	"context"
	"fmt"

	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/template"
)

// TemplateCache is the invalidation side of template.CachedSource.
type TemplateCache interface {
	Invalidate(ctx context.Context, id template.Identity) error
}

type TemplateService interface {
	// Invalidate drops cached copies of a template. An empty complexity
	// drops every tier.
	Invalidate(ctx context.Context, templateType, complexity string) error
}

type templateService struct {
	cache TemplateCache
}

func NewTemplateService(cache TemplateCache) TemplateService {
	return &templateService{cache: cache}
}

func (s *templateService) Invalidate(ctx context.Context, templateType, complexity string) error {
	id := template.Identity{Type: templateType}
	if id.Slug() == "" {
		return template.ErrInvalidIdentity
	}
	if complexity != "" {
		id.Complexity = model.ParseComplexity(complexity)
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		return fmt.Errorf("invalidating template %s: %w", id.Key(), err)
	}
	return nil
}
