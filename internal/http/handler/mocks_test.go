package handler_test

import (
	"context"

	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/service"
)

type mockBriefService struct {
	submitFn func(ctx context.Context, params service.SubmitParams) (*model.DocumentRun, error)
	getFn    func(ctx context.Context, runID int64, withEvals bool) (*service.RunView, error)
}

func (m *mockBriefService) Submit(ctx context.Context, params service.SubmitParams) (*model.DocumentRun, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, params)
	}
	return nil, nil
}

func (m *mockBriefService) Get(ctx context.Context, runID int64, withEvals bool) (*service.RunView, error) {
	if m.getFn != nil {
		return m.getFn(ctx, runID, withEvals)
	}
	return nil, service.ErrRunNotFound
}

type mockTemplateService struct {
	invalidateFn func(ctx context.Context, templateType, complexity string) error
}

func (m *mockTemplateService) Invalidate(ctx context.Context, templateType, complexity string) error {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx, templateType, complexity)
	}
	return nil
}
