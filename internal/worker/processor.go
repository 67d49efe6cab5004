package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"scribe.app/engine/common/llm"
	"scribe.app/engine/internal/assemble"
	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/properties"
	"scribe.app/engine/internal/template"
)

// Failure is an error that another attempt cannot fix. The run is marked
// failed with Detail as its diagnostics.
type Failure struct {
	Reason string
	Detail map[string]any
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

type Processor struct {
	engine Assembler
}

func NewProcessor(engine Assembler) *Processor {
	return &Processor{engine: engine}
}

// Process assembles the run's document. Errors are either *Failure or
// worth another attempt.
func (p *Processor) Process(ctx context.Context, run *model.DocumentRun) (model.RunOutput, error) {
	schema, err := properties.ParseSchema(run.RecordSchema)
	if err != nil {
		return model.RunOutput{}, &Failure{Reason: "invalid record schema", Err: err}
	}

	result, err := p.engine.Run(ctx, assemble.Request{
		Brief:      run.Brief,
		Template:   template.Identity{Type: run.TemplateType, Complexity: run.Complexity},
		Complexity: run.Complexity,
		Schema:     schema,
	})
	if err != nil {
		return model.RunOutput{}, classify(ctx, err)
	}

	return output(result)
}

func classify(ctx context.Context, err error) error {
	var terminal *properties.TerminalError
	var invalid *properties.ValidationError
	switch {
	case errors.As(err, &terminal):
		detail := map[string]any{
			"attempted":   terminal.Attempted,
			"corrections": terminal.Corrections,
		}
		if errors.As(terminal.Cause, &invalid) {
			detail["problems"] = invalid.Problems
		}
		return &Failure{Reason: "property mapping failed validation", Detail: detail, Err: err}
	case errors.Is(err, template.ErrTemplateNotFound), errors.Is(err, template.ErrInvalidIdentity):
		return &Failure{Reason: "template unavailable", Err: err}
	case errors.Is(err, assemble.ErrEmptyDocument):
		return &Failure{Reason: "nothing to assemble", Err: err}
	case !llm.IsRetryable(ctx, err):
		return &Failure{Reason: "assembly failed", Err: err}
	}
	return err
}

func output(result assemble.Result) (model.RunOutput, error) {
	var (
		out  model.RunOutput
		errs []error
	)
	marshal := func(dst *json.RawMessage, v any) {
		raw, err := json.Marshal(v)
		if err != nil {
			errs = append(errs, err)
			return
		}
		*dst = raw
	}

	marshal(&out.Blocks, result.Blocks)
	marshal(&out.Properties, result.Properties)
	marshal(&out.Extracted, result.Extracted)
	marshal(&out.Flags, result.Flags)
	marshal(&out.Conflicts, result.Conflicts)
	marshal(&out.SectionOrder, result.SectionOrder)

	if err := errors.Join(errs...); err != nil {
		return model.RunOutput{}, &Failure{Reason: "encoding result", Err: err}
	}
	return out, nil
}
