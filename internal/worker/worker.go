package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"scribe.app/engine/common/logger"
	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/queue"
	"scribe.app/engine/internal/store"
)

type Config struct {
	MaxAttempts int
	// ErrorBackoff is the pause after a failed batch read.
	ErrorBackoff time.Duration
}

type Worker struct {
	consumer  Consumer
	stores    StoreProvider
	txRunner  TxRunner
	processor RunProcessor
	cfg       Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, stores StoreProvider, txRunner TxRunner, processor RunProcessor, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Second
	}
	return &Worker{
		consumer:  consumer,
		stores:    stores,
		txRunner:  txRunner,
		processor: processor,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "scribe.worker"})
	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				time.Sleep(w.cfg.ErrorBackoff)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		w.HandleMessage(ctx, msg)
	}

	return nil
}

// HandleMessage processes msg and requeues or dead-letters it on failure.
// Exported so the reclaimer can reuse it.
func (w *Worker) HandleMessage(ctx context.Context, msg queue.Message) error {
	if err := w.processMessageSafe(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "message processing failed",
			"error", err,
			"message_id", msg.ID,
			"run_id", msg.RunID,
			"attempt", msg.Attempt)
		w.handleFailedMessage(ctx, msg, err)
		return err
	}
	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"run_id", msg.RunID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage claims the run, assembles it and persists the outcome.
// A returned error means the message was not acked and is worth retrying.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RunID:     &msg.RunID,
		MessageID: &msg.ID,
		Component: "scribe.worker",
	})
	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_brief")
	defer sc.End()
	ctx = sc.Context()
	sc.SetAttributes(
		attribute.Int64("scribe.run_id", msg.RunID),
		attribute.Int("scribe.attempt", msg.Attempt),
	)

	slog.InfoContext(ctx, "processing brief", "attempt", msg.Attempt)

	var run *model.DocumentRun
	txErr := w.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		found, err := sp.Runs().GetByID(ctx, msg.RunID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("loading run: %w", err)
		}
		if found.Status == model.RunStatusCompleted {
			return nil
		}
		if err := sp.Runs().MarkRunning(ctx, found.ID); err != nil {
			return fmt.Errorf("marking run running: %w", err)
		}
		run = found
		return nil
	})
	if txErr != nil {
		sc.RecordError(txErr)
		return fmt.Errorf("claiming run: %w", txErr)
	}

	if run == nil {
		slog.InfoContext(ctx, "run missing or already completed, skipping")
		w.ack(ctx, msg)
		return nil
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{TemplateType: &run.TemplateType})

	out, err := w.processor.Process(ctx, run)
	if err != nil {
		var failure *Failure
		if !errors.As(err, &failure) {
			sc.RecordError(err)
			return err
		}

		slog.WarnContext(ctx, "run failed", "reason", failure.Reason, "error", failure.Err)
		if err := w.fail(ctx, run.ID, failure.Reason, failure.Err, failure.Detail); err != nil {
			return err
		}
		w.ack(ctx, msg)
		return nil
	}

	if err := w.stores.Runs().Complete(ctx, run.ID, out); err != nil {
		sc.RecordError(err)
		return fmt.Errorf("saving result: %w", err)
	}

	w.ack(ctx, msg)
	slog.InfoContext(ctx, "run completed")
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"run_id", msg.RunID,
			"attempts", msg.Attempt)
		detail := map[string]any{"attempts": msg.Attempt}
		if failErr := w.fail(ctx, msg.RunID, "attempts exhausted", err, detail); failErr != nil {
			slog.ErrorContext(ctx, "failed to mark run failed", "error", failErr)
		}
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"run_id", msg.RunID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}

// Abandon fails the run behind msg and moves msg to the DLQ. Runs that
// already completed are only acknowledged.
func (w *Worker) Abandon(ctx context.Context, msg queue.Message, reason string) error {
	run, err := w.stores.Runs().GetByID(ctx, msg.RunID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("loading run: %w", err)
	}
	if err == nil && run.Status == model.RunStatusCompleted {
		w.ack(ctx, msg)
		return nil
	}

	if err := w.fail(ctx, msg.RunID, "abandoned", errors.New(reason), nil); err != nil {
		slog.ErrorContext(ctx, "failed to mark run failed", "error", err)
	}
	if err := w.consumer.SendDLQ(ctx, msg, reason); err != nil {
		return fmt.Errorf("sending to DLQ: %w", err)
	}
	return nil
}

func (w *Worker) fail(ctx context.Context, runID int64, reason string, cause error, detail map[string]any) error {
	payload := map[string]any{"reason": reason}
	for k, v := range detail {
		payload[k] = v
	}
	if cause != nil {
		payload["error"] = cause.Error()
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding failure detail: %w", err)
	}
	if err := w.stores.Runs().Fail(ctx, runID, reason, raw); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("marking run failed: %w", err)
	}
	return nil
}

func (w *Worker) ack(ctx context.Context, msg queue.Message) {
	if err := w.consumer.Ack(ctx, msg); err != nil {
		// The reclaimer redelivers it; completed runs are skipped on redelivery.
		slog.WarnContext(ctx, "failed to ACK message",
			"error", err,
			"message_id", msg.ID)
	}
}
