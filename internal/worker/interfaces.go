package worker

import (
	"context"

	"scribe.app/engine/internal/assemble"
	"scribe.app/engine/internal/model"
	"scribe.app/engine/internal/queue"
	"scribe.app/engine/internal/store"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// Assembler abstracts the document engine for testability.
type Assembler interface {
	Run(ctx context.Context, req assemble.Request) (assemble.Result, error)
}

// StoreProvider is the part of store.Stores the worker touches.
type StoreProvider interface {
	Runs() store.RunStore
}

// TxRunner runs fn in one transaction. cmd/worker adapts db.DB to it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

// RunProcessor abstracts the assembly step for testability.
type RunProcessor interface {
	Process(ctx context.Context, run *model.DocumentRun) (model.RunOutput, error)
}
