package store

import "scribe.app/engine/core/db"

type Stores struct {
	conn db.DBTX
}

// NewStores builds stores over a pool or a transaction.
func NewStores(conn db.DBTX) *Stores {
	return &Stores{conn: conn}
}

func (s *Stores) Runs() RunStore {
	return newRunStore(s.conn)
}

func (s *Stores) LLMEvals() LLMEvalStore {
	return newLLMEvalStore(s.conn)
}
