package rules

import (
	"context"

	"creche-backend/internal/audit"
	"creche-backend/internal/logging"
	"creche-backend/internal/store"
)

// Engine holds no state of its own; every operation reads and writes
// through the injected store.
type Engine struct {
	store  store.Store
	logger *logging.Logger
}

func NewEngine(s store.Store, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{store: s, logger: logger}
}

func (e *Engine) Store() store.Store { return e.store }

// record writes the audit entry inside the caller's transaction.
func (e *Engine) record(ctx context.Context, tx store.Store, actor Actor, opts audit.LogOptions) error {
	opts.UserID = actor.ID
	opts.UserRole = actor.Role
	if err := audit.WriteLog(ctx, tx, opts); err != nil {
		return Internal(err)
	}
	e.logger.Debug(ctx, "audit", "entity", opts.EntityType, "entity_id", opts.EntityID, "action", string(opts.Action))
	return nil
}
