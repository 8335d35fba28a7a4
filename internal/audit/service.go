package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"creche-backend/internal/models"
	"creche-backend/internal/store"

	"gorm.io/datatypes"
)

const (
	EntityEnrollment = "enrollment"
	EntityReview     = "review"
	EntityUser       = "user"
	EntityChild      = "child"
)

type LogOptions struct {
	UserID      uint
	UserRole    models.UserRole
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// jsonb columns reject empty strings, so missing snapshots are stored as null.
func snapshot(v any) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("null")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}

// WriteLog records one audit entry through s, so it commits or rolls back
// together with the change it describes when s is a transaction.
func WriteLog(ctx context.Context, s store.Store, opts LogOptions) error {
	log := models.AuditLog{
		UserID:      opts.UserID,
		UserRole:    opts.UserRole,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  snapshot(opts.Before),
		AfterData:   snapshot(opts.After),
	}

	if err := s.CreateAuditLog(ctx, &log); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}
