package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// acting user, denormalized so the row survives user deletion
	UserID   uint     `gorm:"index" json:"user_id"`
	UserRole UserRole `gorm:"size:20" json:"user_role"`

	// e.g. "enrollment", "review", "user"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	BeforeData datatypes.JSON `gorm:"type:jsonb" json:"before_data"`
	AfterData  datatypes.JSON `gorm:"type:jsonb" json:"after_data"`
}
