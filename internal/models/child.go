package models

import (
	"time"

	"gorm.io/datatypes"
)

type Child struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	BirthDate datatypes.Date `gorm:"not null" json:"birth_date"`
	Gender    *string        `gorm:"size:20" json:"gender"`
	Allergies *string        `gorm:"type:text" json:"allergies"`
	Notes     *string        `gorm:"type:text" json:"notes"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	Enrollments []Enrollment `gorm:"foreignKey:ChildID;constraint:OnDelete:CASCADE" json:"-"`
}
