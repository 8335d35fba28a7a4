package models

import "time"

type EnrollmentStatus string

const (
	EnrollmentPending  EnrollmentStatus = "pending"
	EnrollmentAccepted EnrollmentStatus = "accepted"
	EnrollmentRejected EnrollmentStatus = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentAccepted || s == EnrollmentRejected
}

// Enrollment is one admission request of a child to a daycare. At most one
// accepted row may exist per (child, daycare); see database.ensureIndexes.
type Enrollment struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	DaycareID uint             `gorm:"not null;index" json:"daycare_id"`
	ChildID   uint             `gorm:"not null;index" json:"child_id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"` // requesting parent
	Status    EnrollmentStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
