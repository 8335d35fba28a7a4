package models

import "time"

const (
	MinStars = 1
	MaxStars = 5
)

// Review is unique per (user, daycare). Verified mirrors whether the author
// holds an accepted enrollment at the daycare and is written only by the
// review engine.
type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_reviews_user_daycare" json:"user_id"`
	DaycareID  uint      `gorm:"not null;uniqueIndex:idx_reviews_user_daycare;index" json:"daycare_id"`
	Stars      int       `gorm:"not null" json:"stars"`
	Comment    *string   `gorm:"type:text" json:"comment"`
	Recommends bool      `gorm:"not null" json:"recommends"`
	Verified   bool      `gorm:"not null" json:"verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
