package models

import "time"

type Daycare struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"` // managing user
	Name        string    `gorm:"size:255;not null" json:"name"`
	Address     string    `gorm:"type:text;not null" json:"address"`
	MonthlyFee  *float64  `gorm:"type:decimal(10,2)" json:"monthly_fee"`
	Schedule    string    `gorm:"size:100" json:"schedule"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Photos      []Photo      `gorm:"foreignKey:DaycareID;constraint:OnDelete:CASCADE" json:"photos,omitempty"`
	Enrollments []Enrollment `gorm:"foreignKey:DaycareID;constraint:OnDelete:CASCADE" json:"-"`
	Reviews     []Review     `gorm:"foreignKey:DaycareID;constraint:OnDelete:CASCADE" json:"-"`
}

type Photo struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DaycareID uint      `gorm:"not null;index" json:"daycare_id"`
	Image     string    `gorm:"size:500;not null" json:"image"`
	CreatedAt time.Time `json:"created_at"`
}
