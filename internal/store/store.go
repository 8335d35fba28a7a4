package store

import (
	"context"
	"errors"

	"creche-backend/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// DaycareSort selects the ordering of ListDaycares.
type DaycareSort string

const (
	SortNewest    DaycareSort = "newest"
	SortOldest    DaycareSort = "oldest"
	SortPriceAsc  DaycareSort = "price_asc"
	SortPriceDesc DaycareSort = "price_desc"
)

// Page is a 1-based page request. Zero values fall back to defaults.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize(defaultSize int) Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultSize
	}
	if p.Size > 100 {
		p.Size = 100
	}
	return p
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

type DaycareFilter struct {
	Search string
	Sort   DaycareSort
	Page   Page
}

type UserFilter struct {
	Role *models.UserRole
	Page Page
}

type AuditFilter struct {
	EntityType string
	EntityID   uint
	UserID     uint
	Limit      int
}

// EnrollmentCounts groups enrollments by status.
type EnrollmentCounts struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
}

// Store persists daycare marketplace entities. Lookups that match nothing
// return ErrNotFound; unique violations return ErrDuplicate.
type Store interface {
	// Tx runs fn inside a single transaction. The Store passed to fn must be
	// used for every read and write that belongs to the transaction.
	Tx(ctx context.Context, fn func(Store) error) error

	// users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uint) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	// LockUser reads the user with a row lock held until the Tx ends. Writes
	// that move Review.Verified for a user take it first.
	LockUser(ctx context.Context, id uint) (models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id uint) error
	ListUsers(ctx context.Context, f UserFilter) ([]models.User, int64, error)
	CountUsersByRole(ctx context.Context) (map[models.UserRole]int64, error)

	// children
	CreateChild(ctx context.Context, c *models.Child) error
	GetChild(ctx context.Context, id uint) (models.Child, error)
	LockChild(ctx context.Context, id uint) (models.Child, error)
	ListChildrenByOwner(ctx context.Context, userID uint) ([]models.Child, error)
	UpdateChild(ctx context.Context, c *models.Child) error
	DeleteChild(ctx context.Context, id uint) error
	CountChildren(ctx context.Context) (int64, error)

	// daycares and photos
	CreateDaycare(ctx context.Context, d *models.Daycare) error
	GetDaycare(ctx context.Context, id uint) (models.Daycare, error)
	ListDaycares(ctx context.Context, f DaycareFilter) ([]models.Daycare, int64, error)
	ListDaycaresByOwner(ctx context.Context, userID uint) ([]models.Daycare, error)
	UpdateDaycare(ctx context.Context, d *models.Daycare) error
	DeleteDaycare(ctx context.Context, id uint) error
	CountDaycares(ctx context.Context) (int64, error)
	AddPhoto(ctx context.Context, p *models.Photo) error
	GetPhoto(ctx context.Context, id uint) (models.Photo, error)
	ListPhotos(ctx context.Context, daycareID uint) ([]models.Photo, error)
	DeletePhoto(ctx context.Context, id uint) error

	// enrollments
	CreateEnrollment(ctx context.Context, e *models.Enrollment) error
	GetEnrollment(ctx context.Context, id uint) (models.Enrollment, error)
	LockEnrollment(ctx context.Context, id uint) (models.Enrollment, error)
	UpdateEnrollmentStatus(ctx context.Context, id uint, status models.EnrollmentStatus) error
	DeleteEnrollment(ctx context.Context, id uint) error
	ListEnrollmentsByUser(ctx context.Context, userID uint) ([]models.Enrollment, error)
	ListEnrollmentsByDaycare(ctx context.Context, daycareID uint) ([]models.Enrollment, error)
	// LockEnrollmentsByChild returns every enrollment of the child, oldest
	// first, each row locked until the Tx ends.
	LockEnrollmentsByChild(ctx context.Context, childID uint) ([]models.Enrollment, error)
	HasAcceptedEnrollment(ctx context.Context, userID, daycareID uint) (bool, error)
	HasAcceptedChildEnrollment(ctx context.Context, childID, daycareID uint) (bool, error)
	CountEnrollmentsByStatus(ctx context.Context) (EnrollmentCounts, error)

	// reviews
	CreateReview(ctx context.Context, r *models.Review) error
	GetReview(ctx context.Context, id uint) (models.Review, error)
	FindReview(ctx context.Context, userID, daycareID uint) (models.Review, error)
	UpdateReview(ctx context.Context, r *models.Review) error
	DeleteReview(ctx context.Context, id uint) error
	SetReviewsVerified(ctx context.Context, userID, daycareID uint, verified bool) (int64, error)
	ListReviewsByDaycare(ctx context.Context, daycareID uint, verified *bool) ([]models.Review, error)
	ListReviews(ctx context.Context, p Page) ([]models.Review, int64, error)
	CountReviews(ctx context.Context, verified *bool) (int64, error)

	// audit
	CreateAuditLog(ctx context.Context, l *models.AuditLog) error
	ListAuditLogs(ctx context.Context, f AuditFilter) ([]models.AuditLog, error)
}
