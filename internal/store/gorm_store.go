package store

import (
	"context"
	"strings"

	"creche-backend/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of gorm + Postgres. The *gorm.DB must be
// opened with TranslateError so unique violations surface as ErrDuplicate.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Tx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return errors.Wrap(err, op)
	}
}

func affected(res *gorm.DB, op string) error {
	if res.Error != nil {
		return translate(res.Error, op)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ----------------------------------------
// users
// ----------------------------------------

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error, "create user")
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	return u, translate(err, "get user")
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	return u, translate(err, "get user by email")
}

func (s *GormStore) LockUser(ctx context.Context, id uint) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&u, id).Error
	return u, translate(err, "lock user")
}

func (s *GormStore) UpdateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Save(u).Error, "update user")
}

// DeleteUser relies on the FK cascades declared on the models: children,
// owned daycares, requested enrollments and authored reviews go with the user.
func (s *GormStore) DeleteUser(ctx context.Context, id uint) error {
	return affected(s.db.WithContext(ctx).Delete(&models.User{}, id), "delete user")
}

func (s *GormStore) ListUsers(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	page := f.Page.Normalize(20)
	q := s.db.WithContext(ctx).Model(&models.User{})
	if f.Role != nil {
		q = q.Where("role = ?", *f.Role)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count users")
	}
	var users []models.User
	err := q.Order("created_at DESC, id DESC").
		Limit(page.Size).
		Offset(page.Offset()).
		Find(&users).Error
	return users, total, translate(err, "list users")
}

func (s *GormStore) CountUsersByRole(ctx context.Context) (map[models.UserRole]int64, error) {
	var rows []struct {
		Role  models.UserRole
		Count int64
	}
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "count users by role")
	}
	res := make(map[models.UserRole]int64, len(rows))
	for _, r := range rows {
		res[r.Role] = r.Count
	}
	return res, nil
}

// ----------------------------------------
// children
// ----------------------------------------

func (s *GormStore) CreateChild(ctx context.Context, c *models.Child) error {
	return translate(s.db.WithContext(ctx).Create(c).Error, "create child")
}

func (s *GormStore) GetChild(ctx context.Context, id uint) (models.Child, error) {
	var c models.Child
	err := s.db.WithContext(ctx).First(&c, id).Error
	return c, translate(err, "get child")
}

// LockChild reads the child with SELECT ... FOR UPDATE. Only meaningful
// inside Tx.
func (s *GormStore) LockChild(ctx context.Context, id uint) (models.Child, error) {
	var c models.Child
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, id).Error
	return c, translate(err, "lock child")
}

func (s *GormStore) ListChildrenByOwner(ctx context.Context, userID uint) ([]models.Child, error) {
	var children []models.Child
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC, id ASC").
		Find(&children).Error
	return children, translate(err, "list children")
}

func (s *GormStore) UpdateChild(ctx context.Context, c *models.Child) error {
	return translate(s.db.WithContext(ctx).Save(c).Error, "update child")
}

func (s *GormStore) DeleteChild(ctx context.Context, id uint) error {
	return affected(s.db.WithContext(ctx).Delete(&models.Child{}, id), "delete child")
}

func (s *GormStore) CountChildren(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Child{}).Count(&n).Error
	return n, translate(err, "count children")
}

// ----------------------------------------
// daycares and photos
// ----------------------------------------

func (s *GormStore) CreateDaycare(ctx context.Context, d *models.Daycare) error {
	return translate(s.db.WithContext(ctx).Create(d).Error, "create daycare")
}

func (s *GormStore) GetDaycare(ctx context.Context, id uint) (models.Daycare, error) {
	var d models.Daycare
	err := s.db.WithContext(ctx).
		Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&d, id).Error
	return d, translate(err, "get daycare")
}

func daycareOrder(sort DaycareSort) string {
	switch sort {
	case SortOldest:
		return "created_at ASC, id ASC"
	case SortPriceAsc:
		return "monthly_fee ASC NULLS LAST, id ASC"
	case SortPriceDesc:
		return "monthly_fee DESC NULLS LAST, id ASC"
	default:
		return "created_at DESC, id DESC"
	}
}

func (s *GormStore) ListDaycares(ctx context.Context, f DaycareFilter) ([]models.Daycare, int64, error) {
	page := f.Page.Normalize(10)
	q := s.db.WithContext(ctx).Model(&models.Daycare{})
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + search + "%"
		q = q.Where("name ILIKE ? OR address ILIKE ?", like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count daycares")
	}
	var daycares []models.Daycare
	err := q.Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order(daycareOrder(f.Sort)).
		Limit(page.Size).
		Offset(page.Offset()).
		Find(&daycares).Error
	return daycares, total, translate(err, "list daycares")
}

func (s *GormStore) ListDaycaresByOwner(ctx context.Context, userID uint) ([]models.Daycare, error) {
	var daycares []models.Daycare
	err := s.db.WithContext(ctx).
		Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&daycares).Error
	return daycares, translate(err, "list daycares by owner")
}

func (s *GormStore) UpdateDaycare(ctx context.Context, d *models.Daycare) error {
	err := s.db.WithContext(ctx).
		Model(d).
		Select("name", "address", "monthly_fee", "schedule", "description").
		Updates(d).Error
	return translate(err, "update daycare")
}

func (s *GormStore) DeleteDaycare(ctx context.Context, id uint) error {
	return affected(s.db.WithContext(ctx).Delete(&models.Daycare{}, id), "delete daycare")
}

func (s *GormStore) CountDaycares(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Daycare{}).Count(&n).Error
	return n, translate(err, "count daycares")
}

func (s *GormStore) AddPhoto(ctx context.Context, p *models.Photo) error {
	return translate(s.db.WithContext(ctx).Create(p).Error, "add photo")
}

func (s *GormStore) GetPhoto(ctx context.Context, id uint) (models.Photo, error) {
	var p models.Photo
	err := s.db.WithContext(ctx).First(&p, id).Error
	return p, translate(err, "get photo")
}

func (s *GormStore) ListPhotos(ctx context.Context, daycareID uint) ([]models.Photo, error) {
	var photos []models.Photo
	err := s.db.WithContext(ctx).Where("daycare_id = ?", daycareID).Order("id ASC").Find(&photos).Error
	return photos, translate(err, "list photos")
}

func (s *GormStore) DeletePhoto(ctx context.Context, id uint) error {
	return affected(s.db.WithContext(ctx).Delete(&models.Photo{}, id), "delete photo")
}

// ----------------------------------------
// enrollments
// ----------------------------------------

func (s *GormStore) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	return translate(s.db.WithContext(ctx).Create(e).Error, "create enrollment")
}

func (s *GormStore) GetEnrollment(ctx context.Context, id uint) (models.Enrollment, error) {
	var e models.Enrollment
	err := s.db.WithContext(ctx).First(&e, id).Error
	return e, translate(err, "get enrollment")
}

func (s *GormStore) LockEnrollment(ctx context.Context, id uint) (models.Enrollment, error) {
	var e models.Enrollment
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&e, id).Error
	return e, translate(err, "lock enrollment")
}

// UpdateEnrollmentStatus returns ErrDuplicate when the partial unique index
// on accepted (child, daycare) pairs rejects the write.
func (s *GormStore) UpdateEnrollmentStatus(ctx context.Context, id uint, status models.EnrollmentStatus) error {
	res := s.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ?", id).
		Update("status", status)
	return affected(res, "update enrollment status")
}

func (s *GormStore) DeleteEnrollment(ctx context.Context, id uint) error {
	return affected(s.db.WithContext(ctx).Delete(&models.Enrollment{}, id), "delete enrollment")
}

func (s *GormStore) ListEnrollmentsByUser(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	var list []models.Enrollment
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, translate(err, "list enrollments by user")
}

func (s *GormStore) ListEnrollmentsByDaycare(ctx context.Context, daycareID uint) ([]models.Enrollment, error) {
	var list []models.Enrollment
	err := s.db.WithContext(ctx).
		Where("daycare_id = ?", daycareID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, translate(err, "list enrollments by daycare")
}

func (s *GormStore) LockEnrollmentsByChild(ctx context.Context, childID uint) ([]models.Enrollment, error) {
	var list []models.Enrollment
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("child_id = ?", childID).
		Order("id ASC").
		Find(&list).Error
	return list, translate(err, "lock enrollments by child")
}

func (s *GormStore) exists(ctx context.Context, model any, query string, args ...any) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(model).Where(query, args...).Limit(1).Count(&n).Error
	return n > 0, err
}

func (s *GormStore) HasAcceptedEnrollment(ctx context.Context, userID, daycareID uint) (bool, error) {
	ok, err := s.exists(ctx, &models.Enrollment{},
		"user_id = ? AND daycare_id = ? AND status = ?", userID, daycareID, models.EnrollmentAccepted)
	return ok, translate(err, "check accepted enrollment")
}

func (s *GormStore) HasAcceptedChildEnrollment(ctx context.Context, childID, daycareID uint) (bool, error) {
	ok, err := s.exists(ctx, &models.Enrollment{},
		"child_id = ? AND daycare_id = ? AND status = ?", childID, daycareID, models.EnrollmentAccepted)
	return ok, translate(err, "check accepted child enrollment")
}

func (s *GormStore) CountEnrollmentsByStatus(ctx context.Context) (EnrollmentCounts, error) {
	var rows []struct {
		Status models.EnrollmentStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Enrollment{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return EnrollmentCounts{}, translate(err, "count enrollments")
	}
	var counts EnrollmentCounts
	for _, r := range rows {
		counts.Total += r.Count
		switch r.Status {
		case models.EnrollmentPending:
			counts.Pending = r.Count
		case models.EnrollmentAccepted:
			counts.Accepted = r.Count
		case models.EnrollmentRejected:
			counts.Rejected = r.Count
		}
	}
	return counts, nil
}

// ----------------------------------------
// reviews
// ----------------------------------------

func (s *GormStore) CreateReview(ctx context.Context, r *models.Review) error {
	return translate(s.db.WithContext(ctx).Omit("User").Create(r).Error, "create review")
}

func (s *GormStore) GetReview(ctx context.Context, id uint) (models.Review, error) {
	var r models.Review
	err := s.db.WithContext(ctx).Preload("User").First(&r, id).Error
	return r, translate(err, "get review")
}

func (s *GormStore) FindReview(ctx context.Context, userID, daycareID uint) (models.Review, error) {
	var r models.Review
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND daycare_id = ?", userID, daycareID).
		First(&r).Error
	return r, translate(err, "find review")
}

// UpdateReview writes the author-editable fields only; verified is owned by
// the enrollment sync.
func (s *GormStore) UpdateReview(ctx context.Context, r *models.Review) error {
	err := s.db.WithContext(ctx).
		Model(r).
		Select("stars", "comment", "recommends").
		Updates(r).Error
	return translate(err, "update review")
}

func (s *GormStore) DeleteReview(ctx context.Context, id uint) error {
	return affected(s.db.WithContext(ctx).Delete(&models.Review{}, id), "delete review")
}

func (s *GormStore) SetReviewsVerified(ctx context.Context, userID, daycareID uint, verified bool) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("user_id = ? AND daycare_id = ?", userID, daycareID).
		Update("verified", verified)
	return res.RowsAffected, translate(res.Error, "set reviews verified")
}

func (s *GormStore) ListReviewsByDaycare(ctx context.Context, daycareID uint, verified *bool) ([]models.Review, error) {
	q := s.db.WithContext(ctx).Preload("User").Where("daycare_id = ?", daycareID)
	if verified != nil {
		q = q.Where("verified = ?", *verified)
	}
	var reviews []models.Review
	err := q.Order("created_at DESC, id DESC").Find(&reviews).Error
	return reviews, translate(err, "list reviews by daycare")
}

func (s *GormStore) ListReviews(ctx context.Context, p Page) ([]models.Review, int64, error) {
	page := p.Normalize(20)
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Review{}).Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count reviews")
	}
	var reviews []models.Review
	err := s.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC, id DESC").
		Limit(page.Size).
		Offset(page.Offset()).
		Find(&reviews).Error
	return reviews, total, translate(err, "list reviews")
}

func (s *GormStore) CountReviews(ctx context.Context, verified *bool) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Review{})
	if verified != nil {
		q = q.Where("verified = ?", *verified)
	}
	var n int64
	err := q.Count(&n).Error
	return n, translate(err, "count reviews")
}

// ----------------------------------------
// audit
// ----------------------------------------

func (s *GormStore) CreateAuditLog(ctx context.Context, l *models.AuditLog) error {
	return translate(s.db.WithContext(ctx).Create(l).Error, "create audit log")
}

func (s *GormStore) ListAuditLogs(ctx context.Context, f AuditFilter) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID > 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.UserID > 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []models.AuditLog
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error
	return logs, translate(err, "list audit logs")
}
