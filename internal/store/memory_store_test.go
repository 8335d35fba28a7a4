package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"creche-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fixture struct {
	parent  models.User
	manager models.User
	child   models.Child
	daycare models.Daycare
}

func seed(t *testing.T, s *MemoryStore) fixture {
	t.Helper()
	ctx := context.Background()

	f := fixture{
		parent:  models.User{Name: "Ana", Email: "ana@example.com", Role: models.RoleMother},
		manager: models.User{Name: "Bruno", Email: "bruno@example.com", Role: models.RoleManager},
	}
	require.NoError(t, s.CreateUser(ctx, &f.parent))
	require.NoError(t, s.CreateUser(ctx, &f.manager))

	f.child = models.Child{UserID: f.parent.ID, Name: "Lia", BirthDate: datatypes.Date(time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC))}
	require.NoError(t, s.CreateChild(ctx, &f.child))

	f.daycare = models.Daycare{
		UserID:  f.manager.ID,
		Name:    "Sunflower",
		Address: "Rua das Flores 10",
		Photos:  []models.Photo{{Image: "a.jpg"}, {Image: "b.jpg"}},
	}
	require.NoError(t, s.CreateDaycare(ctx, &f.daycare))
	return f
}

func TestMemoryStore_UserUniqueness(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seed(t, s)

	dup := models.User{Name: "Other", Email: "ana@example.com"}
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), ErrDuplicate)

	phone := "5511999990000"
	u1 := models.User{Name: "P1", Email: "p1@example.com", Phone: &phone}
	u2 := models.User{Name: "P2", Email: "p2@example.com", Phone: &phone}
	require.NoError(t, s.CreateUser(ctx, &u1))
	assert.ErrorIs(t, s.CreateUser(ctx, &u2), ErrDuplicate)
	assert.Equal(t, models.RoleParent, u1.Role)
}

func TestMemoryStore_ReviewUniqueness(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	f := seed(t, s)

	require.NoError(t, s.CreateReview(ctx, &models.Review{UserID: f.parent.ID, DaycareID: f.daycare.ID, Stars: 4}))
	err := s.CreateReview(ctx, &models.Review{UserID: f.parent.ID, DaycareID: f.daycare.ID, Stars: 2})
	assert.ErrorIs(t, err, ErrDuplicate)

	n, err := s.CountReviews(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMemoryStore_AcceptedEnrollmentUniqueness(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	f := seed(t, s)

	a := models.Enrollment{ChildID: f.child.ID, DaycareID: f.daycare.ID, UserID: f.parent.ID}
	b := models.Enrollment{ChildID: f.child.ID, DaycareID: f.daycare.ID, UserID: f.parent.ID}
	require.NoError(t, s.CreateEnrollment(ctx, &a))
	require.NoError(t, s.CreateEnrollment(ctx, &b))
	assert.Equal(t, models.EnrollmentPending, a.Status)

	require.NoError(t, s.UpdateEnrollmentStatus(ctx, a.ID, models.EnrollmentAccepted))
	assert.ErrorIs(t, s.UpdateEnrollmentStatus(ctx, b.ID, models.EnrollmentAccepted), ErrDuplicate)
	require.NoError(t, s.UpdateEnrollmentStatus(ctx, b.ID, models.EnrollmentRejected))

	counts, err := s.CountEnrollmentsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, EnrollmentCounts{Total: 2, Accepted: 1, Rejected: 1}, counts)
}

func TestMemoryStore_TxRollback(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	f := seed(t, s)

	boom := errors.New("boom")
	err := s.Tx(ctx, func(tx Store) error {
		e := models.Enrollment{ChildID: f.child.ID, DaycareID: f.daycare.ID, UserID: f.parent.ID}
		require.NoError(t, tx.CreateEnrollment(ctx, &e))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	list, err := s.ListEnrollmentsByUser(ctx, f.parent.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryStore_TxCancelledContextRollsBack(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	f := seed(t, s)

	err := s.Tx(ctx, func(tx Store) error {
		e := models.Enrollment{ChildID: f.child.ID, DaycareID: f.daycare.ID, UserID: f.parent.ID}
		require.NoError(t, tx.CreateEnrollment(ctx, &e))
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	list, err := s.ListEnrollmentsByUser(context.Background(), f.parent.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryStore_LockEnrollmentsByChild(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	f := seed(t, s)

	a := models.Enrollment{ChildID: f.child.ID, DaycareID: f.daycare.ID, UserID: f.parent.ID}
	b := models.Enrollment{ChildID: f.child.ID, DaycareID: f.daycare.ID, UserID: f.parent.ID}
	require.NoError(t, s.CreateEnrollment(ctx, &a))
	require.NoError(t, s.CreateEnrollment(ctx, &b))
	require.NoError(t, s.UpdateEnrollmentStatus(ctx, b.ID, models.EnrollmentAccepted))

	err := s.Tx(ctx, func(tx Store) error {
		list, err := tx.LockEnrollmentsByChild(ctx, f.child.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, a.ID, list[0].ID)
		assert.Equal(t, models.EnrollmentAccepted, list[1].Status)

		u, err := tx.LockUser(ctx, f.parent.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ana", u.Name)

		_, err = tx.LockUser(ctx, 999)
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_DeleteDaycareCascades(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	f := seed(t, s)

	require.NoError(t, s.CreateEnrollment(ctx, &models.Enrollment{ChildID: f.child.ID, DaycareID: f.daycare.ID, UserID: f.parent.ID}))
	require.NoError(t, s.CreateReview(ctx, &models.Review{UserID: f.parent.ID, DaycareID: f.daycare.ID, Stars: 5}))

	require.NoError(t, s.DeleteDaycare(ctx, f.daycare.ID))

	photos, _ := s.ListPhotos(ctx, f.daycare.ID)
	assert.Empty(t, photos)
	enrollments, _ := s.ListEnrollmentsByUser(ctx, f.parent.ID)
	assert.Empty(t, enrollments)
	n, _ := s.CountReviews(ctx, nil)
	assert.Zero(t, n)
	assert.ErrorIs(t, s.DeleteDaycare(ctx, f.daycare.ID), ErrNotFound)
}

func TestMemoryStore_DeleteUserCascades(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	f := seed(t, s)

	require.NoError(t, s.CreateEnrollment(ctx, &models.Enrollment{ChildID: f.child.ID, DaycareID: f.daycare.ID, UserID: f.parent.ID}))

	require.NoError(t, s.DeleteUser(ctx, f.manager.ID))
	_, err := s.GetDaycare(ctx, f.daycare.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteUser(ctx, f.parent.ID))
	_, err = s.GetChild(ctx, f.child.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ListDaycares(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	f := seed(t, s)

	fee := func(v float64) *float64 { return &v }
	for _, d := range []models.Daycare{
		{UserID: f.manager.ID, Name: "Cheap", Address: "Av. Central", MonthlyFee: fee(500)},
		{UserID: f.manager.ID, Name: "Pricey", Address: "Av. Central", MonthlyFee: fee(1500)},
	} {
		d := d
		require.NoError(t, s.CreateDaycare(ctx, &d))
	}

	list, total, err := s.ListDaycares(ctx, DaycareFilter{Sort: SortPriceAsc})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	assert.Equal(t, "Cheap", list[0].Name)
	assert.Equal(t, "Sunflower", list[2].Name, "nil fee sorts last")

	list, total, err = s.ListDaycares(ctx, DaycareFilter{Search: "central", Sort: SortPriceDesc})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	assert.Equal(t, "Pricey", list[0].Name)

	list, total, err = s.ListDaycares(ctx, DaycareFilter{Page: Page{Number: 2, Size: 2}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Sunflower", list[0].Name)
	assert.Len(t, list[0].Photos, 2)
}

func TestMemoryStore_UpdateReviewKeepsVerified(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	f := seed(t, s)

	r := models.Review{UserID: f.parent.ID, DaycareID: f.daycare.ID, Stars: 3, Verified: true}
	require.NoError(t, s.CreateReview(ctx, &r))

	r.Stars = 5
	r.Verified = false
	require.NoError(t, s.UpdateReview(ctx, &r))

	got, err := s.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stars)
	assert.True(t, got.Verified)
	require.NotNil(t, got.User)
	assert.Equal(t, "Ana", got.User.Name)
}
