package rules

import (
	"context"
	"fmt"
	"testing"

	"creche-backend/internal/models"
	"creche-backend/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callLog records the calls that matter for review verification so tests
// can check the user lock is taken before eligibility is read.
type callLog struct {
	store.Store
	calls *[]string
}

func (l callLog) Tx(ctx context.Context, fn func(store.Store) error) error {
	return l.Store.Tx(ctx, func(tx store.Store) error {
		return fn(callLog{Store: tx, calls: l.calls})
	})
}

func (l callLog) LockUser(ctx context.Context, id uint) (models.User, error) {
	*l.calls = append(*l.calls, fmt.Sprintf("lock user %d", id))
	return l.Store.LockUser(ctx, id)
}

func (l callLog) HasAcceptedEnrollment(ctx context.Context, userID, daycareID uint) (bool, error) {
	*l.calls = append(*l.calls, fmt.Sprintf("eligible %d", userID))
	return l.Store.HasAcceptedEnrollment(ctx, userID, daycareID)
}

func (l callLog) SetReviewsVerified(ctx context.Context, userID, daycareID uint, verified bool) (int64, error) {
	*l.calls = append(*l.calls, fmt.Sprintf("verified %d %t", userID, verified))
	return l.Store.SetReviewsVerified(ctx, userID, daycareID, verified)
}

func recording(w *world) (*Engine, *[]string) {
	calls := &[]string{}
	return NewEngine(callLog{Store: w.s, calls: calls}, nil), calls
}

func assertBefore(t *testing.T, calls []string, first, then string) {
	t.Helper()
	i, j := -1, -1
	for n, c := range calls {
		if c == first && i < 0 {
			i = n
		}
		if c == then && j < 0 {
			j = n
		}
	}
	require.GreaterOrEqual(t, i, 0, "%q missing from %v", first, calls)
	require.GreaterOrEqual(t, j, 0, "%q missing from %v", then, calls)
	assert.Less(t, i, j, "%q must come before %q in %v", first, then, calls)
}

func TestLocking_SubmitReviewLocksAuthorFirst(t *testing.T) {
	w := newWorld(t)
	w.accepted(t)
	engine, calls := recording(w)

	_, err := engine.SubmitReview(context.Background(), w.parent, w.daycare.ID, ReviewInput{Stars: 4})
	require.NoError(t, err)

	require.NotEmpty(t, *calls)
	assert.Equal(t, fmt.Sprintf("lock user %d", w.parent.ID), (*calls)[0])
	assertBefore(t, *calls, fmt.Sprintf("lock user %d", w.parent.ID), fmt.Sprintf("eligible %d", w.parent.ID))
}

func TestLocking_DecideAcceptLocksRequester(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	en, err := w.engine.RequestEnrollment(ctx, w.parent, w.child.ID, w.daycare.ID)
	require.NoError(t, err)
	engine, calls := recording(w)

	_, err = engine.Decide(ctx, w.manager, en.ID, models.EnrollmentAccepted)
	require.NoError(t, err)
	assertBefore(t, *calls, fmt.Sprintf("lock user %d", w.parent.ID), fmt.Sprintf("verified %d true", w.parent.ID))
}

func TestLocking_DecideRejectTakesNoUserLock(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	en, err := w.engine.RequestEnrollment(ctx, w.parent, w.child.ID, w.daycare.ID)
	require.NoError(t, err)
	engine, calls := recording(w)

	_, err = engine.Decide(ctx, w.manager, en.ID, models.EnrollmentRejected)
	require.NoError(t, err)
	assert.Empty(t, *calls)
}

func TestLocking_DeleteEnrollmentLocksRequester(t *testing.T) {
	w := newWorld(t)
	en := w.accepted(t)
	engine, calls := recording(w)

	require.NoError(t, engine.DeleteEnrollment(context.Background(), w.manager, en.ID))
	assertBefore(t, *calls, fmt.Sprintf("lock user %d", w.parent.ID), fmt.Sprintf("eligible %d", w.parent.ID))
}

func TestLocking_DeleteChildLocksRequesters(t *testing.T) {
	w := newWorld(t)
	w.accepted(t)
	engine, calls := recording(w)

	require.NoError(t, engine.DeleteChild(context.Background(), w.parent, w.child.ID))
	assertBefore(t, *calls, fmt.Sprintf("lock user %d", w.parent.ID), fmt.Sprintf("eligible %d", w.parent.ID))
}

func TestLocking_DeleteUserLocksOtherRequesters(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	// parent2 requested a spot for a child owned by parent.
	en := models.Enrollment{ChildID: w.child.ID, DaycareID: w.daycare.ID, UserID: w.parent2.ID}
	require.NoError(t, w.s.CreateEnrollment(ctx, &en))
	_, err := w.engine.Decide(ctx, w.manager, en.ID, models.EnrollmentAccepted)
	require.NoError(t, err)
	engine, calls := recording(w)

	require.NoError(t, engine.DeleteUser(ctx, w.admin, w.parent.ID))
	assertBefore(t, *calls, fmt.Sprintf("lock user %d", w.parent2.ID), fmt.Sprintf("eligible %d", w.parent2.ID))
}

func TestLockUsers_SortedAndDeduplicated(t *testing.T) {
	w := newWorld(t)
	calls := &[]string{}
	s := callLog{Store: w.s, calls: calls}

	require.NoError(t, lockUsers(context.Background(), s, w.manager.ID, w.parent.ID, w.manager.ID))
	assert.Equal(t, []string{
		fmt.Sprintf("lock user %d", w.parent.ID),
		fmt.Sprintf("lock user %d", w.manager.ID),
	}, *calls)

	err := lockUsers(context.Background(), s, 999)
	assert.Equal(t, KindNotFound, kindOf(t, err))
}
