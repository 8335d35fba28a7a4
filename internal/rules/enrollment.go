package rules

import (
	"context"
	"fmt"
	"strings"

	"creche-backend/internal/audit"
	"creche-backend/internal/models"
	"creche-backend/internal/store"
)

// ParseDecision accepts only the two terminal statuses.
func ParseDecision(s string) (models.EnrollmentStatus, error) {
	switch st := models.EnrollmentStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case models.EnrollmentAccepted, models.EnrollmentRejected:
		return st, nil
	default:
		return "", InvalidArgument("status must be accepted or rejected")
	}
}

// RequestEnrollment files a pending enrollment of one of the actor's children.
// The child row is locked for the whole check-then-insert so two requests for
// the same child run one after the other.
func (e *Engine) RequestEnrollment(ctx context.Context, actor Actor, childID, daycareID uint) (models.Enrollment, error) {
	var out models.Enrollment
	err := e.store.Tx(ctx, func(tx store.Store) error {
		child, err := tx.LockChild(ctx, childID)
		if err != nil {
			return fromStore(err, "child not found")
		}
		if !ownsChild(actor.ID, child) {
			return NotFound("child not found")
		}

		if _, err := tx.GetDaycare(ctx, daycareID); err != nil {
			return fromStore(err, "daycare not found")
		}

		taken, err := tx.HasAcceptedChildEnrollment(ctx, childID, daycareID)
		if err != nil {
			return Internal(err)
		}
		if taken {
			return Conflict("child is already enrolled at this daycare")
		}

		out = models.Enrollment{
			DaycareID: daycareID,
			ChildID:   childID,
			UserID:    actor.ID,
			Status:    models.EnrollmentPending,
		}
		if err := tx.CreateEnrollment(ctx, &out); err != nil {
			return fromStore(err, "child is already enrolled at this daycare")
		}

		return e.record(ctx, tx, actor, audit.LogOptions{
			EntityType:  audit.EntityEnrollment,
			EntityID:    out.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("enrollment requested for child %d at daycare %d", childID, daycareID),
			After:       out,
		})
	})
	return out, err
}

// Decide moves a pending enrollment to accepted or rejected. Accepting marks
// the requester's reviews of the daycare as verified in the same transaction.
func (e *Engine) Decide(ctx context.Context, actor Actor, enrollmentID uint, decision models.EnrollmentStatus) (models.Enrollment, error) {
	if !decision.Terminal() {
		return models.Enrollment{}, InvalidArgument("status must be accepted or rejected")
	}

	var out models.Enrollment
	err := e.store.Tx(ctx, func(tx store.Store) error {
		en, err := tx.LockEnrollment(ctx, enrollmentID)
		if err != nil {
			return fromStore(err, "enrollment not found")
		}
		if !CanManageEnrollment(ctx, tx, actor, enrollmentID) {
			return Forbidden("only the daycare manager can decide this enrollment")
		}
		if en.Status != models.EnrollmentPending {
			return Conflict("enrollment has already been decided")
		}

		if decision == models.EnrollmentAccepted {
			if err := lockUsers(ctx, tx, en.UserID); err != nil {
				return err
			}
			taken, err := tx.HasAcceptedChildEnrollment(ctx, en.ChildID, en.DaycareID)
			if err != nil {
				return Internal(err)
			}
			if taken {
				return Conflict("child is already enrolled at this daycare")
			}
		}

		before := en
		if err := tx.UpdateEnrollmentStatus(ctx, en.ID, decision); err != nil {
			return fromStore(err, "child is already enrolled at this daycare")
		}
		en.Status = decision

		if decision == models.EnrollmentAccepted {
			if err := SyncVerifiedOnAccept(ctx, tx, en.UserID, en.DaycareID); err != nil {
				return err
			}
		}

		out = en
		return e.record(ctx, tx, actor, audit.LogOptions{
			EntityType:  audit.EntityEnrollment,
			EntityID:    en.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("enrollment %s", decision),
			Before:      before,
			After:       en,
		})
	})
	return out, err
}

// DeleteEnrollment removes an enrollment in any status. Allowed for the
// requester, the daycare's manager and admins. Removing an accepted one
// re-evaluates the requester's verified reviews.
func (e *Engine) DeleteEnrollment(ctx context.Context, actor Actor, enrollmentID uint) error {
	return e.store.Tx(ctx, func(tx store.Store) error {
		en, err := tx.LockEnrollment(ctx, enrollmentID)
		if err != nil {
			return fromStore(err, "enrollment not found")
		}
		if en.UserID != actor.ID && !actor.IsAdmin() && !CanManageEnrollment(ctx, tx, actor, en.ID) {
			return Forbidden("not allowed to delete this enrollment")
		}
		if en.Status == models.EnrollmentAccepted {
			if err := lockUsers(ctx, tx, en.UserID); err != nil {
				return err
			}
		}

		if err := tx.DeleteEnrollment(ctx, en.ID); err != nil {
			return fromStore(err, "enrollment not found")
		}
		if en.Status == models.EnrollmentAccepted {
			if err := SyncVerifiedOnUnaccept(ctx, tx, en.UserID, en.DaycareID); err != nil {
				return err
			}
		}

		return e.record(ctx, tx, actor, audit.LogOptions{
			EntityType:  audit.EntityEnrollment,
			EntityID:    en.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("enrollment removed (was %s)", en.Status),
			Before:      en,
		})
	})
}

// ListDaycareEnrollments returns every enrollment of a daycare to its manager.
func (e *Engine) ListDaycareEnrollments(ctx context.Context, actor Actor, daycareID uint) ([]models.Enrollment, error) {
	d, err := e.store.GetDaycare(ctx, daycareID)
	if err != nil {
		return nil, fromStore(err, "daycare not found")
	}
	if !managesDaycare(actor, d) {
		return nil, Forbidden("not allowed to view enrollments of this daycare")
	}
	list, err := e.store.ListEnrollmentsByDaycare(ctx, daycareID)
	if err != nil {
		return nil, Internal(err)
	}
	return list, nil
}
