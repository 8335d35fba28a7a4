package rules

import (
	"context"
	"errors"
	"fmt"

	"creche-backend/internal/audit"
	"creche-backend/internal/models"
	"creche-backend/internal/store"
)

type ReviewInput struct {
	Stars      int
	Comment    *string
	Recommends *bool
}

type ReviewPatch struct {
	Stars      *int
	Comment    *string
	Recommends *bool
}

func validStars(stars int) error {
	if stars < models.MinStars || stars > models.MaxStars {
		return InvalidArgument(fmt.Sprintf("stars must be between %d and %d", models.MinStars, models.MaxStars))
	}
	return nil
}

// SubmitReview creates the actor's only review of a daycare. Checks run in
// order: stars, daycare, previous review, accepted enrollment. The review is
// verified from the start since eligibility was just proven.
func (e *Engine) SubmitReview(ctx context.Context, actor Actor, daycareID uint, in ReviewInput) (models.Review, error) {
	if err := validStars(in.Stars); err != nil {
		return models.Review{}, err
	}

	var out models.Review
	err := e.store.Tx(ctx, func(tx store.Store) error {
		if err := lockUsers(ctx, tx, actor.ID); err != nil {
			return err
		}
		if _, err := tx.GetDaycare(ctx, daycareID); err != nil {
			return fromStore(err, "daycare not found")
		}

		_, err := tx.FindReview(ctx, actor.ID, daycareID)
		switch {
		case err == nil:
			return Conflict("daycare already reviewed, update the existing review instead")
		case !errors.Is(err, store.ErrNotFound):
			return Internal(err)
		}

		eligible, err := tx.HasAcceptedEnrollment(ctx, actor.ID, daycareID)
		if err != nil {
			return Internal(err)
		}
		if !eligible {
			return Forbidden("only parents with an accepted enrollment can review this daycare")
		}

		recommends := true
		if in.Recommends != nil {
			recommends = *in.Recommends
		}
		out = models.Review{
			UserID:     actor.ID,
			DaycareID:  daycareID,
			Stars:      in.Stars,
			Comment:    in.Comment,
			Recommends: recommends,
			Verified:   true,
		}
		if err := tx.CreateReview(ctx, &out); err != nil {
			return fromStore(err, "daycare already reviewed, update the existing review instead")
		}

		return e.record(ctx, tx, actor, audit.LogOptions{
			EntityType:  audit.EntityReview,
			EntityID:    out.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("review of daycare %d", daycareID),
			After:       out,
		})
	})
	return out, err
}

// UpdateReview edits stars, comment and recommends of the actor's own
// review. Reviews of other users are reported as not found.
func (e *Engine) UpdateReview(ctx context.Context, actor Actor, reviewID uint, p ReviewPatch) (models.Review, error) {
	if p.Stars != nil {
		if err := validStars(*p.Stars); err != nil {
			return models.Review{}, err
		}
	}

	r, err := e.store.GetReview(ctx, reviewID)
	if err != nil {
		return models.Review{}, fromStore(err, "review not found")
	}
	if r.UserID != actor.ID {
		return models.Review{}, NotFound("review not found")
	}

	if p.Stars != nil {
		r.Stars = *p.Stars
	}
	if p.Comment != nil {
		r.Comment = p.Comment
	}
	if p.Recommends != nil {
		r.Recommends = *p.Recommends
	}
	if err := e.store.UpdateReview(ctx, &r); err != nil {
		return models.Review{}, fromStore(err, "review not found")
	}
	return r, nil
}

// DeleteReview is allowed for the author and for admins.
func (e *Engine) DeleteReview(ctx context.Context, actor Actor, reviewID uint) error {
	return e.store.Tx(ctx, func(tx store.Store) error {
		r, err := tx.GetReview(ctx, reviewID)
		if err != nil {
			return fromStore(err, "review not found")
		}
		if r.UserID != actor.ID && !actor.IsAdmin() {
			return Forbidden("not allowed to delete this review")
		}
		if err := tx.DeleteReview(ctx, r.ID); err != nil {
			return fromStore(err, "review not found")
		}
		if r.UserID == actor.ID {
			return nil
		}
		r.User = nil
		return e.record(ctx, tx, actor, audit.LogOptions{
			EntityType:  audit.EntityReview,
			EntityID:    r.ID,
			Action:      models.AuditActionDelete,
			Description: "review removed by admin",
			Before:      r,
		})
	})
}

// ----------------------------------------
// verified flag synchronization
// ----------------------------------------

// SyncVerifiedOnAccept and SyncVerifiedOnUnaccept are the only writers of
// Review.Verified besides SubmitReview. Every enrollment transition that can
// change eligibility calls one of them with the transaction's store.

// SyncVerifiedOnAccept marks the user's reviews of the daycare verified.
// Idempotent.
func SyncVerifiedOnAccept(ctx context.Context, s store.Store, userID, daycareID uint) error {
	if _, err := s.SetReviewsVerified(ctx, userID, daycareID, true); err != nil {
		return Internal(err)
	}
	return nil
}

// SyncVerifiedOnUnaccept clears the flag only when no accepted enrollment of
// the user at the daycare remains.
func SyncVerifiedOnUnaccept(ctx context.Context, s store.Store, userID, daycareID uint) error {
	still, err := s.HasAcceptedEnrollment(ctx, userID, daycareID)
	if err != nil {
		return Internal(err)
	}
	if still {
		return nil
	}
	if _, err := s.SetReviewsVerified(ctx, userID, daycareID, false); err != nil {
		return Internal(err)
	}
	return nil
}
