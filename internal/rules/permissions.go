package rules

import (
	"context"

	"creche-backend/internal/models"
	"creche-backend/internal/store"
)

// Actor is the already-authenticated caller of an operation.
type Actor struct {
	ID   uint
	Role models.UserRole
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// The predicates below only answer yes or no. A lookup miss or store
// failure denies; callers that need to tell NotFound from Forbidden load
// the entity themselves first.

func CanManageDaycare(ctx context.Context, s store.Store, actor Actor, daycareID uint) bool {
	if actor.IsAdmin() {
		return true
	}
	d, err := s.GetDaycare(ctx, daycareID)
	if err != nil {
		return false
	}
	return managesDaycare(actor, d)
}

func CanManageEnrollment(ctx context.Context, s store.Store, actor Actor, enrollmentID uint) bool {
	if actor.IsAdmin() {
		return true
	}
	e, err := s.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return false
	}
	return CanManageDaycare(ctx, s, actor, e.DaycareID)
}

func CanCreateDaycare(role models.UserRole) bool {
	switch role {
	case models.RoleManager, models.RoleAdmin:
		return true
	case models.RoleParent, models.RoleMother:
		return false
	default:
		return false
	}
}

// CanDeleteUser is true only for admins acting on a non-admin target.
func CanDeleteUser(ctx context.Context, s store.Store, actorRole models.UserRole, targetUserID uint) bool {
	if actorRole != models.RoleAdmin {
		return false
	}
	u, err := s.GetUser(ctx, targetUserID)
	if err != nil {
		return false
	}
	return u.Role != models.RoleAdmin
}

// CanManageChild has no admin override: children are visible to their
// guardian only.
func CanManageChild(ctx context.Context, s store.Store, actorID, childID uint) bool {
	c, err := s.GetChild(ctx, childID)
	if err != nil {
		return false
	}
	return ownsChild(actorID, c)
}

func managesDaycare(actor Actor, d models.Daycare) bool {
	return actor.IsAdmin() || d.UserID == actor.ID
}

func ownsChild(actorID uint, c models.Child) bool {
	return c.UserID == actorID
}
