package rules

import (
	"context"
	"fmt"
	"sort"

	"creche-backend/internal/audit"
	"creche-backend/internal/models"
	"creche-backend/internal/store"
)

type pair struct{ userID, daycareID uint }

// acceptedPairs locks every enrollment of the given children and lists the
// (requester, daycare) pairs of the accepted ones, skipping requester skip.
// The requesters are locked too, so the pairs cannot go stale before resync.
func acceptedPairs(ctx context.Context, s store.Store, childIDs []uint, skip uint) ([]pair, error) {
	seen := make(map[pair]bool)
	var (
		out   []pair
		users []uint
	)
	for _, id := range childIDs {
		list, err := s.LockEnrollmentsByChild(ctx, id)
		if err != nil {
			return nil, Internal(err)
		}
		for _, en := range list {
			p := pair{en.UserID, en.DaycareID}
			if en.Status != models.EnrollmentAccepted || en.UserID == skip || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
			users = append(users, en.UserID)
		}
	}
	if err := lockUsers(ctx, s, users...); err != nil {
		return nil, err
	}
	return out, nil
}

// lockUsers takes the row lock of each user in ascending id order. Every
// write that can flip Review.Verified holds the author's lock, so the
// eligibility read and the review write of one user never interleave.
func lockUsers(ctx context.Context, s store.Store, ids ...uint) error {
	sorted := append([]uint(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, id := range sorted {
		if i > 0 && sorted[i-1] == id {
			continue
		}
		if _, err := s.LockUser(ctx, id); err != nil {
			return fromStore(err, "user not found")
		}
	}
	return nil
}

func resync(ctx context.Context, s store.Store, pairs []pair) error {
	for _, p := range pairs {
		if err := SyncVerifiedOnUnaccept(ctx, s, p.userID, p.daycareID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteChild removes one of the actor's children with its enrollments and
// re-evaluates the verified reviews those enrollments backed.
func (e *Engine) DeleteChild(ctx context.Context, actor Actor, childID uint) error {
	return e.store.Tx(ctx, func(tx store.Store) error {
		child, err := tx.LockChild(ctx, childID)
		if err != nil {
			return fromStore(err, "child not found")
		}
		if !ownsChild(actor.ID, child) {
			return NotFound("child not found")
		}

		affected, err := acceptedPairs(ctx, tx, []uint{child.ID}, 0)
		if err != nil {
			return err
		}
		if err := tx.DeleteChild(ctx, child.ID); err != nil {
			return fromStore(err, "child not found")
		}
		return resync(ctx, tx, affected)
	})
}

// deleteUser removes the user and everything cascading from it. Reviews of
// the user disappear with it; reviews of other users only need a resync if
// they requested enrollments for this user's children.
func (e *Engine) deleteUser(ctx context.Context, tx store.Store, target models.User) error {
	children, err := tx.ListChildrenByOwner(ctx, target.ID)
	if err != nil {
		return Internal(err)
	}
	ids := make([]uint, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.ID)
	}
	affected, err := acceptedPairs(ctx, tx, ids, target.ID)
	if err != nil {
		return err
	}

	if err := tx.DeleteUser(ctx, target.ID); err != nil {
		return fromStore(err, "user not found")
	}
	return resync(ctx, tx, affected)
}

// DeleteUser is the admin removal of another account. Admin accounts cannot
// be removed this way.
func (e *Engine) DeleteUser(ctx context.Context, actor Actor, targetID uint) error {
	return e.store.Tx(ctx, func(tx store.Store) error {
		target, err := tx.GetUser(ctx, targetID)
		if err != nil {
			return fromStore(err, "user not found")
		}
		if !CanDeleteUser(ctx, tx, actor.Role, target.ID) {
			return Forbidden("admin accounts cannot be deleted")
		}
		if err := e.deleteUser(ctx, tx, target); err != nil {
			return err
		}
		return e.record(ctx, tx, actor, audit.LogOptions{
			EntityType:  audit.EntityUser,
			EntityID:    target.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("user %s removed", target.Email),
			Before:      target.Public(),
		})
	})
}

// DeleteAccount removes the actor's own account.
func (e *Engine) DeleteAccount(ctx context.Context, actor Actor) error {
	return e.store.Tx(ctx, func(tx store.Store) error {
		me, err := tx.GetUser(ctx, actor.ID)
		if err != nil {
			return fromStore(err, "user not found")
		}
		return e.deleteUser(ctx, tx, me)
	})
}

// ChangeRole is an admin operation; admins cannot change their own role.
func (e *Engine) ChangeRole(ctx context.Context, actor Actor, targetID uint, role models.UserRole) (models.User, error) {
	if _, err := models.ParseRole(string(role)); err != nil {
		return models.User{}, InvalidArgument("unknown role")
	}
	if !actor.IsAdmin() {
		return models.User{}, Forbidden("only admins can change roles")
	}
	if actor.ID == targetID {
		return models.User{}, Forbidden("admins cannot change their own role")
	}

	var out models.User
	err := e.store.Tx(ctx, func(tx store.Store) error {
		u, err := tx.GetUser(ctx, targetID)
		if err != nil {
			return fromStore(err, "user not found")
		}
		before := u.Role
		u.Role = role
		if err := tx.UpdateUser(ctx, &u); err != nil {
			return fromStore(err, "user not found")
		}
		out = u
		return e.record(ctx, tx, actor, audit.LogOptions{
			EntityType:  audit.EntityUser,
			EntityID:    u.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("role %s -> %s", before, role),
			Before:      map[string]models.UserRole{"role": before},
			After:       map[string]models.UserRole{"role": role},
		})
	})
	return out, err
}

// BecomeManager switches a guardian account to the manager role.
func (e *Engine) BecomeManager(ctx context.Context, actor Actor) (models.User, error) {
	u, err := e.store.GetUser(ctx, actor.ID)
	if err != nil {
		return models.User{}, fromStore(err, "user not found")
	}
	switch u.Role {
	case models.RoleAdmin:
		return models.User{}, InvalidArgument("admins cannot change account type")
	case models.RoleManager:
		return u, nil
	case models.RoleParent, models.RoleMother:
	}
	u.Role = models.RoleManager
	if err := e.store.UpdateUser(ctx, &u); err != nil {
		return models.User{}, fromStore(err, "user not found")
	}
	return u, nil
}
