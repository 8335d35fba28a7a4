package admin

import (
	"creche-backend/internal/api"
	"creche-backend/internal/models"
	"creche-backend/internal/rules"
	"creche-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

type ReviewCounts struct {
	Total    int64 `json:"total"`
	Verified int64 `json:"verified"`
}

type PlatformStats struct {
	Users       map[models.UserRole]int64 `json:"users"`
	TotalUsers  int64                     `json:"total_users"`
	Daycares    int64                     `json:"daycares"`
	Children    int64                     `json:"children"`
	Enrollments store.EnrollmentCounts    `json:"enrollments"`
	Reviews     ReviewCounts              `json:"reviews"`
}

// GET /api/admin/stats
// The counts are independent reads, so they run concurrently.
func StatsHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := engine.Store()
		var stats PlatformStats

		g, gctx := errgroup.WithContext(c.UserContext())
		g.SetLimit(4)
		g.Go(func() (err error) {
			stats.Users, err = s.CountUsersByRole(gctx)
			return err
		})
		g.Go(func() (err error) {
			stats.Daycares, err = s.CountDaycares(gctx)
			return err
		})
		g.Go(func() (err error) {
			stats.Children, err = s.CountChildren(gctx)
			return err
		})
		g.Go(func() (err error) {
			stats.Enrollments, err = s.CountEnrollmentsByStatus(gctx)
			return err
		})
		g.Go(func() (err error) {
			stats.Reviews.Total, err = s.CountReviews(gctx, nil)
			return err
		})
		g.Go(func() (err error) {
			verified := true
			stats.Reviews.Verified, err = s.CountReviews(gctx, &verified)
			return err
		})
		if err := g.Wait(); err != nil {
			return rules.Internal(err)
		}

		for _, r := range []models.UserRole{models.RoleParent, models.RoleMother, models.RoleManager, models.RoleAdmin} {
			if _, ok := stats.Users[r]; !ok {
				stats.Users[r] = 0
			}
			stats.TotalUsers += stats.Users[r]
		}
		return api.OK(c, stats)
	}
}
