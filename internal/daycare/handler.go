package daycare

import (
	"errors"
	"strings"

	"creche-backend/internal/api"
	"creche-backend/internal/auth"
	"creche-backend/internal/models"
	"creche-backend/internal/rules"
	"creche-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

type DaycareRequest struct {
	Name        *string  `json:"name"`
	Address     *string  `json:"address"`
	MonthlyFee  *float64 `json:"monthly_fee"`
	Schedule    *string  `json:"schedule"`
	Description *string  `json:"description"`
	Photos      []string `json:"photos"`
}

type PhotoRequest struct {
	Image string `json:"image"`
}

type Summary struct {
	models.Daycare
	Rating rules.Rating `json:"rating"`
}

type Detail struct {
	models.Daycare
	Manager *models.PublicUser `json:"manager,omitempty"`
	Rating  rules.Rating       `json:"rating"`
	Reviews []ReviewView       `json:"reviews"`
}

type ReviewView struct {
	models.Review
	Author *models.PublicUser `json:"author,omitempty"`
}

func NewReviewView(r models.Review) ReviewView {
	v := ReviewView{Review: r}
	if r.User != nil {
		p := r.User.Public()
		v.Author = &p
	}
	return v
}

func parseSort(s string) store.DaycareSort {
	switch store.DaycareSort(strings.ToLower(strings.TrimSpace(s))) {
	case store.SortOldest:
		return store.SortOldest
	case store.SortPriceAsc:
		return store.SortPriceAsc
	case store.SortPriceDesc:
		return store.SortPriceDesc
	default:
		return store.SortNewest
	}
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func validFee(fee *float64) error {
	if fee != nil && *fee < 0 {
		return rules.InvalidArgument("monthly_fee cannot be negative")
	}
	return nil
}

// loadManaged fetches the daycare and checks the actor may change it.
func loadManaged(c *fiber.Ctx, engine *rules.Engine, id uint) (models.Daycare, error) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		return models.Daycare{}, err
	}
	s := engine.Store()
	d, err := s.GetDaycare(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Daycare{}, rules.NotFound("daycare not found")
		}
		return models.Daycare{}, rules.Internal(err)
	}
	if !rules.CanManageDaycare(c.UserContext(), s, actor, d.ID) {
		return models.Daycare{}, rules.Forbidden("only the daycare manager can do this")
	}
	return d, nil
}

// ----------------------------------------
// public
// ----------------------------------------

// GET /api/daycares?search=&sort=price_asc&page=1&limit=10
func ListDaycaresHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := api.QueryPage(c, 10)
		list, total, err := engine.Store().ListDaycares(c.UserContext(), store.DaycareFilter{
			Search: c.Query("search"),
			Sort:   parseSort(c.Query("sort")),
			Page:   page,
		})
		if err != nil {
			return rules.Internal(err)
		}

		out := make([]Summary, 0, len(list))
		for _, d := range list {
			rating, err := engine.DaycareRating(c.UserContext(), d.ID)
			if err != nil {
				return err
			}
			out = append(out, Summary{Daycare: d, Rating: rating})
		}

		return api.OK(c, fiber.Map{
			"daycares":   out,
			"pagination": api.NewPagination(total, page),
		})
	}
}

// GET /api/daycares/:id
func GetDaycareHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		ctx := c.UserContext()
		s := engine.Store()

		d, err := s.GetDaycare(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return rules.NotFound("daycare not found")
			}
			return rules.Internal(err)
		}

		reviews, err := s.ListReviewsByDaycare(ctx, id, nil)
		if err != nil {
			return rules.Internal(err)
		}
		detail := Detail{Daycare: d, Rating: rules.ComputeRating(reviews), Reviews: make([]ReviewView, 0, len(reviews))}
		for _, r := range reviews {
			detail.Reviews = append(detail.Reviews, NewReviewView(r))
		}
		if m, err := s.GetUser(ctx, d.UserID); err == nil {
			p := m.Public()
			detail.Manager = &p
		}

		return api.OK(c, detail)
	}
}

// ----------------------------------------
// manager
// ----------------------------------------

// GET /api/daycares/mine
func MyDaycaresHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		list, err := engine.Store().ListDaycaresByOwner(c.UserContext(), actor.ID)
		if err != nil {
			return rules.Internal(err)
		}
		if list == nil {
			list = []models.Daycare{}
		}
		return api.OK(c, list)
	}
}

// POST /api/daycares
func CreateDaycareHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		if !rules.CanCreateDaycare(actor.Role) {
			return rules.Forbidden("only managers can register daycares")
		}

		var body DaycareRequest
		if err := api.Body(c, &body); err != nil {
			return err
		}
		name, address := trimmed(body.Name), trimmed(body.Address)
		if name == "" || address == "" {
			return rules.InvalidArgument("name and address are required")
		}
		if err := validFee(body.MonthlyFee); err != nil {
			return err
		}

		d := models.Daycare{
			UserID:      actor.ID,
			Name:        name,
			Address:     address,
			MonthlyFee:  body.MonthlyFee,
			Schedule:    trimmed(body.Schedule),
			Description: trimmed(body.Description),
		}
		for _, img := range body.Photos {
			if img = strings.TrimSpace(img); img != "" {
				d.Photos = append(d.Photos, models.Photo{Image: img})
			}
		}

		if err := engine.Store().CreateDaycare(c.UserContext(), &d); err != nil {
			return rules.Internal(err)
		}
		return api.Created(c, "daycare created", d)
	}
}

// PUT /api/daycares/:id
func UpdateDaycareHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body DaycareRequest
		if err := api.Body(c, &body); err != nil {
			return err
		}
		if err := validFee(body.MonthlyFee); err != nil {
			return err
		}

		d, err := loadManaged(c, engine, id)
		if err != nil {
			return err
		}

		if body.Name != nil {
			if d.Name = trimmed(body.Name); d.Name == "" {
				return rules.InvalidArgument("name cannot be empty")
			}
		}
		if body.Address != nil {
			if d.Address = trimmed(body.Address); d.Address == "" {
				return rules.InvalidArgument("address cannot be empty")
			}
		}
		if body.MonthlyFee != nil {
			d.MonthlyFee = body.MonthlyFee
		}
		if body.Schedule != nil {
			d.Schedule = trimmed(body.Schedule)
		}
		if body.Description != nil {
			d.Description = trimmed(body.Description)
		}

		if err := engine.Store().UpdateDaycare(c.UserContext(), &d); err != nil {
			return rules.Internal(err)
		}
		return api.OK(c, d)
	}
}

// DELETE /api/daycares/:id
func DeleteDaycareHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		if _, err := loadManaged(c, engine, id); err != nil {
			return err
		}
		if err := engine.Store().DeleteDaycare(c.UserContext(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return rules.NotFound("daycare not found")
			}
			return rules.Internal(err)
		}
		return api.Message(c, "daycare deleted")
	}
}

// POST /api/daycares/:id/photos
func AddPhotoHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body PhotoRequest
		if err := api.Body(c, &body); err != nil {
			return err
		}
		if body.Image = strings.TrimSpace(body.Image); body.Image == "" {
			return rules.InvalidArgument("image is required")
		}
		if _, err := loadManaged(c, engine, id); err != nil {
			return err
		}

		p := models.Photo{DaycareID: id, Image: body.Image}
		if err := engine.Store().AddPhoto(c.UserContext(), &p); err != nil {
			return rules.Internal(err)
		}
		return api.Created(c, "photo added", p)
	}
}

// DELETE /api/daycares/:id/photos/:photoId
func RemovePhotoHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		photoID, err := api.ParamID(c, "photoId")
		if err != nil {
			return err
		}
		if _, err := loadManaged(c, engine, id); err != nil {
			return err
		}

		s := engine.Store()
		p, err := s.GetPhoto(c.UserContext(), photoID)
		if err != nil || p.DaycareID != id {
			if err == nil || errors.Is(err, store.ErrNotFound) {
				return rules.NotFound("photo not found")
			}
			return rules.Internal(err)
		}
		if err := s.DeletePhoto(c.UserContext(), p.ID); err != nil {
			return rules.Internal(err)
		}
		return api.Message(c, "photo removed")
	}
}
