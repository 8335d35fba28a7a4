package server

import (
	"creche-backend/internal/admin"
	"creche-backend/internal/api"
	"creche-backend/internal/auth"
	"creche-backend/internal/child"
	"creche-backend/internal/config"
	"creche-backend/internal/daycare"
	"creche-backend/internal/enrollment"
	"creche-backend/internal/logging"
	"creche-backend/internal/models"
	"creche-backend/internal/ratelimit"
	"creche-backend/internal/review"
	"creche-backend/internal/rules"
	"creche-backend/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Deps wires the services the HTTP surface needs.
type Deps struct {
	Config  *config.Config
	Engine  *rules.Engine
	Tokens  *auth.Tokens
	Revoker auth.Revoker
	// Limiter guards register and login. Nil disables rate limiting.
	Limiter *ratelimit.FixedWindowLimiter
	Logger  *logging.Logger
}

// New builds the fiber app with every route registered.
func New(d Deps) *fiber.App {
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	if d.Revoker == nil {
		d.Revoker = auth.NewMemoryRevoker()
	}

	app := fiber.New(fiber.Config{
		AppName:      "creche-backend",
		ErrorHandler: api.ErrorHandler(d.Logger),
	})

	app.Use(requestid.New())
	app.Use(logging.RequestLogger(d.Logger))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.Config.AllowedOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-Id",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	routes(app, d)
	return app
}

func routes(app *fiber.App, d Deps) {
	engine := d.Engine
	svc := &auth.Service{
		Store:   engine.Store(),
		Tokens:  d.Tokens,
		Revoker: d.Revoker,
		Logger:  d.Logger,
	}
	authed := auth.JWTMiddleware(d.Tokens, d.Revoker, engine.Store(), d.Logger)
	limited := ratelimit.Middleware(d.Limiter)

	r := app.Group("/api")
	r.Get("/health", func(c *fiber.Ctx) error {
		return api.OK(c, fiber.Map{"status": "ok"})
	})

	// Auth
	a := r.Group("/auth")
	a.Post("/register", limited, auth.RegisterHandler(svc))
	a.Post("/login", limited, auth.LoginHandler(svc))
	a.Post("/logout", authed, auth.LogoutHandler(svc))
	a.Get("/me", authed, auth.MeHandler(svc))

	// Daycares: reads are public, writes need a token.
	// "/mine" is registered before "/:id" so it is not taken as an id.
	dc := r.Group("/daycares")
	dc.Get("", daycare.ListDaycaresHandler(engine))
	dc.Get("/mine", authed, daycare.MyDaycaresHandler(engine))
	dc.Get("/:id", daycare.GetDaycareHandler(engine))
	dc.Get("/:id/reviews", review.ListDaycareReviewsHandler(engine))
	dc.Get("/:id/reviews/stats", review.DaycareStatsHandler(engine))
	dc.Get("/:id/enrollments", authed, enrollment.ListDaycareEnrollmentsHandler(engine))
	dc.Post("", authed, daycare.CreateDaycareHandler(engine))
	dc.Put("/:id", authed, daycare.UpdateDaycareHandler(engine))
	dc.Delete("/:id", authed, daycare.DeleteDaycareHandler(engine))
	dc.Post("/:id/photos", authed, daycare.AddPhotoHandler(engine))
	dc.Delete("/:id/photos/:photoId", authed, daycare.RemovePhotoHandler(engine))

	// Children
	ch := r.Group("/children", authed)
	ch.Get("", child.ListChildrenHandler(engine))
	ch.Get("/:id", child.GetChildHandler(engine))
	ch.Post("", auth.RequireRole(models.RoleParent, models.RoleMother, models.RoleAdmin), child.CreateChildHandler(engine))
	ch.Put("/:id", child.UpdateChildHandler(engine))
	ch.Delete("/:id", child.DeleteChildHandler(engine))

	// Enrollments
	en := r.Group("/enrollments", authed)
	en.Get("", enrollment.ListMyEnrollmentsHandler(engine))
	en.Post("", enrollment.CreateEnrollmentHandler(engine))
	en.Put("/:id/status", enrollment.DecideEnrollmentHandler(engine))
	en.Delete("/:id", enrollment.DeleteEnrollmentHandler(engine))

	// Reviews
	rv := r.Group("/reviews", authed)
	rv.Post("", review.CreateReviewHandler(engine))
	rv.Put("/:id", review.UpdateReviewHandler(engine))
	rv.Delete("/:id", review.DeleteReviewHandler(engine))

	// Own account
	us := r.Group("/users", authed)
	us.Get("/profile", user.GetProfileHandler(engine))
	us.Put("/profile", user.UpdateProfileHandler(engine))
	us.Delete("/profile", user.DeleteAccountHandler(engine))
	us.Post("/become-manager", user.BecomeManagerHandler(engine, d.Tokens))

	// Admin
	ad := r.Group("/admin", authed, auth.RequireRole(models.RoleAdmin))
	ad.Get("/stats", admin.StatsHandler(engine))
	ad.Get("/users", admin.ListUsersHandler(engine))
	ad.Delete("/users/:id", admin.DeleteUserHandler(engine))
	ad.Put("/users/:id/role", admin.ChangeRoleHandler(engine))
	ad.Get("/daycares", admin.ListDaycaresHandler(engine))
	ad.Get("/reviews", admin.ListReviewsHandler(engine))
	ad.Get("/audit-logs", admin.ListAuditLogsHandler(engine))
	ad.Get("/audit-logs/export", admin.ExportAuditLogsHandler(engine))
}
