package server

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/yourusername/lyrics-catalog/internal/handlers"
	"github.com/yourusername/lyrics-catalog/internal/logging"
	"github.com/yourusername/lyrics-catalog/internal/metrics"
	"github.com/yourusername/lyrics-catalog/internal/models"
	"github.com/yourusername/lyrics-catalog/internal/static"
)

type Config struct {
	StaticDir        string
	AdminToken       string
	AllowOrigins     []string
	ClientIPHeader   string
	SubmitRateMax    int
	SubmitRateWindow time.Duration
}

// New builds the fiber app with every route registered.
func New(h *handlers.Handler, cfg Config) *fiber.App {
	logger := logging.For("server")

	app := fiber.New(fiber.Config{
		AppName:               "Lyrics Catalog",
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          errorHandler(logger),
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(requestLogger(logger))
	app.Use(metrics.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowOrigins, ","),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(compress.New())
	app.Use(etag.New())
	app.Use(cacheControl)
	app.Use(jsonCharset)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	registerPublic(api, h, cfg)

	admin := api.Group("/admin", noStore, adminGuard(cfg.AdminToken))
	registerAdmin(admin, h)

	api.Use(apiNotFound)

	if cfg.StaticDir != "" {
		app.Use(static.Handler(cfg.StaticDir))
	}

	return app
}

// Exact paths are registered before parameter paths.
func registerPublic(api fiber.Router, h *handlers.Handler, cfg Config) {
	api.Get("/health", h.HealthCheck)

	api.Get("/songs", h.ListSongs)
	api.Get("/search/lyrics", h.SearchLyrics)
	api.Get("/search", h.Search)
	api.Get("/categories", h.Categories)
	api.Get("/popular", h.PopularSongs)
	api.Get("/song/:slug?", h.GetSong)
	api.Post("/view/:slug?", h.IncrementView)

	api.Get("/artists", h.ListPeople(models.KindArtist))
	api.Get("/artist/:slug?", h.GetPerson(models.KindArtist))
	api.Get("/composers", h.ListPeople(models.KindComposer))
	api.Get("/composer/:slug?", h.GetPerson(models.KindComposer))
	api.Get("/copyright-owners", h.ListOwners)
	api.Get("/copyright-owner/:slug?", h.GetOwner)

	submit := submissionLimiter(cfg)
	api.Post("/report", submit, h.SubmitReport)
	api.Post("/contact", submit, h.SubmitContact)
}

func registerAdmin(admin fiber.Router, h *handlers.Handler) {
	admin.Get("/stats", h.Stats)

	admin.Get("/songs", h.AdminListSongs)
	admin.Post("/songs", h.CreateSong)
	admin.Get("/song/:id", withID(h.AdminGetSong))
	admin.Put("/song/:id", withID(h.UpdateSong))
	admin.Delete("/song/:id", withID(h.DeleteSong))

	for _, kind := range []models.PersonKind{models.KindArtist, models.KindComposer} {
		admin.Get("/"+kind.Plural(), h.ListPeople(kind))
		admin.Post("/"+kind.Plural(), h.CreatePerson(kind))
		admin.Get("/"+string(kind)+"/:id", withID(h.AdminGetPerson(kind)))
		admin.Put("/"+string(kind)+"/:id", withID(h.UpdatePerson(kind)))
		admin.Delete("/"+string(kind)+"/:id", withID(h.DeletePerson(kind)))
	}

	admin.Get("/copyright-owners", h.ListOwners)
	admin.Post("/copyright-owners", h.CreateOwner)
	admin.Get("/copyright-owner/:id", withID(h.AdminGetOwner))
	admin.Put("/copyright-owner/:id", withID(h.UpdateOwner))
	admin.Delete("/copyright-owner/:id", withID(h.DeleteOwner))

	admin.Get("/reports", h.ListReports)
	admin.Get("/report/:id", withID(h.AdminGetReport))
	admin.Put("/report/:id", withID(h.UpdateReportStatus))
	admin.Delete("/report/:id", withID(h.DeleteReport))

	admin.Get("/contacts", h.ListContacts)
	admin.Delete("/contact/:id", withID(h.DeleteContact))

	admin.Post("/reindex", h.ReindexAll)
	admin.Get("/backups", h.GetBackups)
	admin.Post("/backups", h.CreateBackup)
}

// withID only lets all-digit :id segments reach next. Anything else
// continues down the stack as if the route had not matched.
func withID(next fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !allDigits(c.Params("id")) {
			return c.Next()
		}
		return next(c)
	}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// cacheControl sets the default directive before the handler runs; handlers
// override it for detail and category responses.
func cacheControl(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodGet {
		c.Set(fiber.HeaderCacheControl, handlers.CacheDefault)
	} else {
		c.Set(fiber.HeaderCacheControl, handlers.CacheNone)
	}
	return c.Next()
}

// noStore is mounted on the admin group, so it applies to whatever path
// casing the router matched.
func noStore(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, handlers.CacheNone)
	return c.Next()
}

// apiNotFound answers unmatched /api paths. The group prefix also matches
// paths like /apiary.html, which belong to the static handler.
func apiNotFound(c *fiber.Ctx) error {
	path := strings.ToLower(c.Path())
	if path != "/api" && !strings.HasPrefix(path, "/api/") {
		return c.Next()
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
}

// jsonCharset spells out the charset on JSON responses.
func jsonCharset(c *fiber.Ctx) error {
	err := c.Next()
	if string(c.Response().Header.ContentType()) == fiber.MIMEApplicationJSON {
		c.Response().Header.SetContentType(fiber.MIMEApplicationJSONCharsetUTF8)
	}
	return err
}

// adminGuard requires "Authorization: Bearer <token>" when token is set.
// An empty token leaves the admin routes open.
func adminGuard(token string) fiber.Handler {
	if token == "" {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	want := []byte("Bearer " + token)
	return func(c *fiber.Ctx) error {
		if subtle.ConstantTimeCompare([]byte(c.Get(fiber.HeaderAuthorization)), want) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}
		return c.Next()
	}
}

func submissionLimiter(cfg Config) fiber.Handler {
	header := cfg.ClientIPHeader
	return limiter.New(limiter.Config{
		Max:        cfg.SubmitRateMax,
		Expiration: cfg.SubmitRateWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			if ip := strings.TrimSpace(c.Get(header)); ip != "" {
				return ip
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many submissions, please try again later"})
		},
	})
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		c.Set(fiber.HeaderCacheControl, handlers.CacheNone)

		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message}, fiber.MIMEApplicationJSONCharsetUTF8)
		}

		logger.Error().
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Interface("request_id", c.Locals("requestid")).
			Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"}, fiber.MIMEApplicationJSONCharsetUTF8)
	}
}

func requestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		default:
			event = logger.Info()
		}
		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("route", c.Route().Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Interface("request_id", c.Locals("requestid")).
			Msg("request")
		return err
	}
}
