package handlers

import (
	"bytes"
	"errors"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/yourusername/lyrics-catalog/internal/models"
	"github.com/yourusername/lyrics-catalog/internal/validate"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50

	// Cache-Control values. Default is applied by the server for public GETs.
	CacheDefault    = "public, max-age=60"
	CacheDetail     = "public, max-age=300"
	CacheCategories = "public, max-age=600"
	CacheNone       = "no-store"
)

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func setCache(c *fiber.Ctx, value string) {
	c.Set(fiber.HeaderCacheControl, value)
}

// intQuery parses a query parameter, returning def when it is absent or
// not a number, then clamps to [min, max].
func intQuery(c *fiber.Ctx, key string, def, min, max int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		n = def
	}
	if n < min {
		n = min
	}
	if max > 0 && n > max {
		n = max
	}
	return n
}

func pagination(c *fiber.Ctx) (page, limit int) {
	return intQuery(c, "page", 1, 1, 0), intQuery(c, "limit", defaultPageSize, 1, maxPageSize)
}

// pathID reads the numeric :id parameter.
func pathID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) clientIP(c *fiber.Ctx) string {
	if ip := strings.TrimSpace(c.Get(h.clientIPHeader)); ip != "" {
		return ip
	}
	return "unknown"
}

// decode parses a JSON body and runs struct validation. On failure it has
// already written the 400 response and returns false.
func decode(c *fiber.Ctx, v any) (bool, error) {
	return decodeInto(c, v, nil)
}

// decodeInto is decode with a normalize step run between parsing and
// validation. Fields the payload type does not declare are rejected.
func decodeInto(c *fiber.Ctx, v any, normalize func()) (bool, error) {
	body := c.Body()
	if len(body) == 0 {
		return false, fail(c, fiber.StatusBadRequest, "Request body is required")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if strings.Contains(err.Error(), "unknown field") {
			return false, fail(c, fiber.StatusBadRequest, "Unknown field in request body")
		}
		return false, fail(c, fiber.StatusBadRequest, "Invalid JSON body")
	}
	if normalize != nil {
		normalize()
	}
	if err := validate.Struct(v); err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			return false, fail(c, fiber.StatusBadRequest, verr.Error())
		}
		return false, err
	}
	return true, nil
}

func listEnvelope[T any](key string, p models.Page[T]) fiber.Map {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	return fiber.Map{
		key:          items,
		"total":      p.Total,
		"page":       p.Page,
		"totalPages": p.TotalPages,
	}
}

func created(c *fiber.Ctx, id int64, slug string) error {
	body := fiber.Map{"success": true, "id": id}
	if slug != "" {
		body["slug"] = slug
	}
	return c.Status(fiber.StatusCreated).JSON(body)
}

func success(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true})
}

// slugFor picks the explicit slug when given, else derives one from name.
// Both are normalized.
func slugFor(explicit, name string) string {
	if s := validate.GenerateSlug(explicit); s != "" {
		return s
	}
	return validate.GenerateSlug(name)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
