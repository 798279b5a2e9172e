// Package static serves the front-end assets for every path the API does not
// claim. Entity pages are single HTML shells that read the slug from the URL.
package static

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
)

const notFoundPage = "/404.html"

// shells maps a path prefix to the document served for every path below it.
var shells = []struct {
	prefix string
	file   string
}{
	{"/song/", "/song.html"},
	{"/artist/", "/artist.html"},
	{"/composer/", "/composer.html"},
	{"/copyright-owner/", "/copyright-owner.html"},
}

// Rewrite returns the asset path to look up for a request path.
func Rewrite(path string) string {
	for _, s := range shells {
		if strings.HasPrefix(path, s.prefix) {
			return s.file
		}
	}
	return path
}

// Handler serves files from root, falling back to 404.html and then to a
// plain-text 404.
func Handler(root string) fiber.Handler {
	fsys := http.Dir(root)
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet && c.Method() != fiber.MethodHead {
			return c.Status(fiber.StatusNotFound).SendString("Not Found")
		}

		err := filesystem.SendFile(c, fsys, Rewrite(c.Path()))
		if err == nil {
			return nil
		}
		if errors.Is(err, fiber.ErrNotFound) || errors.Is(err, fiber.ErrForbidden) {
			return notFound(c, fsys)
		}
		return err
	}
}

func notFound(c *fiber.Ctx, fsys http.FileSystem) error {
	if err := filesystem.SendFile(c, fsys, notFoundPage); err != nil {
		c.Response().ResetBody()
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(fiber.StatusNotFound).SendString("404 Not Found")
	}
	c.Status(fiber.StatusNotFound)
	return nil
}
