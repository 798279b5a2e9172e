package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/yourusername/lyrics-catalog/internal/database"
	"github.com/yourusername/lyrics-catalog/internal/models"
	"github.com/yourusername/lyrics-catalog/internal/validate"
)

// Artists and composers share one set of handlers, bound to a kind.

func (h *Handler) ListPeople(kind models.PersonKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, limit := pagination(c)
		q := validate.SanitizeQuery(c.Query("q"))
		result, err := h.store.ListPeople(c.UserContext(), kind, q, page, limit)
		if err != nil {
			return fmt.Errorf("listing %s: %w", kind.Plural(), err)
		}
		return c.JSON(listEnvelope(kind.Plural(), result))
	}
}

// GetPerson returns the person plus their songs.
func (h *Handler) GetPerson(kind models.PersonKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := strings.TrimSpace(c.Params("slug"))
		if slug == "" {
			return fail(c, fiber.StatusBadRequest, "Slug is required")
		}

		ctx := c.UserContext()
		person, err := h.store.GetPersonBySlug(ctx, kind, slug)
		if err != nil {
			return fmt.Errorf("getting %s %q: %w", kind, slug, err)
		}
		if person == nil {
			return fail(c, fiber.StatusNotFound, kind.Label()+" not found")
		}

		songs, err := h.store.SongsByPerson(ctx, kind, person.ID)
		if err != nil {
			return fmt.Errorf("listing songs for %s %d: %w", kind, person.ID, err)
		}

		setCache(c, CacheDetail)
		return c.JSON(fiber.Map{string(kind): person, "songs": songs})
	}
}

func (h *Handler) AdminGetPerson(kind models.PersonKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return fail(c, fiber.StatusBadRequest, "Invalid "+string(kind)+" ID")
		}
		person, err := h.store.GetPersonByID(c.UserContext(), kind, id)
		if err != nil {
			return fmt.Errorf("getting %s %d: %w", kind, id, err)
		}
		if person == nil {
			return fail(c, fiber.StatusNotFound, kind.Label()+" not found")
		}
		return c.JSON(fiber.Map{string(kind): person})
	}
}

func normalizePerson(in *models.PersonInput) {
	in.Name = strings.TrimSpace(in.Name)
	in.Bio = trimPtr(in.Bio)
	in.ImageURL = trimPtr(in.ImageURL)

	links := in.SocialLinks[:0]
	for _, l := range in.SocialLinks {
		if l = strings.TrimSpace(l); l != "" {
			links = append(links, l)
		}
	}
	in.SocialLinks = links
}

func (h *Handler) CreatePerson(kind models.PersonKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in models.PersonInput
		if ok, err := decodeInto(c, &in, func() { normalizePerson(&in) }); !ok {
			return err
		}

		in.Slug = slugFor(in.Slug, in.Name)
		if in.Slug == "" {
			return fail(c, fiber.StatusBadRequest, "Could not derive a slug from the name")
		}

		ctx := c.UserContext()
		taken, err := h.store.PersonSlugTaken(ctx, kind, in.Slug, 0)
		if err != nil {
			return fmt.Errorf("checking %s slug: %w", kind, err)
		}
		if taken {
			return fail(c, fiber.StatusConflict, withArticle(kind)+" with this slug already exists")
		}

		id, err := h.store.CreatePerson(ctx, kind, in)
		if err != nil {
			return h.personWriteError(c, kind, err)
		}

		h.logger.Info().Str("kind", string(kind)).Int64("id", id).Str("slug", in.Slug).Msg("person created")
		h.afterWrite()
		return created(c, id, in.Slug)
	}
}

func (h *Handler) UpdatePerson(kind models.PersonKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return fail(c, fiber.StatusBadRequest, "Invalid "+string(kind)+" ID")
		}

		var in models.PersonInput
		if ok, err := decodeInto(c, &in, func() { normalizePerson(&in) }); !ok {
			return err
		}

		in.Slug = slugFor(in.Slug, in.Name)
		if in.Slug == "" {
			return fail(c, fiber.StatusBadRequest, "Could not derive a slug from the name")
		}

		ctx := c.UserContext()
		taken, err := h.store.PersonSlugTaken(ctx, kind, in.Slug, id)
		if err != nil {
			return fmt.Errorf("checking %s slug: %w", kind, err)
		}
		if taken {
			return fail(c, fiber.StatusConflict, "A different "+string(kind)+" with this slug already exists")
		}

		updated, err := h.store.UpdatePerson(ctx, kind, id, in)
		if err != nil {
			return h.personWriteError(c, kind, err)
		}
		if !updated {
			return fail(c, fiber.StatusNotFound, kind.Label()+" not found")
		}

		h.afterWrite()
		h.reindexSongs(ctx, h.creditedSongs(ctx, kind, id))
		return c.JSON(fiber.Map{"success": true, "id": id, "slug": in.Slug})
	}
}

// DeletePerson leaves the person's songs in place with the reference cleared.
func (h *Handler) DeletePerson(kind models.PersonKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return fail(c, fiber.StatusBadRequest, "Invalid "+string(kind)+" ID")
		}
		ctx := c.UserContext()
		credited := h.creditedSongs(ctx, kind, id)

		deleted, err := h.store.DeletePerson(ctx, kind, id)
		if err != nil {
			return fmt.Errorf("deleting %s %d: %w", kind, id, err)
		}
		if !deleted {
			return fail(c, fiber.StatusNotFound, kind.Label()+" not found")
		}
		h.afterWrite()
		h.reindexSongs(ctx, credited)
		return success(c)
	}
}

func (h *Handler) personWriteError(c *fiber.Ctx, kind models.PersonKind, err error) error {
	if errors.Is(err, database.ErrSlugConflict) {
		return fail(c, fiber.StatusConflict, "A different "+string(kind)+" with this slug already exists")
	}
	return fmt.Errorf("saving %s: %w", kind, err)
}

func withArticle(kind models.PersonKind) string {
	if kind == models.KindArtist {
		return "An artist"
	}
	return "A " + string(kind)
}
