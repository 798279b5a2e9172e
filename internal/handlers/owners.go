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

// ListOwners handles GET /api/copyright-owners and its admin twin.
func (h *Handler) ListOwners(c *fiber.Ctx) error {
	page, limit := pagination(c)
	q := validate.SanitizeQuery(c.Query("q"))
	result, err := h.store.ListOwners(c.UserContext(), q, page, limit)
	if err != nil {
		return fmt.Errorf("listing copyright owners: %w", err)
	}
	return c.JSON(listEnvelope("copyright_owners", result))
}

// GetOwner handles GET /api/copyright-owner/:slug
func (h *Handler) GetOwner(c *fiber.Ctx) error {
	slug := strings.TrimSpace(c.Params("slug"))
	if slug == "" {
		return fail(c, fiber.StatusBadRequest, "Slug is required")
	}

	ctx := c.UserContext()
	owner, err := h.store.GetOwnerBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("getting copyright owner %q: %w", slug, err)
	}
	if owner == nil {
		return fail(c, fiber.StatusNotFound, "Copyright owner not found")
	}

	songs, err := h.store.SongsByOwner(ctx, owner.ID)
	if err != nil {
		return fmt.Errorf("listing songs for copyright owner %d: %w", owner.ID, err)
	}

	setCache(c, CacheDetail)
	return c.JSON(fiber.Map{"copyright_owner": owner, "songs": songs})
}

func (h *Handler) AdminGetOwner(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid copyright owner ID")
	}
	owner, err := h.store.GetOwnerByID(c.UserContext(), id)
	if err != nil {
		return fmt.Errorf("getting copyright owner %d: %w", id, err)
	}
	if owner == nil {
		return fail(c, fiber.StatusNotFound, "Copyright owner not found")
	}
	return c.JSON(fiber.Map{"copyright_owner": owner})
}

func normalizeOwner(in *models.CopyrightOwnerInput) {
	in.Name = strings.TrimSpace(in.Name)
	for _, p := range []**string{
		&in.LegalName, &in.Organization, &in.Territory, &in.Email, &in.Website,
		&in.Address, &in.RegistrationID, &in.Affiliation, &in.Notes,
	} {
		*p = trimPtr(*p)
	}
}

func (h *Handler) CreateOwner(c *fiber.Ctx) error {
	var in models.CopyrightOwnerInput
	if ok, err := decodeInto(c, &in, func() { normalizeOwner(&in) }); !ok {
		return err
	}

	in.Slug = slugFor(in.Slug, in.Name)
	if in.Slug == "" {
		return fail(c, fiber.StatusBadRequest, "Could not derive a slug from the name")
	}

	ctx := c.UserContext()
	taken, err := h.store.OwnerSlugTaken(ctx, in.Slug, 0)
	if err != nil {
		return fmt.Errorf("checking copyright owner slug: %w", err)
	}
	if taken {
		return fail(c, fiber.StatusConflict, "A copyright owner with this slug already exists")
	}

	id, err := h.store.CreateOwner(ctx, in)
	if err != nil {
		return ownerWriteError(c, err)
	}

	h.afterWrite()
	return created(c, id, in.Slug)
}

func (h *Handler) UpdateOwner(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid copyright owner ID")
	}

	var in models.CopyrightOwnerInput
	if ok, err := decodeInto(c, &in, func() { normalizeOwner(&in) }); !ok {
		return err
	}

	in.Slug = slugFor(in.Slug, in.Name)
	if in.Slug == "" {
		return fail(c, fiber.StatusBadRequest, "Could not derive a slug from the name")
	}

	ctx := c.UserContext()
	taken, err := h.store.OwnerSlugTaken(ctx, in.Slug, id)
	if err != nil {
		return fmt.Errorf("checking copyright owner slug: %w", err)
	}
	if taken {
		return fail(c, fiber.StatusConflict, "A different copyright owner with this slug already exists")
	}

	updated, err := h.store.UpdateOwner(ctx, id, in)
	if err != nil {
		return ownerWriteError(c, err)
	}
	if !updated {
		return fail(c, fiber.StatusNotFound, "Copyright owner not found")
	}

	h.afterWrite()
	return c.JSON(fiber.Map{"success": true, "id": id, "slug": in.Slug})
}

func (h *Handler) DeleteOwner(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid copyright owner ID")
	}
	deleted, err := h.store.DeleteOwner(c.UserContext(), id)
	if err != nil {
		return fmt.Errorf("deleting copyright owner %d: %w", id, err)
	}
	if !deleted {
		return fail(c, fiber.StatusNotFound, "Copyright owner not found")
	}
	h.afterWrite()
	return success(c)
}

func ownerWriteError(c *fiber.Ctx, err error) error {
	if errors.Is(err, database.ErrSlugConflict) {
		return fail(c, fiber.StatusConflict, "A different copyright owner with this slug already exists")
	}
	return fmt.Errorf("saving copyright owner: %w", err)
}
