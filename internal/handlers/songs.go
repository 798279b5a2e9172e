package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/yourusername/lyrics-catalog/internal/database"
	"github.com/yourusername/lyrics-catalog/internal/metrics"
	"github.com/yourusername/lyrics-catalog/internal/models"
	"github.com/yourusername/lyrics-catalog/internal/validate"
	"golang.org/x/sync/errgroup"
)

const (
	defaultSearchLimit  = 30
	peopleSearchLimit   = 10
	defaultPopularLimit = 10
)

// ListSongs handles GET /api/songs. Out-of-range paging values are clamped.
func (h *Handler) ListSongs(c *fiber.Ctx) error {
	page, limit := pagination(c)
	filter := models.SongFilter{Category: validate.SanitizeQuery(c.Query("category"))}

	result, err := h.store.ListSongs(c.UserContext(), filter, page, limit)
	if err != nil {
		return fmt.Errorf("listing songs: %w", err)
	}
	return c.JSON(listEnvelope("songs", result))
}

// GetSong handles GET /api/song/:slug
func (h *Handler) GetSong(c *fiber.Ctx) error {
	slug := strings.TrimSpace(c.Params("slug"))
	if slug == "" {
		return fail(c, fiber.StatusBadRequest, "Slug is required")
	}

	song, err := h.store.GetSongBySlug(c.UserContext(), slug)
	if err != nil {
		return fmt.Errorf("getting song %q: %w", slug, err)
	}
	if song == nil {
		return fail(c, fiber.StatusNotFound, "Song not found")
	}

	setCache(c, CacheDetail)
	return c.JSON(fiber.Map{"song": song})
}

// Search handles GET /api/search. Songs, people and owners are looked up
// concurrently.
func (h *Handler) Search(c *fiber.Ctx) error {
	q := validate.SanitizeQuery(c.Query("q"))
	if q == "" {
		return fail(c, fiber.StatusBadRequest, "Search query is required")
	}
	limit := intQuery(c, "limit", defaultSearchLimit, 1, maxPageSize)

	var (
		songs     []models.Song
		artists   []models.Person
		composers []models.Person
		owners    []models.CopyrightOwner
	)
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() (err error) {
		songs, err = h.store.SearchSongs(ctx, q, limit)
		return err
	})
	g.Go(func() (err error) {
		artists, err = h.store.SearchPeople(ctx, models.KindArtist, q, peopleSearchLimit)
		return err
	})
	g.Go(func() (err error) {
		composers, err = h.store.SearchPeople(ctx, models.KindComposer, q, peopleSearchLimit)
		return err
	})
	g.Go(func() (err error) {
		owners, err = h.store.SearchOwners(ctx, q, peopleSearchLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("searching %q: %w", q, err)
	}

	return c.JSON(fiber.Map{
		"query":            q,
		"songs":            songs,
		"artists":          artists,
		"composers":        composers,
		"copyright_owners": owners,
	})
}

// SearchLyrics handles GET /api/search/lyrics using the full-text index.
func (h *Handler) SearchLyrics(c *fiber.Ctx) error {
	if h.index == nil {
		return fail(c, fiber.StatusServiceUnavailable, "Lyrics search is not enabled")
	}
	q := validate.SanitizeQuery(c.Query("q"))
	if q == "" {
		return fail(c, fiber.StatusBadRequest, "Search query is required")
	}
	limit := intQuery(c, "limit", defaultSearchLimit, 1, maxPageSize)
	category := validate.SanitizeQuery(c.Query("category"))

	result, err := h.index.Search(c.UserContext(), q, category, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("q", q).Msg("lyrics search failed")
		return fail(c, fiber.StatusBadGateway, "Lyrics search is unavailable")
	}
	return c.JSON(result)
}

// Categories handles GET /api/categories
func (h *Handler) Categories(c *fiber.Ctx) error {
	categories, err := h.store.Categories(c.UserContext())
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}
	setCache(c, CacheCategories)
	return c.JSON(fiber.Map{"categories": categories})
}

// PopularSongs handles GET /api/popular
func (h *Handler) PopularSongs(c *fiber.Ctx) error {
	limit := intQuery(c, "limit", defaultPopularLimit, 1, maxPageSize)
	songs, err := h.store.PopularSongs(c.UserContext(), limit)
	if err != nil {
		return fmt.Errorf("listing popular songs: %w", err)
	}
	return c.JSON(fiber.Map{"songs": songs})
}

// IncrementView handles POST /api/view/:slug. The limiter is per process, so
// the response says so.
func (h *Handler) IncrementView(c *fiber.Ctx) error {
	slug := strings.TrimSpace(c.Params("slug"))
	if slug == "" {
		return fail(c, fiber.StatusBadRequest, "Slug is required")
	}

	c.Set("X-RateLimit-Scope", "instance")
	if !h.views.CheckAndRecord(slug, h.clientIP(c)) {
		metrics.ViewOutcomes.WithLabelValues("limited").Inc()
		return fail(c, fiber.StatusTooManyRequests, "View already counted recently")
	}

	ok, err := h.store.IncrementViews(c.UserContext(), slug)
	if err != nil {
		return fmt.Errorf("incrementing views for %q: %w", slug, err)
	}
	if !ok {
		metrics.ViewOutcomes.WithLabelValues("not_found").Inc()
		return fail(c, fiber.StatusNotFound, "Song not found")
	}

	metrics.ViewOutcomes.WithLabelValues("counted").Inc()
	return c.JSON(fiber.Map{"success": true, "slug": slug})
}

// AdminListSongs handles GET /api/admin/songs with optional q and category.
func (h *Handler) AdminListSongs(c *fiber.Ctx) error {
	page, limit := pagination(c)
	filter := models.SongFilter{
		Category: validate.SanitizeQuery(c.Query("category")),
		Query:    validate.SanitizeQuery(c.Query("q")),
	}
	result, err := h.store.ListSongs(c.UserContext(), filter, page, limit)
	if err != nil {
		return fmt.Errorf("listing songs: %w", err)
	}
	return c.JSON(listEnvelope("songs", result))
}

// AdminGetSong handles GET /api/admin/song/:id
func (h *Handler) AdminGetSong(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid song ID")
	}
	song, err := h.store.GetSongByID(c.UserContext(), id)
	if err != nil {
		return fmt.Errorf("getting song %d: %w", id, err)
	}
	if song == nil {
		return fail(c, fiber.StatusNotFound, "Song not found")
	}
	return c.JSON(fiber.Map{"song": song})
}

func normalizeSong(in *models.SongInput) {
	in.Title = strings.TrimSpace(in.Title)
	if strings.TrimSpace(in.Lyrics) == "" {
		in.Lyrics = ""
	}
	in.Category = trimPtr(in.Category)
}

// CreateSong handles POST /api/admin/songs
func (h *Handler) CreateSong(c *fiber.Ctx) error {
	var in models.SongInput
	if ok, err := decodeInto(c, &in, func() { normalizeSong(&in) }); !ok {
		return err
	}

	in.Slug = slugFor(in.Slug, in.Title)
	if in.Slug == "" {
		return fail(c, fiber.StatusBadRequest, "Could not derive a slug from the title")
	}

	ctx := c.UserContext()
	taken, err := h.store.SongSlugTaken(ctx, in.Slug, 0)
	if err != nil {
		return fmt.Errorf("checking song slug: %w", err)
	}
	if taken {
		return fail(c, fiber.StatusConflict, "A song with this slug already exists")
	}

	id, err := h.store.CreateSong(ctx, in)
	if err != nil {
		return h.songWriteError(c, err)
	}

	h.logger.Info().Int64("song_id", id).Str("slug", in.Slug).Msg("song created")
	h.afterSongWrite(ctx, id, false)
	return created(c, id, in.Slug)
}

// UpdateSong handles PUT /api/admin/song/:id. All editable fields are replaced.
func (h *Handler) UpdateSong(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid song ID")
	}

	var in models.SongInput
	if ok, err := decodeInto(c, &in, func() { normalizeSong(&in) }); !ok {
		return err
	}

	in.Slug = slugFor(in.Slug, in.Title)
	if in.Slug == "" {
		return fail(c, fiber.StatusBadRequest, "Could not derive a slug from the title")
	}

	ctx := c.UserContext()
	taken, err := h.store.SongSlugTaken(ctx, in.Slug, id)
	if err != nil {
		return fmt.Errorf("checking song slug: %w", err)
	}
	if taken {
		return fail(c, fiber.StatusConflict, "A different song with this slug already exists")
	}

	updated, err := h.store.UpdateSong(ctx, id, in)
	if err != nil {
		return h.songWriteError(c, err)
	}
	if !updated {
		return fail(c, fiber.StatusNotFound, "Song not found")
	}

	h.afterSongWrite(ctx, id, false)
	return c.JSON(fiber.Map{"success": true, "id": id, "slug": in.Slug})
}

// DeleteSong handles DELETE /api/admin/song/:id
func (h *Handler) DeleteSong(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid song ID")
	}
	deleted, err := h.store.DeleteSong(c.UserContext(), id)
	if err != nil {
		return fmt.Errorf("deleting song %d: %w", id, err)
	}
	if !deleted {
		return fail(c, fiber.StatusNotFound, "Song not found")
	}
	h.afterSongWrite(c.UserContext(), id, true)
	return success(c)
}

func (h *Handler) songWriteError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, database.ErrSlugConflict):
		return fail(c, fiber.StatusConflict, "A different song with this slug already exists")
	case errors.Is(err, database.ErrMissingReference):
		return fail(c, fiber.StatusBadRequest, "Referenced artist, composer or copyright owner does not exist")
	}
	return fmt.Errorf("saving song: %w", err)
}
