package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/yourusername/lyrics-catalog/internal/backup"
)

// Stats handles GET /api/admin/stats
func (h *Handler) Stats(c *fiber.Ctx) error {
	stats, err := h.store.Stats(c.UserContext())
	if err != nil {
		return fmt.Errorf("loading stats: %w", err)
	}
	return c.JSON(stats)
}

// ReindexAll rebuilds the lyrics index from the database.
func (h *Handler) ReindexAll(c *fiber.Ctx) error {
	if h.index == nil {
		return fail(c, fiber.StatusServiceUnavailable, "Lyrics search is not enabled")
	}

	ctx := c.UserContext()
	songs, err := h.store.AllSongsForIndex(ctx)
	if err != nil {
		return fmt.Errorf("loading songs for reindex: %w", err)
	}

	if err := h.index.ReindexAll(ctx, songs); err != nil {
		h.logger.Error().Err(err).Msg("Error reindexing")
		return fail(c, fiber.StatusBadGateway, "Failed to reindex")
	}

	return c.JSON(fiber.Map{"success": true, "indexed": len(songs)})
}

func (h *Handler) GetBackups(c *fiber.Ctx) error {
	if h.backups == nil {
		return fail(c, fiber.StatusServiceUnavailable, "Backups are not enabled")
	}
	backups, err := h.backups.ListBackups()
	if err != nil {
		return fmt.Errorf("listing backups: %w", err)
	}
	return c.JSON(fiber.Map{"backups": backups})
}

func (h *Handler) CreateBackup(c *fiber.Ctx) error {
	if h.backups == nil {
		return fail(c, fiber.StatusServiceUnavailable, "Backups are not enabled")
	}
	info, err := h.backups.CreateBackup(c.UserContext(), backup.TriggerManual)
	if err != nil {
		h.logger.Error().Err(err).Msg("Error creating backup")
		return fail(c, fiber.StatusInternalServerError, "Failed to create backup")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "backup": info})
}
