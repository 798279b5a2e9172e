package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/yourusername/lyrics-catalog/internal/challenge"
	"github.com/yourusername/lyrics-catalog/internal/metrics"
	"github.com/yourusername/lyrics-catalog/internal/models"
)

// verifyChallenge writes the 403/502 response itself and returns false when
// the submission must stop.
func (h *Handler) verifyChallenge(c *fiber.Ctx, token string) (bool, error) {
	err := h.verifier.Verify(c.UserContext(), token, h.clientIP(c))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, challenge.ErrRejected):
		return false, fail(c, fiber.StatusForbidden, "Bot verification failed")
	case errors.Is(err, challenge.ErrUnavailable):
		return false, fail(c, fiber.StatusBadGateway, "Bot verification service unavailable")
	}
	return false, fmt.Errorf("verifying challenge: %w", err)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func normalizeSubmission(name, email, message *string) {
	*name = strings.TrimSpace(*name)
	*email = strings.TrimSpace(*email)
	*message = strings.TrimSpace(*message)
}

// SubmitReport handles POST /api/report. When the slug resolves, the song's
// current title and artist are copied into the report.
func (h *Handler) SubmitReport(c *fiber.Ctx) error {
	var req models.ReportRequest
	if ok, err := decodeInto(c, &req, func() { normalizeSubmission(&req.Name, &req.Email, &req.Message) }); !ok {
		return err
	}
	if ok, err := h.verifyChallenge(c, req.Token); !ok {
		return err
	}

	ctx := c.UserContext()
	report := models.Report{
		SongSlug:      optional(req.SongSlug),
		SongTitle:     optional(req.SongTitle),
		SongArtist:    optional(req.SongArtist),
		ReporterName:  req.Name,
		ReporterEmail: req.Email,
		Message:       req.Message,
		Status:        models.ReportPending,
	}
	if report.SongSlug != nil {
		song, err := h.store.GetSongBySlug(ctx, *report.SongSlug)
		if err != nil {
			return fmt.Errorf("resolving reported song: %w", err)
		}
		if song != nil {
			title := song.Title
			report.SongTitle = &title
			if song.ArtistName != nil {
				report.SongArtist = song.ArtistName
			}
		}
	}

	id, err := h.store.CreateReport(ctx, report)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}

	metrics.Submissions.WithLabelValues("report").Inc()
	h.logger.Info().Int64("report_id", id).Msg("report submitted")
	return created(c, id, "")
}

// SubmitContact handles POST /api/contact
func (h *Handler) SubmitContact(c *fiber.Ctx) error {
	var req models.ContactRequest
	if ok, err := decodeInto(c, &req, func() { normalizeSubmission(&req.Name, &req.Email, &req.Message) }); !ok {
		return err
	}
	if ok, err := h.verifyChallenge(c, req.Token); !ok {
		return err
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = models.DefaultContactSubject
	}

	id, err := h.store.CreateContact(c.UserContext(), models.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: subject,
		Message: req.Message,
	})
	if err != nil {
		return fmt.Errorf("creating contact message: %w", err)
	}

	metrics.Submissions.WithLabelValues("contact").Inc()
	h.logger.Info().Int64("contact_id", id).Msg("contact message received")
	return created(c, id, "")
}

// ListReports handles GET /api/admin/reports?status=
func (h *Handler) ListReports(c *fiber.Ctx) error {
	page, limit := pagination(c)
	status := models.ReportStatus(strings.TrimSpace(c.Query("status")))
	if status != "" && !status.Valid() {
		return fail(c, fiber.StatusBadRequest, invalidStatusMessage())
	}

	result, err := h.store.ListReports(c.UserContext(), status, page, limit)
	if err != nil {
		return fmt.Errorf("listing reports: %w", err)
	}
	return c.JSON(listEnvelope("reports", result))
}

// AdminGetReport handles GET /api/admin/report/:id
func (h *Handler) AdminGetReport(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid report ID")
	}
	report, err := h.store.GetReport(c.UserContext(), id)
	if err != nil {
		return fmt.Errorf("getting report %d: %w", id, err)
	}
	if report == nil {
		return fail(c, fiber.StatusNotFound, "Report not found")
	}
	return c.JSON(fiber.Map{"report": report})
}

// UpdateReportStatus handles PUT /api/admin/report/:id
func (h *Handler) UpdateReportStatus(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid report ID")
	}

	var req models.ReportStatusRequest
	if ok, err := decodeInto(c, &req, func() { req.Status = strings.TrimSpace(req.Status) }); !ok {
		return err
	}
	status := models.ReportStatus(req.Status)
	if !status.Valid() {
		return fail(c, fiber.StatusBadRequest, invalidStatusMessage())
	}

	updated, err := h.store.UpdateReportStatus(c.UserContext(), id, status)
	if err != nil {
		return fmt.Errorf("updating report %d: %w", id, err)
	}
	if !updated {
		return fail(c, fiber.StatusNotFound, "Report not found")
	}
	return c.JSON(fiber.Map{"success": true, "id": id, "status": status})
}

func (h *Handler) DeleteReport(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid report ID")
	}
	deleted, err := h.store.DeleteReport(c.UserContext(), id)
	if err != nil {
		return fmt.Errorf("deleting report %d: %w", id, err)
	}
	if !deleted {
		return fail(c, fiber.StatusNotFound, "Report not found")
	}
	return success(c)
}

func (h *Handler) ListContacts(c *fiber.Ctx) error {
	page, limit := pagination(c)
	result, err := h.store.ListContacts(c.UserContext(), page, limit)
	if err != nil {
		return fmt.Errorf("listing contact messages: %w", err)
	}
	return c.JSON(listEnvelope("contacts", result))
}

func (h *Handler) DeleteContact(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid contact ID")
	}
	deleted, err := h.store.DeleteContact(c.UserContext(), id)
	if err != nil {
		return fmt.Errorf("deleting contact message %d: %w", id, err)
	}
	if !deleted {
		return fail(c, fiber.StatusNotFound, "Contact message not found")
	}
	return success(c)
}

func invalidStatusMessage() string {
	names := make([]string, len(models.ReportStatuses))
	for i, s := range models.ReportStatuses {
		names[i] = string(s)
	}
	return "Invalid status. Must be one of: " + strings.Join(names, ", ")
}
