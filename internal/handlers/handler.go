package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/yourusername/lyrics-catalog/internal/backup"
	"github.com/yourusername/lyrics-catalog/internal/challenge"
	"github.com/yourusername/lyrics-catalog/internal/logging"
	"github.com/yourusername/lyrics-catalog/internal/models"
	"github.com/yourusername/lyrics-catalog/internal/ratelimit"
)

// Store is the persistence surface the handlers need. *database.DB
// satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (models.Stats, error)

	ListSongs(ctx context.Context, filter models.SongFilter, page, pageSize int) (models.Page[models.Song], error)
	GetSongBySlug(ctx context.Context, slug string) (*models.Song, error)
	GetSongByID(ctx context.Context, id int64) (*models.Song, error)
	SearchSongs(ctx context.Context, q string, limit int) ([]models.Song, error)
	PopularSongs(ctx context.Context, limit int) ([]models.Song, error)
	SongsByPerson(ctx context.Context, kind models.PersonKind, personID int64) ([]models.Song, error)
	SongsByOwner(ctx context.Context, ownerID int64) ([]models.Song, error)
	Categories(ctx context.Context) ([]string, error)
	CreateSong(ctx context.Context, in models.SongInput) (int64, error)
	UpdateSong(ctx context.Context, id int64, in models.SongInput) (bool, error)
	DeleteSong(ctx context.Context, id int64) (bool, error)
	IncrementViews(ctx context.Context, slug string) (bool, error)
	SongSlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error)
	AllSongsForIndex(ctx context.Context) ([]models.Song, error)

	ListPeople(ctx context.Context, kind models.PersonKind, q string, page, pageSize int) (models.Page[models.Person], error)
	GetPersonBySlug(ctx context.Context, kind models.PersonKind, slug string) (*models.Person, error)
	GetPersonByID(ctx context.Context, kind models.PersonKind, id int64) (*models.Person, error)
	SearchPeople(ctx context.Context, kind models.PersonKind, q string, limit int) ([]models.Person, error)
	CreatePerson(ctx context.Context, kind models.PersonKind, in models.PersonInput) (int64, error)
	UpdatePerson(ctx context.Context, kind models.PersonKind, id int64, in models.PersonInput) (bool, error)
	DeletePerson(ctx context.Context, kind models.PersonKind, id int64) (bool, error)
	PersonSlugTaken(ctx context.Context, kind models.PersonKind, slug string, excludeID int64) (bool, error)

	ListOwners(ctx context.Context, q string, page, pageSize int) (models.Page[models.CopyrightOwner], error)
	GetOwnerBySlug(ctx context.Context, slug string) (*models.CopyrightOwner, error)
	GetOwnerByID(ctx context.Context, id int64) (*models.CopyrightOwner, error)
	SearchOwners(ctx context.Context, q string, limit int) ([]models.CopyrightOwner, error)
	CreateOwner(ctx context.Context, in models.CopyrightOwnerInput) (int64, error)
	UpdateOwner(ctx context.Context, id int64, in models.CopyrightOwnerInput) (bool, error)
	DeleteOwner(ctx context.Context, id int64) (bool, error)
	OwnerSlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error)

	CreateReport(ctx context.Context, r models.Report) (int64, error)
	ListReports(ctx context.Context, status models.ReportStatus, page, pageSize int) (models.Page[models.Report], error)
	GetReport(ctx context.Context, id int64) (*models.Report, error)
	UpdateReportStatus(ctx context.Context, id int64, status models.ReportStatus) (bool, error)
	DeleteReport(ctx context.Context, id int64) (bool, error)
	CreateContact(ctx context.Context, m models.ContactMessage) (int64, error)
	ListContacts(ctx context.Context, page, pageSize int) (models.Page[models.ContactMessage], error)
	DeleteContact(ctx context.Context, id int64) (bool, error)
}

// LyricsIndex is the optional full-text index. *typesense.Client satisfies it.
type LyricsIndex interface {
	Upsert(ctx context.Context, song models.Song) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, query, category string, limit int) (*models.LyricsSearchResult, error)
	ReindexAll(ctx context.Context, songs []models.Song) error
}

// Backups is the optional backup manager. *backup.Manager satisfies it.
type Backups interface {
	RecordMutation()
	CreateBackup(ctx context.Context, backupType string) (backup.Info, error)
	ListBackups() ([]backup.Info, error)
}

type Handler struct {
	store          Store
	views          ratelimit.RateGate
	verifier       challenge.Verifier
	index          LyricsIndex
	backups        Backups
	clientIPHeader string
	logger         zerolog.Logger
}

type Option func(*Handler)

func WithIndex(idx LyricsIndex) Option {
	return func(h *Handler) { h.index = idx }
}

func WithBackups(b Backups) Option {
	return func(h *Handler) { h.backups = b }
}

// WithClientIPHeader names the trusted proxy header carrying the client
// address. Defaults to CF-Connecting-IP.
func WithClientIPHeader(name string) Option {
	return func(h *Handler) {
		if name != "" {
			h.clientIPHeader = name
		}
	}
}

func New(store Store, views ratelimit.RateGate, verifier challenge.Verifier, opts ...Option) *Handler {
	h := &Handler{
		store:          store,
		views:          views,
		verifier:       verifier,
		clientIPHeader: "CF-Connecting-IP",
		logger:         logging.For("handlers"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthCheck reports database reachability.
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	status := fiber.Map{
		"status":       "healthy",
		"database":     "ok",
		"search_index": h.index != nil,
		"backups":      h.backups != nil,
	}
	if err := h.store.Ping(c.UserContext()); err != nil {
		h.logger.Error().Err(err).Msg("health check: database unreachable")
		status["status"] = "unhealthy"
		status["database"] = "unreachable"
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}
	return c.JSON(status)
}

// afterSongWrite keeps the search index and backup counter in step with a
// catalog write. Index failures are logged, never returned.
func (h *Handler) afterSongWrite(ctx context.Context, id int64, deleted bool) {
	if h.backups != nil {
		h.backups.RecordMutation()
	}
	if h.index == nil {
		return
	}
	if deleted {
		if err := h.index.Delete(ctx, id); err != nil {
			h.logger.Warn().Err(err).Int64("song_id", id).Msg("Error removing song from search index")
		}
		return
	}
	h.upsertSong(ctx, id)
}

func (h *Handler) upsertSong(ctx context.Context, id int64) {
	song, err := h.store.GetSongByID(ctx, id)
	if err != nil || song == nil {
		h.logger.Warn().Err(err).Int64("song_id", id).Msg("Error loading song for indexing")
		return
	}
	if err := h.index.Upsert(ctx, *song); err != nil {
		h.logger.Warn().Err(err).Int64("song_id", id).Msg("Error indexing song")
	}
}

// creditedSongs returns the ids of the songs credited to a person. Index
// documents carry the person's name and slug, so these need re-indexing
// whenever the person changes. Nil when there is no index.
func (h *Handler) creditedSongs(ctx context.Context, kind models.PersonKind, personID int64) []int64 {
	if h.index == nil {
		return nil
	}
	songs, err := h.store.SongsByPerson(ctx, kind, personID)
	if err != nil {
		h.logger.Warn().Err(err).Str("kind", string(kind)).Int64("id", personID).Msg("Error listing songs to re-index")
		return nil
	}
	ids := make([]int64, len(songs))
	for i, s := range songs {
		ids[i] = s.ID
	}
	return ids
}

// reindexSongs re-reads each song and upserts its index document.
func (h *Handler) reindexSongs(ctx context.Context, ids []int64) {
	if h.index == nil {
		return
	}
	for _, id := range ids {
		h.upsertSong(ctx, id)
	}
}

func (h *Handler) afterWrite() {
	if h.backups != nil {
		h.backups.RecordMutation()
	}
}
