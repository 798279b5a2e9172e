package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/yourusername/lyrics-catalog/internal/models"
)

const songColumns = `
	s.id, s.title, s.slug, s.category, s.views, s.created_at,
	s.artist_id, s.composer_id, s.copyright_owner_id,
	a.name, a.slug, c.name, c.slug, o.name, o.slug`

const songJoins = `
	FROM songs s
	LEFT JOIN artists a ON a.id = s.artist_id
	LEFT JOIN composers c ON c.id = s.composer_id
	LEFT JOIN copyright_owners o ON o.id = s.copyright_owner_id`

func scanSong(row scanner, withLyrics bool) (models.Song, error) {
	var s models.Song
	dest := []any{
		&s.ID, &s.Title, &s.Slug, &s.Category, &s.Views, &s.CreatedAt,
		&s.ArtistID, &s.ComposerID, &s.CopyrightOwnerID,
		&s.ArtistName, &s.ArtistSlug, &s.ComposerName, &s.ComposerSlug,
		&s.CopyrightOwnerName, &s.CopyrightOwnerSlug,
	}
	if withLyrics {
		dest = append(dest, &s.Lyrics)
	}
	err := row.Scan(dest...)
	return s, err
}

func (db *DB) querySongs(ctx context.Context, query string, args ...any) ([]models.Song, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error getting songs: %w", err)
	}
	defer rows.Close()

	songs := []models.Song{}
	for rows.Next() {
		song, err := scanSong(rows, false)
		if err != nil {
			return nil, fmt.Errorf("error scanning song: %w", err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating songs: %w", err)
	}
	return songs, nil
}

func songWhere(filter models.SongFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, fmt.Sprintf("s.category = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, containsPattern(filter.Query))
		clauses = append(clauses, fmt.Sprintf(`(s.title ILIKE $%d ESCAPE '\' OR s.slug ILIKE $%d ESCAPE '\')`, len(args), len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListSongs returns one page of songs, newest first.
func (db *DB) ListSongs(ctx context.Context, filter models.SongFilter, page, pageSize int) (models.Page[models.Song], error) {
	where, args := songWhere(filter)

	var items []models.Song
	total, err := paginate(ctx,
		func(ctx context.Context) (int64, error) {
			return countRows(ctx, db, "SELECT COUNT(*) FROM songs s"+where, args...)
		},
		func(ctx context.Context, limit, offset int) error {
			n := len(args)
			query := "SELECT" + songColumns + songJoins + where +
				fmt.Sprintf(" ORDER BY s.created_at DESC, s.id DESC LIMIT $%d OFFSET $%d", n+1, n+2)
			songs, err := db.querySongs(ctx, query, append(append([]any{}, args...), limit, offset)...)
			items = songs
			return err
		},
		page, pageSize)
	if err != nil {
		return models.Page[models.Song]{}, err
	}

	return models.Page[models.Song]{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: models.TotalPages(total, pageSize),
	}, nil
}

// GetSongBySlug returns the song with lyrics, or nil if none matches.
func (db *DB) GetSongBySlug(ctx context.Context, slug string) (*models.Song, error) {
	return db.getSong(ctx, "s.slug = $1", slug)
}

// GetSongByID returns the song with lyrics, or nil if none matches.
func (db *DB) GetSongByID(ctx context.Context, id int64) (*models.Song, error) {
	return db.getSong(ctx, "s.id = $1", id)
}

func (db *DB) getSong(ctx context.Context, cond string, arg any) (*models.Song, error) {
	query := "SELECT" + songColumns + ", s.lyrics" + songJoins + " WHERE " + cond
	song, err := scanSong(db.QueryRowContext(ctx, query, arg), true)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting song: %w", err)
	}
	return &song, nil
}

// SearchSongs matches q against song titles and artist names, most viewed first.
func (db *DB) SearchSongs(ctx context.Context, q string, limit int) ([]models.Song, error) {
	query := "SELECT" + songColumns + songJoins + `
		WHERE s.title ILIKE $1 ESCAPE '\' OR a.name ILIKE $1 ESCAPE '\'
		ORDER BY s.views DESC, s.title
		LIMIT $2`
	return db.querySongs(ctx, query, containsPattern(q), limit)
}

func (db *DB) PopularSongs(ctx context.Context, limit int) ([]models.Song, error) {
	query := "SELECT" + songColumns + songJoins + " ORDER BY s.views DESC, s.id DESC LIMIT $1"
	return db.querySongs(ctx, query, limit)
}

// SongsByPerson lists the songs credited to an artist or composer.
func (db *DB) SongsByPerson(ctx context.Context, kind models.PersonKind, personID int64) ([]models.Song, error) {
	t, err := personTableFor(kind)
	if err != nil {
		return nil, err
	}
	query := "SELECT" + songColumns + songJoins +
		" WHERE s." + t.songColumn + " = $1 ORDER BY s.views DESC, s.title"
	return db.querySongs(ctx, query, personID)
}

func (db *DB) SongsByOwner(ctx context.Context, ownerID int64) ([]models.Song, error) {
	query := "SELECT" + songColumns + songJoins +
		" WHERE s.copyright_owner_id = $1 ORDER BY s.views DESC, s.title"
	return db.querySongs(ctx, query, ownerID)
}

// Categories returns the distinct non-empty category labels, sorted.
func (db *DB) Categories(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT category FROM songs
		WHERE category IS NOT NULL AND category <> ''
		ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("error getting categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("error scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateSong inserts a new song and returns its id
func (db *DB) CreateSong(ctx context.Context, in models.SongInput) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, `
		INSERT INTO songs (title, slug, lyrics, category, artist_id, composer_id, copyright_owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		in.Title, in.Slug, in.Lyrics, in.Category, in.ArtistID, in.ComposerID, in.CopyrightOwnerID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error creating song: %w", mapWriteError(err))
	}
	return id, nil
}

// UpdateSong replaces every editable field. Views and created_at are untouched.
func (db *DB) UpdateSong(ctx context.Context, id int64, in models.SongInput) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE songs
		SET title = $1, slug = $2, lyrics = $3, category = $4,
		    artist_id = $5, composer_id = $6, copyright_owner_id = $7
		WHERE id = $8`,
		in.Title, in.Slug, in.Lyrics, in.Category, in.ArtistID, in.ComposerID, in.CopyrightOwnerID, id,
	)
	if err != nil {
		return false, fmt.Errorf("error updating song: %w", mapWriteError(err))
	}
	return affected(res)
}

// DeleteSong deletes a song by ID
func (db *DB) DeleteSong(ctx context.Context, id int64) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM songs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("error deleting song: %w", err)
	}
	return affected(res)
}

// IncrementViews adds exactly one view in a single statement.
func (db *DB) IncrementViews(ctx context.Context, slug string) (bool, error) {
	res, err := db.ExecContext(ctx, `UPDATE songs SET views = views + 1 WHERE slug = $1`, slug)
	if err != nil {
		return false, fmt.Errorf("error incrementing views: %w", err)
	}
	return affected(res)
}

// SongSlugTaken reports whether another song (id != excludeID) uses slug.
// Pass 0 to check against every song.
func (db *DB) SongSlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	return existsRow(ctx, db, `SELECT EXISTS (SELECT 1 FROM songs WHERE slug = $1 AND id <> $2)`, slug, excludeID)
}

// AllSongsForIndex returns every song with lyrics, for rebuilding the search index.
func (db *DB) AllSongsForIndex(ctx context.Context) ([]models.Song, error) {
	rows, err := db.QueryContext(ctx, "SELECT"+songColumns+", s.lyrics"+songJoins+" ORDER BY s.id")
	if err != nil {
		return nil, fmt.Errorf("error getting songs for index: %w", err)
	}
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		song, err := scanSong(rows, true)
		if err != nil {
			return nil, fmt.Errorf("error scanning song: %w", err)
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}
