package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yourusername/lyrics-catalog/internal/models"
)

// CreateReport stores a report with status pending.
func (db *DB) CreateReport(ctx context.Context, r models.Report) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, `
		INSERT INTO reports (song_slug, song_title, song_artist, reporter_name, reporter_email, message, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		r.SongSlug, r.SongTitle, r.SongArtist, r.ReporterName, r.ReporterEmail, r.Message, models.ReportPending,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error creating report: %w", err)
	}
	return id, nil
}

// ListReports returns reports newest first. An empty status lists all of them.
func (db *DB) ListReports(ctx context.Context, status models.ReportStatus, page, pageSize int) (models.Page[models.Report], error) {
	where := ""
	var args []any
	if status != "" {
		where = " WHERE status = $1"
		args = append(args, status)
	}

	var items []models.Report
	total, err := paginate(ctx,
		func(ctx context.Context) (int64, error) {
			return countRows(ctx, db, "SELECT COUNT(*) FROM reports"+where, args...)
		},
		func(ctx context.Context, limit, offset int) error {
			n := len(args)
			query := `SELECT id, song_slug, song_title, song_artist, reporter_name, reporter_email, message, status, created_at
				FROM reports` + where + fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", n+1, n+2)
			rows, err := db.QueryContext(ctx, query, append(append([]any{}, args...), limit, offset)...)
			if err != nil {
				return fmt.Errorf("error getting reports: %w", err)
			}
			defer rows.Close()

			items = []models.Report{}
			for rows.Next() {
				var r models.Report
				if err := rows.Scan(&r.ID, &r.SongSlug, &r.SongTitle, &r.SongArtist, &r.ReporterName,
					&r.ReporterEmail, &r.Message, &r.Status, &r.CreatedAt); err != nil {
					return fmt.Errorf("error scanning report: %w", err)
				}
				items = append(items, r)
			}
			return rows.Err()
		},
		page, pageSize)
	if err != nil {
		return models.Page[models.Report]{}, err
	}

	return models.Page[models.Report]{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: models.TotalPages(total, pageSize),
	}, nil
}

// GetReport returns the report, or nil if none matches.
func (db *DB) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	var r models.Report
	err := db.QueryRowContext(ctx, `
		SELECT id, song_slug, song_title, song_artist, reporter_name, reporter_email, message, status, created_at
		FROM reports WHERE id = $1`, id,
	).Scan(&r.ID, &r.SongSlug, &r.SongTitle, &r.SongArtist, &r.ReporterName,
		&r.ReporterEmail, &r.Message, &r.Status, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting report: %w", err)
	}
	return &r, nil
}

func (db *DB) UpdateReportStatus(ctx context.Context, id int64, status models.ReportStatus) (bool, error) {
	res, err := db.ExecContext(ctx, `UPDATE reports SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return false, fmt.Errorf("error updating report: %w", err)
	}
	return affected(res)
}

func (db *DB) DeleteReport(ctx context.Context, id int64) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("error deleting report: %w", err)
	}
	return affected(res)
}

func (db *DB) CreateContact(ctx context.Context, m models.ContactMessage) (int64, error) {
	subject := m.Subject
	if subject == "" {
		subject = models.DefaultContactSubject
	}
	var id int64
	err := db.QueryRowContext(ctx, `
		INSERT INTO contacts (name, email, subject, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		m.Name, m.Email, subject, m.Message,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error creating contact message: %w", err)
	}
	return id, nil
}

func (db *DB) ListContacts(ctx context.Context, page, pageSize int) (models.Page[models.ContactMessage], error) {
	var items []models.ContactMessage
	total, err := paginate(ctx,
		func(ctx context.Context) (int64, error) {
			return countRows(ctx, db, "SELECT COUNT(*) FROM contacts")
		},
		func(ctx context.Context, limit, offset int) error {
			rows, err := db.QueryContext(ctx, `
				SELECT id, name, email, subject, message, created_at
				FROM contacts
				ORDER BY created_at DESC, id DESC
				LIMIT $1 OFFSET $2`, limit, offset)
			if err != nil {
				return fmt.Errorf("error getting contact messages: %w", err)
			}
			defer rows.Close()

			items = []models.ContactMessage{}
			for rows.Next() {
				var m models.ContactMessage
				if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.CreatedAt); err != nil {
					return fmt.Errorf("error scanning contact message: %w", err)
				}
				items = append(items, m)
			}
			return rows.Err()
		},
		page, pageSize)
	if err != nil {
		return models.Page[models.ContactMessage]{}, err
	}

	return models.Page[models.ContactMessage]{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: models.TotalPages(total, pageSize),
	}, nil
}

func (db *DB) DeleteContact(ctx context.Context, id int64) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("error deleting contact message: %w", err)
	}
	return affected(res)
}

// Stats gathers dashboard counters in one round trip.
func (db *DB) Stats(ctx context.Context) (models.Stats, error) {
	var s models.Stats
	err := db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM songs),
			(SELECT COUNT(*) FROM artists),
			(SELECT COUNT(*) FROM composers),
			(SELECT COUNT(*) FROM copyright_owners),
			(SELECT COUNT(*) FROM reports WHERE status = 'pending'),
			(SELECT COUNT(*) FROM contacts),
			(SELECT COALESCE(SUM(views), 0) FROM songs)`,
	).Scan(&s.Songs, &s.Artists, &s.Composers, &s.CopyrightOwners, &s.PendingReports, &s.Contacts, &s.TotalViews)
	if err != nil {
		return models.Stats{}, fmt.Errorf("error getting stats: %w", err)
	}
	return s, nil
}
