package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yourusername/lyrics-catalog/internal/models"
)

type personTable struct {
	name       string
	songColumn string
}

// Table and column names are interpolated into SQL, so they only ever come
// from this map.
var personTables = map[models.PersonKind]personTable{
	models.KindArtist:   {name: "artists", songColumn: "artist_id"},
	models.KindComposer: {name: "composers", songColumn: "composer_id"},
}

func personTableFor(kind models.PersonKind) (personTable, error) {
	t, ok := personTables[kind]
	if !ok {
		return personTable{}, fmt.Errorf("unknown person kind %q", kind)
	}
	return t, nil
}

func personSelect(t personTable) string {
	return fmt.Sprintf(`
		SELECT p.id, p.name, p.slug, p.bio, p.image_url, p.social_links, p.created_at,
		       (SELECT COUNT(*) FROM songs s WHERE s.%s = p.id) AS song_count
		FROM %s p`, t.songColumn, t.name)
}

func scanPerson(row scanner) (models.Person, error) {
	var p models.Person
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Bio, &p.ImageURL, &p.SocialLinks, &p.CreatedAt, &p.SongCount)
	return p, err
}

func (db *DB) queryPeople(ctx context.Context, query string, args ...any) ([]models.Person, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error getting people: %w", err)
	}
	defer rows.Close()

	people := []models.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// ListPeople returns one page of artists or composers ordered by name.
// A non-empty q filters by name.
func (db *DB) ListPeople(ctx context.Context, kind models.PersonKind, q string, page, pageSize int) (models.Page[models.Person], error) {
	t, err := personTableFor(kind)
	if err != nil {
		return models.Page[models.Person]{}, err
	}

	where := ""
	var args []any
	if q != "" {
		where = ` WHERE p.name ILIKE $1 ESCAPE '\'`
		args = append(args, containsPattern(q))
	}

	var items []models.Person
	total, err := paginate(ctx,
		func(ctx context.Context) (int64, error) {
			return countRows(ctx, db, "SELECT COUNT(*) FROM "+t.name+" p"+where, args...)
		},
		func(ctx context.Context, limit, offset int) error {
			n := len(args)
			query := personSelect(t) + where +
				fmt.Sprintf(" ORDER BY p.name, p.id LIMIT $%d OFFSET $%d", n+1, n+2)
			people, err := db.queryPeople(ctx, query, append(append([]any{}, args...), limit, offset)...)
			items = people
			return err
		},
		page, pageSize)
	if err != nil {
		return models.Page[models.Person]{}, err
	}

	return models.Page[models.Person]{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: models.TotalPages(total, pageSize),
	}, nil
}

func (db *DB) GetPersonBySlug(ctx context.Context, kind models.PersonKind, slug string) (*models.Person, error) {
	return db.getPerson(ctx, kind, "p.slug = $1", slug)
}

func (db *DB) GetPersonByID(ctx context.Context, kind models.PersonKind, id int64) (*models.Person, error) {
	return db.getPerson(ctx, kind, "p.id = $1", id)
}

func (db *DB) getPerson(ctx context.Context, kind models.PersonKind, cond string, arg any) (*models.Person, error) {
	t, err := personTableFor(kind)
	if err != nil {
		return nil, err
	}
	p, err := scanPerson(db.QueryRowContext(ctx, personSelect(t)+" WHERE "+cond, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting %s: %w", kind, err)
	}
	return &p, nil
}

// SearchPeople matches q against names. People with more songs come first.
func (db *DB) SearchPeople(ctx context.Context, kind models.PersonKind, q string, limit int) ([]models.Person, error) {
	t, err := personTableFor(kind)
	if err != nil {
		return nil, err
	}
	query := personSelect(t) + `
		WHERE p.name ILIKE $1 ESCAPE '\'
		ORDER BY song_count DESC, p.name
		LIMIT $2`
	return db.queryPeople(ctx, query, containsPattern(q), limit)
}

func (db *DB) CreatePerson(ctx context.Context, kind models.PersonKind, in models.PersonInput) (int64, error) {
	t, err := personTableFor(kind)
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.QueryRowContext(ctx,
		"INSERT INTO "+t.name+" (name, slug, bio, image_url, social_links) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		in.Name, in.Slug, in.Bio, in.ImageURL, in.SocialLinks,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error creating %s: %w", kind, mapWriteError(err))
	}
	return id, nil
}

func (db *DB) UpdatePerson(ctx context.Context, kind models.PersonKind, id int64, in models.PersonInput) (bool, error) {
	t, err := personTableFor(kind)
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx,
		"UPDATE "+t.name+" SET name = $1, slug = $2, bio = $3, image_url = $4, social_links = $5 WHERE id = $6",
		in.Name, in.Slug, in.Bio, in.ImageURL, in.SocialLinks, id,
	)
	if err != nil {
		return false, fmt.Errorf("error updating %s: %w", kind, mapWriteError(err))
	}
	return affected(res)
}

// DeletePerson removes the row. Songs keep existing with a NULL reference.
func (db *DB) DeletePerson(ctx context.Context, kind models.PersonKind, id int64) (bool, error) {
	t, err := personTableFor(kind)
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("error deleting %s: %w", kind, err)
	}
	return affected(res)
}

func (db *DB) PersonSlugTaken(ctx context.Context, kind models.PersonKind, slug string, excludeID int64) (bool, error) {
	t, err := personTableFor(kind)
	if err != nil {
		return false, err
	}
	return existsRow(ctx, db,
		"SELECT EXISTS (SELECT 1 FROM "+t.name+" WHERE slug = $1 AND id <> $2)", slug, excludeID)
}
