package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yourusername/lyrics-catalog/internal/models"
)

const ownerSelect = `
	SELECT o.id, o.name, o.slug, o.legal_name, o.organization, o.territory, o.email,
	       o.website, o.address, o.registration_id, o.affiliation, o.notes, o.created_at,
	       (SELECT COUNT(*) FROM songs s WHERE s.copyright_owner_id = o.id) AS song_count
	FROM copyright_owners o`

func scanOwner(row scanner) (models.CopyrightOwner, error) {
	var o models.CopyrightOwner
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.LegalName, &o.Organization, &o.Territory, &o.Email,
		&o.Website, &o.Address, &o.RegistrationID, &o.Affiliation, &o.Notes, &o.CreatedAt, &o.SongCount)
	return o, err
}

func (db *DB) queryOwners(ctx context.Context, query string, args ...any) ([]models.CopyrightOwner, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error getting copyright owners: %w", err)
	}
	defer rows.Close()

	owners := []models.CopyrightOwner{}
	for rows.Next() {
		o, err := scanOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning copyright owner: %w", err)
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

func (db *DB) ListOwners(ctx context.Context, q string, page, pageSize int) (models.Page[models.CopyrightOwner], error) {
	where := ""
	var args []any
	if q != "" {
		where = ` WHERE o.name ILIKE $1 ESCAPE '\' OR o.legal_name ILIKE $1 ESCAPE '\'`
		args = append(args, containsPattern(q))
	}

	var items []models.CopyrightOwner
	total, err := paginate(ctx,
		func(ctx context.Context) (int64, error) {
			return countRows(ctx, db, "SELECT COUNT(*) FROM copyright_owners o"+where, args...)
		},
		func(ctx context.Context, limit, offset int) error {
			n := len(args)
			query := ownerSelect + where +
				fmt.Sprintf(" ORDER BY o.name, o.id LIMIT $%d OFFSET $%d", n+1, n+2)
			owners, err := db.queryOwners(ctx, query, append(append([]any{}, args...), limit, offset)...)
			items = owners
			return err
		},
		page, pageSize)
	if err != nil {
		return models.Page[models.CopyrightOwner]{}, err
	}

	return models.Page[models.CopyrightOwner]{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: models.TotalPages(total, pageSize),
	}, nil
}

func (db *DB) GetOwnerBySlug(ctx context.Context, slug string) (*models.CopyrightOwner, error) {
	return db.getOwner(ctx, "o.slug = $1", slug)
}

func (db *DB) GetOwnerByID(ctx context.Context, id int64) (*models.CopyrightOwner, error) {
	return db.getOwner(ctx, "o.id = $1", id)
}

func (db *DB) getOwner(ctx context.Context, cond string, arg any) (*models.CopyrightOwner, error) {
	o, err := scanOwner(db.QueryRowContext(ctx, ownerSelect+" WHERE "+cond, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting copyright owner: %w", err)
	}
	return &o, nil
}

func (db *DB) SearchOwners(ctx context.Context, q string, limit int) ([]models.CopyrightOwner, error) {
	query := ownerSelect + `
		WHERE o.name ILIKE $1 ESCAPE '\'
		ORDER BY song_count DESC, o.name
		LIMIT $2`
	return db.queryOwners(ctx, query, containsPattern(q), limit)
}

func (db *DB) CreateOwner(ctx context.Context, in models.CopyrightOwnerInput) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, `
		INSERT INTO copyright_owners
			(name, slug, legal_name, organization, territory, email, website, address, registration_id, affiliation, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		in.Name, in.Slug, in.LegalName, in.Organization, in.Territory, in.Email,
		in.Website, in.Address, in.RegistrationID, in.Affiliation, in.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error creating copyright owner: %w", mapWriteError(err))
	}
	return id, nil
}

func (db *DB) UpdateOwner(ctx context.Context, id int64, in models.CopyrightOwnerInput) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE copyright_owners
		SET name = $1, slug = $2, legal_name = $3, organization = $4, territory = $5, email = $6,
		    website = $7, address = $8, registration_id = $9, affiliation = $10, notes = $11
		WHERE id = $12`,
		in.Name, in.Slug, in.LegalName, in.Organization, in.Territory, in.Email,
		in.Website, in.Address, in.RegistrationID, in.Affiliation, in.Notes, id,
	)
	if err != nil {
		return false, fmt.Errorf("error updating copyright owner: %w", mapWriteError(err))
	}
	return affected(res)
}

func (db *DB) DeleteOwner(ctx context.Context, id int64) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM copyright_owners WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("error deleting copyright owner: %w", err)
	}
	return affected(res)
}

func (db *DB) OwnerSlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	return existsRow(ctx, db,
		`SELECT EXISTS (SELECT 1 FROM copyright_owners WHERE slug = $1 AND id <> $2)`, slug, excludeID)
}
