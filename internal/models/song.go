package models

import "time"

// Song is the list/search projection of a song row. Joined display fields
// come along so callers never need a second lookup for names.
type Song struct {
	ID                 int64     `json:"id"`
	Title              string    `json:"title"`
	Slug               string    `json:"slug"`
	Lyrics             *string   `json:"lyrics,omitempty"`
	Category           *string   `json:"category"`
	Views              int64     `json:"views"`
	CreatedAt          time.Time `json:"created_at"`
	ArtistID           *int64    `json:"artist_id"`
	ComposerID         *int64    `json:"composer_id"`
	CopyrightOwnerID   *int64    `json:"copyright_owner_id"`
	ArtistName         *string   `json:"artist_name"`
	ArtistSlug         *string   `json:"artist_slug"`
	ComposerName       *string   `json:"composer_name"`
	ComposerSlug       *string   `json:"composer_slug"`
	CopyrightOwnerName *string   `json:"copyright_owner_name"`
	CopyrightOwnerSlug *string   `json:"copyright_owner_slug"`
}

// SongInput carries every editable song field. Updates replace all of them.
type SongInput struct {
	Title            string  `json:"title" validate:"required"`
	Slug             string  `json:"slug"`
	Lyrics           string  `json:"lyrics" validate:"required"`
	Category         *string `json:"category"`
	ArtistID         *int64  `json:"artist_id" validate:"omitempty,min=1"`
	ComposerID       *int64  `json:"composer_id" validate:"omitempty,min=1"`
	CopyrightOwnerID *int64  `json:"copyright_owner_id" validate:"omitempty,min=1"`
}

// SongFilter narrows ListSongs. Empty fields are ignored.
type SongFilter struct {
	Category string
	Query    string
}

// Stats summarizes catalog size for the admin dashboard.
type Stats struct {
	Songs           int64 `json:"songs"`
	Artists         int64 `json:"artists"`
	Composers       int64 `json:"composers"`
	CopyrightOwners int64 `json:"copyright_owners"`
	PendingReports  int64 `json:"pending_reports"`
	Contacts        int64 `json:"contacts"`
	TotalViews      int64 `json:"total_views"`
}
