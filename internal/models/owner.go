package models

import "time"

// CopyrightOwner holds the rights holder of a song plus optional legal metadata.
type CopyrightOwner struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	LegalName      *string   `json:"legal_name"`
	Organization   *string   `json:"organization"`
	Territory      *string   `json:"territory"`
	Email          *string   `json:"email"`
	Website        *string   `json:"website"`
	Address        *string   `json:"address"`
	RegistrationID *string   `json:"registration_id"`
	Affiliation    *string   `json:"affiliation"`
	Notes          *string   `json:"notes"`
	SongCount      int64     `json:"song_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// CopyrightOwnerInput carries every editable copyright owner field.
type CopyrightOwnerInput struct {
	Name           string  `json:"name" validate:"required"`
	Slug           string  `json:"slug"`
	LegalName      *string `json:"legal_name"`
	Organization   *string `json:"organization"`
	Territory      *string `json:"territory"`
	Email          *string `json:"email" validate:"omitempty,emailshape"`
	Website        *string `json:"website"`
	Address        *string `json:"address"`
	RegistrationID *string `json:"registration_id"`
	Affiliation    *string `json:"affiliation"`
	Notes          *string `json:"notes"`
}
