package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// PersonKind distinguishes the two people tables that share a row shape.
type PersonKind string

const (
	KindArtist   PersonKind = "artist"
	KindComposer PersonKind = "composer"
)

// Label is the capitalized singular used in user-facing messages.
func (k PersonKind) Label() string {
	switch k {
	case KindArtist:
		return "Artist"
	case KindComposer:
		return "Composer"
	}
	return "Person"
}

// Plural is the JSON envelope key for lists of this kind.
func (k PersonKind) Plural() string {
	return string(k) + "s"
}

// Person is an artist or a composer.
type Person struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Bio         *string     `json:"bio"`
	ImageURL    *string     `json:"image_url"`
	SocialLinks SocialLinks `json:"social_links"`
	SongCount   int64       `json:"song_count"`
	CreatedAt   time.Time   `json:"created_at"`
}

// PersonInput carries every editable artist/composer field.
type PersonInput struct {
	Name        string      `json:"name" validate:"required"`
	Slug        string      `json:"slug"`
	Bio         *string     `json:"bio"`
	ImageURL    *string     `json:"image_url"`
	SocialLinks SocialLinks `json:"social_links"`
}

// SocialLinks is stored as a JSON-encoded list of URLs in a nullable text column.
type SocialLinks []string

// Value implements driver.Valuer. An empty list is stored as NULL.
func (s SocialLinks) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *SocialLinks) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("social_links: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	var links []string
	if err := json.Unmarshal(raw, &links); err != nil {
		return fmt.Errorf("social_links: %w", err)
	}
	*s = links
	return nil
}
