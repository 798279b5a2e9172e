package models

import "time"

// ReportStatus is the moderation state of a report.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportReviewed  ReportStatus = "reviewed"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// ReportStatuses lists every accepted status in display order.
var ReportStatuses = []ReportStatus{ReportPending, ReportReviewed, ReportResolved, ReportDismissed}

// Valid reports whether s is one of the known statuses.
func (s ReportStatus) Valid() bool {
	for _, known := range ReportStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Report is a moderation report. Song fields are copied at submission time
// and are not kept in sync with the catalog.
type Report struct {
	ID            int64        `json:"id"`
	SongSlug      *string      `json:"song_slug"`
	SongTitle     *string      `json:"song_title"`
	SongArtist    *string      `json:"song_artist"`
	ReporterName  string       `json:"reporter_name"`
	ReporterEmail string       `json:"reporter_email"`
	Message       string       `json:"message"`
	Status        ReportStatus `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ReportRequest is the public submission payload.
type ReportRequest struct {
	SongSlug   string `json:"song_slug"`
	SongTitle  string `json:"song_title"`
	SongArtist string `json:"song_artist"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,emailshape"`
	Message    string `json:"message" validate:"required"`
	Token      string `json:"turnstile_token" validate:"required"`
}

// ReportStatusRequest is the admin triage payload.
type ReportStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ContactMessage is a message sent through the public contact form.
type ContactMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactRequest is the public contact form payload.
type ContactRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,emailshape"`
	Subject string `json:"subject"`
	Message string `json:"message" validate:"required"`
	Token   string `json:"turnstile_token" validate:"required"`
}

// DefaultContactSubject is used when a contact message has no subject.
const DefaultContactSubject = "General"
