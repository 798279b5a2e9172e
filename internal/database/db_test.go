package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"amazing", "%amazing%"},
		{"100%", `%100\%%`},
		{"a_b", `%a\_b%`},
		{`c:\x`, `%c:\\x%`},
	}
	for _, tt := range tests {
		if got := containsPattern(tt.in); got != tt.want {
			t.Errorf("containsPattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMapWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique violation", &pq.Error{Code: "23505"}, ErrSlugConflict},
		{"foreign key violation", &pq.Error{Code: "23503"}, ErrMissingReference},
		{"wrapped unique violation", fmt.Errorf("exec: %w", &pq.Error{Code: "23505"}), ErrSlugConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapWriteError(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("mapWriteError() = %v, want %v", got, tt.want)
			}
		})
	}

	other := errors.New("connection refused")
	if got := mapWriteError(other); got != other {
		t.Errorf("unrelated errors must pass through, got %v", got)
	}
}

func TestPersonTableFor(t *testing.T) {
	if _, err := personTableFor("label"); err == nil {
		t.Error("unknown kinds must be rejected")
	}
	tbl, err := personTableFor("composer")
	if err != nil || tbl.name != "composers" || tbl.songColumn != "composer_id" {
		t.Errorf("personTableFor(composer) = %+v, %v", tbl, err)
	}
}
