package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Test Song", "test-song"},
		{"  Hello,   World!  ", "hello-world"},
		{"snake_case_name", "snake-case-name"},
		{"--already--hyphenated--", "already-hyphenated"},
		{"Tabs\tand\nnewlines", "tabs-and-newlines"},
		{"Don't Stop Me Now", "dont-stop-me-now"},
		{"AC/DC", "acdc"},
		{"123 Go", "123-go"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := GenerateSlug(tt.in); got != tt.want {
			t.Errorf("GenerateSlug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateSlug_Idempotent(t *testing.T) {
	// every printable ASCII character, alone and embedded in text
	var inputs []string
	for c := 0x20; c < 0x7f; c++ {
		ch := string(rune(c))
		inputs = append(inputs, ch, "a"+ch+"b", ch+ch+" x "+ch)
	}
	inputs = append(inputs, "Mixed CASE -- with _ all \t kinds   of  spacing", " - _ - ")

	for _, in := range inputs {
		once := GenerateSlug(in)
		if twice := GenerateSlug(once); twice != once {
			t.Errorf("GenerateSlug not idempotent for %q: %q then %q", in, once, twice)
		}
		if strings.HasPrefix(once, "-") || strings.HasSuffix(once, "-") || strings.Contains(once, "--") {
			t.Errorf("GenerateSlug(%q) = %q has stray hyphens", in, once)
		}
	}
}

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<script>", "script"},
		{`  "quoted" 'single'; `, "quoted single"},
		{"plain", "plain"},
		{"   ", ""},
		{"<>;", ""},
	}
	for _, tt := range tests {
		if got := SanitizeQuery(tt.in); got != tt.want {
			t.Errorf("SanitizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeQuery_Truncates(t *testing.T) {
	long := strings.Repeat("é", MaxQueryLength+20)
	got := SanitizeQuery(long)
	if n := len([]rune(got)); n != MaxQueryLength {
		t.Fatalf("expected %d characters, got %d", MaxQueryLength, n)
	}
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"user@example.com", true},
		{"a@b.co", true},
		{"first.last+tag@sub.domain.org", true},
		{"no-at-sign.com", false},
		{"user@nodot", false},
		{"two@@example.com", false},
		{"spaces in@example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidEmail(tt.in); got != tt.want {
			t.Errorf("ValidEmail(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

type payload struct {
	Title  string `json:"title" validate:"required"`
	Lyrics string `json:"lyrics" validate:"required"`
	Email  string `json:"email" validate:"omitempty,emailshape"`
}

func TestStruct(t *testing.T) {
	if err := Struct(&payload{Title: "t", Lyrics: "l"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := Struct(&payload{Email: "bad"})
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if !verr.HasMissing("title") || !verr.HasMissing("lyrics") {
		t.Errorf("expected title and lyrics missing, got %v", verr.Missing)
	}
	if len(verr.Invalid) != 1 || verr.Invalid[0] != "email" {
		t.Errorf("expected email invalid, got %v", verr.Invalid)
	}
	if !strings.Contains(verr.Error(), "title, lyrics") {
		t.Errorf("message should list missing fields, got %q", verr.Error())
	}
}
