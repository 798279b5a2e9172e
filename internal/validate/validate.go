// Package validate holds the input hygiene helpers shared by every handler:
// search sanitizing, slug generation, the email shape check and struct
// validation of request payloads.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MaxQueryLength is the longest search/filter input passed to the database.
const MaxQueryLength = 100

var (
	queryStrip   = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", ";", "")
	slugInvalid  = regexp.MustCompile(`[^a-z0-9_\s-]`)
	slugSpaces   = regexp.MustCompile(`[\s_]+`)
	slugHyphens  = regexp.MustCompile(`-+`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// SanitizeQuery trims s, strips < > " ' ; and truncates it to MaxQueryLength characters.
func SanitizeQuery(s string) string {
	s = queryStrip.Replace(strings.TrimSpace(s))
	if utf8.RuneCountInString(s) > MaxQueryLength {
		s = string([]rune(s)[:MaxQueryLength])
	}
	return strings.TrimSpace(s)
}

// GenerateSlug turns a display name into a lowercase, hyphen separated slug.
// It is deterministic and GenerateSlug(GenerateSlug(s)) == GenerateSlug(s).
func GenerateSlug(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ValidEmail is a permissive shape check: one @ and a dot somewhere after it.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("emailshape", func(fl validator.FieldLevel) bool {
			return ValidEmail(fl.Field().String())
		})
	})
	return validate
}

// Error describes the fields of a payload that failed validation.
type Error struct {
	Missing []string
	Invalid []string
}

func (e *Error) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("Missing required fields: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("Invalid fields: %s", strings.Join(e.Invalid, ", ")))
	}
	if len(parts) == 0 {
		return "Validation failed"
	}
	return strings.Join(parts, "; ")
}

// HasMissing reports whether field was reported as missing.
func (e *Error) HasMissing(field string) bool {
	for _, f := range e.Missing {
		if f == field {
			return true
		}
	}
	return false
}

// Struct checks the validate tags of v. Field failures come back as *Error
// keyed by JSON field name.
func Struct(v any) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &Error{}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			out.Missing = append(out.Missing, fe.Field())
		} else {
			out.Invalid = append(out.Invalid, fe.Field())
		}
	}
	return out
}
