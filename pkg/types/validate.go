package types

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// disallowedNameChars covers C0 and C1 controls, zero-width and directional
// marks, bidirectional overrides, invisible format controls, and the
// zero-width no-break space.
var disallowedNameChars = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0000, Hi: 0x001f, Stride: 1},
		{Lo: 0x007f, Hi: 0x009f, Stride: 1},
		{Lo: 0x200b, Hi: 0x200f, Stride: 1},
		{Lo: 0x202a, Hi: 0x202e, Stride: 1},
		{Lo: 0x2060, Hi: 0x2064, Stride: 1},
		{Lo: 0xfeff, Hi: 0xfeff, Stride: 1},
	},
	LatinOffset: 2,
}

// ValidName reports whether s is a usable generator name or domain: valid
// UTF-8, non-empty, and free of disallowed characters.
func ValidName(s string) bool {
	if s == "" || !utf8.ValidString(s) {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.Is(disallowedNameChars, r)
	}) < 0
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// structValidator returns the shared validator with the pubname rule and
// JSON field names registered.
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("pubname", func(fl validator.FieldLevel) bool {
			return ValidName(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Validate checks the record's identity and generator fields. Failures on
// gen_name or gen_domain wrap ErrInvalidName; a nil ID wraps ErrInvalidID.
func (r *Record) Validate() error {
	err := structValidator().Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := verrs[0]
	switch fe.Field() {
	case "id":
		return fmt.Errorf("%w: id must not be nil", ErrInvalidID)
	default:
		if fe.Tag() == "required" {
			return fmt.Errorf("%w: %s must be a non-empty string", ErrInvalidName, fe.Field())
		}
		return fmt.Errorf("%w: %s contains invalid characters: %q", ErrInvalidName, fe.Field(), fe.Value())
	}
}
