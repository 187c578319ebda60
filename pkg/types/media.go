package types

import (
	"fmt"
	"mime"
	"strings"
	"time"
)

// StandardMajorTypes are the media type majors registered on first attach.
var StandardMajorTypes = []string{
	"application", "audio", "font", "image", "message",
	"model", "multipart", "text", "video",
}

// MajorText is the only major type that may carry a charset.
const MajorText = "text"

// MediaTypeMajor is a top-level media type such as "text".
type MediaTypeMajor struct {
	Name string `json:"name"`
}

// MediaTypeMinor is a subtype registered under a major type.
type MediaTypeMinor struct {
	Major string `json:"major"`
	Minor string `json:"minor"`
}

// Full returns the "major/minor" form.
func (m MediaTypeMinor) Full() string {
	return m.Major + "/" + m.Minor
}

// Charset is a canonical character set name.
type Charset struct {
	Name      string `json:"name"`
	IsUnicode bool   `json:"is_unicode"`
	Notes     string `json:"notes,omitempty"`
}

// CharsetAlias maps an alternative spelling to a canonical charset.
type CharsetAlias struct {
	Alias     string `json:"alias"`
	Canonical string `json:"canonical"`
}

// TransferEncoding describes how data bytes are encoded at rest.
type TransferEncoding struct {
	Name            string `json:"name"`
	IsBase64Variant bool   `json:"is_base64_variant"`
	Notes           string `json:"notes,omitempty"`
}

// MediaObject is a typed blob. Nil pointers are NULL columns. TimestampMs is
// maintained by the database: set on insert and refreshed on every update.
type MediaObject struct {
	RowID            int64   `json:"rowid"`
	TypeMajor        *string `json:"type_major"`
	TypeMinor        *string `json:"type_minor"`
	Charset          *string `json:"charset"`
	TransferEncoding *string `json:"transfer_encoding"`
	Data             []byte  `json:"data"`
	TimestampMs      int64   `json:"timestamp_ms"`
}

// Validate mirrors the media_object table checks so callers get a typed
// error before the write reaches the database.
func (m *MediaObject) Validate() error {
	if m.TypeMajor == nil && m.TypeMinor != nil {
		return ErrMinorWithoutMajor
	}
	if m.Charset != nil && (m.TypeMajor == nil || *m.TypeMajor != MajorText) {
		return ErrCharsetNotText
	}
	return nil
}

// MediaType returns "major/minor", "major", or "" when untyped.
func (m *MediaObject) MediaType() string {
	switch {
	case m.TypeMajor == nil:
		return ""
	case m.TypeMinor == nil:
		return *m.TypeMajor
	default:
		return *m.TypeMajor + "/" + *m.TypeMinor
	}
}

// Timestamp returns TimestampMs as a UTC time.
func (m *MediaObject) Timestamp() time.Time {
	return time.UnixMilli(m.TimestampMs).UTC()
}

// ParseMediaType splits a media type such as "text/plain; charset=UTF-8" into
// lower-cased major, minor and charset. Minor and charset may be empty.
func ParseMediaType(s string) (major, minor, charset string, err error) {
	mt, params, err := mime.ParseMediaType(s)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %q: %v", ErrInvalidMediaType, s, err)
	}
	major, minor, _ = strings.Cut(mt, "/")
	if major == "" {
		return "", "", "", fmt.Errorf("%w: %q", ErrInvalidMediaType, s)
	}
	return major, minor, strings.ToLower(params["charset"]), nil
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
