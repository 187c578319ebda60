package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaObjectValidate(t *testing.T) {
	tests := []struct {
		name    string
		obj     MediaObject
		wantErr error
	}{
		{
			name: "text plain with charset",
			obj:  MediaObject{TypeMajor: StringPtr("text"), TypeMinor: StringPtr("plain"), Charset: StringPtr("utf-8")},
		},
		{
			name: "image png without charset",
			obj:  MediaObject{TypeMajor: StringPtr("image"), TypeMinor: StringPtr("png")},
		},
		{
			name: "untyped blob",
			obj:  MediaObject{Data: []byte{0x01}},
		},
		{
			name: "major only",
			obj:  MediaObject{TypeMajor: StringPtr("application")},
		},
		{
			name:    "minor without major",
			obj:     MediaObject{TypeMinor: StringPtr("plain")},
			wantErr: ErrMinorWithoutMajor,
		},
		{
			name:    "charset on image",
			obj:     MediaObject{TypeMajor: StringPtr("image"), TypeMinor: StringPtr("png"), Charset: StringPtr("utf-8")},
			wantErr: ErrCharsetNotText,
		},
		{
			name:    "charset without type",
			obj:     MediaObject{Charset: StringPtr("utf-8")},
			wantErr: ErrCharsetNotText,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.obj.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMediaObjectMediaType(t *testing.T) {
	assert.Equal(t, "", (&MediaObject{}).MediaType())
	assert.Equal(t, "text", (&MediaObject{TypeMajor: StringPtr("text")}).MediaType())
	assert.Equal(t, "text/plain", (&MediaObject{TypeMajor: StringPtr("text"), TypeMinor: StringPtr("plain")}).MediaType())
	assert.Equal(t, "image/png", MediaTypeMinor{Major: "image", Minor: "png"}.Full())
}

func TestMediaObjectTimestamp(t *testing.T) {
	m := MediaObject{TimestampMs: 1735787045000}
	assert.True(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC).Equal(m.Timestamp()))
}

func TestParseMediaType(t *testing.T) {
	tests := []struct {
		in                            string
		wantMajor, wantMinor, wantCS string
	}{
		{"text/plain", "text", "plain", ""},
		{"text/plain; charset=UTF-8", "text", "plain", "utf-8"},
		{"Image/PNG", "image", "png", ""},
		{"application", "application", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			major, minor, cs, err := ParseMediaType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMajor, major)
			assert.Equal(t, tt.wantMinor, minor)
			assert.Equal(t, tt.wantCS, cs)
		})
	}

	_, _, _, err := ParseMediaType("/plain")
	assert.ErrorIs(t, err, ErrInvalidMediaType)
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	require.NotNil(t, StringPtr("x"))
	assert.Equal(t, "x", *StringPtr("x"))
}
