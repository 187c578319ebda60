package sqlite

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyMediaSchema(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, VerifyMediaSchema(&out, zerolog.Nop()))

	report := out.String()
	assert.Contains(t, report, "SQLite version: ")
	assert.Contains(t, report, "STRICT tables: true")
	assert.Contains(t, report, "[TEST] inserted text/plain and image/png rows")
	assert.Contains(t, report, "[TEST] generated column full = text/plain")
	for _, check := range verifyRejections {
		assert.Contains(t, report, "[TEST] rejected "+check.name)
	}
	assert.Contains(t, report, "[TEST] trigger refreshed timestamp")
	assert.Contains(t, report, "All checks passed.")
}

func TestVerifyMediaSchema_Repeatable(t *testing.T) {
	// Each run uses its own private database.
	for range 2 {
		var out bytes.Buffer
		require.NoError(t, VerifyMediaSchema(&out, zerolog.Nop()))
	}
}
