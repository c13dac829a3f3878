package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesAreGooseAnnotated(t *testing.T) {
	entries, err := fs.ReadDir(Files(), ".")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var schema strings.Builder
	for _, e := range entries {
		body, err := fs.ReadFile(Files(), e.Name())
		require.NoError(t, err)
		text := string(body)
		assert.Contains(t, text, "-- +goose Up", e.Name())
		assert.Contains(t, text, "-- +goose Down", e.Name())
		schema.WriteString(text)
	}

	for _, table := range []string{"developers", "developer_activity", "ai_insights", "outbox", "outbox_dlq", "event_log"} {
		assert.Contains(t, schema.String(), "CREATE TABLE "+table+" (")
	}
	assert.Contains(t, schema.String(), "ON DELETE CASCADE")
}
