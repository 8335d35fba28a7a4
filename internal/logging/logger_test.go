package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "test", "warn")

	l.Debug(context.Background(), "hidden")
	l.Info(context.Background(), "hidden")
	l.Warn(context.Background(), "shown", "k", "v")
	l.Err(context.Background(), "also shown")

	got := lines(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "shown", got[0]["msg"])
	assert.Equal(t, "warn", got[0]["level"])
	assert.Equal(t, "v", got[0]["k"])
	assert.Equal(t, "test", got[0]["component"])
	assert.Equal(t, "error", got[1]["level"])
}

func TestLogger_RequestID(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "test", "debug")

	ctx := WithRequestID(context.Background(), "abc-123")
	l.Debug(ctx, "with id")

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "abc-123", got[0]["request_id"])
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("INFO"))
	assert.True(t, ValidLevel("error"))
	assert.False(t, ValidLevel("verbose"))
}
