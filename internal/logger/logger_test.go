package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntriesCarryCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	Configure("debug", "json")

	ctx := WithCorrelationID(context.Background(), "abc-123")
	Errorf(ctx, "line one\nline two")

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))
	assert.Equal(t, "abc-123", fields[CorrelationID])
	assert.Equal(t, "line one\\n line two", fields["msg"])
	assert.Equal(t, "error", fields["level"])
}

func TestCorrelationIDFromEmptyContext(t *testing.T) {
	assert.Equal(t, "", CorrelationIDFrom(context.Background()))
}
