package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogging_MaskAndCorrelation(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	ins, err := New(context.Background(), &Config{
		ServiceName: "otpgate-test",
		MaskFields:  []string{"password", "Token", " "},
		Output:      &buf,
	})
	require.NoError(t, err)
	require.NoError(t, ins.Shutdown(context.Background()))

	ctx := SetCorrelationID(context.Background(), "cid-1")
	slog.With("token", "123456").InfoContext(ctx, "login",
		"email", "ann@x.com",
		"password", "p",
		"body", `{"user_id":"u1","token":"654321"}`,
		"payload", map[string]any{"nested": []any{map[string]any{"PASSWORD": "x"}}},
	)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "cid-1", line["correlation_id"])
	assert.Equal(t, "otpgate-test", line["service"])
	assert.Equal(t, "ann@x.com", line["email"])
	assert.Equal(t, masked, line["password"])
	assert.Equal(t, masked, line["token"])
	assert.JSONEq(t, `{"user_id":"u1","token":"***"}`, line["body"].(string))
	assert.Equal(t, map[string]any{"nested": []any{map[string]any{"PASSWORD": masked}}}, line["payload"])
}

func TestCorrelationID(t *testing.T) {
	t.Parallel()

	assert.Empty(t, GetCorrelationID(context.Background()))
	assert.Equal(t, "x", GetCorrelationID(SetCorrelationID(context.Background(), "x")))
}
