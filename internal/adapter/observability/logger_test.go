package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/sift/internal/config"
)

func TestSetupLogger_DevAndProd(t *testing.T) {
	require.NotNil(t, SetupLogger(config.Config{AppEnv: "dev", OTELServiceName: "svc"}))
	require.NotNil(t, SetupLogger(config.Config{AppEnv: "prod", OTELServiceName: "svc"}))
}

func TestNewLogger_FieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(&buf, config.Config{AppEnv: "prod", OTELServiceName: "sift"})

	assert.False(t, lg.Enabled(context.Background(), slog.LevelDebug))
	lg.Info("screening finished", slog.String("recommendation", "Reject"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "sift", rec["service"])
	assert.Equal(t, "prod", rec["env"])
	assert.Equal(t, "Reject", rec["recommendation"])

	dev := NewLogger(&buf, config.Config{AppEnv: "dev"})
	assert.True(t, dev.Enabled(context.Background(), slog.LevelDebug))
}
