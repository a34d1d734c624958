package telemetry

import (
	"context"
	"testing"

	"github.com/metalagman/pathwise/internal/config"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledIsNoop(t *testing.T) {
	t.Parallel()

	shutdown, err := Init(context.Background(), config.TelemetryConfig{Enabled: false, OTLPEndpoint: "localhost:4317"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	shutdown, err = Init(context.Background(), config.TelemetryConfig{Enabled: true})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
