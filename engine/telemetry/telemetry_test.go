package telemetry_test

import (
	"context"
	"testing"

	"github.com/on-the-ground/calcgraph_go/engine/telemetry"
	"github.com/stretchr/testify/require"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), "calcgraph-test", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// non-routable address, nothing is exported before shutdown
	shutdown, err := telemetry.Setup(context.Background(), "calcgraph-test", "http://192.0.2.1:4318")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
