package observability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPortOf(t *testing.T) {
	port, err := portOf("127.0.0.1:9464")
	require.NoError(t, err)
	require.Equal(t, 9464, port)

	port, err = portOf("[::]:9090")
	require.NoError(t, err)
	require.Equal(t, 9090, port)

	_, err = portOf("no-port")
	require.Error(t, err)
}

func TestStopMetricsWithoutExporter(t *testing.T) {
	PrometheusExporter = nil
	TelemetrySystem = nil
	require.NoError(t, StopMetrics())
	require.Nil(t, TelemetrySystem)
}
