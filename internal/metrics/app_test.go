package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/namelens/reachlens/internal/core"
	"github.com/namelens/reachlens/internal/core/engine"
	"github.com/namelens/reachlens/internal/observability"
)

var _ engine.Recorder = Recorder{}

func TestRecorderWithoutTelemetry(t *testing.T) {
	require.Nil(t, observability.TelemetrySystem)

	require.NotPanics(t, func() {
		var recorder Recorder
		recorder.RecordStrategy("dns", true, time.Millisecond)
		recorder.RecordResolution(core.CheckerAvailability, core.StatusActive, core.SourceDNS, time.Millisecond)
		recorder.RecordRuleFired(core.StatusActive, core.StatusInactive)
		recorder.RecordWhoisQuery("whois.verisign-grs.com", true)
		RecordBatch(nil)
		RecordBatch(core.NewBatchSummary(time.Now()))
	})
}
