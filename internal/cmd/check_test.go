package cmd

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/namelens/reachlens/internal/core"
	"github.com/namelens/reachlens/internal/core/engine"
)

func TestCollectStatuses(t *testing.T) {
	st := core.NewStatus("example.com", "example.com", core.CheckerAvailability, time.Now())
	st.SetStatus(core.StatusActive, core.SourceDNS)

	statuses, err := collectStatuses([]engine.BatchItem{
		{Index: 0, Subject: "example.com", Status: st},
		{Index: 1, Subject: "skipped"},
	})
	require.NoError(t, err)
	require.Equal(t, []*core.Status{st}, statuses)

	_, err = collectStatuses([]engine.BatchItem{
		{Index: 0, Subject: "bad", Err: errors.New("boom")},
	})
	require.ErrorContains(t, err, "bad: boom")
}

func TestWriteRendered(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRendered(&buf, "line"))
	require.NoError(t, writeRendered(&buf, ""))
	require.NoError(t, writeRendered(&buf, "done\n"))
	require.Equal(t, "line\ndone\n", buf.String())
}
