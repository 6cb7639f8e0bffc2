package output

import (
	"fmt"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/namelens/reachlens/internal/core"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatStatuses renders one row per record.
func (f *TableFormatter) FormatStatuses(statuses []*core.Status) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Subject", "Kind", "Status", "Source", "Notes"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, WidthMax: 60},
	})

	for _, st := range statuses {
		if st == nil {
			continue
		}
		t.AppendRow(table.Row{
			st.Subject,
			string(st.Kind),
			colorStatus(st.Status),
			string(st.Source),
			formatNotes(st),
		})
	}

	return t.Render(), nil
}

// FormatSummary renders the status tally of a batch.
func (f *TableFormatter) FormatSummary(summary *core.BatchSummary) (string, error) {
	if summary == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Status", "Count"})
	for _, status := range sortedStatuses(summary) {
		t.AppendRow(table.Row{colorStatus(status), summary.Counts[status]})
	}
	if summary.Failed > 0 {
		t.AppendRow(table.Row{"failed", summary.Failed})
	}
	if summary.Duplicates > 0 {
		t.AppendRow(table.Row{"duplicates skipped", summary.Duplicates})
	}

	elapsed := summary.CompletedAt.Sub(summary.StartedAt).Round(time.Millisecond)
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d subjects", summary.Total),
		fmt.Sprintf("%s (%.1f/s)", elapsed, summary.Rate()),
	})
	return t.Render(), nil
}

func colorStatus(status core.StatusValue) string {
	switch status {
	case core.StatusActive, core.StatusValid, core.StatusSane:
		return text.FgGreen.Sprint(string(status))
	case core.StatusMalicious:
		return text.FgRed.Sprint(string(status))
	case core.StatusInvalid:
		return text.FgYellow.Sprint(string(status))
	}
	return string(status)
}

func sortedStatuses(summary *core.BatchSummary) []core.StatusValue {
	out := make([]core.StatusValue, 0, len(summary.Counts))
	for status := range summary.Counts {
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
