package output

import (
	"fmt"
	"strings"

	"github.com/namelens/reachlens/internal/core"
)

// PlainFormatter writes one "subject status source" line per record, for
// shell pipelines.
type PlainFormatter struct{}

func (f *PlainFormatter) FormatStatuses(statuses []*core.Status) (string, error) {
	var sb strings.Builder
	for _, st := range statuses {
		if st == nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s %s %s\n", st.Subject, st.Status, strings.ReplaceAll(string(st.Source), " ", "_")))
	}
	return sb.String(), nil
}

func (f *PlainFormatter) FormatSummary(summary *core.BatchSummary) (string, error) {
	if summary == nil {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("total %d\n", summary.Total))
	for _, status := range sortedStatuses(summary) {
		sb.WriteString(fmt.Sprintf("%s %d\n", strings.ToLower(string(status)), summary.Counts[status]))
	}
	if summary.Failed > 0 {
		sb.WriteString(fmt.Sprintf("failed %d\n", summary.Failed))
	}
	return sb.String(), nil
}
