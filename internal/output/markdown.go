package output

import (
	"fmt"
	"strings"

	"github.com/namelens/reachlens/internal/core"
)

// MarkdownFormatter renders results as a markdown table.
type MarkdownFormatter struct{}

// FormatStatuses renders the records as a Markdown table.
func (f *MarkdownFormatter) FormatStatuses(statuses []*core.Status) (string, error) {
	var sb strings.Builder
	sb.WriteString("| Subject | Kind | Status | Source | Notes |\n")
	sb.WriteString("|---------|------|--------|--------|-------|\n")

	for _, st := range statuses {
		if st == nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			escapeMarkdownCell(st.Subject),
			escapeMarkdownCell(string(st.Kind)),
			escapeMarkdownCell(string(st.Status)),
			escapeMarkdownCell(string(st.Source)),
			escapeMarkdownCell(formatNotes(st)),
		))
	}
	return sb.String(), nil
}

// FormatSummary renders a batch summary as a Markdown list.
func (f *MarkdownFormatter) FormatSummary(summary *core.BatchSummary) (string, error) {
	if summary == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**Subjects**: %d\n\n", summary.Total))
	for _, status := range sortedStatuses(summary) {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", status, summary.Counts[status]))
	}
	if summary.Failed > 0 {
		sb.WriteString(fmt.Sprintf("- failed: %d\n", summary.Failed))
	}
	if summary.Duplicates > 0 {
		sb.WriteString(fmt.Sprintf("- duplicates skipped: %d\n", summary.Duplicates))
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
