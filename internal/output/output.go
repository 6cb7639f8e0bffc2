package output

import (
	"fmt"
	"strings"

	"github.com/namelens/reachlens/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatPlain    Format = "plain"
	FormatHosts    Format = "hosts"
)

// Formatter renders status records and batch summaries.
type Formatter interface {
	FormatStatuses(statuses []*core.Status) (string, error)
	FormatSummary(summary *core.BatchSummary) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	case string(FormatPlain), "text":
		return FormatPlain, nil
	case string(FormatHosts):
		return FormatHosts, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	case FormatPlain:
		return &PlainFormatter{}
	case FormatHosts:
		return &HostsFormatter{}
	default:
		return &TableFormatter{}
	}
}

// FilterStatuses keeps the records whose status is one of wanted. An empty
// wanted list keeps everything.
func FilterStatuses(statuses []*core.Status, wanted []core.StatusValue) []*core.Status {
	if len(wanted) == 0 {
		return statuses
	}
	out := make([]*core.Status, 0, len(statuses))
	for _, st := range statuses {
		if st == nil {
			continue
		}
		for _, value := range wanted {
			if st.Status == value {
				out = append(out, st)
				break
			}
		}
	}
	return out
}
