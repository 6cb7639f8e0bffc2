package output

import (
	"fmt"
	"strings"

	"github.com/namelens/reachlens/internal/core"
	"github.com/namelens/reachlens/internal/core/syntax"
)

// HostsIP is the sink address written in front of every hosts entry.
const HostsIP = "0.0.0.0"

// HostsFormatter renders records as a hosts(5) file. Domains and URL hosts
// become "0.0.0.0 name" lines; bare addresses and ranges are written on
// their own line; invalid subjects are dropped.
type HostsFormatter struct{}

func (f *HostsFormatter) FormatStatuses(statuses []*core.Status) (string, error) {
	seen := make(map[string]bool, len(statuses))
	var sb strings.Builder
	for _, st := range statuses {
		if st == nil {
			continue
		}
		line := hostsLine(st)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// FormatSummary writes the tally as hosts-file comments.
func (f *HostsFormatter) FormatSummary(summary *core.BatchSummary) (string, error) {
	if summary == nil {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %d subjects checked %s\n", summary.Total, summary.CompletedAt.UTC().Format("2006-01-02T15:04:05Z")))
	for _, status := range sortedStatuses(summary) {
		sb.WriteString(fmt.Sprintf("# %s: %d\n", status, summary.Counts[status]))
	}
	return sb.String(), nil
}

func hostsLine(st *core.Status) string {
	switch st.Kind {
	case core.KindDomain, core.KindSubdomain:
		return HostsIP + " " + st.IDNASubject
	case core.KindURL:
		res := syntax.Classify(st.IDNASubject)
		if res.Host == "" {
			return ""
		}
		if res.Registrable == "" {
			return res.Host
		}
		return HostsIP + " " + res.Host
	case core.KindIPv4, core.KindIPv6, core.KindIPv4Range, core.KindIPv6Range:
		return st.IDNASubject
	}
	return ""
}
