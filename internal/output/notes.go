package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/namelens/reachlens/internal/core"
)

// formatNotes summarizes the evidence behind a status in one line.
func formatNotes(st *core.Status) string {
	if st == nil {
		return ""
	}

	var notes []string
	if code, ok := st.HTTPCode(); ok {
		notes = append(notes, fmt.Sprintf("HTTP %d", code))
	}
	if note := dnsNote(st.DNSLookup); note != "" {
		notes = append(notes, note)
	}
	if note := whoisNote(st.WhoisLookup); note != "" {
		notes = append(notes, note)
	}
	if st.StatusAfterExtraRules != "" {
		notes = append(notes, fmt.Sprintf("rule: %s -> %s",
			st.StatusBeforeExtraRules, st.StatusAfterExtraRules))
	}
	if st.IDNASubject != "" && st.IDNASubject != st.Subject {
		notes = append(notes, "idna: "+st.IDNASubject)
	}
	return strings.Join(notes, "; ")
}

func dnsNote(record *core.DNSLookupRecord) string {
	if record == nil || len(record.Records) == 0 {
		return ""
	}
	types := make([]string, 0, len(record.Records))
	for recordType := range record.Records {
		types = append(types, recordType)
	}
	sort.Strings(types)

	parts := make([]string, 0, len(types))
	for _, recordType := range types {
		answers := record.Records[recordType]
		if len(answers) == 0 {
			continue
		}
		first := answers[0]
		if len(answers) > 1 {
			first = fmt.Sprintf("%s (+%d)", first, len(answers)-1)
		}
		parts = append(parts, recordType+" "+first)
	}
	return strings.Join(parts, ", ")
}

func whoisNote(record *core.WhoisLookupRecord) string {
	if record == nil {
		return ""
	}
	var parts []string
	if record.ExpirationDate != "" {
		parts = append(parts, "expires "+record.ExpirationDate)
	}
	if record.Registrar != "" {
		parts = append(parts, "registrar "+record.Registrar)
	}
	if len(parts) == 0 && record.Server != "" {
		parts = append(parts, "whois "+record.Server+": no expiration")
	}
	if record.FromCache && len(parts) > 0 {
		parts[len(parts)-1] += " (cached)"
	}
	return strings.Join(parts, ", ")
}
