package core

import (
	"time"

	"go.uber.org/zap"
)

// CheckerType identifies which question a Status answers.
type CheckerType string

const (
	CheckerAvailability CheckerType = "AVAILABILITY"
	CheckerReputation   CheckerType = "REPUTATION"
	CheckerSyntax       CheckerType = "SYNTAX"
)

// StatusValue is the canonical result of a resolution.
type StatusValue string

const (
	StatusActive    StatusValue = "ACTIVE"
	StatusInactive  StatusValue = "INACTIVE"
	StatusInvalid   StatusValue = "INVALID"
	StatusValid     StatusValue = "VALID"
	StatusSane      StatusValue = "SANE"
	StatusMalicious StatusValue = "MALICIOUS"
)

// Source records which strategy produced a status.
type Source string

const (
	SourceSyntax     Source = "SYNTAX"
	SourceDNS        Source = "DNSLOOKUP"
	SourceHTTP       Source = "HTTP CODE"
	SourceWhois      Source = "WHOIS"
	SourceReputation Source = "REPUTATION"
	SourceSpecial    Source = "SPECIAL"
	SourceStdLookup  Source = "STDLOOKUP"
)

// SubjectKind is the syntactic class of a subject.
type SubjectKind string

const (
	KindDomain    SubjectKind = "domain"
	KindSubdomain SubjectKind = "subdomain"
	KindIPv4      SubjectKind = "ipv4"
	KindIPv4Range SubjectKind = "ipv4_range"
	KindIPv6      SubjectKind = "ipv6"
	KindIPv6Range SubjectKind = "ipv6_range"
	KindURL       SubjectKind = "url"
	KindInvalid   SubjectKind = "invalid"
)

// IsIP reports whether the kind is an address or a range.
func (k SubjectKind) IsIP() bool {
	switch k {
	case KindIPv4, KindIPv4Range, KindIPv6, KindIPv6Range:
		return true
	}
	return false
}

// IsRange reports whether the kind is a CIDR range.
func (k SubjectKind) IsRange() bool {
	return k == KindIPv4Range || k == KindIPv6Range
}

// SyntaxFlags holds the individual classification booleans.
type SyntaxFlags struct {
	Domain    bool `json:"domain_syntax"`
	Subdomain bool `json:"subdomain_syntax"`
	IP        bool `json:"ip_syntax"`
	IPv4      bool `json:"ipv4_syntax"`
	IPv6      bool `json:"ipv6_syntax"`
	IPv4Range bool `json:"ipv4_range_syntax"`
	IPv6Range bool `json:"ipv6_range_syntax"`
	URL       bool `json:"url_syntax"`
}

// DNSLookupRecord captures the DNS query that informed a status.
type DNSLookupRecord struct {
	RecordType string              `json:"record_type"`
	Servers    []string            `json:"servers"`
	Protocol   string              `json:"protocol"`
	Records    map[string][]string `json:"records,omitempty"`
}

// WhoisLookupRecord captures the WHOIS exchange that informed a status.
type WhoisLookupRecord struct {
	Server         string        `json:"server,omitempty"`
	Record         string        `json:"record,omitempty"`
	ExpirationDate string        `json:"expiration_date,omitempty"`
	Registrar      string        `json:"registrar,omitempty"`
	QueryTimeout   time.Duration `json:"query_timeout"`
	FromCache      bool          `json:"from_cache,omitempty"`
	Source         string        `json:"source,omitempty"`
}

// Status is the record produced by one resolution call.
type Status struct {
	CheckID     string      `json:"check_id"`
	Subject     string      `json:"subject"`
	IDNASubject string      `json:"idna_subject"`
	CheckerType CheckerType `json:"checker_type"`
	Kind        SubjectKind `json:"subject_kind"`

	Status StatusValue `json:"status"`
	Source Source      `json:"status_source"`

	SyntaxFlags

	DNSLookup      *DNSLookupRecord   `json:"dns_lookup_record,omitempty"`
	WhoisLookup    *WhoisLookupRecord `json:"whois_lookup_record,omitempty"`
	HTTPStatusCode *int               `json:"http_status_code"`

	StatusBeforeExtraRules       StatusValue `json:"status_before_extra_rules,omitempty"`
	StatusSourceBeforeExtraRules Source      `json:"status_source_before_extra_rules,omitempty"`
	StatusAfterExtraRules        StatusValue `json:"status_after_extra_rules,omitempty"`
	StatusSourceAfterExtraRules  Source      `json:"status_source_after_extra_rules,omitempty"`

	TestedAt time.Time `json:"tested_at"`
}

// NewStatus creates a Status for a subject and checker type.
func NewStatus(subject, idnaSubject string, checker CheckerType, testedAt time.Time) *Status {
	return &Status{
		Subject:     subject,
		IDNASubject: idnaSubject,
		CheckerType: checker,
		TestedAt:    testedAt,
	}
}

// SetStatus records a status and its provenance.
func (s *Status) SetStatus(value StatusValue, source Source) {
	s.Status = value
	s.Source = source
}

// Concluded reports whether a strategy already produced a status.
func (s *Status) Concluded() bool {
	return s.Status != ""
}

// Valid reports whether the status belongs to its checker type's value set.
func (s *Status) Valid() bool {
	if s == nil {
		return false
	}
	switch s.CheckerType {
	case CheckerAvailability:
		return s.Status == StatusActive || s.Status == StatusInactive || s.Status == StatusInvalid
	case CheckerReputation:
		return s.Status == StatusSane || s.Status == StatusMalicious || s.Status == StatusInvalid
	case CheckerSyntax:
		return s.Status == StatusValid || s.Status == StatusInvalid
	}
	return false
}

// HTTPCode returns the recorded HTTP status code.
func (s *Status) HTTPCode() (int, bool) {
	if s == nil || s.HTTPStatusCode == nil {
		return 0, false
	}
	return *s.HTTPStatusCode, true
}

// SetHTTPCode records an HTTP status code.
func (s *Status) SetHTTPCode(code int) {
	s.HTTPStatusCode = &code
}

// Logger is the logging surface used by core components.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return zap.NewNop()
}
