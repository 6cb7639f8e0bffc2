package whois

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/namelens/reachlens/internal/core"
)

// fieldOrder tells how the three captured groups of a date pattern map to
// day, month and year.
type fieldOrder int

const (
	dayMonthYear fieldOrder = iota
	monthDayYear
	yearMonthDay
)

type datePattern struct {
	re    *regexp.Regexp
	order fieldOrder
}

// expirationLabels is ordered: a label that is a suffix of another label
// must come after it.
var expirationLabels = compileLabels(
	`Registry Expiry Date:`,
	`Registrar Registration Expiration Date:`,
	`Registration Expiration Date:`,
	`Data de expira[cç][aã]o / Expiration Date \(dd/mm/yyyy\):`,
	`Fecha de expiraci[oó]n \(Expiration date\):`,
	`Record expires on:`,
	`Domain Expiration Date:`,
	`Expiration Date[ \t]*:`,
	`Expiry Date:`,
	`Expire Date:`,
	`Expiration Time:`,
	`Expires On:`,
	`Expires at:`,
	`Expire on:`,
	`\[Expires on\]`,
	`paid-till:`,
	`free-date:`,
	`renewal date:`,
	`renewal:`,
	`validity:`,
	`Valid Until:`,
	`Valid-date`,
	`expire-date:`,
	`Exp date:`,
	`domain_datebilleduntil:`,
	`Fecha de vencimiento:`,
	`Date d'expiration:`,
	`Data de expira[cç][aã]o:`,
	`Ablaufdatum:`,
	`Expiration:\.*`,
	`expires\.*:`,
	`status:[ \t]+OK-UNTIL`,
	`Expiry[ \t]*:`,
	`expire:`,
	`Domain expires:`,
)

// datePatterns is evaluated in order. Patterns that carry a time part or a
// more specific separator come before looser ones with the same field order.
var datePatterns = []datePattern{
	{regexp.MustCompile(`(?i)^(\d{2})-([a-z]{3})-(\d{4})$`), dayMonthYear},
	{regexp.MustCompile(`(?i)^(\d{2})\.(\d{2})\.(\d{4})$`), dayMonthYear},
	{regexp.MustCompile(`(?i)^([0-3]\d)/(0[1-9]|1[0-2])/(\d{4})$`), dayMonthYear},
	{regexp.MustCompile(`(?i)^(\d{4})-(\d{2})-(\d{2})$`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{4})\.(\d{2})\.(\d{2})$`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{4})/(\d{2})/(\d{2})$`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{4})\.(\d{2})\.(\d{2})\s+\d{2}:\d{2}:\d{2}`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{4})(\d{2})(\d{2})\s+\d{2}:\d{2}:\d{2}`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{4})-(\d{2})-(\d{2})\s+\d{2}:\d{2}(?::\d{2})?`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{2})\.(\d{2})\.(\d{4})\s+\d{2}:\d{2}:\d{2}`), dayMonthYear},
	{regexp.MustCompile(`(?i)^(\d{2})-([a-z]{3})-(\d{4})\s+\d{2}:\d{2}:\d{2}`), dayMonthYear},
	{regexp.MustCompile(`(?i)^(\d{4})/(\d{2})/(\d{2})\s+\d{2}:\d{2}:\d{2}`), yearMonthDay},
	{regexp.MustCompile(`(?i)^[a-z]{3},?\s+([a-z]{3})\s+(\d{1,2})\s+\d{2}:\d{2}:\d{2}\s+[a-z]{2,5}\s+(\d{4})$`), monthDayYear},
	{regexp.MustCompile(`(?i)^[a-z]{3},?\s+([a-z]{3})\s+(\d{1,2}),?\s+(\d{4})$`), monthDayYear},
	{regexp.MustCompile(`(?i)^(\d{4})-(\d{2})-(\d{2})T\d{2}:\d{2}:\d{2}Z$`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{4})-(\d{2})-(\d{2})T\d{2}:\d{2}:\d{2}\.\d+Z$`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{4})-(\d{2})-(\d{2})T\d{2}:\d{2}:\d{2}[+-]\d{2}:?\d{2}$`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{4})-(\d{2})-(\d{2})T\d{2}:\d{2}:\d{2}\.\d+[+-]\d{2}:?\d{2}$`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{4})-(\d{2})-(\d{2})T\d{2}:\d{2}`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{2})-(\d{2})-(\d{4})$`), dayMonthYear},
	{regexp.MustCompile(`(?i)^(\d{4})\.\s(\d{2})\.\s(\d{2})\.?`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{4})(\d{2})(\d{2})$`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{1,2})\.(\d{1,2})\.(\d{4})`), dayMonthYear},
	{regexp.MustCompile(`(?i)^(\d{1,2})(?:st|nd|rd|th)?\s+([a-z]+)\.?,?\s+(\d{4})`), dayMonthYear},
	{regexp.MustCompile(`(?i)^([a-z]+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})`), monthDayYear},
	{regexp.MustCompile(`(?i)^(\d{2})/([a-z]{3})/(\d{4})`), dayMonthYear},
	{regexp.MustCompile(`(?i)^(\d{4})-([a-z]{3})-(\d{2})`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{1,2})-([a-z]+)-(\d{4})`), dayMonthYear},
	{regexp.MustCompile(`(?i)^(\d{4})/(\d{1,2})/(\d{1,2})`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{1,2})/(\d{1,2})/(\d{4})`), dayMonthYear},
	{regexp.MustCompile(`(?i)^(\d{4})-(\d{1,2})-(\d{1,2})`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{1,2})-(\d{1,2})-(\d{4})`), dayMonthYear},
	{regexp.MustCompile(`(?i)^[a-z]+,?\s+(\d{1,2})\s+([a-z]+)\.?\s+(\d{4})`), dayMonthYear},
	{regexp.MustCompile(`(?i)^[a-z]+,?\s+([a-z]+)\.?\s+(\d{1,2}),?\s+(\d{4})`), monthDayYear},
	{regexp.MustCompile(`(?i)^(\d{4})\s+([a-z]+)\.?\s+(\d{1,2})`), yearMonthDay},
	{regexp.MustCompile(`^(\d{4})年(\d{1,2})月(\d{1,2})日`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{4})\.(\d{1,2})\.(\d{1,2})`), yearMonthDay},
	{regexp.MustCompile(`(?i)^(\d{4})(\d{2})(\d{2})\d{4,6}`), yearMonthDay},
}

var monthCodes = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

var (
	hasDigit   = regexp.MustCompile(`\d`)
	whitespace = regexp.MustCompile(`\s+`)
)

func compileLabels(labels ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(labels))
	for _, label := range labels {
		out = append(out, regexp.MustCompile(`(?im)^[ \t]*`+label+`[ \t]*(.*)$`))
	}
	return out
}

// Extractor finds and normalizes the expiration date of a WHOIS record.
type Extractor struct {
	logger core.Logger
}

// NewExtractor builds an Extractor. A nil logger discards diagnostics.
func NewExtractor(logger core.Logger) *Extractor {
	if logger == nil {
		logger = core.NopLogger()
	}
	return &Extractor{logger: logger}
}

// Extract returns the expiration date as dd-mon-yyyy, or "" when the record
// carries none or carries one in an unknown format.
func (e *Extractor) Extract(record string) string {
	raw := findExpirationValue(record)
	if raw == "" || !hasDigit.MatchString(raw) {
		return ""
	}

	if date, ok := NormalizeDate(raw); ok {
		return date
	}

	e.logger.Warn("Unparsed WHOIS expiration date", zap.String("raw", raw))
	return ""
}

func findExpirationValue(record string) string {
	for _, label := range expirationLabels {
		for _, match := range label.FindAllStringSubmatch(record, -1) {
			if value := strings.TrimSpace(match[1]); value != "" {
				return value
			}
		}
	}
	return ""
}

// NormalizeDate converts a raw date into dd-mon-yyyy.
func NormalizeDate(raw string) (string, bool) {
	raw = whitespace.ReplaceAllString(strings.TrimSpace(raw), " ")
	if raw == "" {
		return "", false
	}

	for _, pattern := range datePatterns {
		groups := pattern.re.FindStringSubmatch(raw)
		if len(groups) != 4 {
			continue
		}

		var day, month, year string
		switch pattern.order {
		case dayMonthYear:
			day, month, year = groups[1], groups[2], groups[3]
		case monthDayYear:
			month, day, year = groups[1], groups[2], groups[3]
		case yearMonthDay:
			year, month, day = groups[1], groups[2], groups[3]
		}

		if date, ok := assemble(day, month, year); ok {
			return date, true
		}
	}
	return "", false
}

func assemble(day, month, year string) (string, bool) {
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return "", false
	}
	code, ok := monthCode(month)
	if !ok {
		return "", false
	}
	if len(year) != 4 {
		return "", false
	}
	return strings.Join([]string{leftPad(day), code, year}, "-"), true
}

func leftPad(day string) string {
	if len(day) == 1 {
		return "0" + day
	}
	return day
}

// monthCode maps "1", "01", "jan", "January" and similar to "jan".
func monthCode(value string) (string, bool) {
	value = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(value), "."))
	if n, err := strconv.Atoi(value); err == nil {
		if n < 1 || n > 12 {
			return "", false
		}
		return monthCodes[n-1], true
	}
	if len(value) < 3 {
		return "", false
	}
	prefix := value[:3]
	for _, code := range monthCodes {
		if code == prefix {
			return code, true
		}
	}
	return "", false
}
