package whois

import "strings"

var registrarLabels = compileLabels(
	`Registrar Name:`,
	`Sponsoring Registrar:`,
	`Registrar Organization:`,
	`registrar_name:`,
	`Registrar:`,
	`registrar:`,
	`\[Registrant\]`,
)

// Registrar returns the registrar named in a WHOIS record, if any.
func Registrar(record string) string {
	for _, label := range registrarLabels {
		for _, match := range label.FindAllStringSubmatch(record, -1) {
			if value := strings.TrimSpace(match[1]); value != "" {
				return value
			}
		}
	}
	return ""
}
