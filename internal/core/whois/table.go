package whois

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/servers.yaml
var embeddedTable []byte

type tableFile struct {
	Servers map[string]string `yaml:"servers"`
	Ignored []string          `yaml:"ignored"`
}

// Table maps a top-level extension to its WHOIS server.
type Table struct {
	servers map[string]string
	ignored map[string]struct{}
}

// DefaultTable returns the embedded extension table.
func DefaultTable() *Table {
	table, err := parseTable(embeddedTable)
	if err != nil {
		panic(fmt.Sprintf("embedded whois table: %v", err))
	}
	return table
}

// LoadTable reads a YAML table from path and layers it over the embedded one.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read whois table: %w", err)
	}
	overlay, err := parseTable(data)
	if err != nil {
		return nil, fmt.Errorf("parse whois table %s: %w", path, err)
	}
	table := DefaultTable()
	table.merge(overlay)
	return table, nil
}

// NewTable builds a table from explicit values.
func NewTable(servers map[string]string, ignored []string) *Table {
	table := &Table{servers: map[string]string{}, ignored: map[string]struct{}{}}
	for ext, server := range servers {
		table.set(ext, server)
	}
	for _, ext := range ignored {
		table.ignore(ext)
	}
	return table
}

func parseTable(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return NewTable(file.Servers, file.Ignored), nil
}

// WithOverrides returns a copy with extra servers and ignored extensions.
func (t *Table) WithOverrides(servers map[string]string, ignored []string) *Table {
	out := NewTable(nil, nil)
	out.merge(t)
	out.merge(NewTable(servers, ignored))
	return out
}

// Server returns the server for an extension. Ignored and unknown
// extensions report false.
func (t *Table) Server(extension string) (string, bool) {
	if t == nil {
		return "", false
	}
	ext := normalizeExtension(extension)
	if _, ok := t.ignored[ext]; ok {
		return "", false
	}
	server, ok := t.servers[ext]
	return server, ok && server != ""
}

// Ignored reports whether an extension is on the ignore list.
func (t *Table) Ignored(extension string) bool {
	if t == nil {
		return false
	}
	_, ok := t.ignored[normalizeExtension(extension)]
	return ok
}

// Len reports the number of known servers.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.servers)
}

func (t *Table) merge(other *Table) {
	if other == nil {
		return
	}
	for ext, server := range other.servers {
		t.servers[ext] = server
	}
	for ext := range other.ignored {
		t.ignored[ext] = struct{}{}
	}
}

func (t *Table) set(extension, server string) {
	ext := normalizeExtension(extension)
	server = strings.TrimSpace(server)
	if ext == "" || server == "" {
		return
	}
	t.servers[ext] = server
}

func (t *Table) ignore(extension string) {
	if ext := normalizeExtension(extension); ext != "" {
		t.ignored[ext] = struct{}{}
	}
}

func normalizeExtension(value string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(value), "."))
}

// Extension returns the last label of a domain.
func Extension(domain string) string {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), ".")
	if idx := strings.LastIndex(domain, "."); idx >= 0 {
		return strings.ToLower(domain[idx+1:])
	}
	return strings.ToLower(domain)
}
