package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// resolveSubjects returns the subjects named on the command line or, when
// subjectsFile is set, read from that file ("-" reads stdin).
func resolveSubjects(positional []string, subjectsFile string) ([]string, error) {
	trimmed := strings.TrimSpace(subjectsFile)
	if trimmed != "" {
		if len(positional) > 0 {
			return nil, fmt.Errorf("cannot combine positional subjects with --file")
		}
		return readSubjectsFile(trimmed)
	}

	subjects := make([]string, 0, len(positional))
	for _, raw := range positional {
		if subject := strings.TrimSpace(raw); subject != "" {
			subjects = append(subjects, subject)
		}
	}
	if len(subjects) == 0 {
		return nil, fmt.Errorf("at least one subject is required")
	}
	return subjects, nil
}

func readSubjectsFile(path string) ([]string, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close() // nolint:errcheck
		reader = file
	}

	subjects, err := readSubjects(reader)
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		return nil, fmt.Errorf("no subjects found in %s", path)
	}
	return subjects, nil
}

// readSubjects reads one subject per line. Blank lines and # comments are
// skipped; a # inside a URL is kept, and hosts-file lines ("0.0.0.0 example.com") yield their host.
func readSubjects(reader io.Reader) ([]string, error) {
	subjects := make([]string, 0)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		if idx := strings.Index(line, " #"); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		switch {
		case len(fields) == 0:
			continue
		case len(fields) >= 2 && sinkAddress(fields[0]):
			subjects = append(subjects, fields[1:]...)
		default:
			subjects = append(subjects, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return subjects, nil
}

func sinkAddress(field string) bool {
	switch field {
	case "0.0.0.0", "127.0.0.1", "::", "::1":
		return true
	}
	return false
}
