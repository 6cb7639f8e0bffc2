package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadSubjects(t *testing.T) {
	input := strings.Join([]string{
		"# blocklist",
		"example.com",
		"",
		"0.0.0.0 ads.example.net tracker.example.net",
		"127.0.0.1 localhost.example # local",
		"https://example.org/page#section",
		"  192.0.2.10  ",
	}, "\n")

	subjects, err := readSubjects(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []string{
		"example.com",
		"ads.example.net",
		"tracker.example.net",
		"localhost.example",
		"https://example.org/page#section",
		"192.0.2.10",
	}, subjects)
}

func TestResolveSubjects(t *testing.T) {
	subjects, err := resolveSubjects([]string{" example.com ", "", "192.0.2.1"}, "")
	require.NoError(t, err)
	require.Equal(t, []string{"example.com", "192.0.2.1"}, subjects)

	_, err = resolveSubjects([]string{" "}, "")
	require.Error(t, err)

	_, err = resolveSubjects([]string{"example.com"}, "subjects.txt")
	require.Error(t, err)
}

func TestReadSubjectsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subjects.txt")
	require.NoError(t, os.WriteFile(path, []byte("example.com\nexample.org\n"), 0o600))

	subjects, err := resolveSubjects(nil, path)
	require.NoError(t, err)
	require.Equal(t, []string{"example.com", "example.org"}, subjects)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n"), 0o600))
	_, err = readSubjectsFile(empty)
	require.Error(t, err)
}
