package output

import (
	"encoding/json"

	"github.com/namelens/reachlens/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatStatuses renders the records as a JSON array.
func (f *JSONFormatter) FormatStatuses(statuses []*core.Status) (string, error) {
	if statuses == nil {
		statuses = []*core.Status{}
	}
	return f.marshal(statuses)
}

// FormatSummary renders a batch summary as a JSON object.
func (f *JSONFormatter) FormatSummary(summary *core.BatchSummary) (string, error) {
	if summary == nil {
		return "", nil
	}
	return f.marshal(summary)
}

func (f *JSONFormatter) marshal(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
