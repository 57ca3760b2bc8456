package output

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/skywolf-loong/subhunt/pkg/models"
)

// Writer renders a finalized ResultSet snapshot to its destination.
type Writer interface {
	Write(set *models.ResultSet) error
}

// Recognized output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// NewWriter picks a writer for path. With an empty format, the format is
// inferred from the file extension, defaulting to text.
func NewWriter(path, format string) (Writer, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" {
		f = inferFormat(path)
	}
	switch f {
	case FormatText, "txt":
		return NewTextWriter(path), nil
	case FormatJSON:
		return NewJSONWriter(path), nil
	case FormatCSV:
		return NewCSVWriter(path), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json, or csv)", format)
	}
}

func inferFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".csv":
		return FormatCSV
	default:
		return FormatText
	}
}
