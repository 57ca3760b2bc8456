package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/skywolf-loong/subhunt/pkg/models"
)

// CSVWriter emits one row per result with addresses joined by semicolons.
// The header row is written even when there are no results.
type CSVWriter struct {
	path string
}

func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

func (c *CSVWriter) Write(set *models.ResultSet) error {
	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("creating output file %s: %w", c.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"name", "addresses", "http_status", "http_title"}); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, r := range set.Results {
		status, title := "", ""
		if at := r.FirstAlive(); at != nil {
			status = strconv.Itoa(at.StatusCode)
			title = at.Title
		}
		row := []string{
			r.Name,
			strings.Join(r.Addresses(), ";"),
			status,
			title,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", r.Name, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing output file %s: %w", c.path, err)
	}
	return nil
}
