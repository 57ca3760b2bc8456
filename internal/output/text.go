package output

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/skywolf-loong/subhunt/pkg/models"
)

// TextWriter emits one line per result: the subdomain, its resolved
// addresses, and the HTTP status when one was captured.
type TextWriter struct {
	path string
}

func NewTextWriter(path string) *TextWriter {
	return &TextWriter{path: path}
}

func (t *TextWriter) Write(set *models.ResultSet) error {
	f, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("creating output file %s: %w", t.path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "# subhunt results for %s\n", set.Target)
	fmt.Fprintf(w, "# scanned %s, %d candidates, %d found\n",
		set.FinishedAt.Format("2006-01-02 15:04:05"), set.Stats.Attempted, len(set.Results))

	for _, r := range set.Results {
		line := r.Name
		if addrs := r.Addresses(); len(addrs) > 0 {
			line += " " + strings.Join(addrs, ",")
		}
		if at := r.FirstAlive(); at != nil {
			line += fmt.Sprintf(" [%s %d]", at.Scheme, at.StatusCode)
		}
		fmt.Fprintln(w, line)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing output file %s: %w", t.path, err)
	}
	return nil
}
