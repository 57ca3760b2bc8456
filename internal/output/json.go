package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/skywolf-loong/subhunt/pkg/models"
)

// JSONWriter emits the result set as an array of objects, one per result,
// with the HTTP field null for candidates that never answered a request.
type JSONWriter struct {
	path string
}

func NewJSONWriter(path string) *JSONWriter {
	return &JSONWriter{path: path}
}

type jsonHTTP struct {
	Status int    `json:"status"`
	Length int64  `json:"length"`
	Title  string `json:"title,omitempty"`
}

type jsonResult struct {
	Name      string    `json:"name"`
	Addresses []string  `json:"addresses"`
	HTTP      *jsonHTTP `json:"http"`
}

func (j *JSONWriter) Write(set *models.ResultSet) error {
	out := make([]jsonResult, 0, len(set.Results))
	for _, r := range set.Results {
		jr := jsonResult{
			Name:      r.Name,
			Addresses: r.Addresses(),
		}
		if jr.Addresses == nil {
			jr.Addresses = []string{}
		}
		if at := r.FirstAlive(); at != nil {
			jr.HTTP = &jsonHTTP{
				Status: at.StatusCode,
				Length: at.ContentLength,
				Title:  at.Title,
			}
		}
		out = append(out, jr)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}
	if err := os.WriteFile(j.path, data, 0o644); err != nil {
		return fmt.Errorf("writing output file %s: %w", j.path, err)
	}
	return nil
}
