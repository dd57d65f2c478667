package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"ytbucket/internal/storage"
	"ytbucket/pipeline"
)

// Document is the JSON file layout.
type Document struct {
	RunID       string                    `json:"runId"`
	PlaylistID  string                    `json:"playlistId"`
	GeneratedAt time.Time                 `json:"generatedAt"`
	Headers     []string                  `json:"headers"`
	Buckets     map[string][]pipeline.Row `json:"buckets"`
	Videos      []pipeline.Row            `json:"videos"`
}

// JSON writes the table as a single Document.
type JSON struct {
	path string
}

// NewJSON returns a sink writing to path.
func NewJSON(path string) *JSON {
	return &JSON{path: path}
}

func (j *JSON) Name() string { return "json" }

func (j *JSON) Write(ctx context.Context, table *Table) error {
	doc := Document{
		RunID:       table.RunID,
		PlaylistID:  table.PlaylistID,
		GeneratedAt: table.GeneratedAt,
		Headers:     table.Headers(),
		Buckets:     make(map[string][]pipeline.Row, len(table.Index)),
		Videos:      table.Rows,
	}
	for _, sec := range table.Sections() {
		if sec.Name == AllVideos {
			continue
		}
		doc.Buckets[sec.Name] = nonNil(sec.Rows)
	}
	doc.Videos = nonNil(doc.Videos)

	return storage.WriteFile(j.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(&doc)
	})
}

// ReadJSON loads a Document written by the JSON sink.
func ReadJSON(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &doc, nil
}

// WriteValuesJSON writes raw cell values as a JSON array of rows.
func WriteValuesJSON(path string, values [][]string) error {
	return storage.WriteFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(values)
	})
}

func nonNil(rows []pipeline.Row) []pipeline.Row {
	if rows == nil {
		return []pipeline.Row{}
	}
	return rows
}
