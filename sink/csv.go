package sink

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"ytbucket/internal/storage"
)

// CSV writes one file per section into a directory: 0-5min.csv ...
// unknown.csv and AllVideos.csv.
type CSV struct {
	dir string
}

// NewCSV returns a sink writing into dir.
func NewCSV(dir string) *CSV {
	return &CSV{dir: dir}
}

func (c *CSV) Name() string { return "csv" }

func (c *CSV) Write(ctx context.Context, table *Table) error {
	for _, sec := range table.Sections() {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(c.dir, sec.Name+".csv")
		if err := WriteValuesCSV(path, table.Values(sec.Rows)); err != nil {
			return err
		}
	}
	return nil
}

// WriteValuesCSV writes raw cell values to path atomically.
func WriteValuesCSV(path string, values [][]string) error {
	return storage.WriteFile(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.WriteAll(values); err != nil {
			return err
		}
		return cw.Error()
	})
}

// ReadValuesCSV reads a file written by WriteValuesCSV.
func ReadValuesCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}
