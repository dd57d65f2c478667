// Package sink writes aggregated playlist rows to their destinations:
// local JSON and CSV files, a Google Sheets spreadsheet or a SQL database.
package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"ytbucket/duration"
	"ytbucket/pipeline"
)

// AllVideos names the tab, file or section holding every row in playlist
// order.
const AllVideos = "AllVideos"

// Sink persists one aggregated Table.
type Sink interface {
	// Name identifies the sink in logs and errors.
	Name() string
	Write(ctx context.Context, table *Table) error
}

// Table is the aggregated result of one sync run.
type Table struct {
	RunID       string
	PlaylistID  string
	GeneratedAt time.Time
	Columns     []pipeline.Column
	Index       pipeline.Index
	Rows        []pipeline.Row
}

// Section is a named group of rows: one duration bucket or AllVideos.
type Section struct {
	Name string
	Rows []pipeline.Row
}

// Headers returns the header row for the table's columns.
func (t *Table) Headers() []string {
	return pipeline.Headers(t.Columns)
}

// Sections returns the bucket sections in bucket order followed by
// AllVideos. Empty buckets are included.
func (t *Table) Sections() []Section {
	buckets := duration.Buckets()
	out := make([]Section, 0, len(buckets)+1)
	for _, b := range buckets {
		out = append(out, Section{Name: string(b), Rows: t.Index[b]})
	}
	return append(out, Section{Name: AllVideos, Rows: t.Rows})
}

// Values renders rows as a header line followed by one line per row.
func (t *Table) Values(rows []pipeline.Row) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, t.Headers())
	for _, r := range rows {
		out = append(out, r.Values(t.Columns))
	}
	return out
}

// WriteAll runs every sink in order. A failing sink does not stop the
// others; their errors are joined.
func WriteAll(ctx context.Context, sinks []Sink, table *Table, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	var errs []error
	for _, s := range sinks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		start := time.Now()
		if err := s.Write(ctx, table); err != nil {
			logger.Error("sink failed",
				slog.String("sink", s.Name()),
				slog.String("err", err.Error()))
			errs = append(errs, fmt.Errorf("sink: %s: %w", s.Name(), err))
			continue
		}
		logger.Info("sink written",
			slog.String("sink", s.Name()),
			slog.Int("rows", len(table.Rows)),
			slog.Duration("elapsed", time.Since(start)))
	}
	return errors.Join(errs...)
}
