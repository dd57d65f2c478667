package sink

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"golang.org/x/exp/slog"

	"ytbucket/duration"
	"ytbucket/pipeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRow(id string, bucket duration.Bucket) pipeline.Row {
	return pipeline.Row{
		VideoID:          id,
		ChannelAvatar:    "https://yt3.ggpht.com/" + id,
		Title:            "Video " + id,
		Link:             "https://www.youtube.com/watch?v=" + id,
		Channel:          "Channel, with comma",
		PublishedAt:      "'07/01/2025 13:45",
		Duration:         "00:02:00",
		Views:            1000,
		Likes:            50,
		Comments:         3,
		ShortDescription: "line one\nline \"two\"",
		Tags:             "yoga, flow",
		Category:         bucket,
		Thumbnail:        "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg",
	}
}

func testTable() *Table {
	rows := []pipeline.Row{
		testRow("v1", duration.Bucket0To5),
		testRow("v2", duration.Bucket60Plus),
		testRow("v3", duration.Bucket0To5),
	}
	idx := pipeline.NewIndex()
	for _, r := range rows {
		idx[r.Category] = append(idx[r.Category], r)
	}
	return &Table{
		RunID:       "0b6f3c1e-6c6f-4bb4-9a55-3e1fb1d1f0a1",
		PlaylistID:  "PL123",
		GeneratedAt: time.Date(2025, 1, 7, 14, 0, 0, 0, time.UTC),
		Columns:     pipeline.DefaultColumns,
		Index:       idx,
		Rows:        rows,
	}
}

func TestTableSections(t *testing.T) {
	secs := testTable().Sections()
	if len(secs) != len(duration.Buckets())+1 {
		t.Fatalf("Sections() returned %d sections", len(secs))
	}
	if secs[0].Name != "0-5min" || len(secs[0].Rows) != 2 {
		t.Errorf("first section = %s with %d rows", secs[0].Name, len(secs[0].Rows))
	}
	last := secs[len(secs)-1]
	if last.Name != AllVideos || len(last.Rows) != 3 {
		t.Errorf("last section = %s with %d rows", last.Name, len(last.Rows))
	}
}

func TestTableValues(t *testing.T) {
	table := testTable()
	values := table.Values(table.Rows)
	if len(values) != 4 {
		t.Fatalf("Values() returned %d lines, want 4", len(values))
	}
	if values[0][0] != "channelAvatar" || values[1][1] != "Video v1" {
		t.Errorf("Values() = %v", values[:2])
	}
}

type recordSink struct {
	name  string
	err   error
	calls int
}

func (r *recordSink) Name() string { return r.name }

func (r *recordSink) Write(ctx context.Context, table *Table) error {
	r.calls++
	return r.err
}

func TestWriteAll(t *testing.T) {
	boom := errors.New("quota exceeded")
	first := &recordSink{name: "sheets", err: boom}
	second := &recordSink{name: "json"}
	third := &recordSink{name: "sql", err: errors.New("locked")}

	err := WriteAll(context.Background(), []Sink{first, second, third}, testTable(), testLogger())

	if first.calls != 1 || second.calls != 1 || third.calls != 1 {
		t.Errorf("calls = %d/%d/%d, want every sink called once", first.calls, second.calls, third.calls)
	}
	if !errors.Is(err, boom) {
		t.Errorf("WriteAll() error = %v, want to wrap %v", err, boom)
	}
	if msg := err.Error(); !strings.Contains(msg, "sink: sheets: quota exceeded") || !strings.Contains(msg, "sink: sql: locked") {
		t.Errorf("WriteAll() error = %q", msg)
	}
}

func TestWriteAll_NilLogger(t *testing.T) {
	err := WriteAll(context.Background(), []Sink{&recordSink{name: "json"}, &recordSink{name: "sql", err: errors.New("locked")}}, testTable(), nil)
	if err == nil || !strings.Contains(err.Error(), "sink: sql: locked") {
		t.Errorf("WriteAll() error = %v", err)
	}
}

func TestWriteAll_NoErrors(t *testing.T) {
	if err := WriteAll(context.Background(), []Sink{&recordSink{name: "json"}}, testTable(), testLogger()); err != nil {
		t.Errorf("WriteAll() error = %v", err)
	}
}

func TestWriteAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &recordSink{name: "json"}

	err := WriteAll(ctx, []Sink{s}, testTable(), testLogger())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("WriteAll() error = %v, want context.Canceled", err)
	}
	if s.calls != 0 {
		t.Errorf("sink called %d times after cancellation", s.calls)
	}
}
