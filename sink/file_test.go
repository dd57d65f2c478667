package sink

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"ytbucket/duration"
)

func TestJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "videos.json")
	table := testTable()

	if err := NewJSON(path).Write(context.Background(), table); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	doc, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if doc.RunID != table.RunID || doc.PlaylistID != "PL123" || !doc.GeneratedAt.Equal(table.GeneratedAt) {
		t.Errorf("document header = %+v", doc)
	}
	if !reflect.DeepEqual(doc.Headers, table.Headers()) {
		t.Errorf("Headers = %v", doc.Headers)
	}
	if !reflect.DeepEqual(doc.Videos, table.Rows) {
		t.Errorf("Videos = %+v, want %+v", doc.Videos, table.Rows)
	}
	if len(doc.Buckets) != len(duration.Buckets()) {
		t.Errorf("document has %d buckets, want %d", len(doc.Buckets), len(duration.Buckets()))
	}
	if got := doc.Buckets["0-5min"]; len(got) != 2 || got[1].VideoID != "v3" {
		t.Errorf("0-5min bucket = %+v", got)
	}
	if got, ok := doc.Buckets["unknown"]; !ok || got == nil || len(got) != 0 {
		t.Errorf("unknown bucket = %v, %v; want empty list", got, ok)
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	table := testTable()

	if err := NewCSV(dir).Write(context.Background(), table); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	all, err := ReadValuesCSV(filepath.Join(dir, "AllVideos.csv"))
	if err != nil {
		t.Fatalf("ReadValuesCSV() error = %v", err)
	}
	if !reflect.DeepEqual(all, table.Values(table.Rows)) {
		t.Errorf("AllVideos.csv = %v", all)
	}

	short, err := ReadValuesCSV(filepath.Join(dir, "0-5min.csv"))
	if err != nil {
		t.Fatalf("ReadValuesCSV(0-5min) error = %v", err)
	}
	if len(short) != 3 {
		t.Errorf("0-5min.csv has %d lines, want header plus 2", len(short))
	}

	empty, err := ReadValuesCSV(filepath.Join(dir, "unknown.csv"))
	if err != nil {
		t.Fatalf("ReadValuesCSV(unknown) error = %v", err)
	}
	if len(empty) != 1 || empty[0][0] != "channelAvatar" {
		t.Errorf("unknown.csv = %v, want header only", empty)
	}
}

func TestWriteValuesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	values := [][]string{{"title", "link"}, {"A & B", "https://example.com/?a=1&b=2"}}

	if err := WriteValuesJSON(path, values); err != nil {
		t.Fatalf("WriteValuesJSON() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "a=1&b=2") {
		t.Errorf("export escaped HTML characters: %s", data)
	}
	var got [][]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(got, values) {
		t.Errorf("export = %v, want %v", got, values)
	}
}
