package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"himyc/internal/logs"
)

const sample = `{"ts":"2024-03-01T12:30:00Z","level":"info","msg":"transcript imported","component":"workbench","episode_id":"S01E01","segments":2}
not json at all
{"ts":"2024-03-01T12:31:00Z","level":"info","msg":"alignment finished","component":"workbench","episode_id":"S01E01","run_id":"S01E01:20240301T123100Z"}
{"ts":"2024-03-01T12:32:00Z","level":"warn","msg":"alignment produced no links","episode_id":"S01E02","run_id":"S01E02:20240301T123200Z","event_type":"alignment_empty"}
{"ts":"2024-03-01T12:33:00Z","level":"error","msg":"propagation failed","episode_id":"S01E01","run_id":"S01E01:20240301T123100Z"}
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "himyc.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func messages(entries []logs.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Message)
	}
	return out
}

func TestTailLastEntries(t *testing.T) {
	path := writeLog(t, sample)

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	got := strings.Join(messages(result.Entries), "|")
	if got != "alignment produced no links|propagation failed" {
		t.Fatalf("unexpected entries: %s", got)
	}
	if result.Offset != int64(len(sample)) {
		t.Fatalf("expected offset %d, got %d", len(sample), result.Offset)
	}
}

func TestTailFilters(t *testing.T) {
	path := writeLog(t, sample)

	tests := []struct {
		name   string
		filter logs.Filter
		want   string
	}{
		{"episode", logs.Filter{EpisodeID: "S01E01"}, "transcript imported|alignment finished|propagation failed"},
		{"run", logs.Filter{RunID: "S01E01:20240301T123100Z"}, "alignment finished|propagation failed"},
		{"level", logs.Filter{MinLevel: "warn"}, "alignment produced no links|propagation failed"},
		{"event", logs.Filter{EventType: "alignment_empty"}, "alignment produced no links"},
		{"episode and level", logs.Filter{EpisodeID: "S01E01", MinLevel: "error"}, "propagation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10, Filter: tt.filter})
			if err != nil {
				t.Fatalf("tail: %v", err)
			}
			if got := strings.Join(messages(result.Entries), "|"); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "absent.log"), logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Entries) != 0 || result.Offset != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestTailLeavesPartialLine(t *testing.T) {
	complete := `{"level":"info","msg":"one"}` + "\n"
	path := writeLog(t, complete+`{"level":"info","msg":"tw`)

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 0})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Entries) != 1 || result.Offset != int64(len(complete)) {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestTailFollowWaits(t *testing.T) {
	path := writeLog(t, `{"level":"info","msg":"start"}`+"\n")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("expected initial entry, got %#v", result.Entries)
	}

	done := make(chan struct{})
	go func(offset int64) {
		defer close(done)
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow tail error: %v", err)
			return
		}
		if len(res.Entries) != 1 || res.Entries[0].Message != "later" {
			t.Errorf("unexpected follow entries: %#v", res.Entries)
		}
	}(result.Offset)

	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString(`{"level":"info","msg":"later"}` + "\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}

func TestParseEntryAndFormat(t *testing.T) {
	if _, ok := logs.ParseEntry("plain text"); ok {
		t.Fatal("expected non-JSON line to be skipped")
	}
	entry, ok := logs.ParseEntry(`{"level":"WARN","msg":"cache unreadable","component":"grouping","run_id":"r1","path":"/tmp/x"}`)
	if !ok {
		t.Fatal("expected entry")
	}
	if entry.Level != "warn" || entry.RunID != "r1" || entry.Fields["path"] != "/tmp/x" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if got := entry.Format(); got != "WARN  [grouping] cache unreadable run_id=r1 path=/tmp/x" {
		t.Fatalf("unexpected format: %q", got)
	}
	if _, err := logs.ParseLevel("verbose"); err == nil {
		t.Fatal("expected unknown level error")
	}
}
