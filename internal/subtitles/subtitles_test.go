package subtitles_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"himyc/internal/subtitles"
	"himyc/internal/testsupport"
)

func TestParseSRTToleratesBOMAndCRLF(t *testing.T) {
	data := "\ufeff1\r\n00:00:01,000 --> 00:00:03,500\r\nKids, I'm going to tell you\r\nan incredible story.\r\n\r\n2\r\n00:00:04.250 --> 00:00:05.000\r\nThe story of how I met your mother.\r\n"
	entries, err := subtitles.Parse([]byte(data), subtitles.FormatSRT)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].StartMS != 1000 || entries[0].EndMS != 3500 {
		t.Fatalf("unexpected timing: %+v", entries[0])
	}
	if entries[0].Text != "Kids, I'm going to tell you\nan incredible story." {
		t.Fatalf("unexpected text: %q", entries[0].Text)
	}
	if entries[1].StartMS != 4250 || entries[1].EndMS != 5000 {
		t.Fatalf("dot separator not accepted: %+v", entries[1])
	}
}

func TestParseVTTSkipsHeaderAndNotes(t *testing.T) {
	data := `WEBVTT - episode one

NOTE translated by hand

STYLE
::cue { color: yellow }

intro
00:01.000 --> 00:02.500 align:start
<i>Bonjour</i>

00:00:03.000 --> 00:00:04.000
Ça va ?
`
	entries, err := subtitles.Parse([]byte(data), subtitles.FormatVTT)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].StartMS != 1000 || entries[0].EndMS != 2500 || entries[0].Text != "<i>Bonjour</i>" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].StartMS != 3000 {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := subtitles.Parse([]byte("not a subtitle file"), subtitles.FormatSRT); !errors.Is(err, subtitles.ErrNoCues) {
		t.Fatalf("expected ErrNoCues, got %v", err)
	}
	entries, err := subtitles.Parse([]byte("WEBVTT\n"), subtitles.FormatVTT)
	if err != nil || len(entries) != 0 {
		t.Fatalf("empty vtt should parse to nothing, got %v %v", entries, err)
	}
}

func TestSerializeRenumbersSequentially(t *testing.T) {
	entries := []subtitles.Entry{
		{StartMS: 3_723_004, EndMS: 3_724_000, Text: "Ted: Hello"},
		{StartMS: 0, EndMS: 999, Text: "Robin: Hi"},
	}
	srt, err := subtitles.Serialize(entries, subtitles.FormatSRT)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := "1\n01:02:03,004 --> 01:02:04,000\nTed: Hello\n\n2\n00:00:00,000 --> 00:00:00,999\nRobin: Hi\n"
	if string(srt) != want {
		t.Fatalf("unexpected srt:\n%s", srt)
	}

	vtt, err := subtitles.Serialize(entries, subtitles.FormatVTT)
	if err != nil {
		t.Fatalf("Serialize vtt: %v", err)
	}
	if !strings.HasPrefix(string(vtt), "WEBVTT\n\n1\n01:02:03.004 --> ") {
		t.Fatalf("unexpected vtt:\n%s", vtt)
	}
	back, err := subtitles.Parse(vtt, subtitles.FormatVTT)
	if err != nil {
		t.Fatalf("Parse vtt: %v", err)
	}
	if len(back) != 2 || back[0] != entries[0] || back[1] != entries[1] {
		t.Fatalf("vtt round trip mismatch: %+v", back)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"<i>Hello</i>\nworld", "Hello world"},
		{`{\an8}Legen...  wait for it`, "Legen... wait for it"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"Cafe\u0301", "Caf\u00e9"},
		{"  <b></b>  ", ""},
	}
	for _, tt := range tests {
		if got := subtitles.CleanText(tt.raw); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestRemoveAdvertisements(t *testing.T) {
	entries := []subtitles.Entry{
		{StartMS: 0, EndMS: 1000, Text: "Subtitles by someone"},
		{StartMS: 1000, EndMS: 2000, Text: "Suit up!"},
		{StartMS: 2000, EndMS: 3000, Text: "<i></i>"},
		{StartMS: 3000, EndMS: 4000, Text: "Visit www.example.com"},
	}
	kept, stats := subtitles.RemoveAdvertisements(entries)
	if len(kept) != 1 || kept[0].Text != "Suit up!" {
		t.Fatalf("unexpected kept entries: %+v", kept)
	}
	if stats.RemovedAds != 2 || stats.RemovedEmpty != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestReadFileBuildsCues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "S01E01.fr.srt")
	testsupport.WriteFile(t, path, "1\n00:00:01,000 --> 00:00:02,000\n<i>Bonjour</i>\n\n2\n00:00:02,000 --> 00:00:03,000\nSous-titres par OpenSubtitles\n")

	file, err := subtitles.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if file.Format != subtitles.FormatSRT || file.Digest == "" {
		t.Fatalf("unexpected file: %+v", file)
	}
	cues := subtitles.CuesFromEntries("S01E01", "FR", file.Entries)
	if len(cues) != 1 {
		t.Fatalf("expected advertisement removed, got %d cues", len(cues))
	}
	if cues[0].Lang != "fr" || cues[0].N != 0 || cues[0].TextRaw != "<i>Bonjour</i>" || cues[0].TextClean != "Bonjour" {
		t.Fatalf("unexpected cue: %+v", cues[0])
	}
}

func TestDetectFormat(t *testing.T) {
	if got := subtitles.DetectFormat("a.VTT", nil); got != subtitles.FormatVTT {
		t.Fatalf("extension detection failed: %s", got)
	}
	if got := subtitles.DetectFormat("a.txt", []byte("\ufeffWEBVTT\n")); got != subtitles.FormatVTT {
		t.Fatalf("signature detection failed: %s", got)
	}
	if got := subtitles.DetectFormat("a.txt", []byte("1\n")); got != subtitles.FormatSRT {
		t.Fatalf("fallback failed: %s", got)
	}
}

func TestFileSetCommitAndRestore(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "S01E01.en.srt")
	fresh := filepath.Join(dir, "S01E01.fr.srt")
	testsupport.WriteFile(t, existing, "old")

	set := subtitles.NewFileSet()
	if err := set.Stage(existing, []byte("new en")); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := set.Stage(fresh, []byte("new fr")); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if testsupport.ReadFile(t, existing) != "old" {
		t.Fatal("staging must not touch the target")
	}
	if err := set.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if testsupport.ReadFile(t, existing) != "new en" || testsupport.ReadFile(t, fresh) != "new fr" {
		t.Fatal("commit did not replace targets")
	}
	if err := set.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if testsupport.ReadFile(t, existing) != "old" {
		t.Fatal("restore did not bring back previous contents")
	}
	if _, err := os.Stat(fresh); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("restore should remove files that did not exist, stat err=%v", err)
	}
	set.Cleanup()
	leftovers, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(leftovers) != 1 {
		t.Fatalf("expected only the original file, got %d entries", len(leftovers))
	}
}

func TestFileSetCleanupDropsBackups(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "S01E01.en.vtt")
	testsupport.WriteFile(t, target, "old")
	set := subtitles.NewFileSet()
	if err := set.Stage(target, []byte("new")); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := set.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	set.Cleanup()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || testsupport.ReadFile(t, target) != "new" {
		t.Fatalf("unexpected directory state: %d entries", len(entries))
	}
}
