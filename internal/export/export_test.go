package export_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"himyc/internal/align"
	"himyc/internal/corpus"
	"himyc/internal/export"
	"himyc/internal/grouping"
)

func sampleLinks() []align.Link {
	seg := corpus.SegmentID{EpisodeID: "S01E01", Kind: corpus.KindSentence, N: 4}
	target := corpus.CueID{EpisodeID: "S01E01", Lang: "fr", N: 7}
	return []align.Link{
		{
			LinkID:     "a1",
			Segment:    &seg,
			Cue:        corpus.CueID{EpisodeID: "S01E01", Lang: "en", N: 3},
			Lang:       "en",
			Role:       align.RolePivot,
			Confidence: 0.8333,
			Status:     align.StatusAuto,
			Meta:       map[string]any{"n_cues": 2},
		},
		{
			LinkID:     "a2",
			Cue:        corpus.CueID{EpisodeID: "S01E01", Lang: "en", N: 3},
			CueTarget:  &target,
			Lang:       "fr",
			Role:       align.RoleTarget,
			Confidence: 1,
			Status:     align.StatusRejected,
			Meta:       map[string]any{"align": "by_time", "overlap_ms": int64(2400), "note": "a, \"quoted\" value"},
		},
		{
			LinkID:     "a3",
			Cue:        corpus.CueID{EpisodeID: "S01E01", Lang: "en", N: 4},
			CueTarget:  &target,
			Lang:       "fr",
			Role:       align.RoleTarget,
			Confidence: 0.25,
			Status:     align.StatusAccepted,
		},
	}
}

func TestLinksRoundTrip(t *testing.T) {
	for _, format := range []export.Format{export.FormatCSV, export.FormatJSONL} {
		t.Run(string(format), func(t *testing.T) {
			var first bytes.Buffer
			if err := export.WriteLinks(&first, sampleLinks(), format); err != nil {
				t.Fatalf("WriteLinks: %v", err)
			}
			links, err := export.ReadLinks(bytes.NewReader(first.Bytes()), format)
			if err != nil {
				t.Fatalf("ReadLinks: %v", err)
			}
			if len(links) != 3 {
				t.Fatalf("expected 3 links, got %d", len(links))
			}
			if links[0].Segment == nil || links[0].Segment.N != 4 || links[0].CueTarget != nil {
				t.Fatalf("pivot link ids lost: %+v", links[0])
			}
			if links[1].Segment != nil || links[1].CueTarget == nil || links[1].CueTarget.Lang != "fr" {
				t.Fatalf("target link ids lost: %+v", links[1])
			}
			if links[0].MetaInt("n_cues", 0) != 2 || links[1].MetaInt("overlap_ms", 0) != 2400 {
				t.Fatalf("meta numbers lost: %+v / %+v", links[0].Meta, links[1].Meta)
			}
			if links[1].MetaString("note") != "a, \"quoted\" value" {
				t.Fatalf("meta string lost: %q", links[1].MetaString("note"))
			}
			if links[2].Meta != nil || links[2].Status != align.StatusAccepted || links[2].Confidence != 0.25 {
				t.Fatalf("unexpected third link: %+v", links[2])
			}

			var second bytes.Buffer
			if err := export.WriteLinks(&second, links, format); err != nil {
				t.Fatalf("WriteLinks again: %v", err)
			}
			if first.String() != second.String() {
				t.Fatalf("round trip is not stable:\n%s\n---\n%s", first.String(), second.String())
			}
		})
	}
}

func TestLinksCSVHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteLinksCSV(&buf, sampleLinks()[:1]); err != nil {
		t.Fatalf("WriteLinksCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "link_id,segment_id,cue_id,cue_id_target,lang,role,confidence,status,meta" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != `a1,S01E01:sentence:4,S01E01:en:3,,en,pivot,0.8333,auto,"{""n_cues"":2}"` {
		t.Fatalf("unexpected row %q", lines[1])
	}
}

func TestReadLinksCSVRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"wrong header", "id,segment_id,cue_id,cue_id_target,lang,role,confidence,status,meta\n"},
		{"bad cue id", "link_id,segment_id,cue_id,cue_id_target,lang,role,confidence,status,meta\nx,,nope,,fr,target,1,auto,\n"},
		{"bad confidence", "link_id,segment_id,cue_id,cue_id_target,lang,role,confidence,status,meta\nx,,S01E01:en:0,S01E01:fr:0,fr,target,high,auto,\n"},
		{"target without target cue", "link_id,segment_id,cue_id,cue_id_target,lang,role,confidence,status,meta\nx,,S01E01:en:0,,fr,target,1,auto,\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := export.ReadLinksCSV(strings.NewReader(tt.input)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
	links, err := export.ReadLinksCSV(strings.NewReader(""))
	if err != nil || len(links) != 0 {
		t.Fatalf("empty input should yield no links, got %v, %v", links, err)
	}
}

func TestWriteTable(t *testing.T) {
	table := grouping.Table{
		Columns: []string{"segment_id", "character_id", "text_segment", "text_en", "confidence_pivot", "text_fr", "confidence_fr"},
		Rows: [][]string{
			{"S01E01:sentence:0", "ted", "Kids.\nListen.", "Kids.\nListen.", "1", "Les enfants.", "0.9"},
		},
	}

	var tsv bytes.Buffer
	if err := export.WriteTable(&tsv, table, export.FormatTSV); err != nil {
		t.Fatalf("WriteTable tsv: %v", err)
	}
	if !strings.HasPrefix(tsv.String(), "segment_id\tcharacter_id\ttext_segment\t") {
		t.Fatalf("unexpected tsv header: %q", tsv.String())
	}

	var jsonl bytes.Buffer
	if err := export.WriteTable(&jsonl, table, export.FormatJSONL); err != nil {
		t.Fatalf("WriteTable jsonl: %v", err)
	}
	want := `{"segment_id":"S01E01:sentence:0","character_id":"ted","text_segment":"Kids.\nListen.","text_en":"Kids.\nListen.","confidence_pivot":"1","text_fr":"Les enfants.","confidence_fr":"0.9"}` + "\n"
	if jsonl.String() != want {
		t.Fatalf("unexpected jsonl:\n%s", jsonl.String())
	}

	if err := export.WriteTable(&bytes.Buffer{}, table, export.Format("xlsx")); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestLinksFileByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "links.jsonl")
	if err := export.LinksToFile(path, sampleLinks(), ""); err != nil {
		t.Fatalf("LinksToFile: %v", err)
	}
	links, err := export.LinksFromFile(path)
	if err != nil {
		t.Fatalf("LinksFromFile: %v", err)
	}
	if len(links) != 3 || links[2].LinkID != "a3" {
		t.Fatalf("unexpected links %+v", links)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]export.Format{"": export.FormatCSV, "TSV": export.FormatTSV, ".jsonl": export.FormatJSONL, "ndjson": export.FormatJSONL}
	for input, want := range tests {
		got, err := export.ParseFormat(input)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := export.ParseFormat("xml"); err == nil {
		t.Fatal("expected error")
	}
}
