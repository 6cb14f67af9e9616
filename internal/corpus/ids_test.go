package corpus

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseSegmentID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    SegmentID
		wantErr bool
	}{
		{"simple", "S01E01:sentence:3", SegmentID{"S01E01", KindSentence, 3}, false},
		{"colon in episode", "himym:S01E01:utterance:0", SegmentID{"himym:S01E01", KindUtterance, 0}, false},
		{"unknown kind", "S01E01:word:1", SegmentID{}, true},
		{"negative ordinal", "S01E01:sentence:-1", SegmentID{}, true},
		{"missing fields", "S01E01", SegmentID{}, true},
		{"empty episode", ":sentence:1", SegmentID{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSegmentID(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidID) {
					t.Fatalf("expected ErrInvalidID, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSegmentID(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParseSegmentID(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
			if got.String() != tt.input {
				t.Fatalf("String() = %q, want %q", got.String(), tt.input)
			}
		})
	}
}

func TestParseCueIDLowercasesLang(t *testing.T) {
	got, err := ParseCueID("S01E01:FR:12")
	if err != nil {
		t.Fatalf("ParseCueID: %v", err)
	}
	want := CueID{EpisodeID: "S01E01", Lang: "fr", N: 12}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestIDsMarshalAsLegacyStrings(t *testing.T) {
	payload := struct {
		Segment *SegmentID `json:"segment_id"`
		Cue     CueID      `json:"cue_id"`
		Target  *CueID     `json:"cue_id_target"`
	}{
		Segment: &SegmentID{EpisodeID: "S01E01", Kind: KindSentence, N: 2},
		Cue:     CueID{EpisodeID: "S01E01", Lang: "en", N: 5},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"segment_id":"S01E01:sentence:2","cue_id":"S01E01:en:5","cue_id_target":null}`
	if string(data) != want {
		t.Fatalf("marshal = %s, want %s", data, want)
	}

	var decoded struct {
		Segment *SegmentID `json:"segment_id"`
		Cue     CueID      `json:"cue_id"`
		Target  *CueID     `json:"cue_id_target"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Segment == nil || *decoded.Segment != *payload.Segment {
		t.Fatalf("segment mismatch: %+v", decoded.Segment)
	}
	if decoded.Cue != payload.Cue || decoded.Target != nil {
		t.Fatalf("cue mismatch: %+v %+v", decoded.Cue, decoded.Target)
	}
}

func TestCharacterNameForFallsBackToCanonical(t *testing.T) {
	c := Character{ID: "ted", Canonical: "Ted", Names: map[string]string{"fr": "Ted M."}}
	if got := c.NameFor("FR"); got != "Ted M." {
		t.Fatalf("NameFor(fr) = %q", got)
	}
	if got := c.NameFor("es"); got != "Ted" {
		t.Fatalf("NameFor(es) = %q", got)
	}
}

func TestCueTextFallsBackToRaw(t *testing.T) {
	cue := Cue{TextRaw: "<i>Hi</i>", TextClean: "  "}
	if cue.Text() != "<i>Hi</i>" {
		t.Fatalf("Text() = %q", cue.Text())
	}
	cue.TextClean = "Hi"
	if cue.Text() != "Hi" {
		t.Fatalf("Text() = %q", cue.Text())
	}
}
