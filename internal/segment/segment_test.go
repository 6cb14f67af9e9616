package segment_test

import (
	"testing"

	"himyc/internal/corpus"
	"himyc/internal/segment"
)

const transcript = "TED: Kids, I'm going to tell you an incredible story. The story of how I met your mother.\n\nKIDS: Are we being punished for something?\r\nTed: No.\nA long pause... Then laughter!"

func TestSentences(t *testing.T) {
	segs := segment.Sentences("S01E01", transcript)
	want := []struct {
		text    string
		speaker string
	}{
		{"Kids, I'm going to tell you an incredible story.", "TED"},
		{"The story of how I met your mother.", ""},
		{"Are we being punished for something?", "KIDS"},
		{"No.", "Ted"},
		{"A long pause...", ""},
		{"Then laughter!", ""},
	}
	if len(segs) != len(want) {
		t.Fatalf("expected %d sentences, got %d: %+v", len(want), len(segs), segs)
	}
	for i, w := range want {
		seg := segs[i]
		if seg.N != i || seg.Kind != corpus.KindSentence || seg.EpisodeID != "S01E01" {
			t.Fatalf("segment %d identity: %+v", i, seg)
		}
		if seg.Text != w.text || seg.SpeakerExplicit != w.speaker {
			t.Fatalf("segment %d = %q/%q, want %q/%q", i, seg.Text, seg.SpeakerExplicit, w.text, w.speaker)
		}
		if transcript[seg.StartChar:seg.EndChar] != seg.Text {
			t.Fatalf("segment %d offsets do not address its text", i)
		}
	}
}

func TestUtterances(t *testing.T) {
	segs := segment.Utterances("S01E01", transcript)
	if len(segs) != 4 {
		t.Fatalf("expected 4 utterances, got %d", len(segs))
	}
	if segs[0].SpeakerExplicit != "TED" || segs[0].Text != "Kids, I'm going to tell you an incredible story. The story of how I met your mother." {
		t.Fatalf("unexpected first utterance: %+v", segs[0])
	}
	if segs[1].Text != "Are we being punished for something?" {
		t.Fatalf("carriage return must be dropped: %q", segs[1].Text)
	}
	if segs[3].SpeakerExplicit != "" {
		t.Fatalf("speaker must not be inferred: %+v", segs[3])
	}
	for i, seg := range segs {
		if seg.N != i || seg.Kind != corpus.KindUtterance {
			t.Fatalf("utterance %d identity: %+v", i, seg)
		}
		if transcript[seg.StartChar:seg.EndChar] != seg.Text {
			t.Fatalf("utterance %d offsets do not address its text", i)
		}
	}
}

func TestDetectSpeaker(t *testing.T) {
	tests := []struct {
		line    string
		speaker string
		ok      bool
	}{
		{"MARSHALL: Lawyered.", "MARSHALL", true},
		{"Barney Stinson: Suit up!", "Barney Stinson", true},
		{"the time was 10:30 sharp", "", false},
		{"ROBIN:", "", false},
		{"lowercase: nope", "", false},
	}
	for _, tt := range tests {
		speaker, _, ok := segment.DetectSpeaker(tt.line)
		if speaker != tt.speaker || ok != tt.ok {
			t.Errorf("DetectSpeaker(%q) = %q,%v want %q,%v", tt.line, speaker, ok, tt.speaker, tt.ok)
		}
	}
}

func TestSplitEmpty(t *testing.T) {
	if segs := segment.Split("S01E01", corpus.KindSentence, "  \n\n "); len(segs) != 0 {
		t.Fatalf("expected no segments, got %+v", segs)
	}
}
