package testsupport

import (
	"context"
	"testing"

	"himyc/internal/config"
	"himyc/internal/corpus"
	"himyc/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// CueSpec describes one cue of a seeded track.
type CueSpec struct {
	StartMS int64
	EndMS   int64
	Text    string
}

// SeedSegments stores one segment per text, with byte offsets as if the
// texts were joined by single spaces.
func SeedSegments(t testing.TB, st *store.Store, episodeID string, kind corpus.SegmentKind, texts ...string) []corpus.Segment {
	t.Helper()

	segs := make([]corpus.Segment, len(texts))
	offset := 0
	for i, text := range texts {
		segs[i] = corpus.Segment{
			EpisodeID: episodeID,
			Kind:      kind,
			N:         i,
			StartChar: offset,
			EndChar:   offset + len(text),
			Text:      text,
		}
		offset += len(text) + 1
	}
	if _, err := st.ReplaceSegments(context.Background(), episodeID, kind, segs); err != nil {
		t.Fatalf("ReplaceSegments: %v", err)
	}
	return segs
}

// SeedTrack stores a subtitle track for (episode, lang) built from specs.
func SeedTrack(t testing.TB, st *store.Store, episodeID, lang string, specs ...CueSpec) []corpus.Cue {
	t.Helper()

	cues := make([]corpus.Cue, len(specs))
	for i, spec := range specs {
		cues[i] = corpus.Cue{
			EpisodeID: episodeID,
			Lang:      lang,
			N:         i,
			StartMS:   spec.StartMS,
			EndMS:     spec.EndMS,
			TextRaw:   spec.Text,
			TextClean: spec.Text,
		}
	}
	track := corpus.Track{EpisodeID: episodeID, Lang: lang, Format: "srt"}
	if _, err := st.ImportTrack(context.Background(), track, cues); err != nil {
		t.Fatalf("ImportTrack: %v", err)
	}
	return cues
}

// SeedCharacters stores catalog entries.
func SeedCharacters(t testing.TB, st *store.Store, chars ...corpus.Character) {
	t.Helper()

	if err := st.UpsertCharacters(context.Background(), chars); err != nil {
		t.Fatalf("UpsertCharacters: %v", err)
	}
}
