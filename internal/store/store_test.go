package store_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"himyc/internal/align"
	"himyc/internal/corpus"
	"himyc/internal/store"
	"himyc/internal/testsupport"
)

const episode = "S01E01"

func sentenceParams() map[string]any {
	return map[string]any{"segment_kind": "sentence"}
}

func segRef(id corpus.SegmentID) *corpus.SegmentID { return &id }

func cueRef(id corpus.CueID) *corpus.CueID { return &id }

// seedAligned builds the minimal aligned episode: one segment, one pivot
// cue, one target cue, and a run with one pivot and one target link.
func seedAligned(t *testing.T, st *store.Store, runID string) []align.Link {
	t.Helper()
	ctx := context.Background()

	segs := testsupport.SeedSegments(t, st, episode, corpus.KindSentence, "Kids, I'm going to tell you an incredible story.")
	pivot := testsupport.SeedTrack(t, st, episode, "en", testsupport.CueSpec{StartMS: 1000, EndMS: 3500, Text: "Kids, I'm going to tell you an incredible story."})
	target := testsupport.SeedTrack(t, st, episode, "fr", testsupport.CueSpec{StartMS: 1000, EndMS: 3400, Text: "Les enfants, je vais vous raconter une histoire incroyable."})

	links := []align.Link{
		{Segment: segRef(segs[0].ID()), Cue: pivot[0].ID(), Lang: "en", Role: align.RolePivot, Confidence: 1, Status: align.StatusAuto, Meta: map[string]any{"n_cues": 1}},
		{Cue: pivot[0].ID(), CueTarget: cueRef(target[0].ID()), Lang: "fr", Role: align.RoleTarget, Confidence: 0.96, Status: align.StatusAuto, Meta: map[string]any{"align": "by_time", "overlap_ms": 2400}},
	}
	run := store.Run{ID: runID, EpisodeID: episode, PivotLang: "en", Params: sentenceParams(), CreatedAt: time.Now()}
	stored, err := st.CreateRunWithLinks(ctx, run, links)
	if err != nil {
		t.Fatalf("CreateRunWithLinks: %v", err)
	}
	return stored
}

func TestOpenCreatesAndReopensSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	if st.Path() != cfg.DatabasePath() {
		t.Fatalf("unexpected path %q", st.Path())
	}
	st.Close()

	reopened, err := store.OpenPath(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	reopened.Close()

	fresh, err := store.OpenPath(filepath.Join(t.TempDir(), "nested", "fresh.db"))
	if err != nil {
		t.Fatalf("open fresh nested path: %v", err)
	}
	fresh.Close()
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "himyc.db")
	st, err := store.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	st.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := store.OpenPath(path); !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenRejectsMissingCorpusTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "himyc.db")
	st, err := store.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	st.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("DROP TABLE character_assignments"); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	db.Close()

	_, err = store.OpenPath(path)
	if !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "character_assignments") || !strings.Contains(err.Error(), path) {
		t.Fatalf("error should name the missing table and the database: %v", err)
	}
}

func TestIntegrityEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seedAligned(t, st, episode+":run1")

	links, err := st.QueryLinks(ctx, store.LinkFilter{EpisodeID: episode})
	if err != nil {
		t.Fatalf("QueryLinks: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}

	deleted, err := st.DeleteRunsForEpisode(ctx, episode)
	if err != nil {
		t.Fatalf("DeleteRunsForEpisode: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 run deleted, got %d", deleted)
	}

	links, err = st.QueryLinks(ctx, store.LinkFilter{EpisodeID: episode})
	if err != nil {
		t.Fatalf("QueryLinks after delete: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("expected no links, got %d", len(links))
	}
	runs, err := st.ListRuns(ctx, episode)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(runs))
	}
}

func TestResegmentationCascade(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seedAligned(t, st, episode+":run1")

	newSegs := []corpus.Segment{
		{EpisodeID: episode, Kind: corpus.KindSentence, N: 0, EndChar: 5, Text: "Kids,"},
		{EpisodeID: episode, Kind: corpus.KindSentence, N: 1, StartChar: 6, EndChar: 48, Text: "I'm going to tell you an incredible story."},
	}
	runsDeleted, err := st.ReplaceSegments(ctx, episode, corpus.KindSentence, newSegs)
	if err != nil {
		t.Fatalf("ReplaceSegments: %v", err)
	}
	if runsDeleted != 1 {
		t.Fatalf("expected re-segmentation to delete 1 run, got %d", runsDeleted)
	}

	current := map[string]bool{}
	for _, seg := range newSegs {
		current[seg.ID().String()] = true
	}
	links, err := st.QueryLinks(ctx, store.LinkFilter{EpisodeID: episode})
	if err != nil {
		t.Fatalf("QueryLinks: %v", err)
	}
	for _, link := range links {
		if link.Segment != nil && !current[link.Segment.String()] {
			t.Fatalf("link %s references stale segment %s", link.LinkID, link.Segment)
		}
	}
	report, err := st.CheckIntegrity(ctx, episode)
	if err != nil {
		t.Fatalf("CheckIntegrity: %v", err)
	}
	if !report.OK() {
		t.Fatalf("unexpected integrity report: %+v", report)
	}
}

func TestTrackReimportAndDeleteCascade(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seedAligned(t, st, episode+":run1")
	runsDeleted, err := st.ImportTrack(ctx, corpus.Track{EpisodeID: episode, Lang: "FR", Format: "srt"}, []corpus.Cue{
		{EpisodeID: episode, Lang: "fr", N: 0, StartMS: 0, EndMS: 900, TextRaw: "Salut", TextClean: "Salut"},
		{EpisodeID: episode, Lang: "fr", N: 1, StartMS: 900, EndMS: 1800, TextRaw: "Ça va", TextClean: "Ça va"},
	})
	if err != nil {
		t.Fatalf("ImportTrack: %v", err)
	}
	if runsDeleted != 1 {
		t.Fatalf("expected re-import to delete 1 run, got %d", runsDeleted)
	}
	cues, err := st.ListCues(ctx, episode, "fr")
	if err != nil {
		t.Fatalf("ListCues: %v", err)
	}
	if len(cues) != 2 || cues[1].Text() != "Ça va" {
		t.Fatalf("unexpected cues after re-import: %+v", cues)
	}

	seedAligned(t, st, episode+":run2")
	if _, err := st.DeleteTrack(ctx, episode, "fr"); err != nil {
		t.Fatalf("DeleteTrack: %v", err)
	}
	if _, err := st.GetTrack(ctx, episode, "fr"); !errors.Is(err, store.ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}
	cues, err = st.ListCues(ctx, episode, "fr")
	if err != nil {
		t.Fatalf("ListCues: %v", err)
	}
	if len(cues) != 0 {
		t.Fatalf("expected cues removed with track, got %d", len(cues))
	}
	runs, err := st.ListRuns(ctx, episode)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected runs removed with track, got %d", len(runs))
	}
	if _, err := st.DeleteTrack(ctx, episode, "fr"); !errors.Is(err, store.ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound on second delete, got %v", err)
	}
}

func TestCreateRunRejectsDuplicateAndMissingKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run := store.Run{ID: episode + ":dup", EpisodeID: episode, PivotLang: "en", Params: sentenceParams()}
	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := st.CreateRun(ctx, run); !errors.Is(err, store.ErrRunExists) {
		t.Fatalf("expected ErrRunExists, got %v", err)
	}
	bad := store.Run{ID: episode + ":bad", EpisodeID: episode, PivotLang: "en"}
	if err := st.CreateRun(ctx, bad); err == nil {
		t.Fatal("expected error for run without segment_kind")
	}

	got, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.SegmentKind() != corpus.KindSentence || got.PivotLang != "en" {
		t.Fatalf("unexpected run: %+v", got)
	}
	if _, err := st.GetRun(ctx, "missing"); !errors.Is(err, store.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestCreateRunWithLinksIsAtomic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	pivot := testsupport.SeedTrack(t, st, episode, "en", testsupport.CueSpec{StartMS: 0, EndMS: 1000, Text: "Hi"})
	missing := corpus.CueID{EpisodeID: episode, Lang: "de", N: 7}
	links := []align.Link{
		{Cue: pivot[0].ID(), CueTarget: cueRef(pivot[0].ID()), Lang: "en", Role: align.RoleTarget, Confidence: 1},
		{Cue: pivot[0].ID(), CueTarget: cueRef(missing), Lang: "de", Role: align.RoleTarget, Confidence: 1},
	}
	run := store.Run{ID: episode + ":atomic", EpisodeID: episode, PivotLang: "en", Params: sentenceParams()}
	if _, err := st.CreateRunWithLinks(ctx, run, links); err == nil {
		t.Fatal("expected foreign key failure for missing target cue")
	}
	if _, err := st.GetRun(ctx, run.ID); !errors.Is(err, store.ErrRunNotFound) {
		t.Fatalf("run must not survive a failed link insert, got %v", err)
	}
}

func TestUpsertLinksAppends(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stored := seedAligned(t, st, episode+":run1")
	again := []align.Link{stored[0]}
	again[0].LinkID = ""
	if _, err := st.UpsertLinks(ctx, episode+":run1", episode, again); err != nil {
		t.Fatalf("UpsertLinks: %v", err)
	}
	links, err := st.QueryLinks(ctx, store.LinkFilter{EpisodeID: episode, RunID: episode + ":run1"})
	if err != nil {
		t.Fatalf("QueryLinks: %v", err)
	}
	if len(links) != 3 {
		t.Fatalf("expected appended links to total 3, got %d", len(links))
	}
	if _, err := st.UpsertLinks(ctx, "missing", episode, again); !errors.Is(err, store.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.UpsertLinks(ctx, episode+":run1", "S09E99", again); !errors.Is(err, store.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound for foreign episode, got %v", err)
	}
}

func TestQueryLinksFiltersAndStatusUpdates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stored := seedAligned(t, st, episode+":run1")
	pivotLink, targetLink := stored[0], stored[1]

	if err := st.UpdateLinkStatus(ctx, targetLink.LinkID, align.StatusRejected); err != nil {
		t.Fatalf("UpdateLinkStatus: %v", err)
	}
	if err := st.UpdateLinkStatus(ctx, targetLink.LinkID, align.StatusAccepted); err != nil {
		t.Fatalf("direct overwrite should be allowed: %v", err)
	}
	if err := st.UpdateLinkStatus(ctx, "nope", align.StatusAccepted); !errors.Is(err, store.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}

	threshold := 0.97
	tests := []struct {
		name   string
		filter store.LinkFilter
		want   []string
	}{
		{"all", store.LinkFilter{EpisodeID: episode}, []string{pivotLink.LinkID, targetLink.LinkID}},
		{"accepted", store.LinkFilter{EpisodeID: episode, Status: align.StatusAccepted}, []string{targetLink.LinkID}},
		{"min confidence", store.LinkFilter{EpisodeID: episode, MinConfidence: &threshold}, []string{pivotLink.LinkID}},
		{"role", store.LinkFilter{EpisodeID: episode, Role: align.RoleTarget}, []string{targetLink.LinkID}},
		{"lang", store.LinkFilter{EpisodeID: episode, Lang: "EN"}, []string{pivotLink.LinkID}},
		{"other run", store.LinkFilter{EpisodeID: episode, RunID: "other"}, nil},
		{"other episode", store.LinkFilter{EpisodeID: "S02E02"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links, err := st.QueryLinks(ctx, tt.filter)
			if err != nil {
				t.Fatalf("QueryLinks: %v", err)
			}
			if len(links) != len(tt.want) {
				t.Fatalf("expected %d links, got %d", len(tt.want), len(links))
			}
			for i, link := range links {
				if link.LinkID != tt.want[i] {
					t.Fatalf("link %d: got %s want %s", i, link.LinkID, tt.want[i])
				}
			}
		})
	}

	if _, err := st.QueryLinks(ctx, store.LinkFilter{}); err == nil {
		t.Fatal("expected error without episode scope")
	}

	got, err := st.GetLink(ctx, targetLink.LinkID)
	if err != nil {
		t.Fatalf("GetLink: %v", err)
	}
	if got.Status != align.StatusAccepted || got.CueTarget == nil || got.CueTarget.Lang != "fr" {
		t.Fatalf("unexpected link: %+v", got)
	}
	if got.MetaString("align") != "by_time" || got.MetaInt("overlap_ms", 0) != 2400 {
		t.Fatalf("meta did not round trip: %+v", got.Meta)
	}

	updated, err := st.BulkUpdateStatus(ctx, store.LinkFilter{EpisodeID: episode, Status: align.StatusAuto}, align.StatusAccepted)
	if err != nil {
		t.Fatalf("BulkUpdateStatus: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 bulk update, got %d", updated)
	}
}

func TestGetAlignStatsForRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stored := seedAligned(t, st, episode+":run1")
	if err := st.UpdateLinkStatus(ctx, stored[1].LinkID, align.StatusRejected); err != nil {
		t.Fatalf("UpdateLinkStatus: %v", err)
	}
	stats, err := st.GetAlignStatsForRun(ctx, episode, episode+":run1")
	if err != nil {
		t.Fatalf("GetAlignStatsForRun: %v", err)
	}
	if stats.Total != 2 || stats.PivotSegments != 1 || stats.PivotCues != 1 || stats.TargetCues != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.ByStatus[align.StatusAuto] != 1 || stats.ByStatus[align.StatusRejected] != 1 {
		t.Fatalf("unexpected status counts: %+v", stats.ByStatus)
	}
	if stats.ByLang["en"] != 1 || stats.ByLang["fr"] != 1 {
		t.Fatalf("unexpected language counts: %+v", stats.ByLang)
	}
	if stats.AverageConfidence != 0.98 {
		t.Fatalf("expected average confidence 0.98, got %v", stats.AverageConfidence)
	}
	if _, err := st.GetAlignStatsForRun(ctx, "S02E02", episode+":run1"); !errors.Is(err, store.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound for wrong episode, got %v", err)
	}
}

func TestAssignmentsRequireCatalogCharacter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	segs := testsupport.SeedSegments(t, st, episode, corpus.KindSentence, "Hello.")
	a := corpus.Assignment{EpisodeID: episode, SourceType: corpus.SourceSegment, SourceID: segs[0].ID().String(), CharacterID: "ted"}
	if err := st.SetAssignment(ctx, a); !errors.Is(err, store.ErrCharacterNotFound) {
		t.Fatalf("expected ErrCharacterNotFound, got %v", err)
	}
	testsupport.SeedCharacters(t, st,
		corpus.Character{ID: "ted", Canonical: "Ted", Names: map[string]string{"fr": "Ted"}},
		corpus.Character{ID: "barney", Canonical: "Barney"},
	)
	if err := st.SetAssignment(ctx, a); err != nil {
		t.Fatalf("SetAssignment: %v", err)
	}
	a.CharacterID = "barney"
	if err := st.SetAssignment(ctx, a); err != nil {
		t.Fatalf("SetAssignment overwrite: %v", err)
	}
	got, err := st.ListAssignments(ctx, episode)
	if err != nil {
		t.Fatalf("ListAssignments: %v", err)
	}
	if len(got) != 1 || got[0].CharacterID != "barney" {
		t.Fatalf("unexpected assignments: %+v", got)
	}
	bad := corpus.Assignment{EpisodeID: episode, SourceType: corpus.SourceCue, SourceID: "not-an-id", CharacterID: "ted"}
	if err := st.SetAssignment(ctx, bad); err == nil {
		t.Fatal("expected invalid source id error")
	}
	if err := st.DeleteAssignment(ctx, episode, corpus.SourceSegment, segs[0].ID().String()); err != nil {
		t.Fatalf("DeleteAssignment: %v", err)
	}
	got, err = st.ListAssignments(ctx, episode)
	if err != nil {
		t.Fatalf("ListAssignments: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected assignment removed, got %+v", got)
	}

	chars, err := st.ListCharacters(ctx)
	if err != nil {
		t.Fatalf("ListCharacters: %v", err)
	}
	if len(chars) != 2 || chars[1].ID != "ted" || chars[1].NameFor("fr") != "Ted" {
		t.Fatalf("unexpected catalog: %+v", chars)
	}
}

func TestTxRollbackDiscardsUpdates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	cues := testsupport.SeedTrack(t, st, episode, "en", testsupport.CueSpec{StartMS: 0, EndMS: 1000, Text: "Hi"})
	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	changed, err := tx.SetCueText(ctx, cues[0].ID(), "TED: Hi")
	if err != nil || !changed {
		t.Fatalf("SetCueText: changed=%v err=%v", changed, err)
	}
	inside, err := tx.ListCues(ctx, episode, "en")
	if err != nil {
		t.Fatalf("ListCues in tx: %v", err)
	}
	if inside[0].TextClean != "TED: Hi" {
		t.Fatalf("tx should observe its own update, got %q", inside[0].TextClean)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	after, err := st.ListCues(ctx, episode, "en")
	if err != nil {
		t.Fatalf("ListCues: %v", err)
	}
	if after[0].TextClean != "Hi" {
		t.Fatalf("rollback should discard update, got %q", after[0].TextClean)
	}

	err = st.WithTx(ctx, func(tx *store.Tx) error {
		changed, err := tx.SetCueText(ctx, cues[0].ID(), "Hi")
		if err != nil {
			return err
		}
		if changed {
			t.Error("writing identical text must not count as a change")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
}

func TestListEpisodes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.UpsertEpisode(ctx, "S01E02", "Purple Giraffe"); err != nil {
		t.Fatalf("UpsertEpisode: %v", err)
	}
	testsupport.SeedSegments(t, st, episode, corpus.KindUtterance, "TED: Hi.")
	episodes, err := st.ListEpisodes(ctx)
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if len(episodes) != 2 || episodes[0].ID != episode || episodes[1].Title != "Purple Giraffe" {
		t.Fatalf("unexpected episodes: %+v", episodes)
	}
}
