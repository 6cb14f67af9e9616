package store

import (
	"time"

	"himyc/internal/align"
	"himyc/internal/corpus"
)

// Episode is one transcript/subtitle unit of the corpus.
type Episode struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

// Run is one alignment execution for an episode. Params must carry
// segment_kind so later tooling knows which segment population was aligned.
type Run struct {
	ID        string         `json:"align_run_id"`
	EpisodeID string         `json:"episode_id"`
	PivotLang string         `json:"pivot_lang"`
	Params    map[string]any `json:"params"`
	CreatedAt time.Time      `json:"created_at"`
	Summary   map[string]any `json:"summary"`
}

// SegmentKind returns the segment population the run aligned.
func (r Run) SegmentKind() corpus.SegmentKind {
	if value, ok := r.Params["segment_kind"].(string); ok {
		return corpus.SegmentKind(value)
	}
	return ""
}

// RunStats aggregates the links of one run.
type RunStats struct {
	RunID             string               `json:"align_run_id"`
	Total             int                  `json:"total"`
	ByStatus          map[align.Status]int `json:"by_status"`
	ByLang            map[string]int       `json:"by_lang"`
	PivotSegments     int                  `json:"pivot_segments"`
	PivotCues         int                  `json:"pivot_cues"`
	TargetCues        int                  `json:"target_cues"`
	AverageConfidence float64              `json:"avg_confidence"`
}

// LinkFilter selects links. EpisodeID is required; the other fields narrow
// the result when set. An empty RunID spans every run of the episode.
type LinkFilter struct {
	EpisodeID     string
	RunID         string
	Status        align.Status
	MinConfidence *float64
	Role          align.Role
	Lang          string
}

// IntegrityReport counts dangling references found by CheckIntegrity.
type IntegrityReport struct {
	ForeignKeyViolations int `json:"foreign_key_violations"`
	OrphanSegmentLinks   int `json:"orphan_segment_links"`
	OrphanCueLinks       int `json:"orphan_cue_links"`
	OrphanTargetLinks    int `json:"orphan_target_links"`
	RunlessLinks         int `json:"runless_links"`
	// DanglingAssignments point at a segment or cue that no longer exists.
	// They do not corrupt alignments and are reported separately.
	DanglingAssignments int `json:"dangling_assignments"`
}

// OK reports whether the alignment graph has no dangling references.
func (r IntegrityReport) OK() bool {
	return r.ForeignKeyViolations == 0 && r.OrphanSegmentLinks == 0 &&
		r.OrphanCueLinks == 0 && r.OrphanTargetLinks == 0 && r.RunlessLinks == 0
}
