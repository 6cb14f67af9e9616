package grouping

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"himyc/internal/align"
	"himyc/internal/catalog"
	"himyc/internal/corpus"
	"himyc/internal/store"
)

// Reader is the read-only storage surface grouping needs. Both *store.Store
// and *store.Tx satisfy it.
type Reader interface {
	GetRun(ctx context.Context, runID string) (*store.Run, error)
	ListSegments(ctx context.Context, episodeID string, kind corpus.SegmentKind) ([]corpus.Segment, error)
	ListCues(ctx context.Context, episodeID, lang string) ([]corpus.Cue, error)
	QueryLinks(ctx context.Context, filter store.LinkFilter) ([]align.Link, error)
	ListAssignments(ctx context.Context, episodeID string) ([]corpus.Assignment, error)
	ListCharacters(ctx context.Context) ([]corpus.Character, error)
}

// Group is a run of consecutive segments attributed to one character.
// CharacterID is empty when no identity could be resolved. TextsByLang holds
// the newline-joined cue texts per language, pivot language included.
type Group struct {
	CharacterID      string             `json:"character_id,omitempty"`
	SegmentIDs       []corpus.SegmentID `json:"segment_ids"`
	TextSegment      string             `json:"text_segment"`
	TextsByLang      map[string]string  `json:"texts_by_lang"`
	ConfidenceByLang map[string]float64 `json:"confidence_by_lang"`
}

// Result is the grouping of one run. Languages lists the target languages
// present in the run, sorted.
type Result struct {
	RunID       string             `json:"align_run_id"`
	EpisodeID   string             `json:"episode_id"`
	PivotLang   string             `json:"pivot_lang"`
	SegmentKind corpus.SegmentKind `json:"segment_kind"`
	Tolerant    bool               `json:"tolerant"`
	Languages   []string           `json:"languages"`
	Groups      []Group            `json:"groups"`
}

// Generate builds the grouping of runID. In tolerant mode a segment without
// a resolvable identity joins the preceding group; otherwise it starts its
// own group with no character. Rejected links are ignored.
func Generate(ctx context.Context, r Reader, runID, episodeID string, tolerant bool) (*Result, error) {
	run, err := r.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.EpisodeID != episodeID {
		return nil, fmt.Errorf("%w: %s does not belong to episode %s", store.ErrRunNotFound, runID, episodeID)
	}
	kind := run.SegmentKind()
	if !kind.Valid() {
		kind = corpus.KindSentence
	}
	pivotLang := corpus.NormalizeLang(run.PivotLang)

	segments, err := r.ListSegments(ctx, episodeID, kind)
	if err != nil {
		return nil, err
	}
	links, err := r.QueryLinks(ctx, store.LinkFilter{EpisodeID: episodeID, RunID: runID})
	if err != nil {
		return nil, err
	}
	assignments, err := r.ListAssignments(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	characters, err := r.ListCharacters(ctx)
	if err != nil {
		return nil, err
	}

	g := newGraph(links, kind)
	cues := map[string]map[int]corpus.Cue{}
	for _, lang := range append([]string{pivotLang}, g.languages()...) {
		list, err := r.ListCues(ctx, episodeID, lang)
		if err != nil {
			return nil, err
		}
		byN := make(map[int]corpus.Cue, len(list))
		for _, cue := range list {
			byN[cue.N] = cue
		}
		cues[lang] = byN
	}

	resolver := newResolver(assignments, characters)
	var builders []*groupBuilder
	for _, seg := range segments {
		identity := resolver.identity(seg)
		var current *groupBuilder
		if len(builders) > 0 {
			current = builders[len(builders)-1]
		}
		switch {
		case current == nil:
		case identity != "" && identity == current.characterID:
		case identity == "" && tolerant:
		default:
			current = nil
		}
		if current == nil {
			current = newGroupBuilder(identity)
			builders = append(builders, current)
		}
		current.add(seg, g, pivotLang, cues[pivotLang])
	}

	result := &Result{
		RunID:       runID,
		EpisodeID:   episodeID,
		PivotLang:   pivotLang,
		SegmentKind: kind,
		Tolerant:    tolerant,
		Languages:   g.languages(),
		Groups:      make([]Group, 0, len(builders)),
	}
	for _, b := range builders {
		result.Groups = append(result.Groups, b.build(pivotLang, cues))
	}
	return result, nil
}

type graph struct {
	bySegment map[int][]align.Link
	byPivot   map[int][]align.Link
	langs     map[string]struct{}
}

func newGraph(links []align.Link, kind corpus.SegmentKind) *graph {
	g := &graph{
		bySegment: map[int][]align.Link{},
		byPivot:   map[int][]align.Link{},
		langs:     map[string]struct{}{},
	}
	for _, link := range links {
		if link.Status == align.StatusRejected {
			continue
		}
		switch link.Role {
		case align.RolePivot:
			if link.Segment != nil && link.Segment.Kind == kind {
				g.bySegment[link.Segment.N] = append(g.bySegment[link.Segment.N], link)
			}
		case align.RoleTarget:
			if link.CueTarget != nil {
				g.byPivot[link.Cue.N] = append(g.byPivot[link.Cue.N], link)
				g.langs[link.CueTarget.Lang] = struct{}{}
			}
		}
	}
	return g
}

func (g *graph) languages() []string {
	langs := make([]string, 0, len(g.langs))
	for lang := range g.langs {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

type resolver struct {
	assigned map[string]string
	index    *catalog.Index
}

func newResolver(assignments []corpus.Assignment, characters []corpus.Character) *resolver {
	assigned := make(map[string]string, len(assignments))
	for _, a := range assignments {
		if a.SourceType == corpus.SourceSegment {
			assigned[a.SourceID] = a.CharacterID
		}
	}
	return &resolver{assigned: assigned, index: catalog.NewIndex(characters)}
}

// identity prefers an explicit assignment, then a speaker label matched
// against the catalog. A label missing from the catalog is used verbatim.
func (r *resolver) identity(seg corpus.Segment) string {
	if id, ok := r.assigned[seg.ID().String()]; ok {
		return id
	}
	label := strings.TrimSpace(seg.SpeakerExplicit)
	if label == "" {
		return ""
	}
	if ch, ok := r.index.Resolve(label); ok {
		return ch.ID
	}
	return label
}

type confidence struct {
	sum   float64
	count int
}

func (c *confidence) add(v float64) {
	c.sum += v
	c.count++
}

type groupBuilder struct {
	characterID string
	segmentIDs  []corpus.SegmentID
	texts       []string
	cueNs       map[string][]int
	seen        map[string]map[int]struct{}
	conf        map[string]*confidence
}

func newGroupBuilder(characterID string) *groupBuilder {
	return &groupBuilder{
		characterID: characterID,
		cueNs:       map[string][]int{},
		seen:        map[string]map[int]struct{}{},
		conf:        map[string]*confidence{},
	}
}

func (b *groupBuilder) addCue(lang string, n int) bool {
	seen := b.seen[lang]
	if seen == nil {
		seen = map[int]struct{}{}
		b.seen[lang] = seen
	}
	if _, ok := seen[n]; ok {
		return false
	}
	seen[n] = struct{}{}
	b.cueNs[lang] = append(b.cueNs[lang], n)
	return true
}

func (b *groupBuilder) addConfidence(lang string, v float64) {
	c := b.conf[lang]
	if c == nil {
		c = &confidence{}
		b.conf[lang] = c
	}
	c.add(v)
}

func (b *groupBuilder) add(seg corpus.Segment, g *graph, pivotLang string, pivotCues map[int]corpus.Cue) {
	b.segmentIDs = append(b.segmentIDs, seg.ID())
	b.texts = append(b.texts, seg.Text)
	for _, link := range g.bySegment[seg.N] {
		b.addConfidence(pivotLang, link.Confidence)
		span := max(link.MetaInt("n_cues", 1), 1)
		for n := link.Cue.N; n < link.Cue.N+span; n++ {
			if _, ok := pivotCues[n]; !ok {
				continue
			}
			if !b.addCue(pivotLang, n) {
				continue
			}
			for _, target := range g.byPivot[n] {
				lang := target.CueTarget.Lang
				b.addCue(lang, target.CueTarget.N)
				b.addConfidence(lang, target.Confidence)
			}
		}
	}
}

func (b *groupBuilder) build(pivotLang string, cues map[string]map[int]corpus.Cue) Group {
	group := Group{
		CharacterID:      b.characterID,
		SegmentIDs:       b.segmentIDs,
		TextSegment:      strings.Join(b.texts, "\n"),
		TextsByLang:      map[string]string{pivotLang: ""},
		ConfidenceByLang: map[string]float64{},
	}
	for lang, ns := range b.cueNs {
		ns = slices.Clone(ns)
		slices.Sort(ns)
		texts := make([]string, 0, len(ns))
		for _, n := range ns {
			if cue, ok := cues[lang][n]; ok {
				texts = append(texts, cue.Text())
			}
		}
		group.TextsByLang[lang] = strings.Join(texts, "\n")
	}
	for lang, c := range b.conf {
		if c.count > 0 {
			group.ConfidenceByLang[lang] = align.Round4(c.sum / float64(c.count))
		}
	}
	return group
}
