package align

import (
	"fmt"
	"math"
	"strings"

	"himyc/internal/corpus"
)

// Role says which side of the alignment graph a link belongs to.
type Role string

const (
	RolePivot  Role = "pivot"
	RoleTarget Role = "target"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RolePivot || r == RoleTarget
}

// Status is the review state of a link.
type Status string

const (
	StatusAuto     Status = "auto"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAuto, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// ParseStatus normalizes and validates a status string.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown link status %q", value)
	}
	return status, nil
}

// Link is one edge of a run's alignment graph: segment to pivot cue
// (RolePivot) or pivot cue to target cue (RoleTarget).
type Link struct {
	LinkID     string            `json:"link_id"`
	Segment    *corpus.SegmentID `json:"segment_id"`
	Cue        corpus.CueID      `json:"cue_id"`
	CueTarget  *corpus.CueID     `json:"cue_id_target"`
	Lang       string            `json:"lang"`
	Role       Role              `json:"role"`
	Confidence float64           `json:"confidence"`
	Status     Status            `json:"status"`
	Meta       map[string]any    `json:"meta"`
}

// Validate checks the structural invariants of a link.
func (l Link) Validate() error {
	if !l.Role.Valid() {
		return fmt.Errorf("link %s: invalid role %q", l.LinkID, l.Role)
	}
	if !l.Status.Valid() {
		return fmt.Errorf("link %s: invalid status %q", l.LinkID, l.Status)
	}
	if l.Confidence < 0 || l.Confidence > 1 || math.IsNaN(l.Confidence) {
		return fmt.Errorf("link %s: confidence %v outside [0,1]", l.LinkID, l.Confidence)
	}
	if l.Cue.IsZero() {
		return fmt.Errorf("link %s: missing pivot cue", l.LinkID)
	}
	switch l.Role {
	case RolePivot:
		if l.Segment == nil {
			return fmt.Errorf("link %s: pivot link without segment", l.LinkID)
		}
	case RoleTarget:
		if l.CueTarget == nil {
			return fmt.Errorf("link %s: target link without target cue", l.LinkID)
		}
	}
	return nil
}

// MetaString returns a string meta value, or "" when absent.
func (l Link) MetaString(key string) string {
	if v, ok := l.Meta[key].(string); ok {
		return v
	}
	return ""
}

// MetaInt returns an integer meta value. JSON round trips turn numbers into
// float64, so both shapes are accepted.
func (l Link) MetaInt(key string, fallback int) int {
	switch v := l.Meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

// Round4 rounds a confidence to four decimals.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func segmentRef(id corpus.SegmentID) *corpus.SegmentID { return &id }

func cueRef(id corpus.CueID) *corpus.CueID { return &id }
