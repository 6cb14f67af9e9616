package grouping

import "strconv"

// Table is the parallel-corpus view of a grouping: one row per group with
// the segment text, the pivot text, and a text/confidence column pair per
// target language.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Rows flattens the grouping into export rows.
func (r *Result) Rows() Table {
	columns := []string{"segment_id", "character_id", "text_segment", "text_" + r.PivotLang, "confidence_pivot"}
	for _, lang := range r.Languages {
		columns = append(columns, "text_"+lang, "confidence_"+lang)
	}

	rows := make([][]string, 0, len(r.Groups))
	for _, group := range r.Groups {
		var segmentID string
		if len(group.SegmentIDs) > 0 {
			segmentID = group.SegmentIDs[0].String()
		}
		row := []string{
			segmentID,
			group.CharacterID,
			group.TextSegment,
			group.TextsByLang[r.PivotLang],
			formatConfidence(group.ConfidenceByLang, r.PivotLang),
		}
		for _, lang := range r.Languages {
			row = append(row, group.TextsByLang[lang], formatConfidence(group.ConfidenceByLang, lang))
		}
		rows = append(rows, row)
	}
	return Table{Columns: columns, Rows: rows}
}

func formatConfidence(values map[string]float64, lang string) string {
	v, ok := values[lang]
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
