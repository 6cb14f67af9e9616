package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"himyc/internal/align"
	"himyc/internal/corpus"
)

// LinkColumns is the fixed column order of link CSV files.
var LinkColumns = []string{"link_id", "segment_id", "cue_id", "cue_id_target", "lang", "role", "confidence", "status", "meta"}

// WriteLinks serializes links in the given format. TSV is not a link format.
func WriteLinks(w io.Writer, links []align.Link, format Format) error {
	switch format {
	case FormatCSV:
		return WriteLinksCSV(w, links)
	case FormatJSONL:
		return WriteLinksJSONL(w, links)
	}
	return fmt.Errorf("links cannot be exported as %s", format)
}

// ReadLinks parses links written by WriteLinks.
func ReadLinks(r io.Reader, format Format) ([]align.Link, error) {
	switch format {
	case FormatCSV:
		return ReadLinksCSV(r)
	case FormatJSONL:
		return ReadLinksJSONL(r)
	}
	return nil, fmt.Errorf("links cannot be imported from %s", format)
}

// WriteLinksCSV writes a header row followed by one row per link. Absent
// segment and target ids are empty cells; meta is inlined as JSON.
func WriteLinksCSV(w io.Writer, links []align.Link) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LinkColumns); err != nil {
		return err
	}
	for _, link := range links {
		meta, err := encodeMeta(link.Meta)
		if err != nil {
			return fmt.Errorf("link %s: %w", link.LinkID, err)
		}
		var segmentID, targetID string
		if link.Segment != nil {
			segmentID = link.Segment.String()
		}
		if link.CueTarget != nil {
			targetID = link.CueTarget.String()
		}
		record := []string{
			link.LinkID,
			segmentID,
			link.Cue.String(),
			targetID,
			link.Lang,
			string(link.Role),
			strconv.FormatFloat(link.Confidence, 'f', -1, 64),
			string(link.Status),
			meta,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadLinksCSV parses a link CSV. The header must match LinkColumns.
func ReadLinksCSV(r io.Reader) ([]align.Link, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(LinkColumns)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range LinkColumns {
		if header[i] != col {
			return nil, fmt.Errorf("column %d is %q, want %q", i+1, header[i], col)
		}
	}

	var links []align.Link
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return links, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		link, err := linkFromRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		links = append(links, link)
	}
}

func linkFromRecord(record []string) (align.Link, error) {
	link := align.Link{
		LinkID: record[0],
		Lang:   record[4],
		Role:   align.Role(record[5]),
		Status: align.Status(record[7]),
	}
	if record[1] != "" {
		id, err := corpus.ParseSegmentID(record[1])
		if err != nil {
			return link, err
		}
		link.Segment = &id
	}
	cue, err := corpus.ParseCueID(record[2])
	if err != nil {
		return link, err
	}
	link.Cue = cue
	if record[3] != "" {
		id, err := corpus.ParseCueID(record[3])
		if err != nil {
			return link, err
		}
		link.CueTarget = &id
	}
	link.Confidence, err = strconv.ParseFloat(record[6], 64)
	if err != nil {
		return link, fmt.Errorf("confidence %q: %w", record[6], err)
	}
	link.Meta, err = decodeMeta([]byte(record[8]))
	if err != nil {
		return link, err
	}
	return link, link.Validate()
}

// WriteLinksJSONL writes one JSON object per line.
func WriteLinksJSONL(w io.Writer, links []align.Link) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, link := range links {
		if err := enc.Encode(link); err != nil {
			return fmt.Errorf("link %s: %w", link.LinkID, err)
		}
	}
	return nil
}

// ReadLinksJSONL parses links written by WriteLinksJSONL. Blank lines are
// skipped.
func ReadLinksJSONL(r io.Reader) ([]align.Link, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var links []align.Link
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var link align.Link
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&link); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		link.Meta = normalizeNumbers(link.Meta)
		if err := link.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		links = append(links, link)
	}
	return links, scanner.Err()
}

func encodeMeta(meta map[string]any) (string, error) {
	if meta == nil {
		return "", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(meta); err != nil {
		return "", fmt.Errorf("encode meta: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func decodeMeta(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var meta map[string]any
	if err := dec.Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	return normalizeNumbers(meta), nil
}

// normalizeNumbers turns integral JSON numbers into int64 and the rest into
// float64, so meta values keep the shape the aligners produced.
func normalizeNumbers(meta map[string]any) map[string]any {
	for key, value := range meta {
		meta[key] = normalizeValue(value)
	}
	return meta
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		return normalizeNumbers(v)
	case []any:
		for i := range v {
			v[i] = normalizeValue(v[i])
		}
		return v
	}
	return value
}
