package export

import (
	"bytes"
	"fmt"
	"os"

	"himyc/internal/align"
	"himyc/internal/fileutil"
	"himyc/internal/grouping"
)

// LinksToFile writes links to path atomically. The format follows the
// extension when format is empty.
func LinksToFile(path string, links []align.Link, format Format) error {
	if format == "" {
		format = FormatForPath(path, FormatCSV)
	}
	var buf bytes.Buffer
	if err := WriteLinks(&buf, links, format); err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LinksFromFile reads a link export.
func LinksFromFile(path string) ([]align.Link, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLinks(f, FormatForPath(path, FormatCSV))
}

// TableToFile writes a grouping table to path atomically.
func TableToFile(path string, table grouping.Table, format Format) error {
	if format == "" {
		format = FormatForPath(path, FormatCSV)
	}
	var buf bytes.Buffer
	if err := WriteTable(&buf, table, format); err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
