package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"himyc/internal/grouping"
)

// WriteTable serializes a grouping table. JSONL rows are objects keyed by
// column name with columns in table order.
func WriteTable(w io.Writer, table grouping.Table, format Format) error {
	switch format {
	case FormatCSV, FormatTSV:
		cw := csv.NewWriter(w)
		if format == FormatTSV {
			cw.Comma = '\t'
		}
		if err := cw.Write(table.Columns); err != nil {
			return err
		}
		if err := cw.WriteAll(table.Rows); err != nil {
			return err
		}
		return cw.Error()
	case FormatJSONL:
		return writeTableJSONL(w, table)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

func writeTableJSONL(w io.Writer, table grouping.Table) error {
	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(table.Columns))
		}
		buf := []byte{'{'}
		for j, col := range table.Columns {
			if j > 0 {
				buf = append(buf, ',')
			}
			key, err := marshalString(col)
			if err != nil {
				return err
			}
			value, err := marshalString(row[j])
			if err != nil {
				return err
			}
			buf = append(buf, key...)
			buf = append(buf, ':')
			buf = append(buf, value...)
		}
		buf = append(buf, '}', '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func marshalString(s string) ([]byte, error) {
	return json.Marshal(s)
}
