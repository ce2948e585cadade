package store

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wonny/ship2profile/internal/table"
)

const utf8BOM = "\ufeff"

// readCSV decodes a ';' separated UTF-8 export. Every cell stays text so
// identifiers keep their leading zeros; numbers are parsed on access.
func readCSV(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.Comma = ';'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv %s: empty file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}

	cols := make([]table.Column, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		cols[i] = table.Str(strings.TrimSpace(h))
	}
	t := table.New(cols...)

	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		row := make([]any, len(cols))
		for i := range cols {
			if i >= len(rec) || rec[i] == "" {
				continue
			}
			row[i] = rec[i]
		}
		if err := t.Append(row...); err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
	}
	return t, nil
}
