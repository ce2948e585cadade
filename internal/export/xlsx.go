// Package export writes datasets to an Excel workbook for the pricing team.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/logger"
)

// maxSheetName is the Excel limit on sheet titles
const maxSheetName = 31

// Exporter copies datasets from a store into one sheet each
type Exporter struct {
	store  contracts.FileStore
	logger *logger.Logger
}

// New creates an exporter
func New(store contracts.FileStore, log *logger.Logger) *Exporter {
	return &Exporter{store: store, logger: log}
}

// Export writes every named dataset to path. Missing values stay empty cells.
func (e *Exporter) Export(ctx context.Context, path string, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("no datasets to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]bool)
	for i, name := range names {
		t, err := e.store.Load(ctx, name)
		if err != nil {
			return err
		}

		sheet := SheetName(name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}

		if err := writeSheet(f, sheet, t); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		e.logger.WithFields(map[string]interface{}{
			"dataset": name,
			"sheet":   sheet,
			"rows":    t.Len(),
		}).Debug("sheet written")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	e.logger.WithField("path", path).Infof("exported %d datasets", len(names))
	return nil
}

func writeSheet(f *excelize.File, sheet string, t *table.Table) error {
	header := make([]interface{}, 0, t.Width())
	for _, n := range t.Names() {
		header = append(header, n)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, row := range t.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

// SheetName shortens a dataset name to a unique sheet title
func SheetName(name string, used map[string]bool) string {
	base := name
	if len(base) > maxSheetName {
		base = base[:maxSheetName]
	}
	candidate := base
	for n := 2; used[candidate]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		candidate = base
		if len(candidate)+len(suffix) > maxSheetName {
			candidate = candidate[:maxSheetName-len(suffix)]
		}
		candidate += suffix
	}
	used[candidate] = true
	return candidate
}
