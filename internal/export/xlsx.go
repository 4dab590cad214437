package export

import (
    "fmt"
    "io"
    "unicode/utf8"

    "github.com/xuri/excelize/v2"

    "github.com/hyperifyio/altscout/internal/batch"
)

const (
    imageSheet   = "Alt Text Results"
    websiteSheet = "Website Alt Text Results"
    maxColWidth  = 50
)

// WriteXLSX writes the successful results as a single-sheet workbook with
// the same columns as WriteCSV. Column widths follow the longest cell.
func WriteXLSX(w io.Writer, results []batch.Result) error {
    rows := successful(results)
    if len(rows) == 0 {
        return ErrNothingToExport
    }
    header, records := table(rows)
    sheet := imageSheet
    if hasWebsites(rows) {
        sheet = websiteSheet
    }

    f := excelize.NewFile()
    defer f.Close()
    if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
        return fmt.Errorf("name sheet: %w", err)
    }

    widths := make([]int, len(header))
    for i, rec := range append([][]string{header}, records...) {
        cells := make([]interface{}, len(rec))
        for j, v := range rec {
            cells[j] = v
            if n := utf8.RuneCountInString(v); n > widths[j] {
                widths[j] = n
            }
        }
        cell, err := excelize.CoordinatesToCellName(1, i+1)
        if err != nil {
            return err
        }
        if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
            return fmt.Errorf("write row %d: %w", i+1, err)
        }
    }
    for j, n := range widths {
        col, err := excelize.ColumnNumberToName(j + 1)
        if err != nil {
            return err
        }
        width := n + 2
        if width > maxColWidth {
            width = maxColWidth
        }
        if err := f.SetColWidth(sheet, col, col, float64(width)); err != nil {
            return fmt.Errorf("set width %s: %w", col, err)
        }
    }
    return f.Write(w)
}
