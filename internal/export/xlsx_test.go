package export

import (
    "bytes"
    "path/filepath"
    "strings"
    "testing"

    "github.com/xuri/excelize/v2"
)

func TestWrite_XLSXReopens(t *testing.T) {
    p := filepath.Join(t.TempDir(), "out.xlsx")
    if err := Write(p, XLSX, sample()); err != nil {
        t.Fatalf("write xlsx: %v", err)
    }
    f, err := excelize.OpenFile(p)
    if err != nil {
        t.Fatalf("open workbook: %v", err)
    }
    defer f.Close()
    if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != imageSheet {
        t.Fatalf("sheets = %q", sheets)
    }
    rows, err := f.GetRows(imageSheet)
    if err != nil {
        t.Fatal(err)
    }
    if len(rows) != 2 {
        t.Fatalf("rows = %q", rows)
    }
    if strings.Join(rows[0], "|") != "Bild-URL|Alt-Text bisher|Vorgeschlagener Alt-Text" {
        t.Fatalf("header = %q", rows[0])
    }
    if rows[1][0] != "https://x/a.jpg" || rows[1][1] != "alt" || rows[1][2] != "Brücke über die Limmat <Abend>" {
        t.Fatalf("data row = %q", rows[1])
    }
    w, err := f.GetColWidth(imageSheet, "C")
    if err != nil || w != float64(len([]rune("Brücke über die Limmat <Abend>"))+2) {
        t.Fatalf("width C = %v, %v", w, err)
    }
}

func TestWriteXLSX_WebsiteColumns(t *testing.T) {
    rs := sample()
    rs[0].SourceWebsite = "https://x/"
    rs[0].WebsiteOrder = 3
    rs[0].Context = strings.Repeat("Kontext ", 20)
    var buf bytes.Buffer
    if err := WriteXLSX(&buf, rs); err != nil {
        t.Fatal(err)
    }
    f, err := excelize.OpenReader(&buf)
    if err != nil {
        t.Fatalf("open workbook: %v", err)
    }
    defer f.Close()
    rows, err := f.GetRows(websiteSheet)
    if err != nil {
        t.Fatal(err)
    }
    if len(rows) != 2 || len(rows[0]) != len(websiteColumns) || rows[0][5] != "website_order" {
        t.Fatalf("rows = %q", rows)
    }
    if rows[1][0] != "https://x/" || rows[1][5] != "3" {
        t.Fatalf("data row = %q", rows[1])
    }
    if w, _ := f.GetColWidth(websiteSheet, "E"); w != maxColWidth {
        t.Fatalf("context width = %v, want capped at %d", w, maxColWidth)
    }
}
