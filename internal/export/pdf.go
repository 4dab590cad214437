package export

import (
    "io"
    "strconv"

    "github.com/jung-kurt/gofpdf"

    "github.com/hyperifyio/altscout/internal/batch"
)

// WritePDF renders the successful results as a simple report, one block per
// image with its URL as a clickable link.
func WritePDF(w io.Writer, results []batch.Result) error {
    rows := successful(results)
    if len(rows) == 0 {
        return ErrNothingToExport
    }
    pdf := gofpdf.New("P", "mm", "A4", "")
    // Core fonts are cp1252; umlauts need translating.
    tr := pdf.UnicodeTranslatorFromDescriptor("")
    pdf.SetFont("Helvetica", "", 11)
    pdf.AddPage()

    pdf.SetFont("Helvetica", "B", 14)
    pdf.CellFormat(0, 8, tr("Alt-Text Ergebnisse"), "", 1, "L", false, 0, "")
    pdf.Ln(2)

    site := ""
    for i, r := range rows {
        if r.SourceWebsite != "" && r.SourceWebsite != site {
            site = r.SourceWebsite
            pdf.SetFont("Helvetica", "B", 12)
            pdf.Ln(3)
            pdf.CellFormat(0, 7, tr(strconv.Itoa(r.WebsiteOrder)+". "+site), "", 1, "L", false, 0, "")
        }
        pdf.SetFont("Helvetica", "B", 11)
        pdf.CellFormat(0, 6, tr("Bild "+strconv.Itoa(i+1)), "", 1, "L", false, 0, "")
        pdf.SetFont("Helvetica", "", 9)
        pdf.WriteLinkString(5, r.URL, r.URL)
        pdf.Ln(6)
        field(pdf, tr, "Alt-Text bisher", r.OriginalAltText)
        field(pdf, tr, "Vorgeschlagener Alt-Text", r.GeneratedAltText)
        if r.Context != "" {
            field(pdf, tr, "Kontext", r.Context)
        }
        pdf.Ln(3)
    }
    return pdf.Output(w)
}

func field(pdf *gofpdf.Fpdf, tr func(string) string, label, value string) {
    if value == "" {
        value = "-"
    }
    pdf.SetFont("Helvetica", "B", 10)
    pdf.CellFormat(0, 5, tr(label+":"), "", 1, "L", false, 0, "")
    pdf.SetFont("Helvetica", "", 10)
    pdf.MultiCell(0, 5, tr(value), "", "L", false)
}
