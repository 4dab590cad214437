// Package export writes batch results as JSON, CSV, XLSX or PDF.
package export

import (
    "encoding/csv"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/rs/zerolog/log"

    "github.com/hyperifyio/altscout/internal/batch"
)

// Format is an output file format.
type Format string

const (
    JSON Format = "json"
    CSV  Format = "csv"
    XLSX Format = "xlsx"
    PDF  Format = "pdf"
)

// ErrNothingToExport is returned by the tabular formats when no result
// succeeded.
var ErrNothingToExport = errors.New("no successful results to export")

// ParseFormat accepts json, csv, xlsx and pdf. excel is an alias for xlsx.
func ParseFormat(s string) (Format, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "", "json":
        return JSON, nil
    case "csv":
        return CSV, nil
    case "excel", "xlsx":
        return XLSX, nil
    case "pdf":
        return PDF, nil
    }
    return "", fmt.Errorf("unsupported export format %q", s)
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string { return string(f) }

// DefaultFilename names an export after the time it was produced.
func DefaultFilename(f Format, now time.Time) string {
    return "alt_text_results_" + now.Format("20060102_150405") + "." + f.Ext()
}

// Write exports results to path. The file is only created when there is
// something to write.
func Write(path string, f Format, results []batch.Result) error {
    if f != JSON && len(successful(results)) == 0 {
        return ErrNothingToExport
    }
    out, err := os.Create(path)
    if err != nil {
        return fmt.Errorf("create export: %w", err)
    }
    switch f {
    case JSON:
        err = WriteJSON(out, results)
    case CSV:
        err = WriteCSV(out, results)
    case XLSX:
        err = WriteXLSX(out, results)
    case PDF:
        err = WritePDF(out, results)
    default:
        err = fmt.Errorf("unsupported export format %q", f)
    }
    if cerr := out.Close(); err == nil {
        err = cerr
    }
    if err != nil {
        return err
    }
    log.Info().Str("path", path).Str("format", string(f)).Int("count", len(results)).Msg("results exported")
    return nil
}

// WriteJSON writes all results, failures included, as an indented array.
func WriteJSON(w io.Writer, results []batch.Result) error {
    if results == nil {
        results = []batch.Result{}
    }
    enc := json.NewEncoder(w)
    enc.SetIndent("", "  ")
    enc.SetEscapeHTML(false)
    return enc.Encode(results)
}

const utf8BOM = "\ufeff"

var (
    imageColumns   = []string{"Bild-URL", "Alt-Text bisher", "Vorgeschlagener Alt-Text"}
    websiteColumns = []string{"source_website", "image_url", "original_alt_text", "generated_alt_text", "context", "website_order"}
)

// WriteCSV writes the successful results. Runs over several websites get
// the website columns. A byte order mark lets spreadsheet programs detect
// UTF-8.
func WriteCSV(w io.Writer, results []batch.Result) error {
    rows := successful(results)
    if len(rows) == 0 {
        return ErrNothingToExport
    }
    if _, err := io.WriteString(w, utf8BOM); err != nil {
        return err
    }
    cw := csv.NewWriter(w)
    header, records := table(rows)
    if err := cw.Write(header); err != nil {
        return err
    }
    for _, rec := range records {
        if err := cw.Write(rec); err != nil {
            return err
        }
    }
    cw.Flush()
    return cw.Error()
}

// table lays successful results out as the header and records shared by
// the spreadsheet formats.
func table(rows []batch.Result) ([]string, [][]string) {
    websites := hasWebsites(rows)
    header := imageColumns
    if websites {
        header = websiteColumns
    }
    records := make([][]string, 0, len(rows))
    for _, r := range rows {
        rec := []string{r.URL, r.OriginalAltText, r.GeneratedAltText}
        if websites {
            rec = []string{r.SourceWebsite, r.URL, r.OriginalAltText, r.GeneratedAltText, r.Context, strconv.Itoa(r.WebsiteOrder)}
        }
        records = append(records, rec)
    }
    return header, records
}

func successful(results []batch.Result) []batch.Result {
    var out []batch.Result
    for _, r := range results {
        if r.Success {
            out = append(out, r)
        }
    }
    return out
}

func hasWebsites(results []batch.Result) bool {
    for _, r := range results {
        if r.SourceWebsite != "" {
            return true
        }
    }
    return false
}
