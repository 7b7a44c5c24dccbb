package export

import (
    "bytes"
    "encoding/csv"
    "strings"
)

// utf8BOM makes spreadsheet apps detect the encoding of accented labels.
const utf8BOM = "\ufeff"

// sanitizeCSV replaces commas with semicolons and flattens line breaks, so
// free text never shifts columns even in readers that ignore quoting.
func sanitizeCSV(s string) string {
    s = strings.ReplaceAll(s, ",", ";")
    s = strings.ReplaceAll(s, "\r\n", " ")
    s = strings.ReplaceAll(s, "\n", " ")
    return strings.ReplaceAll(s, "\r", " ")
}

// renderCSV writes one labelled section per table: a title row, the header
// row, the data rows and a blank separator line.  Empty sections keep their
// header.
func renderCSV(b Bundle) ([]byte, error) {
    var buf bytes.Buffer
    buf.WriteString(utf8BOM)
    w := csv.NewWriter(&buf)

    if b.Title != "" {
        if err := w.Write([]string{sanitizeCSV(b.Title)}); err != nil {
            return nil, err
        }
    }
    if err := w.Write([]string{"Gerado em", stamp(b.GeneratedAt, b.loc())}); err != nil {
        return nil, err
    }
    if err := w.Write(nil); err != nil {
        return nil, err
    }

    for _, t := range sectionTables(b) {
        if err := w.Write([]string{t.title}); err != nil {
            return nil, err
        }
        if err := w.Write(t.header); err != nil {
            return nil, err
        }
        for _, row := range t.rows {
            rec := make([]string, len(row))
            for i, v := range row {
                rec[i] = sanitizeCSV(cellText(v))
            }
            if err := w.Write(rec); err != nil {
                return nil, err
            }
        }
        if err := w.Write(nil); err != nil {
            return nil, err
        }
    }
    w.Flush()
    if err := w.Error(); err != nil {
        return nil, err
    }
    return buf.Bytes(), nil
}
