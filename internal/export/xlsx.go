package export

import (
    "github.com/xuri/excelize/v2"
)

// renderXLSX writes one worksheet per section with the header row first.
// Money stays a two-decimal string so spreadsheets never reformat cents.
func renderXLSX(b Bundle) ([]byte, error) {
    f := excelize.NewFile()
    defer f.Close()

    bold, err := f.NewStyle(&excelize.Style{
        Font: &excelize.Font{Bold: true},
        Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E6E6EB"}},
    })
    if err != nil {
        return nil, err
    }

    tables := sectionTables(b)
    for i, t := range tables {
        if i == 0 {
            // reuse the default sheet so the workbook has no empty tab
            if err := f.SetSheetName("Sheet1", t.sheet); err != nil {
                return nil, err
            }
        } else if _, err := f.NewSheet(t.sheet); err != nil {
            return nil, err
        }
        if err := writeSheet(f, t, bold); err != nil {
            return nil, err
        }
    }
    if len(tables) > 0 {
        f.SetActiveSheet(0)
    }

    buf, err := f.WriteToBuffer()
    if err != nil {
        return nil, err
    }
    return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, t table, headerStyle int) error {
    header := make([]any, len(t.header))
    for i, h := range t.header {
        header[i] = h
    }
    if err := f.SetSheetRow(t.sheet, "A1", &header); err != nil {
        return err
    }
    if err := f.SetRowStyle(t.sheet, 1, 1, headerStyle); err != nil {
        return err
    }
    for r, row := range t.rows {
        cell, err := excelize.CoordinatesToCellName(1, r+2)
        if err != nil {
            return err
        }
        vals := row
        if err := f.SetSheetRow(t.sheet, cell, &vals); err != nil {
            return err
        }
    }

    last, err := excelize.ColumnNumberToName(len(t.header))
    if err != nil {
        return err
    }
    return f.SetColWidth(t.sheet, "A", last, 20)
}
