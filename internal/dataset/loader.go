package dataset

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Dataset is a rectangular named-column view over the uploaded rows.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// Load reads the first sheet of an xlsx file into a Dataset. The first row
// is treated as the header.
func Load(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}
	return &Dataset{Columns: rows[0], Rows: rows[1:]}, nil
}

// Cell returns the value at (row, col), tolerating ragged rows.
func (d *Dataset) Cell(row, col int) string {
	if row < 0 || row >= len(d.Rows) || col < 0 || col >= len(d.Rows[row]) {
		return ""
	}
	return d.Rows[row][col]
}
