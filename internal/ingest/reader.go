package ingest

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"voter-outreach/internal/domain"

	"github.com/xuri/excelize/v2"
)

// DefaultPreviewRows data rows included in a preview when the caller passes n <= 0
const DefaultPreviewRows = 5

const maxSamplesPerColumn = 3

// Workbook an opened roll spreadsheet. Only the first sheet is read.
type Workbook struct {
	file     *excelize.File
	sheet    string
	fileName string
}

// OpenWorkbook parses an .xlsx/.xlsm/.xltx stream. Legacy .xls files are rejected.
func OpenWorkbook(r io.Reader, fileName string) (*Workbook, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm", ".xltx", "":
	case ".xls":
		return nil, fmt.Errorf("%w: legacy .xls, re-save the roll as .xlsx", domain.ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(fileName))
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse spreadsheet: %w", err)
	}

	sheet := f.GetSheetName(0)
	if sheet == "" {
		f.Close()
		return nil, &domain.EmptyFileError{FileName: fileName}
	}

	return &Workbook{file: f, sheet: sheet, fileName: fileName}, nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetName name of the sheet being read.
func (w *Workbook) SheetName() string {
	return w.sheet
}

// Rows returns a lazy iterator positioned after the header row.
// The first non-blank row is the header; a sheet without one is an EmptyFileError.
func (w *Workbook) Rows() (*RowIterator, error) {
	rows, err := w.file.Rows(w.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	it := &RowIterator{rows: rows}
	for it.advance() {
		if !blankRow(it.cur) {
			it.headers = make([]string, len(it.cur))
			for i, h := range it.cur {
				it.headers[i] = domain.CollapseSpace(h)
			}
			return it, nil
		}
	}
	err = it.err
	it.Close()
	if err != nil {
		return nil, err
	}
	return nil, &domain.EmptyFileError{FileName: w.fileName}
}

// ReadAll materializes the header and every non-blank data row.
func (w *Workbook) ReadAll() (*Sheet, error) {
	it, err := w.Rows()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	sheet := &Sheet{Headers: it.Headers()}
	for it.Next() {
		sheet.Rows = append(sheet.Rows, domain.SheetRow{Number: it.RowNumber(), Cells: it.Row()})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return sheet, nil
}

// RowIterator streams data rows; blank rows are skipped but still counted
// so RowNumber matches what the operator sees in the spreadsheet.
type RowIterator struct {
	rows    *excelize.Rows
	headers []string
	cur     []string
	number  int
	err     error
	closed  bool
}

func (it *RowIterator) advance() bool {
	if it.closed || it.err != nil {
		return false
	}
	if !it.rows.Next() {
		it.err = it.rows.Error()
		return false
	}
	cols, err := it.rows.Columns()
	if err != nil {
		it.err = fmt.Errorf("failed to read row %d: %w", it.number+1, err)
		return false
	}
	it.number++
	it.cur = cols
	return true
}

// Headers the header row, whitespace-collapsed.
func (it *RowIterator) Headers() []string {
	return it.headers
}

// Next advances to the next non-blank data row.
func (it *RowIterator) Next() bool {
	for it.advance() {
		if !blankRow(it.cur) {
			return true
		}
	}
	return false
}

// Row raw cell values of the current row.
func (it *RowIterator) Row() []string {
	return it.cur
}

// RowNumber 1-based spreadsheet row number of the current row.
func (it *RowIterator) RowNumber() int {
	return it.number
}

// Err first error hit while iterating.
func (it *RowIterator) Err() error {
	return it.err
}

// Close may be called at any point, including mid-iteration.
func (it *RowIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.rows.Close()
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Sheet a fully read roll.
type Sheet struct {
	Headers []string
	Rows    []domain.SheetRow
}

// ColumnPreview one header with sample values.
type ColumnPreview struct {
	Index  int      `json:"index"`
	Name   string   `json:"name"`
	Sample []string `json:"sample"`
}

// Preview what the mapping UI shows before a mapping is chosen.
type Preview struct {
	Headers    []ColumnPreview `json:"headers"`
	SampleData [][]string      `json:"sample_data"`
	TotalRows  int             `json:"total_rows"`
}

// Preview returns the header plus the first n data rows (DefaultPreviewRows when n <= 0),
// each column annotated with up to 3 non-empty sample values from those rows.
func (s *Sheet) Preview(n int) Preview {
	if n <= 0 {
		n = DefaultPreviewRows
	}
	if n > len(s.Rows) {
		n = len(s.Rows)
	}

	p := Preview{
		Headers:    make([]ColumnPreview, len(s.Headers)),
		SampleData: make([][]string, 0, n),
		TotalRows:  len(s.Rows),
	}
	for i, h := range s.Headers {
		name := h
		if name == "" {
			col, _ := excelize.ColumnNumberToName(i + 1)
			name = "Column " + col
		}
		p.Headers[i] = ColumnPreview{Index: i, Name: name, Sample: []string{}}
	}

	for _, row := range s.Rows[:n] {
		p.SampleData = append(p.SampleData, row.Cells)
		for i := range p.Headers {
			if i >= len(row.Cells) || len(p.Headers[i].Sample) >= maxSamplesPerColumn {
				continue
			}
			if v := domain.CollapseSpace(row.Cells[i]); v != "" {
				p.Headers[i].Sample = append(p.Headers[i].Sample, v)
			}
		}
	}
	return p
}
