package ingest

import (
	"bytes"
	"fmt"

	"voter-outreach/internal/domain"

	"github.com/xuri/excelize/v2"
)

// ImportTemplateHeader canonical roll columns, in template order
var ImportTemplateHeader = []string{
	"State",
	"LGA",
	"Ward",
	"Polling Unit",
	"Polling Unit Code",
	"Phone Number",
	"Full Name",
	"Email Address",
	"Gender",
	"Age Group",
}

// CallSheetHeader columns of a territory call sheet export
var CallSheetHeader = []string{
	"Voter ID",
	"Full Name",
	"Phone Number",
	"Polling Unit",
	"Polling Unit Code",
	"Called",
	"Last Called At",
	"Call Count",
	"Confirmed To Vote",
	"Demands",
	"Notes",
}

var templateColumnWidths = []float64{15, 20, 20, 25, 18, 18, 28, 28, 10, 12}

var callSheetColumnWidths = []float64{38, 28, 18, 25, 18, 8, 20, 10, 18, 30, 30}

// TemplateMapping maps the template header back to fields, so a roll prepared
// from the template can be imported without choosing columns by hand.
func TemplateMapping() ColumnMapping {
	fields := []Field{
		FieldState, FieldLGA, FieldWard, FieldPollingUnit, FieldPollingUnitCode,
		FieldPhoneNumber, FieldFullName, FieldEmailAddress, FieldGender, FieldAgeGroup,
	}
	m := make(ColumnMapping, len(fields))
	for i, f := range fields {
		m[f] = ColumnName(ImportTemplateHeader[i])
	}
	return m
}

// GenerateImportTemplate an empty roll with the canonical header row.
func GenerateImportTemplate() ([]byte, error) {
	return writeWorkbook("Voter Roll", ImportTemplateHeader, templateColumnWidths, nil)
}

// GenerateCallSheet exports voters with their outreach status.
func GenerateCallSheet(voters []*domain.VoterRecord) ([]byte, error) {
	rows := make([][]any, 0, len(voters))
	for _, v := range voters {
		called := "No"
		if v.CalledRecently {
			called = "Yes"
		}
		confirmed := ""
		if v.ConfirmedToVote != nil {
			confirmed = "No"
			if *v.ConfirmedToVote {
				confirmed = "Yes"
			}
		}
		lastCalled := ""
		if v.LastCalledAt != nil {
			lastCalled = v.LastCalledAt.Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []any{
			v.VoterID,
			deref(v.FullName),
			v.PhoneNumber,
			v.PollingUnit,
			v.PollingUnitCode,
			called,
			lastCalled,
			v.CallCount,
			confirmed,
			deref(v.Demands),
			deref(v.Notes),
		})
	}
	return writeWorkbook("Call Sheet", CallSheetHeader, callSheetColumnWidths, rows)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// writeWorkbook styled header, frozen first row, one row per entry in rows.
func writeWorkbook(sheetName string, headers []string, widths []float64, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open, so Close is called explicitly on every path

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		if col < len(widths) {
			name, _ := excelize.ColumnNumberToName(col + 1)
			if err := f.SetColWidth(sheetName, name, name, widths[col]); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		r := row
		if err := f.SetSheetRow(sheetName, cell, &r); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}
