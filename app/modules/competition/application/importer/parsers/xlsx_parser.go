package parsers

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXParser parses the first sheet of a workbook
type XLSXParser struct{}

// NewXLSXParser creates a new XLSX parser
func NewXLSXParser() *XLSXParser {
	return &XLSXParser{}
}

func (p *XLSXParser) Parse(data []byte) (*Table, error) {
	return parseXLSXCore(data)
}

// parseXLSXCore is shared with CSVParser for workbooks uploaded under a .csv name.
func parseXLSXCore(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("XLSX file has no sheets")
	}

	sheetName := sheets[0]
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}

	var records [][]string
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		records = append(records, row)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheetName)
	}
	return newTable(records), nil
}
