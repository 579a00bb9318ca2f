// Package report renders stored pipeline state for humans, primarily as
// CSV meant to be opened in a spreadsheet.
package report

import "strings"

// formulaStarters are the characters spreadsheets treat as the start of a
// formula or command when they lead a cell.
const formulaStarters = "=+-@|%\t\r\n"

// EscapeCell neutralizes CSV formula injection by prefixing dangerous
// cells with a quote. Game names come from scraped markup and are not
// trusted.
func EscapeCell(value string) string {
	if value == "" {
		return value
	}
	if strings.IndexByte(formulaStarters, value[0]) >= 0 {
		return "'" + value
	}
	return value
}

// EscapeRow escapes every cell in a row.
func EscapeRow(row []string) []string {
	escaped := make([]string, len(row))
	for i, cell := range row {
		escaped[i] = EscapeCell(cell)
	}
	return escaped
}
