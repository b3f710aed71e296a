// CLAUDE:SUMMARY Line-oriented CSV parser for survey exports: quote-toggle splitting, header quote stripping, empty-line skipping.
package survey

import "strings"

// Row is one data line keyed by header name.
type Row map[string]string

// ParsedCSV is the result of a single Parse call.
// Every row carries a value (possibly "") for every header.
type ParsedCSV struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// RowCount returns the number of data rows.
func (p *ParsedCSV) RowCount() int {
	return len(p.Rows)
}

// Parse turns raw CSV text into headers and rows.
//
// The first line is the header and is split on plain commas. Data lines go
// through splitLine, where a double quote toggles quoted mode. Escaped quotes
// inside a quoted field are not supported.
func Parse(text string) (*ParsedCSV, error) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return nil, &FormatError{Reason: "CSV must have at least headers and one data row"}
	}

	rawHeaders := strings.Split(lines[0], ",")
	headers := make([]string, len(rawHeaders))
	for i, h := range rawHeaders {
		headers[i] = stripQuotes(strings.TrimSpace(h))
	}

	rows := make([]Row, 0, len(lines)-1)
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		values := splitLine(line)
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(values) {
				row[h] = values[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	return &ParsedCSV{Headers: headers, Rows: rows}, nil
}

// splitLine splits a data line on commas outside of double quotes.
// Quote characters are dropped and every token is trimmed.
func splitLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for _, c := range line {
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(c)
		}
	}
	return append(fields, strings.TrimSpace(current.String()))
}

// stripQuotes removes one leading and one trailing quote character.
func stripQuotes(s string) string {
	if len(s) > 0 && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}
	if n := len(s); n > 0 && (s[n-1] == '"' || s[n-1] == '\'') {
		s = s[:n-1]
	}
	return s
}
