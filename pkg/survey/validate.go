package survey

import "strings"

// RequiredColumns must each appear, case-insensitively, inside some header.
var RequiredColumns = []string{"age", "district", "activity_frequency"}

// Validate reports whether data has every required column.
// Row contents are not inspected; bad values fall into default buckets.
func Validate(data *ParsedCSV) bool {
	return len(MissingColumns(data)) == 0
}

// MissingColumns lists the required columns no header contains.
func MissingColumns(data *ParsedCSV) []string {
	var missing []string
	for _, req := range RequiredColumns {
		found := false
		for _, h := range data.Headers {
			if strings.Contains(strings.ToLower(h), req) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, req)
		}
	}
	return missing
}

// Check is Validate as an error: a *FormatError naming the missing columns.
func Check(data *ParsedCSV) error {
	if missing := MissingColumns(data); len(missing) > 0 {
		return &FormatError{
			Reason:  "CSV does not contain the required columns",
			Missing: missing,
		}
	}
	return nil
}
