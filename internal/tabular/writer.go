package tabular

import "strings"

// MarshalCSV serializes a Grid back to delimiter-separated text. Fields
// containing the delimiter, quote, or a line break are quoted, with embedded
// quotes doubled. Parse(MarshalCSV(g)) == g for grids with no empty rows.
func MarshalCSV(g Grid) string {
	var b strings.Builder
	for i, row := range g {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, field := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quoteField(field))
		}
	}
	return b.String()
}

func quoteField(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
