package tabular

import "strings"

// Grid is the row/column representation derived from delimiter-separated
// text. Row 0 is treated as the header by downstream consumers.
type Grid [][]string

// Parse converts CSV-like text into a Grid. It is a best-effort grid parser,
// not a full CSV implementation: quoted fields may contain embedded commas
// and doubled quotes, but a quoted field cannot span a line break.
func Parse(text string) Grid {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var grid Grid
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		grid = append(grid, parseLine(strings.TrimSuffix(line, "\r")))
	}
	return grid
}

func parseLine(line string) []string {
	var fields []string
	var b strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case inQuotes:
			if ch == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					b.WriteByte('"') // doubled quote -> literal quote
					i++
				} else {
					inQuotes = false
				}
			} else {
				b.WriteByte(ch)
			}
		case ch == '"':
			inQuotes = true
		case ch == ',':
			fields = append(fields, strings.TrimSpace(b.String()))
			b.Reset()
		default:
			b.WriteByte(ch)
		}
	}
	fields = append(fields, strings.TrimSpace(b.String()))
	return fields
}
