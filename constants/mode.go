package constants

// ExtractionMode selects what the backend is asked to return.
type ExtractionMode string

// Stable values (these exact strings travel over the HTTP surface).
const (
	ModePlainText ExtractionMode = "text"    // free-form, layout-agnostic text
	ModeTabular   ExtractionMode = "tabular" // strict delimiter-separated text
)

// ParseMode maps a wire string to an ExtractionMode.
func ParseMode(s string) (ExtractionMode, bool) {
	switch ExtractionMode(s) {
	case ModePlainText, ModeTabular:
		return ExtractionMode(s), true
	}
	return "", false
}
