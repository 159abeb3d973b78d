package extract

import "github.com/snaptext/snaptext/constants"

// BuildInstruction composes the backend instruction for a mode. The wording
// deterministically selects plain vs tabular behavior and forbids markdown
// fencing around the result.
func BuildInstruction(mode constants.ExtractionMode) string {
	s := "Extract all text from this image. Return ONLY the extracted text."
	if mode == constants.ModeTabular {
		s += " Analyze the image layout. If you detect a table, invoice, bill, or structured data," +
			" you MUST extract it as CSV format. Use comma (,) as delimiter." +
			" Quote fields if they contain commas or newlines, and double any embedded quote characters." +
			" Do not use markdown code blocks or any other formatting. Just raw CSV."
	} else {
		s += " Return the text as a continuous block or simple paragraphs, ignoring complex layout or tables."
	}
	s += " Do not add any markdown formatting (like ```markdown) or explanations around the result."
	return s
}
