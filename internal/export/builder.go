package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/snaptext/snaptext/constants"
	"github.com/snaptext/snaptext/internal/asset"
	"github.com/snaptext/snaptext/internal/common"
	"github.com/snaptext/snaptext/internal/tabular"
)

const (
	textFileName = "extracted_text.txt"
	csvFileName  = "extracted_data.csv"
	xlsxFileName = "extracted_data.xlsx"
)

// Builder serializes extraction results into downloadable artifacts.
type Builder struct {
	logger *slog.Logger

	// encodeXLSX is swappable so tests can force the workbook fallback path.
	encodeXLSX func(tabular.Grid) ([]byte, error)
}

func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger, encodeXLSX: encodeWorkbook}
}

// Build produces the default artifact for a mode: plain text for text mode,
// an XLSX workbook for tabular mode. Workbook encoding failure falls back to
// raw CSV; export never fails silently.
func (b *Builder) Build(result asset.ExtractionResult, mode constants.ExtractionMode) (asset.Artifact, error) {
	if result.Text == "" {
		return asset.Artifact{}, common.NewAppError("EMPTY_RESULT", "nothing to export", common.ErrInvalidInput)
	}
	if mode != constants.ModeTabular {
		return b.BuildText(result), nil
	}

	start := time.Now()
	grid := tabular.Parse(result.Text)
	if len(grid) == 0 {
		return asset.Artifact{}, common.NewAppError("EMPTY_GRID", "no rows parsed from result", common.ErrExportFailed)
	}

	xlsx, err := b.encodeXLSX(grid)
	if err != nil {
		b.logger.Warn("export.xlsx.failed_falling_back_to_csv", "error", err)
		return b.BuildCSV(result)
	}

	b.logger.Info("export.xlsx.ok",
		"rows", len(grid),
		"bytes", len(xlsx),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return asset.Artifact{Bytes: xlsx, MimeType: constants.MimeXLSX, FileName: xlsxFileName}, nil
}

// BuildText emits the raw result text as a text/plain artifact.
func (b *Builder) BuildText(result asset.ExtractionResult) asset.Artifact {
	return asset.Artifact{Bytes: []byte(result.Text), MimeType: constants.MimeText, FileName: textFileName}
}

// BuildCSV emits the delimiter-separated text directly as a .csv artifact.
func (b *Builder) BuildCSV(result asset.ExtractionResult) (asset.Artifact, error) {
	if result.Text == "" {
		return asset.Artifact{}, common.NewAppError("EMPTY_RESULT", "nothing to export", common.ErrExportFailed)
	}
	return asset.Artifact{Bytes: []byte(result.Text), MimeType: constants.MimeCSV, FileName: csvFileName}, nil
}

// encodeWorkbook re-encodes the parsed grid into a single-sheet workbook:
// header row = grid row 0, body = remaining rows.
func encodeWorkbook(grid tabular.Grid) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Sheet1"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	for r, row := range grid {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
