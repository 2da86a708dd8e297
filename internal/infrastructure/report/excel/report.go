// Package excel renders the completion report as a workbook: one sheet per
// category, one row per product with its fulfillment state.
package excel

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/lendstack/docpack/internal/core/domain"
)

type ReportBuilder struct{}

func New() *ReportBuilder {
	return &ReportBuilder{}
}

func (b *ReportBuilder) BuildCompletionReport(categories []*domain.Category, completions map[string]domain.CompletionStatus) ([]byte, error) {
	workbook := excelize.NewFile()
	defer func() {
		_ = workbook.Close()
	}()

	if len(categories) == 0 {
		if err := workbook.SetCellValue("Sheet1", "A1", "No categories"); err != nil {
			return nil, fmt.Errorf("write empty sheet: %w", err)
		}
		return save(workbook)
	}

	for i, cat := range categories {
		sheet := sheetName(cat, i)
		if i == 0 {
			if err := workbook.SetSheetName("Sheet1", sheet); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := workbook.NewSheet(sheet); err != nil {
				return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
			}
		}

		header := []any{"Product", "Programs", "Uploaded Files", "Complete", "Completion %", "Missing Documents"}
		if err := workbook.SetSheetRow(sheet, "A1", &header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}

		for row, prod := range cat.Products {
			status := completions[prod.ID]
			missing := make([]string, 0, len(status.MissingDocuments))
			for _, m := range status.MissingDocuments {
				missing = append(missing, string(m))
			}
			cells := []any{
				prod.Name,
				len(prod.Programs),
				len(prod.Documents),
				status.IsComplete,
				status.CompletionPercentage,
				strings.Join(missing, ", "),
			}
			anchor, err := excelize.CoordinatesToCellName(1, row+2)
			if err != nil {
				return nil, fmt.Errorf("cell name: %w", err)
			}
			if err := workbook.SetSheetRow(sheet, anchor, &cells); err != nil {
				return nil, fmt.Errorf("write row for %s: %w", prod.Name, err)
			}
		}
	}

	return save(workbook)
}

func save(workbook *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := workbook.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName keeps Excel's 31-char limit and avoids duplicate names.
func sheetName(cat *domain.Category, index int) string {
	name := fmt.Sprintf("%s %s", cat.Type, cat.Name)
	if len(name) > 28 {
		name = name[:28]
	}
	return fmt.Sprintf("%s-%d", name, index+1)
}
