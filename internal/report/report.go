package report

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"media-analysis-go/internal/types"
)

const (
	annotationSheet = "Annotations"
	categorySheet   = "Categories"
	chapterSheet    = "Chapters"
)

// Workbook renders the run's annotations and chapters into a summary
// spreadsheet: one row per annotation, per-category counts, and the
// detected chapters with their reasons.
func Workbook(records []types.AnnotationRecord, conversation types.Conversation) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", annotationSheet)
	headers := []any{"Category", "SubCategory", "Text", "Confidence", "BeginMs", "EndMs"}
	if err := f.SetSheetRow(annotationSheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("write annotation header: %w", err)
	}
	counts := map[string]int{}
	for i, r := range records {
		cell := fmt.Sprintf("A%d", i+2)
		row := []any{r.Category, r.SubCategory, r.Text, r.Confidence, r.BeginMs, r.EndMs}
		if err := f.SetSheetRow(annotationSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write annotation row %d: %w", i, err)
		}
		counts[r.SubCategory]++
	}

	if _, err := f.NewSheet(categorySheet); err != nil {
		return nil, err
	}
	catHeaders := []any{"SubCategory", "Count"}
	if err := f.SetSheetRow(categorySheet, "A1", &catHeaders); err != nil {
		return nil, err
	}
	i := 2
	for _, sub := range sortedKeys(counts) {
		row := []any{sub, counts[sub]}
		if err := f.SetSheetRow(categorySheet, fmt.Sprintf("A%d", i), &row); err != nil {
			return nil, err
		}
		i++
	}

	if _, err := f.NewSheet(chapterSheet); err != nil {
		return nil, err
	}
	chHeaders := []any{"Start", "End", "Reason"}
	if err := f.SetSheetRow(chapterSheet, "A1", &chHeaders); err != nil {
		return nil, err
	}
	for i, ch := range conversation.Chapters {
		row := []any{ch.Start, ch.End, ch.Reason}
		if err := f.SetSheetRow(chapterSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, fmt.Errorf("write chapter row %d: %w", i, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
