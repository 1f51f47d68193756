package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"veridoc/internal/core/domain"
	"veridoc/internal/core/ports"
)

// Extractor pulls structured tables out of a stored spreadsheet. Each sheet
// with at least a header row and one data row becomes one table; sheet text
// is also exposed page-wise so spreadsheets participate in text retrieval.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) ExtractTables(ctx context.Context, doc *domain.Document) ([]domain.Table, error) {
	f, err := e.open(ctx, doc)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tables []domain.Table
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		rows = dropEmptyRows(rows)
		if len(rows) < 2 {
			continue
		}
		tables = append(tables, domain.Table{
			DocID:      doc.ID,
			TableIndex: len(tables),
			Sheet:      sheet,
			Columns:    rows[0],
			Rows:       rows[1:],
		})
	}
	return tables, nil
}

// ExtractPages renders each sheet as tab-separated text, one page per sheet.
func (e *Extractor) ExtractPages(ctx context.Context, doc *domain.Document) ([]string, error) {
	f, err := e.open(ctx, doc)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		var buf strings.Builder
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteByte('\n')
		}
		pages = append(pages, strings.TrimSpace(buf.String()))
	}
	return pages, nil
}

func (e *Extractor) ExtractMetadata(ctx context.Context, doc *domain.Document) (string, string, error) {
	f, err := e.open(ctx, doc)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	props, err := f.GetDocProps()
	if err != nil || props == nil {
		return "", "", nil
	}
	return strings.TrimSpace(props.Title), strings.TrimSpace(props.Creator), nil
}

func (e *Extractor) open(ctx context.Context, doc *domain.Document) (*excelize.File, error) {
	rc, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, domain.WrapError(domain.ErrParse, "open spreadsheet", err)
	}
	return f, nil
}

func dropEmptyRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out
}
