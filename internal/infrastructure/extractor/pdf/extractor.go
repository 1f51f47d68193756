package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"veridoc/internal/core/domain"
	"veridoc/internal/core/ports"
)

// Extractor reads a stored PDF and returns its plain text one page at a
// time. Page boundaries are preserved so chunks can carry page numbers.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) ExtractPages(ctx context.Context, doc *domain.Document) ([]string, error) {
	reader, err := e.open(ctx, doc)
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages, nil
}

func (e *Extractor) ExtractMetadata(ctx context.Context, doc *domain.Document) (string, string, error) {
	reader, err := e.open(ctx, doc)
	if err != nil {
		return "", "", err
	}

	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return "", "", nil
	}
	title := strings.TrimSpace(info.Key("Title").Text())
	author := strings.TrimSpace(info.Key("Author").Text())
	return title, author, nil
}

func (e *Extractor) open(ctx context.Context, doc *domain.Document) (*pdf.Reader, error) {
	rc, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrParse, "open pdf", err)
	}
	return reader, nil
}
