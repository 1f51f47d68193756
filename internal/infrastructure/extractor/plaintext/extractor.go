package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"veridoc/internal/core/domain"
	"veridoc/internal/core/ports"
)

// Extractor treats the whole file as a single page of UTF-8 text.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) ExtractPages(ctx context.Context, doc *domain.Document) ([]string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}

	if !utf8.Valid(raw) {
		return nil, domain.WrapError(domain.ErrParse, "extract plaintext",
			fmt.Errorf("unsupported binary content: %s", doc.Filename))
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, nil
	}
	return []string{text}, nil
}

// ExtractMetadata has nothing to read from a bare text file. The first
// non-empty line doubles as a title when it is short enough.
func (e *Extractor) ExtractMetadata(ctx context.Context, doc *domain.Document) (string, string, error) {
	pages, err := e.ExtractPages(ctx, doc)
	if err != nil || len(pages) == 0 {
		return "", "", err
	}
	for _, line := range strings.Split(pages[0], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) <= 120 {
			return line, "", nil
		}
		break
	}
	return "", "", nil
}
