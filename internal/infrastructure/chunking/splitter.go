package chunking

import "strings"

type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// SplitPages joins non-empty pages and splits the result into overlapping
// fixed-size chunks.
func (s *Splitter) SplitPages(pages []string) []string {
	kept := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return s.split(strings.Join(kept, "\n\n"))
}

func (s *Splitter) split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

// SplitOversized re-splits any chunk longer than maxChars at word
// boundaries. Used by the embed-retry path when the embedding service
// rejects long inputs.
func (s *Splitter) SplitOversized(chunks []string, maxChars int) []string {
	if maxChars <= 0 {
		return chunks
	}
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if len([]rune(chunk)) <= maxChars {
			out = append(out, chunk)
			continue
		}
		out = append(out, splitAtWords(chunk, maxChars)...)
	}
	return out
}

func splitAtWords(chunk string, maxChars int) []string {
	words := strings.Fields(chunk)
	out := make([]string, 0, len(chunk)/maxChars+1)
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = current[:0]
			currentLen = 0
		}
	}

	for _, word := range words {
		wordLen := len([]rune(word))
		extra := wordLen
		if currentLen > 0 {
			extra++
		}
		if currentLen+extra <= maxChars {
			current = append(current, word)
			currentLen += extra
			continue
		}
		flush()
		if wordLen > maxChars {
			// A single word longer than the ceiling: split by characters.
			runes := []rune(word)
			for start := 0; start < len(runes); start += maxChars {
				end := start + maxChars
				if end > len(runes) {
					end = len(runes)
				}
				out = append(out, string(runes[start:end]))
			}
			continue
		}
		current = append(current, word)
		currentLen = wordLen
	}
	flush()
	return out
}
