// In file: internal/knowledge/corpus.go

// Package knowledge holds the wardrobe guidelines the assistant grounds its
// packing lists in. It parses the rules file into documents, indexes them
// into a vector store and retrieves the guidelines most relevant to a query.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/dileep-u-k/tempusvestis/internal/llm"
)

//go:embed data/wardrobe_rules.txt
var defaultCorpus string

const (
	// DefaultChunkSize is the largest section, in runes, kept as one document.
	DefaultChunkSize    = 1500
	DefaultChunkOverlap = 150
)

// Document is one retrievable piece of wardrobe guidance.
type Document struct {
	ID      string `json:"id"`
	Section string `json:"section"`
	Content string `json:"content"`
}

// DefaultCorpus returns the rules file compiled into the binary.
func DefaultCorpus() string { return defaultCorpus }

// LoadCorpus reads the rules file at path, or returns the embedded corpus
// when path is empty.
func LoadCorpus(path string) (string, error) {
	if path == "" {
		return defaultCorpus, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read knowledge file %s: %w", path, err)
	}
	return string(b), nil
}

// CorpusVersion identifies a corpus by content so an index built from an
// older rules file is detected and rebuilt.
func CorpusVersion(content string) string {
	return llm.GenerateCacheKey(normalizeNewlines(content))[:12]
}

// Parse splits the corpus into documents with the default chunking limits.
func Parse(content string) ([]Document, error) {
	return ParseWith(content, DefaultChunkSize, DefaultChunkOverlap)
}

// ParseWith splits content on blank lines. A block that is entirely upper
// case, or that contains a "====" rule, is a section header; every other
// block belongs to the section opened by the last header. Each section
// becomes one document, or several overlapping ones when it is longer than
// chunkSize runes.
func ParseWith(content string, chunkSize, chunkOverlap int) ([]Document, error) {
	var (
		docs    []Document
		section string
		blocks  []string
	)
	flush := func() error {
		if len(blocks) == 0 {
			return nil
		}
		chunks, err := chunk(strings.Join(blocks, "\n\n"), chunkSize, chunkOverlap)
		if err != nil {
			return fmt.Errorf("failed to chunk section %q: %w", section, err)
		}
		for _, c := range chunks {
			docs = append(docs, newDocument(section, c))
		}
		blocks = blocks[:0]
		return nil
	}

	for _, block := range strings.Split(normalizeNewlines(content), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if isHeader(block) {
			if err := flush(); err != nil {
				return nil, err
			}
			section = strings.TrimSpace(strings.ReplaceAll(block, "=", ""))
			continue
		}
		blocks = append(blocks, block)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return docs, nil
}

func newDocument(section, content string) Document {
	return Document{
		ID:      llm.GenerateCacheKey(section + "::" + content)[:16],
		Section: section,
		Content: content,
	}
}

func chunk(text string, size, overlap int) ([]string, error) {
	if size <= 0 || len([]rune(text)) <= size {
		return []string{text}, nil
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	)
	parts, err := splitter.SplitText(text)
	if err != nil {
		return nil, err
	}
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func isHeader(block string) bool {
	return strings.Contains(block, "====") || isUpper(block)
}

// isUpper reports whether block has at least one cased letter and no
// lower-case ones.
func isUpper(block string) bool {
	cased := false
	for _, r := range block {
		switch {
		case unicode.IsLower(r) || unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
