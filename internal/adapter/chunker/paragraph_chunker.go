package chunker

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"urpaq/internal/domain"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 100
)

var (
	paragraphRe = regexp.MustCompile(`\n{2,}`)
	sentenceRe  = regexp.MustCompile(`[.!?]+\s+`)
)

// ParagraphChunker splits document text on blank-line boundaries and
// accumulates paragraphs into chunks of at most chunkSize characters, seeding
// each new chunk with an overlap suffix of the previous one. Paragraphs
// larger than a whole chunk are split again on sentence boundaries with the
// same accumulate-and-emit rule.
type ParagraphChunker struct {
	chunkSize int
	overlap   int
	log       *zap.SugaredLogger
}

func NewParagraphChunker(chunkSize, overlap int, log *zap.SugaredLogger) *ParagraphChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &ParagraphChunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		log:       log,
	}
}

// Chunk splits the document into ordered chunks. Blank text yields none.
// Chunk ids are "<docID>_chunk_<i>" with a zero-based strictly increasing
// index.
func (c *ParagraphChunker) Chunk(doc domain.Document) []domain.DocumentChunk {
	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}

	var chunks []domain.DocumentChunk
	emit := func(text string) {
		chunks = append(chunks, newChunk(doc, text, len(chunks)))
	}

	cur := ""
	for _, para := range paragraphRe.Split(doc.Text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if runeLen(para) > c.chunkSize {
			if cur != "" {
				emit(cur)
				cur = ""
			}
			c.chunkSentences(para, emit)
			continue
		}

		if cur != "" && runeLen(cur)+runeLen(para) > c.chunkSize {
			emit(cur)
			cur = c.overlapSuffix(cur)
		}
		if cur != "" {
			cur += "\n\n"
		}
		cur += para
	}

	if cur != "" {
		emit(cur)
	}

	c.log.Infow("document chunked", "name", doc.Name, "chunks", len(chunks))
	return chunks
}

// chunkSentences splits an oversized paragraph on sentence boundaries and
// applies the same accumulate-and-emit rule, overlap included.
func (c *ParagraphChunker) chunkSentences(para string, emit func(string)) {
	cur := ""
	for _, sentence := range sentenceRe.Split(para, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if cur != "" && runeLen(cur)+runeLen(sentence) > c.chunkSize {
			emit(cur)
			cur = c.overlapSuffix(cur)
		}
		if cur != "" {
			cur += ". "
		}
		cur += sentence
	}

	if cur != "" {
		emit(cur)
	}
}

// overlapSuffix takes the last overlap characters of an emitted chunk. When
// a sentence boundary falls within the first half of that suffix, everything
// up to and including the boundary is trimmed so the overlap starts at a
// sentence instead of mid-word.
func (c *ParagraphChunker) overlapSuffix(text string) string {
	if c.overlap <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= c.overlap {
		return text
	}

	suffix := string(runes[len(runes)-c.overlap:])
	if idx := strings.Index(suffix, ". "); idx > 0 && runeLen(suffix[:idx]) < c.overlap/2 {
		return suffix[idx+2:]
	}
	return suffix
}

func newChunk(doc domain.Document, text string, index int) domain.DocumentChunk {
	return domain.DocumentChunk{
		ID:           doc.ID + "_chunk_" + strconv.Itoa(index),
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		Text:         strings.TrimSpace(text),
		Index:        index,
	}
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
