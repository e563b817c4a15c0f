// ABOUTME: ChunkEngine splits document text into overlapping, size-bounded chunks for embedding
// ABOUTME: Packs paragraph → sentence → word pieces so chunks break on natural boundaries
package indexer

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/harper/electionrag/internal/models"
)

// ChunkEngine handles size-bounded text chunking
type ChunkEngine struct {
	size    int
	overlap int
}

// NewChunkEngine creates a ChunkEngine. size and overlap are measured in characters.
func NewChunkEngine(size, overlap int) (*ChunkEngine, error) {
	if size <= 0 {
		return nil, errors.New("chunk size must be positive")
	}
	if overlap < 0 || overlap >= size {
		return nil, errors.New("chunk overlap must be between 0 and chunk size")
	}
	return &ChunkEngine{size: size, overlap: overlap}, nil
}

// ChunkDocument splits text into chunks tagged with title as both source and partition
func (ce *ChunkEngine) ChunkDocument(text, title string) ([]models.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("cannot chunk empty text")
	}

	var pieces []piece
	for _, para := range splitParagraphs(text) {
		para = normalizeSpace(para)
		if para == "" {
			continue
		}
		for i, p := range ce.fit(para) {
			pieces = append(pieces, piece{text: p, paraStart: i == 0})
		}
	}

	var chunks []models.Chunk
	var current strings.Builder
	flush := func() {
		content := strings.TrimSpace(current.String())
		if content == "" {
			return
		}
		chunks = append(chunks, models.Chunk{
			ChunkID:   generateChunkID(),
			SourceID:  title,
			Partition: title,
			Ordinal:   len(chunks),
			Content:   content,
		})
		current.Reset()
		current.WriteString(overlapTail(content, ce.overlap))
	}

	for _, pc := range pieces {
		sep := pc.separator()
		if current.Len() > 0 && runeLen(current.String())+len(sep)+runeLen(pc.text) > ce.size {
			flush()
			sep = " "
			// Overlap plus a full-size piece may still exceed size; drop the overlap then.
			if runeLen(current.String())+len(sep)+runeLen(pc.text) > ce.size {
				current.Reset()
			}
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(pc.text)
	}
	flush()

	return chunks, nil
}

type piece struct {
	text      string
	paraStart bool
}

func (p piece) separator() string {
	if p.paraStart {
		return "\n\n"
	}
	return " "
}

// fit breaks a paragraph into pieces no longer than the chunk size
func (ce *ChunkEngine) fit(para string) []string {
	if runeLen(para) <= ce.size {
		return []string{para}
	}

	var out []string
	for _, sent := range splitSentences(para) {
		if runeLen(sent) <= ce.size {
			out = append(out, sent)
			continue
		}
		out = append(out, splitWords(sent, ce.size)...)
	}
	return out
}

// splitParagraphs splits text by blank lines
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n\n")
}

// splitSentences splits text by ". " (period + space)
func splitSentences(text string) []string {
	sentences := strings.Split(text, ". ")

	var result []string
	for i, sent := range sentences {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}
		if i < len(sentences)-1 && !strings.HasSuffix(sent, ".") {
			sent = sent + "."
		}
		result = append(result, sent)
	}
	return result
}

// splitWords packs words into pieces of at most size characters, hard-cutting single oversized words
func splitWords(text string, size int) []string {
	var out []string
	var b strings.Builder
	for _, word := range strings.Fields(text) {
		for runeLen(word) > size {
			if b.Len() > 0 {
				out = append(out, b.String())
				b.Reset()
			}
			r := []rune(word)
			out = append(out, string(r[:size]))
			word = string(r[size:])
		}
		if b.Len() > 0 && runeLen(b.String())+1+runeLen(word) > size {
			out = append(out, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

// overlapTail returns the last n characters of s, starting at a word boundary when possible
func overlapTail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return ""
	}
	tail := string(r[len(r)-n:])
	if i := strings.IndexByte(tail, ' '); i >= 0 && i < len(tail)-1 {
		tail = tail[i+1:]
	}
	return strings.TrimSpace(tail)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// generateChunkID generates a unique chunk ID
func generateChunkID() string {
	return "chunk_" + uuid.New().String()
}
