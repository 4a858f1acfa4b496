package ingest

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChunkChars caps chunk length in runes.
const DefaultMaxChunkChars = 800

// chunkIDLen is the number of hex characters kept from the SHA-1 digest.
const chunkIDLen = 10

var (
	headingLine  = regexp.MustCompile(`^#{1,6}\s`)
	bulletLine   = regexp.MustCompile(`^(?:[-*+•]|\d+[.)])\s`)
	markerPrefix = regexp.MustCompile(`^(?:#{1,6}|[-*+•]|\d+[.)])\s+`)
)

type span struct{ start, end int }

// Segment splits text into chunks along headings, bullet items and blank
// lines. Blocks longer than maxChunkChars runes are split again at sentence
// ends, then at word boundaries, then hard. Chunks never overlap and keep
// the order of the input.
func Segment(text string, maxChunkChars int) []TextChunk {
	if maxChunkChars <= 0 {
		maxChunkChars = DefaultMaxChunkChars
	}

	var chunks []TextChunk
	for _, b := range blocks(text) {
		for _, s := range splitLong(text, b, maxChunkChars) {
			chunks = append(chunks, newChunk(text[s.start:s.end], s.start, s.end))
		}
	}
	return chunks
}

// ChunkID derives the content address of a normalized chunk text.
func ChunkID(normalized string) string {
	sum := sha1.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])[:chunkIDLen]
}

// NormalizeChunkText drops a leading heading or bullet marker, collapses
// whitespace and lowercases.
func NormalizeChunkText(text string) string {
	text = markerPrefix.ReplaceAllString(strings.TrimSpace(text), "")
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

func newChunk(text string, start, end int) TextChunk {
	normalized := NormalizeChunkText(text)
	return TextChunk{
		ChunkID:        ChunkID(normalized),
		Text:           text,
		NormalizedText: normalized,
		CharStart:      start,
		CharEnd:        end,
	}
}

// blocks returns the trimmed structural blocks of text.
func blocks(text string) []span {
	var out []span
	cur := span{start: -1}

	flush := func() {
		if cur.start < 0 {
			return
		}
		if s, ok := trimSpan(text, cur); ok {
			out = append(out, s)
		}
		cur = span{start: -1}
	}

	offset := 0
	for offset <= len(text) {
		var line string
		next := len(text) + 1
		if i := strings.IndexByte(text[offset:], '\n'); i >= 0 {
			line = text[offset : offset+i]
			next = offset + i + 1
		} else {
			line = text[offset:]
		}
		lineEnd := offset + len(line)
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flush()
		case headingLine.MatchString(trimmed) || bulletLine.MatchString(trimmed):
			flush()
			cur = span{start: offset, end: lineEnd}
		default:
			if cur.start < 0 {
				cur.start = offset
			}
			cur.end = lineEnd
		}
		offset = next
	}
	flush()

	return out
}

func trimSpan(text string, s span) (span, bool) {
	seg := text[s.start:s.end]
	left := len(seg) - len(strings.TrimLeftFunc(seg, unicode.IsSpace))
	right := len(strings.TrimRightFunc(seg, unicode.IsSpace))
	if right <= left {
		return span{}, false
	}
	return span{start: s.start + left, end: s.start + right}, true
}

func splitLong(text string, b span, max int) []span {
	if utf8.RuneCountInString(text[b.start:b.end]) <= max {
		return []span{b}
	}

	var out []span
	pos := b.start
	for pos < b.end {
		rest := text[pos:b.end]
		trimmed := strings.TrimLeftFunc(rest, unicode.IsSpace)
		pos += len(rest) - len(trimmed)
		rest = trimmed
		if rest == "" {
			break
		}
		if utf8.RuneCountInString(rest) <= max {
			out = append(out, span{start: pos, end: b.end})
			break
		}

		limit := runePrefixLen(rest, max)
		cut := sentenceCut(rest, limit)
		if cut <= 0 {
			cut = wordCut(rest[:limit])
		}
		if cut <= 0 {
			cut = limit
		}
		if s, ok := trimSpan(text, span{start: pos, end: pos + cut}); ok {
			out = append(out, s)
		}
		pos += cut
	}
	return out
}

// runePrefixLen returns the byte length of the first n runes of s.
func runePrefixLen(s string, n int) int {
	i := 0
	for count := 0; count < n && i < len(s); count++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

// sentenceCut returns the byte index just past the last sentence end
// within s[:limit], or 0.
func sentenceCut(s string, limit int) int {
	for i := limit - 1; i > 0; i-- {
		switch s[i] {
		case '.', '!', '?':
			if i+1 == len(s) || s[i+1] == ' ' || s[i+1] == '\n' || s[i+1] == '\t' {
				return i + 1
			}
		}
	}
	return 0
}

// wordCut returns the index of the last whitespace in window, or 0.
func wordCut(window string) int {
	return strings.LastIndexAny(window, " \n\t")
}
