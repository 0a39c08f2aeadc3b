// Package chunking splits text into bounded pieces along linguistic
// boundaries. Sizes are counted in runes.
package chunking

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultTextSize     = 600
	DefaultDocumentSize = 300

	// minFill is the share of maxSize a cut should reach before a coarser
	// boundary is given up for a finer one.
	minFill = 0.7
)

// Level ranks boundary strength, strongest last.
type Level int

const (
	LevelWord Level = iota + 1
	LevelClause
	LevelSentence
	LevelParagraph
)

// Piece is one produced chunk.
type Piece struct {
	Text string
	// MidWord is set when the piece starts or ends inside a word that alone
	// exceeds maxSize.
	MidWord bool
}

type boundary struct {
	end   int // byte offset where the preceding content ends
	next  int // byte offset where the following content starts
	level Level
}

var (
	paragraphRe = regexp.MustCompile(`\n\s*\n`)
	sentenceRe  = regexp.MustCompile(`[.!?]\s+|[。！？]\s*`)
	clauseRe    = regexp.MustCompile(`,\s+|，\s*`)
	wordRe      = regexp.MustCompile(`\s+`)
)

// Chunk returns the text of every piece Split produces.
func Chunk(text string, maxSize int) []string {
	pieces := Split(text, maxSize)
	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.Text
	}
	return out
}

// Split cuts text into pieces of at most maxSize runes. It never drops
// non-whitespace characters: only the whitespace at a chosen boundary is
// removed. A word longer than maxSize is broken at the size limit and the
// affected pieces are flagged MidWord.
func Split(text string, maxSize int) []Piece {
	if maxSize <= 0 {
		maxSize = DefaultTextSize
	}
	if utf8.RuneCountInString(text) <= maxSize {
		return []Piece{{Text: text}}
	}

	bounds := collectBoundaries(text)
	minRunes := int(float64(maxSize) * minFill)

	var (
		out       []Piece
		carryWord bool
	)
	start := skipSpace(text, 0)
	for start < len(text) {
		rest := strings.TrimSpace(text[start:])
		if utf8.RuneCountInString(rest) <= maxSize {
			if rest != "" {
				out = append(out, Piece{Text: rest, MidWord: carryWord})
			}
			break
		}

		limit := advanceRunes(text, start, maxSize)
		cut, ok := pickBoundary(text, bounds, start, limit, minRunes)
		if !ok {
			out = append(out, Piece{Text: text[start:limit], MidWord: true})
			carryWord = !unicode.IsSpace(firstRune(text[limit:]))
			start = skipSpace(text, limit)
			continue
		}
		out = append(out, Piece{Text: strings.TrimSpace(text[start:cut.end]), MidWord: carryWord})
		carryWord = false
		start = skipSpace(text, cut.next)
	}
	return out
}

// pickBoundary prefers the latest boundary of the strongest level that
// keeps the piece at or above minRunes. Without such a boundary the latest
// fitting boundary of any level wins.
func pickBoundary(text string, bounds []boundary, start, limit, minRunes int) (boundary, bool) {
	var window []boundary
	for _, b := range bounds {
		if b.end <= start {
			continue
		}
		if b.end > limit {
			break
		}
		window = append(window, b)
	}
	if len(window) == 0 {
		return boundary{}, false
	}
	for lvl := LevelParagraph; lvl >= LevelWord; lvl-- {
		for i := len(window) - 1; i >= 0; i-- {
			b := window[i]
			if b.level < lvl {
				continue
			}
			if utf8.RuneCountInString(text[start:b.end]) >= minRunes {
				return b, true
			}
			break
		}
	}
	return window[len(window)-1], true
}

func collectBoundaries(text string) []boundary {
	byEnd := map[int]boundary{}
	add := func(re *regexp.Regexp, lvl Level, keepSep func(sep string) int) {
		for _, m := range re.FindAllStringIndex(text, -1) {
			end := m[0] + keepSep(text[m[0]:m[1]])
			if end == 0 || m[1] >= len(text) {
				continue
			}
			b := boundary{end: end, next: m[1], level: lvl}
			if prev, ok := byEnd[end]; !ok || prev.level < lvl {
				byEnd[end] = b
			}
		}
	}
	none := func(string) int { return 0 }
	firstRuneLen := func(sep string) int {
		_, n := utf8.DecodeRuneInString(sep)
		return n
	}
	add(wordRe, LevelWord, none)
	add(clauseRe, LevelClause, firstRuneLen)
	add(sentenceRe, LevelSentence, firstRuneLen)
	add(paragraphRe, LevelParagraph, none)

	out := make([]boundary, 0, len(byEnd))
	for _, b := range byEnd {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].end < out[j].end })
	return out
}

func advanceRunes(s string, from, n int) int {
	i := from
	for k := 0; k < n && i < len(s); k++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

func skipSpace(s string, from int) int {
	for from < len(s) {
		r, size := utf8.DecodeRuneInString(s[from:])
		if !unicode.IsSpace(r) {
			break
		}
		from += size
	}
	return from
}

func firstRune(s string) rune {
	if s == "" {
		return ' '
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
