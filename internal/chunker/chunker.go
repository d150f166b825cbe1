// Package chunker splits long text into provider-sized segments.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is the segment size used when callers pass a non-positive limit.
const DefaultMaxChars = 1500

// Segment is one bounded piece of the source text.
type Segment struct {
	Index int
	Text  string
}

var (
	sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)
	clauseBoundary   = regexp.MustCompile(`,\s*`)
)

// Split returns the ordered segments of text, each at most max characters long.
// It never returns an empty slice: blank input yields a single empty segment.
func Split(text string, max int) []Segment {
	if max <= 0 {
		max = DefaultMaxChars
	}
	if strings.TrimSpace(text) == "" {
		return []Segment{{Index: 0, Text: ""}}
	}
	if runeLen(text) <= max {
		return []Segment{{Index: 0, Text: text}}
	}

	p := packer{max: max}
	for _, sentence := range Sentences(text) {
		if runeLen(sentence) <= max {
			p.add(sentence)
			continue
		}
		p.flush()
		for _, clause := range splitKeep(sentence, clauseBoundary) {
			if runeLen(clause) <= max {
				p.add(clause)
				continue
			}
			p.flush()
			for _, slice := range hardCut(clause, max) {
				p.emit(slice)
			}
		}
		p.flush()
	}
	p.flush()

	segments := make([]Segment, len(p.out))
	for i, text := range p.out {
		segments[i] = Segment{Index: i, Text: text}
	}
	if len(segments) == 0 {
		return []Segment{{Index: 0, Text: ""}}
	}
	return segments
}

// Sentences splits text after sentence-terminal punctuation followed by
// whitespace. Punctuation stays with its sentence; blank sentences are dropped.
func Sentences(text string) []string {
	return splitKeep(strings.TrimSpace(text), sentenceBoundary)
}

// splitKeep cuts text right after the first byte of every boundary match and
// trims the pieces.
func splitKeep(text string, boundary *regexp.Regexp) []string {
	var parts []string
	start := 0
	for _, loc := range boundary.FindAllStringIndex(text, -1) {
		cut := loc[0] + 1
		if piece := strings.TrimSpace(text[start:cut]); piece != "" {
			parts = append(parts, piece)
		}
		start = loc[1]
	}
	if piece := strings.TrimSpace(text[start:]); piece != "" {
		parts = append(parts, piece)
	}
	return parts
}

func hardCut(text string, max int) []string {
	runes := []rune(text)
	var slices []string
	for len(runes) > 0 {
		n := max
		if n > len(runes) {
			n = len(runes)
		}
		if piece := strings.TrimSpace(string(runes[:n])); piece != "" {
			slices = append(slices, piece)
		}
		runes = runes[n:]
	}
	return slices
}

type packer struct {
	max     int
	out     []string
	current strings.Builder
	length  int
}

func (p *packer) add(piece string) {
	n := runeLen(piece)
	if p.length == 0 {
		p.current.WriteString(piece)
		p.length = n
		return
	}
	if p.length+1+n > p.max {
		p.flush()
		p.current.WriteString(piece)
		p.length = n
		return
	}
	p.current.WriteByte(' ')
	p.current.WriteString(piece)
	p.length += 1 + n
}

func (p *packer) emit(piece string) {
	p.out = append(p.out, piece)
}

func (p *packer) flush() {
	if p.length == 0 {
		return
	}
	p.out = append(p.out, p.current.String())
	p.current.Reset()
	p.length = 0
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
