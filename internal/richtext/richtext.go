// Package richtext splits post and comment bodies into plain text, hashtag,
// mention and link segments for display.
package richtext

import (
	"net/url"
	"strings"
	"unicode"
)

// Segment kinds
const (
	KindText    = "text"
	KindHashtag = "hashtag"
	KindMention = "mention"
	KindURL     = "url"
)

// Segment is a run of content. Value is the normalized tag, username or URL;
// Text is the original substring.
type Segment struct {
	Kind  string `json:"kind"`
	Text  string `json:"text"`
	Value string `json:"value,omitempty"`
}

const trailingPunct = ".,!?;:)]}\"'"

// Parse tokenizes content. Concatenating every Segment.Text yields content.
func Parse(content string) []Segment {
	segments := []Segment{}
	var plain strings.Builder

	flush := func() {
		if plain.Len() > 0 {
			segments = append(segments, Segment{Kind: KindText, Text: plain.String()})
			plain.Reset()
		}
	}

	for i := 0; i < len(content); {
		if isSpaceAt(content, i) {
			plain.WriteByte(content[i])
			i++
			continue
		}

		end := i
		for end < len(content) && !isSpaceAt(content, end) {
			end++
		}
		word := content[i:end]
		body := strings.TrimRight(word, trailingPunct)
		rest := word[len(body):]

		if seg, ok := classify(body); ok {
			flush()
			segments = append(segments, seg)
			plain.WriteString(rest)
		} else {
			plain.WriteString(word)
		}
		i = end
	}
	flush()
	return segments
}

// Hashtags returns the unique lowercase hashtags in content, in order.
func Hashtags(content string) []string {
	return values(content, KindHashtag)
}

// Mentions returns the unique lowercase usernames mentioned in content.
func Mentions(content string) []string {
	return values(content, KindMention)
}

func values(content, kind string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, s := range Parse(content) {
		if s.Kind == kind && !seen[s.Value] {
			seen[s.Value] = true
			out = append(out, s.Value)
		}
	}
	return out
}

func classify(word string) (Segment, bool) {
	switch {
	case strings.HasPrefix(word, "#"):
		tag := word[1:]
		if validName(tag, 1, 64) && !allDigits(tag) {
			return Segment{Kind: KindHashtag, Text: word, Value: strings.ToLower(tag)}, true
		}
	case strings.HasPrefix(word, "@"):
		name := word[1:]
		if validName(name, 3, 30) {
			return Segment{Kind: KindMention, Text: word, Value: strings.ToLower(name)}, true
		}
	case strings.HasPrefix(word, "http://") || strings.HasPrefix(word, "https://"):
		if u, err := url.Parse(word); err == nil && u.Host != "" {
			return Segment{Kind: KindURL, Text: word, Value: u.String()}, true
		}
	}
	return Segment{}, false
}

func validName(s string, min, max int) bool {
	n := 0
	for _, r := range s {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-') {
			return false
		}
		n++
	}
	return n >= min && n <= max
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isSpaceAt(s string, i int) bool {
	switch s[i] {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
