// Package tokenize turns raw transcript text into the flat token stream the
// rest of the pipeline (intent classification, keyword extraction, boundary
// detection) counts and matches against.
package tokenize

import (
	"regexp"
	"strings"
)

var runPattern = regexp.MustCompile(`[a-z0-9_]+|[\x{4e00}-\x{9fff}]+`)

var cjkPattern = regexp.MustCompile(`^[\x{4e00}-\x{9fff}]+$`)

// Stopwords is the fixed English + Chinese function-word set dropped from
// every tokenization pass.
var Stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "to": {}, "of": {}, "in": {}, "on": {},
	"for": {}, "and": {}, "or": {}, "we": {}, "you": {}, "it": {}, "is": {},
	"are": {}, "be": {}, "this": {}, "that": {}, "with": {}, "as": {}, "by": {},
	"把": {}, "的": {}, "了": {}, "在": {}, "和": {}, "与": {}, "并": {}, "就": {},
	"先": {}, "再": {}, "一个": {}, "这里": {}, "这个": {}, "那个": {},
}

// Tokenize lower-cases text, extracts maximal ASCII-word or CJK runs, splits
// long CJK runs into non-overlapping 2-char pieces, and drops stopwords.
func Tokenize(text string) []string {
	raw := strings.ToLower(text)
	runs := runPattern.FindAllString(raw, -1)

	tokens := make([]string, 0, len(runs))
	for _, run := range runs {
		if cjkPattern.MatchString(run) {
			r := []rune(run)
			if len(r) <= 3 {
				tokens = append(tokens, run)
				continue
			}
			for i := 0; i < len(r); i += 2 {
				end := i + 2
				if end > len(r) {
					end = len(r)
				}
				piece := string(r[i:end])
				if len([]rune(piece)) >= 2 {
					tokens = append(tokens, piece)
				}
			}
			continue
		}
		tokens = append(tokens, run)
	}

	out := tokens[:0]
	for _, t := range tokens {
		if _, stop := Stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}
