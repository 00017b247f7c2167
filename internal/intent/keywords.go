package intent

import (
	"regexp"
	"sort"
	"strings"
)

const maxKeywords = 8

var alphaTokenPattern = regexp.MustCompile(`^[a-z0-9_]{3,}$`)
var phraseSplitPattern = regexp.MustCompile(`[，。！？；;,.!?]+`)

// ExtractKeywords ranks candidate labels for a dispatched segment: domain
// keyword hits first (longest keyword first, so multi-word keywords win
// over their substrings), then short punctuation-delimited phrases, then
// alphanumeric tokens ordered by frequency. Results are deduplicated
// case-insensitively and capped at 8. If nothing survives, the caller gets
// a single "core_step" placeholder so downstream operation synthesis always
// has at least one label to work with.
func (c *Classifier) ExtractKeywords(text string, tokens []string) []string {
	lower := strings.ToLower(text)

	domainWords := append([]string(nil), c.index.Words()...)
	sort.Slice(domainWords, func(i, j int) bool {
		li, lj := len(domainWords[i]), len(domainWords[j])
		if li != lj {
			return li > lj
		}
		return domainWords[i] < domainWords[j]
	})
	var domainHits []string
	for _, kw := range domainWords {
		if strings.Contains(lower, kw) {
			domainHits = append(domainHits, kw)
		}
	}

	var phraseCandidates []string
	for _, p := range phraseSplitPattern.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		runes := []rune(p)
		if len(runes) > 20 {
			p = string(runes[:20])
			runes = runes[:20]
		}
		if len(runes) >= 2 {
			phraseCandidates = append(phraseCandidates, p)
		}
	}

	freq := make(map[string]int)
	var alphaOrder []string
	for _, t := range tokens {
		if !alphaTokenPattern.MatchString(t) {
			continue
		}
		if _, seen := freq[t]; !seen {
			alphaOrder = append(alphaOrder, t)
		}
		freq[t]++
	}
	sort.SliceStable(alphaOrder, func(i, j int) bool {
		a, b := alphaOrder[i], alphaOrder[j]
		if freq[a] != freq[b] {
			return freq[a] > freq[b]
		}
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})

	merged := make([]string, 0, maxKeywords)
	seen := make(map[string]struct{})
	addAll := func(candidates []string) {
		for _, cand := range candidates {
			if cand == "" {
				continue
			}
			key := strings.ToLower(cand)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, cand)
			if len(merged) >= maxKeywords {
				return
			}
		}
	}
	addAll(domainHits)
	if len(merged) < maxKeywords {
		addAll(phraseCandidates)
	}
	if len(merged) < maxKeywords {
		addAll(alphaOrder)
	}

	if len(merged) == 0 {
		return []string{"core_step"}
	}
	return merged
}
