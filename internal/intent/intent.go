// Package intent implements the rule-based intent classifier: a pure
// function from segment text to an intent label, confidence, and per-class
// score breakdown. Deliberately free of machine-learned models so the
// latency budget stays deterministic.
package intent

import (
	"strings"

	"github.com/linlinlin-zhang/stream2graph/internal/tokenize"
)

// Type is one of the six closed intent labels.
type Type string

const (
	Sequential     Type = "sequential"
	Structural     Type = "structural"
	Classification Type = "classification"
	Relational     Type = "relational"
	Contrastive    Type = "contrastive"
	Generic        Type = "generic"
)

// orderedClasses fixes declaration order for deterministic tie-breaking.
var orderedClasses = []Type{Sequential, Structural, Classification, Relational, Contrastive}

// Keywords lists the terms recognized per non-generic intent (67 in all).
var Keywords = map[Type][]string{
	Sequential: {
		"first", "then", "next", "after", "before", "finally", "step",
		"loop", "if", "else", "while", "start", "end", "flow",
		"流程", "步骤", "然后", "之后",
	},
	Structural: {
		"component", "module", "service", "gateway", "layer", "architecture",
		"system", "dependency", "interface",
		"模块", "架构", "服务", "依赖", "接口",
	},
	Classification: {
		"category", "group", "type", "branch", "cluster", "tree", "tag",
		"分类", "分组", "层级", "分支",
	},
	Relational: {
		"entity", "table", "schema", "relationship", "join", "foreign", "primary",
		"关联", "关系", "实体", "表", "主键", "外键",
	},
	Contrastive: {
		"compare", "versus", "vs", "difference", "ratio", "percentage", "contrast",
		"对比", "差异", "占比", "趋势",
	},
}

var cjkChar = func(r rune) bool { return r >= 0x4e00 && r <= 0x9fff }

func hasCJK(s string) bool {
	for _, r := range s {
		if cjkChar(r) {
			return true
		}
	}
	return false
}

// KeywordIndex maps every lower-cased keyword to the intent class that owns
// it, built once and shared read-only across sessions.
type KeywordIndex struct {
	byWord map[string]Type
	// cjkWords preserves declaration order for the substring-scan pass.
	cjkWords []string
}

// NewKeywordIndex builds the immutable keyword index from Keywords.
func NewKeywordIndex() *KeywordIndex {
	idx := &KeywordIndex{byWord: make(map[string]Type)}
	for _, class := range orderedClasses {
		for _, w := range Keywords[class] {
			lw := strings.ToLower(w)
			idx.byWord[lw] = class
			if hasCJK(lw) {
				idx.cjkWords = append(idx.cjkWords, lw)
			}
		}
	}
	return idx
}

// Words returns every keyword in the index in declaration order, used by
// keyword extraction's domain-hit pass.
func (k *KeywordIndex) Words() []string {
	out := make([]string, 0, len(k.byWord))
	for _, class := range orderedClasses {
		for _, w := range Keywords[class] {
			out = append(out, strings.ToLower(w))
		}
	}
	return out
}

// ClassOf returns the intent class owning a keyword, if any.
func (k *KeywordIndex) ClassOf(word string) (Type, bool) {
	t, ok := k.byWord[word]
	return t, ok
}

// Classifier is a pure function over segment text built on an immutable
// KeywordIndex.
type Classifier struct {
	index *KeywordIndex
}

// NewClassifier builds a classifier over a fresh keyword index.
func NewClassifier() *Classifier {
	return &Classifier{index: NewKeywordIndex()}
}

// Classify scores segment text against the keyword index and returns the
// winning intent, its confidence in [0.35, 0.96], and the per-class score
// map. Ties are broken by first intent in declaration order
// (Sequential, Structural, Classification, Relational, Contrastive).
func (c *Classifier) Classify(text string) (Type, float64, map[Type]float64) {
	raw := strings.ToLower(text)
	tokens := tokenize.Tokenize(raw)
	if len(tokens) == 0 {
		return Generic, 0.35, map[Type]float64{Generic: 1.0}
	}

	scores := make(map[Type]int)
	for _, t := range tokens {
		if class, ok := c.index.ClassOf(t); ok {
			scores[class]++
		}
	}
	// CJK keywords may appear in longer phrases without spaces.
	for _, kw := range c.index.cjkWords {
		if strings.Contains(raw, kw) {
			class := c.index.byWord[kw]
			scores[class]++
		}
	}

	if len(scores) == 0 {
		conf := 0.42 + float64(len(tokens))/100.0
		if conf > 0.55 {
			conf = 0.55
		}
		return Generic, conf, map[Type]float64{Generic: conf}
	}

	topClass, topHits, totalHits := argmaxByDeclarationOrder(scores)

	ratio := float64(topHits) / float64(totalHits)
	tokenDenom := len(tokens)
	if tokenDenom < 1 {
		tokenDenom = 1
	}
	density := float64(totalHits) / float64(tokenDenom)
	if density > 1.0 {
		density = 1.0
	}
	confidence := 0.45 + 0.40*ratio + 0.15*density
	confidence = clamp(confidence, 0.35, 0.96)

	scoreMap := make(map[Type]float64, len(scores))
	for class, hits := range scores {
		scoreMap[class] = float64(hits) / float64(totalHits)
	}
	return topClass, confidence, scoreMap
}

// argmaxByDeclarationOrder returns the highest-scoring class, breaking ties
// by first class encountered in orderedClasses, plus the winning hit count
// and the total hits across all classes.
func argmaxByDeclarationOrder(scores map[Type]int) (Type, int, int) {
	total := 0
	for _, v := range scores {
		total += v
	}
	best := Type("")
	bestHits := -1
	for _, class := range orderedClasses {
		hits, ok := scores[class]
		if !ok {
			continue
		}
		if hits > bestHits {
			bestHits = hits
			best = class
		}
	}
	return best, bestHits, total
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
