// Package waitk implements the adaptive wait-k controller: it widens the
// dispatch window when the engine is confident about a stable topic and
// narrows it when surprised by low confidence or a topic jump.
package waitk

// Bounds are the immutable wait-k limits shared read-only across sessions.
type Bounds struct {
	Min  int
	Base int
	Max  int
}

// DefaultBounds returns min=1, base=2, max=4.
func DefaultBounds() Bounds {
	return Bounds{Min: 1, Base: 2, Max: 4}
}

// Controller holds the per-session mutable wait-k state: the last keyword
// set used to measure semantic novelty, and the current k.
type Controller struct {
	bounds       Bounds
	current      int
	lastKeywords map[string]struct{}
}

// NewController starts a controller at its base wait-k.
func NewController(bounds Bounds) *Controller {
	return &Controller{
		bounds:  bounds,
		current: bounds.Base,
	}
}

// Current returns the wait-k value to use for the next boundary decision.
func (c *Controller) Current() int {
	return c.current
}

// Novelty computes 1 - jaccard(lastKeywords, keywords); the very first
// update (no prior keyword set) is maximally novel.
func (c *Controller) Novelty(keywords []string) float64 {
	if len(c.lastKeywords) == 0 {
		return 1.0
	}
	cur := toSet(keywords)
	union := make(map[string]struct{}, len(c.lastKeywords)+len(cur))
	overlap := 0
	for k := range c.lastKeywords {
		union[k] = struct{}{}
		if _, ok := cur[k]; ok {
			overlap++
		}
	}
	for k := range cur {
		union[k] = struct{}{}
	}
	if len(union) == 0 {
		return 0.0
	}
	return 1.0 - float64(overlap)/float64(len(union))
}

// Update applies the post-dispatch rule: start from base, +1 on confident
// continuation, -1 on uncertainty or topic jump, clamp to bounds, then
// replace the novelty baseline with the dispatched keyword set.
func (c *Controller) Update(confidence float64, novelty float64, keywords []string) {
	k := c.bounds.Base
	if confidence >= 0.78 && novelty <= 0.35 {
		k++
	}
	if confidence < 0.52 || novelty >= 0.80 {
		k--
	}
	if k < c.bounds.Min {
		k = c.bounds.Min
	}
	if k > c.bounds.Max {
		k = c.bounds.Max
	}
	c.current = k
	c.lastKeywords = toSet(keywords)
}

func toSet(words []string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}
