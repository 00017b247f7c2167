package waitk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestController_StartsAtBase(t *testing.T) {
	c := NewController(DefaultBounds())
	assert.Equal(t, 2, c.Current())
}

func TestController_FirstNoveltyIsMax(t *testing.T) {
	c := NewController(DefaultBounds())
	assert.Equal(t, 1.0, c.Novelty([]string{"a", "b"}))
}

func TestController_ConfidentStableTopicWidens(t *testing.T) {
	c := NewController(DefaultBounds())
	c.Update(0.5, 1.0, []string{"a", "b"}) // first call: narrows to 1, sets the keyword baseline
	novelty := c.Novelty([]string{"a", "b"})
	assert.Less(t, novelty, 0.36)
	c.Update(0.9, novelty, []string{"a", "b"})
	assert.Equal(t, 3, c.Current())
}

func TestController_UncertainNarrows(t *testing.T) {
	c := NewController(DefaultBounds())
	c.Update(0.3, 1.0, []string{"x"})
	assert.Equal(t, 1, c.Current())
}

func TestController_TopicJumpNarrows(t *testing.T) {
	c := NewController(DefaultBounds())
	c.Update(0.9, 1.0, []string{"x"})
	c.Update(0.9, 0.95, []string{"y"})
	assert.Equal(t, 1, c.Current())
}

func TestController_ClampsToBounds(t *testing.T) {
	c := NewController(Bounds{Min: 1, Base: 4, Max: 4})
	c.Update(0.9, 0.0, []string{"a"})
	assert.LessOrEqual(t, c.Current(), 4)
}
