package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_NoKeywordsIsGeneric(t *testing.T) {
	c := NewClassifier()
	words := make([]string, 30)
	for i := range words {
		words[i] = "banana"
	}
	text := ""
	for _, w := range words {
		text += w + " "
	}
	class, conf, _ := c.Classify(text)
	assert.Equal(t, Generic, class)
	assert.LessOrEqual(t, conf, 0.55)
	assert.GreaterOrEqual(t, conf, 0.35)
}

func TestClassify_EmptyTextIsGenericFloor(t *testing.T) {
	c := NewClassifier()
	class, conf, scores := c.Classify("")
	assert.Equal(t, Generic, class)
	assert.Equal(t, 0.35, conf)
	assert.Equal(t, 1.0, scores[Generic])
}

func TestClassify_StructuralHub(t *testing.T) {
	c := NewClassifier()
	class, conf, _ := c.Classify("gateway module connects to auth service and data service")
	assert.Equal(t, Structural, class)
	assert.GreaterOrEqual(t, conf, 0.35)
	assert.LessOrEqual(t, conf, 0.96)
}

func TestClassify_SequentialChain(t *testing.T) {
	c := NewClassifier()
	class, _, _ := c.Classify("first capture sensor data then normalize and filter")
	assert.Equal(t, Sequential, class)
}

func TestClassify_ConfidenceBounded(t *testing.T) {
	c := NewClassifier()
	_, conf, _ := c.Classify("compare compare compare versus versus ratio percentage")
	assert.LessOrEqual(t, conf, 0.96)
	assert.GreaterOrEqual(t, conf, 0.35)
}

func TestClassify_CJKSubstringMatch(t *testing.T) {
	c := NewClassifier()
	class, _, _ := c.Classify("这是一个关于架构设计的讨论")
	assert.Equal(t, Structural, class)
}

func TestClassify_TieBreaksByDeclarationOrder(t *testing.T) {
	c := NewClassifier()
	// "step" -> sequential, "module" -> structural: one hit each, tie.
	class, _, _ := c.Classify("step module")
	assert.Equal(t, Sequential, class)
}
