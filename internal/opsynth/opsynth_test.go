package opsynth

import (
	"testing"

	"github.com/linlinlin-zhang/stream2graph/internal/graphop"
	"github.com/linlinlin-zhang/stream2graph/internal/intent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize_NoKeywordsCoreStep(t *testing.T) {
	ops := Synthesize(1, nil, intent.Generic)
	require.Len(t, ops, 1)
	assert.Equal(t, graphop.AddNode, ops[0].Op)
	assert.Equal(t, "core_step", ops[0].Label)
	assert.Equal(t, "u1_n1", ops[0].ID)
}

func TestSynthesize_SequentialChain(t *testing.T) {
	ops := Synthesize(2, []string{"capture", "normalize", "compute", "write"}, intent.Sequential)
	require.Len(t, ops, 4+3)
	for i := 0; i < 4; i++ {
		assert.Equal(t, graphop.AddNode, ops[i].Op)
	}
	assert.Equal(t, graphop.Operation{Op: graphop.AddEdge, From: "u2_n1", To: "u2_n2"}, ops[4])
	assert.Equal(t, graphop.Operation{Op: graphop.AddEdge, From: "u2_n2", To: "u2_n3"}, ops[5])
	assert.Equal(t, graphop.Operation{Op: graphop.AddEdge, From: "u2_n3", To: "u2_n4"}, ops[6])
}

func TestSynthesize_StructuralHub(t *testing.T) {
	ops := Synthesize(3, []string{"gateway", "auth", "data"}, intent.Structural)
	require.Len(t, ops, 3+2)
	assert.Equal(t, graphop.Operation{Op: graphop.AddEdge, From: "u3_n1", To: "u3_n2"}, ops[3])
	assert.Equal(t, graphop.Operation{Op: graphop.AddEdge, From: "u3_n1", To: "u3_n3"}, ops[4])
}

func TestSynthesize_ClassificationNoEdges(t *testing.T) {
	ops := Synthesize(4, []string{"a", "b", "c"}, intent.Classification)
	require.Len(t, ops, 3)
	for _, op := range ops {
		assert.Equal(t, graphop.AddNode, op.Op)
	}
}

func TestSynthesize_CapsAtSixNodes(t *testing.T) {
	kws := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	ops := Synthesize(5, kws, intent.Classification)
	require.Len(t, ops, 6)
}

func TestSynthesize_SingleKeywordNoEdges(t *testing.T) {
	ops := Synthesize(6, []string{"solo"}, intent.Sequential)
	require.Len(t, ops, 1)
}
