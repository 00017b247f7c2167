package render

import (
	"testing"

	"github.com/linlinlin-zhang/stream2graph/internal/graphop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyUpdate_FirstFrameHasNoDisplacement(t *testing.T) {
	r := New()
	ops := []graphop.Operation{
		graphop.NewAddNode("n1", "capture", "sequential"),
		graphop.NewAddNode("n2", "compute", "sequential"),
		graphop.NewAddEdge("n1", "n2"),
	}
	frame := r.ApplyUpdate(1, ops, "sequential")
	assert.Equal(t, 1, frame.FrameID)
	assert.Equal(t, 2, frame.NodeCount)
	assert.Equal(t, 1, frame.EdgeCount)
	assert.Equal(t, 1, frame.AddedEdges)
	assert.ElementsMatch(t, []string{"n1", "n2"}, frame.AddedNodes)
	assert.Equal(t, 0.0, frame.MeanDisplacement, "no prior positions exist yet")

	state := r.ExportState()
	for _, n := range state.Nodes {
		switch n.ID {
		case "n1":
			assert.Equal(t, "capture", n.Label, "add_edge must not clobber the label its add_node op already set")
		case "n2":
			assert.Equal(t, "compute", n.Label, "add_edge must not clobber the label its add_node op already set")
		}
	}
}

func TestApplyUpdate_EdgeToExistingNodeDoesNotTouchOrRelabelIt(t *testing.T) {
	r := New()
	r.ApplyUpdate(1, []graphop.Operation{
		graphop.NewAddNode("n1", "capture", "sequential"),
	}, "sequential")

	frame := r.ApplyUpdate(2, []graphop.Operation{
		graphop.NewAddNode("n2", "compute", "sequential"),
		graphop.NewAddEdge("n1", "n2"),
	}, "sequential")

	after := r.ExportState()
	for _, n := range after.Nodes {
		if n.ID == "n1" {
			assert.Equal(t, "capture", n.Label, "a pre-existing edge endpoint keeps its real label")
		}
	}
	assert.NotContains(t, frame.TouchedNodes, "n1", "add_edge must not mark a pre-existing endpoint touched")
	assert.Equal(t, 0.0, frame.UnchangedMaxDrift)
}

func TestApplyUpdate_ExistingNodesStayPutWhenUntouched(t *testing.T) {
	r := New()
	r.ApplyUpdate(1, []graphop.Operation{
		graphop.NewAddNode("n1", "a", "generic"),
		graphop.NewAddNode("n2", "b", "generic"),
	}, "generic")

	before := r.ExportState()
	frame := r.ApplyUpdate(2, []graphop.Operation{
		graphop.NewAddNode("n3", "c", "generic"),
	}, "generic")
	after := r.ExportState()

	require.Len(t, before.Nodes, 2)
	require.Len(t, after.Nodes, 3)
	for _, b := range before.Nodes {
		for _, a := range after.Nodes {
			if a.ID == b.ID {
				assert.Equal(t, b.X, a.X)
				assert.Equal(t, b.Y, a.Y)
			}
		}
	}
	assert.NotContains(t, frame.TouchedNodes, "n1")
	assert.NotContains(t, frame.TouchedNodes, "n2")
}

func TestApplyUpdate_DuplicateEdgeNotDoubleCounted(t *testing.T) {
	r := New()
	r.ApplyUpdate(1, []graphop.Operation{
		graphop.NewAddNode("n1", "a", "generic"),
		graphop.NewAddNode("n2", "b", "generic"),
		graphop.NewAddEdge("n1", "n2"),
	}, "generic")
	frame := r.ApplyUpdate(2, []graphop.Operation{
		graphop.NewAddEdge("n1", "n2"),
	}, "generic")
	assert.Equal(t, 0, frame.AddedEdges)
	assert.Equal(t, 1, frame.EdgeCount)
}

func TestApplyUpdate_RelabelingExistingNodeTouchesButDoesNotMove(t *testing.T) {
	r := New()
	r.ApplyUpdate(1, []graphop.Operation{
		graphop.NewAddNode("n1", "old-label", "generic"),
	}, "generic")
	before := r.ExportState().Nodes[0]

	frame := r.ApplyUpdate(2, []graphop.Operation{
		graphop.NewAddNode("n1", "new-label", "generic"),
	}, "generic")
	after := r.ExportState().Nodes[0]

	assert.Equal(t, "new-label", after.Label)
	assert.Equal(t, before.X, after.X)
	assert.Equal(t, before.Y, after.Y)
	assert.Contains(t, frame.TouchedNodes, "n1")
	assert.Empty(t, frame.AddedNodes)
}

func TestSummary_AggregatesAcrossFrames(t *testing.T) {
	r := New()
	r.ApplyUpdate(1, []graphop.Operation{graphop.NewAddNode("n1", "a", "generic")}, "generic")
	r.ApplyUpdate(2, []graphop.Operation{graphop.NewAddNode("n2", "b", "generic")}, "generic")
	summary := r.Summary()
	assert.Equal(t, 2, summary.FrameCount)
	assert.Equal(t, 2, summary.NodeCount)
	assert.Equal(t, 2.0, summary.MentalMapScore.Count)
}

func TestStats_P50IsMedianOnEvenSample(t *testing.T) {
	s := stats([]float64{10, 20})
	assert.InDelta(t, 15.0, s.P50, 1e-9)
	assert.NotEqual(t, percentile([]float64{10, 20}, 50.0), s.P50)
	assert.Equal(t, 20.0, s.P95)
	assert.Equal(t, 15.0, s.Mean)
}

func TestExportState_EdgesSortedDeterministically(t *testing.T) {
	r := New()
	r.ApplyUpdate(1, []graphop.Operation{
		graphop.NewAddNode("n1", "a", "generic"),
		graphop.NewAddNode("n2", "b", "generic"),
		graphop.NewAddNode("n3", "c", "generic"),
		graphop.NewAddEdge("n3", "n1"),
		graphop.NewAddEdge("n1", "n2"),
	}, "generic")
	state := r.ExportState()
	require.Len(t, state.Edges, 2)
	assert.Equal(t, Edge{From: "n1", To: "n2"}, state.Edges[0])
	assert.Equal(t, Edge{From: "n3", To: "n1"}, state.Edges[1])
}
