// Package opsynth turns a labeled segment (keywords + intent) into the list
// of add_node/add_edge operations the renderer will apply.
package opsynth

import (
	"fmt"

	"github.com/linlinlin-zhang/stream2graph/internal/graphop"
	"github.com/linlinlin-zhang/stream2graph/internal/intent"
)

// maxNodesPerUpdate caps how many keywords become nodes in one update.
const maxNodesPerUpdate = 6

// Synthesize emits up to 6 add_node operations (one per keyword, in order)
// followed by edges determined by intent:
//   - sequential/contrastive: a chain n1->n2->...->nK
//   - structural/relational: a hub-and-spoke from n1 to each other node
//   - classification/generic: nodes only, no edges
//
// If no keywords survive extraction, a single node labeled "core_step" is
// emitted instead.
func Synthesize(updateID int, keywords []string, it intent.Type) []graphop.Operation {
	if len(keywords) == 0 {
		return []graphop.Operation{
			graphop.NewAddNode(fmt.Sprintf("u%d_n1", updateID), "core_step", string(it)),
		}
	}

	n := len(keywords)
	if n > maxNodesPerUpdate {
		n = maxNodesPerUpdate
	}

	nodeIDs := make([]string, n)
	ops := make([]graphop.Operation, 0, n+n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("u%d_n%d", updateID, i+1)
		nodeIDs[i] = id
		ops = append(ops, graphop.NewAddNode(id, keywords[i], string(it)))
	}

	switch it {
	case intent.Sequential, intent.Contrastive:
		for i := 0; i+1 < len(nodeIDs); i++ {
			ops = append(ops, graphop.NewAddEdge(nodeIDs[i], nodeIDs[i+1]))
		}
	case intent.Structural, intent.Relational:
		if len(nodeIDs) >= 2 {
			hub := nodeIDs[0]
			for _, n := range nodeIDs[1:] {
				ops = append(ops, graphop.NewAddEdge(hub, n))
			}
		}
	}

	return ops
}
