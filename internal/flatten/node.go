package flatten

import (
	"go.uber.org/zap"

	"github.com/Faultbox/fbxflatten/pkg/fbxscene"
	"github.com/Faultbox/fbxflatten/pkg/scene"
)

// Names given to nodes the source left unnamed.
const (
	RootNodeName  = "internal_root"
	GroupNodeName = "internal_group"
)

// indexNodes maps parser node ids to list positions.
func indexNodes(nodes []*fbxscene.Node, log *zap.Logger) map[int]int32 {
	index := make(map[int]int32, len(nodes))
	for i, n := range nodes {
		if prev, dup := index[n.ID]; dup {
			log.Warn("duplicate node id, keeping first",
				zap.Int("id", n.ID),
				zap.Int32("first", prev),
				zap.Int("duplicate", i))
			continue
		}
		index[n.ID] = int32(i)
	}
	return index
}

// nodeName applies the naming policy for unnamed nodes.
func nodeName(n *fbxscene.Node) string {
	if n.Name != "" {
		return n.Name
	}
	if n.IsRoot {
		return RootNodeName
	}
	return GroupNodeName
}

// parentIndex resolves the parent of the node at position self.
func parentIndex(n *fbxscene.Node, self int, index map[int]int32, log *zap.Logger) int32 {
	if n.IsRoot || n.ParentID == fbxscene.NoIndex {
		return scene.NoParent
	}
	parent, ok := index[n.ParentID]
	if !ok {
		log.Warn("node parent not found, treating as root",
			zap.String("node", n.Name),
			zap.Int("parent_id", n.ParentID))
		return scene.NoParent
	}
	if int(parent) == self {
		log.Warn("node is its own parent, treating as root", zap.String("node", n.Name))
		return scene.NoParent
	}
	return parent
}

// flattenNode copies the transforms of a source node. Mesh indices are
// filled in by the caller.
func flattenNode(n *fbxscene.Node, parent int32) scene.Node {
	return scene.Node{
		ParentIndex: parent,
		Name:        nodeName(n),
		LocalTransform: scene.Transform{
			Position: n.LocalTransform.Translation,
			Rotation: n.LocalTransform.Rotation,
			Scale:    n.LocalTransform.Scale,
		},
		GeometryToNode:  n.GeometryToNode,
		NodeToParent:    n.NodeToParent,
		NodeToWorld:     n.NodeToWorld,
		GeometryToWorld: n.GeometryToWorld,
		NormalToWorld:   n.GeometryToWorld.NormalMatrix(),
	}
}
