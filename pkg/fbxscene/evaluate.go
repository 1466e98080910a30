package fbxscene

import (
	"fmt"

	"github.com/Faultbox/fbxflatten/pkg/math"
)

// nodeMatrices holds the matrices a document provides for a node.
type nodeMatrices struct {
	geometryToNode  *[16]float32
	nodeToParent    *[16]float32
	nodeToWorld     *[16]float32
	geometryToWorld *[16]float32
}

// EvaluateTransforms computes every node's matrices from its local
// transform and its parent chain. unitScale is applied at the roots.
func EvaluateTransforms(scene *Scene, unitScale float32) error {
	return evaluateTransforms(scene, nil, unitScale)
}

func evaluateTransforms(scene *Scene, overrides []nodeMatrices, unitScale float32) error {
	byID := make(map[int]*Node, len(scene.Nodes))
	for _, n := range scene.Nodes {
		if _, dup := byID[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %d", ErrInvalidDocument, n.ID)
		}
		byID[n.ID] = n
	}

	override := func(i int) nodeMatrices {
		if i < len(overrides) {
			return overrides[i]
		}
		return nodeMatrices{}
	}

	const (
		pending = iota
		inProgress
		done
	)
	state := make(map[*Node]int, len(scene.Nodes))
	index := make(map[*Node]int, len(scene.Nodes))
	for i, n := range scene.Nodes {
		index[n] = i
	}

	var eval func(n *Node) error
	eval = func(n *Node) error {
		switch state[n] {
		case done:
			return nil
		case inProgress:
			return fmt.Errorf("%w: parent cycle at node %q", ErrInvalidDocument, n.Name)
		}
		state[n] = inProgress

		o := override(index[n])
		parent := byID[n.ParentID]
		if n.ParentID == n.ID {
			parent = nil
		}

		if o.nodeToParent != nil {
			n.NodeToParent = math.Mat4(*o.nodeToParent).Affine()
		} else {
			n.NodeToParent = n.LocalTransform.Matrix()
			if parent == nil && unitScale != 1 {
				n.NodeToParent = math.Scale(unitScale, unitScale, unitScale).Mul(n.NodeToParent)
			}
		}

		if o.nodeToWorld != nil {
			n.NodeToWorld = math.Mat4(*o.nodeToWorld).Affine()
		} else if parent != nil {
			if err := eval(parent); err != nil {
				return err
			}
			n.NodeToWorld = parent.NodeToWorld.Mul(n.NodeToParent)
		} else {
			n.NodeToWorld = n.NodeToParent
		}

		if o.geometryToNode != nil {
			n.GeometryToNode = math.Mat4(*o.geometryToNode).Affine()
		} else {
			n.GeometryToNode = math.Identity()
		}

		if o.geometryToWorld != nil {
			n.GeometryToWorld = math.Mat4(*o.geometryToWorld).Affine()
		} else {
			n.GeometryToWorld = n.NodeToWorld.Mul(n.GeometryToNode)
		}

		state[n] = done
		return nil
	}

	for _, n := range scene.Nodes {
		if err := eval(n); err != nil {
			return err
		}
	}
	return nil
}

// resolveSkinBindings fills the bind matrices of clusters the document
// left implicit: the bone's inverse world matrix composed with the
// geometry-to-world matrix of the first node instancing the mesh.
func resolveSkinBindings(scene *Scene, doc *document) error {
	byID := make(map[int]*Node, len(scene.Nodes))
	for _, n := range scene.Nodes {
		byID[n.ID] = n
	}
	owner := make(map[int]*Node)
	for _, n := range scene.Nodes {
		if n.HasMesh() {
			if _, ok := owner[n.Mesh]; !ok {
				owner[n.Mesh] = n
			}
		}
	}

	for mi, dm := range doc.Meshes {
		mesh := scene.Meshes[mi]
		for si, ds := range dm.Skins {
			for ci, dc := range ds.Clusters {
				if dc.GeometryToBone != nil || dc.Bone == nil {
					continue
				}
				bone, ok := byID[*dc.Bone]
				if !ok {
					return fmt.Errorf("mesh %d skin %d cluster %d: %w: bone %d", mi, si, ci, ErrIndexOutOfRange, *dc.Bone)
				}
				geometryToWorld := math.Identity()
				if n := owner[mi]; n != nil {
					geometryToWorld = n.GeometryToWorld
				}
				mesh.SkinDeformers[si].Clusters[ci].GeometryToBone = bone.NodeToWorld.Inverse().Mul(geometryToWorld)
			}
		}
	}
	return nil
}
