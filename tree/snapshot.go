package tree

import "fmt"

// Snapshot 是决策树的可序列化形式。
type Snapshot struct {
	Root      *TreeNode
	NumLabels int
	Impact    []float64
	Score     float64
}

// Snapshot 导出树的完整状态。返回值与树共享节点，调用方不得修改。
func (dt *DecisionTree) Snapshot() Snapshot {
	return Snapshot{
		Root:      dt.root,
		NumLabels: dt.numLabels,
		Impact:    dt.impact,
		Score:     dt.score,
	}
}

// FromSnapshot 还原决策树，并校验节点结构与下标范围。
// numLabels 与 numInputs 为所属森林的标签数与特征数。
func FromSnapshot(s Snapshot, numLabels, numInputs int) (*DecisionTree, error) {
	if s.Root == nil {
		return nil, fmt.Errorf("tree has no root")
	}
	if err := validate(s.Root, numLabels, numInputs); err != nil {
		return nil, err
	}
	return &DecisionTree{
		root:      s.Root,
		numLabels: s.NumLabels,
		impact:    s.Impact,
		score:     s.Score,
	}, nil
}

func validate(n *TreeNode, numLabels, numInputs int) error {
	if n.IsLeaf {
		if n.Label < 0 || n.Label >= numLabels {
			return fmt.Errorf("leaf label %d outside [0,%d)", n.Label, numLabels)
		}
		return nil
	}
	if n.Feature < 0 || n.Feature >= numInputs {
		return fmt.Errorf("split feature %d outside [0,%d)", n.Feature, numInputs)
	}
	if n.Left == nil || n.Right == nil {
		return fmt.Errorf("split node on feature %d is missing a child", n.Feature)
	}
	if err := validate(n.Left, numLabels, numInputs); err != nil {
		return err
	}
	return validate(n.Right, numLabels, numInputs)
}
