package selector

import "math/rand/v2"

// Normal 是标准的随机森林特征装袋策略：每个节点都从可用特征中重新随机选取固定数量的特征，与深度无关。
type Normal struct {
	rng         *rand.Rand
	idxes       []int
	numFeatures int
	numTrees    int
	counter     int
}

// NewNormal 创建 Normal 迭代器。
//
// idxes 为可用（非恒定）特征列下标，所有树只读共享。numFeatures 不小于可用特征数时
// 减半为可用特征数的一半，且至少为 1；numTrees 为要产出的 TreeFactory 数量。
func NewNormal(seed uint64, idxes []int, numFeatures, numTrees int) *Normal {
	if numFeatures >= len(idxes) {
		numFeatures = len(idxes) / 2
	}
	if numFeatures < 1 && len(idxes) > 0 {
		numFeatures = 1
	}
	return &Normal{
		//nolint:gosec // 特征装袋只要求可复现.
		rng:         rand.New(rand.NewPCG(seed, uint64(numTrees))),
		idxes:       idxes,
		numFeatures: numFeatures,
		numTrees:    numTrees,
	}
}

// NumFeatures 返回每个节点实际选取的特征数。
func (n *Normal) NumFeatures() int {
	return n.numFeatures
}

func (n *Normal) HasNext() bool {
	return n.counter < n.numTrees
}

// Next 产出下一棵树的 TreeFactory，其随机流由顶层种子与树的序号共同决定。
func (n *Normal) Next() TreeFactory {
	n.counter++
	seed := n.rng.Uint64()
	return &normalTree{
		parent: n,
		//nolint:gosec // 同上.
		rng: rand.New(rand.NewPCG(seed, uint64(n.counter))),
	}
}

type normalTree struct {
	parent *Normal
	rng    *rand.Rand
}

func (t *normalTree) Selector(int) FeatureSelector {
	return NewMultiple(t.parent.idxes, t.parent.numFeatures, t.rng)
}
