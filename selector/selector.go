// Package selector 提供决策树节点分裂时的候选特征选择策略。
//
// Iterator 为整片森林按顺序产出每棵树的 TreeFactory；TreeFactory 在单棵树构建期间
// 为每个节点产出 FeatureSelector。每个 TreeFactory 拥有独立的随机流，
// 因此结果完全由顶层种子决定，与树的并行构建顺序无关。
package selector

import (
	"math/rand/v2"

	"github.com/wyfcoding/randforest/xerrors"
)

// FeatureSelector 给出某个节点允许用于分裂的特征下标。
type FeatureSelector interface {
	Features() []int
}

// TreeFactory 为单棵树的每个节点提供 FeatureSelector。
// 同一棵树的构建是串行的，TreeFactory 无需并发安全。
type TreeFactory interface {
	Selector(depth int) FeatureSelector
}

// Iterator 依次产出每棵树的 TreeFactory，本身不是并发安全的。
type Iterator interface {
	HasNext() bool
	Next() TreeFactory
}

// Expand 顺序地从 it 取出 n 个 TreeFactory。
// 森林在进入并行构建前调用它，避免在并行阶段同步访问迭代器。
func Expand(it Iterator, n int) ([]TreeFactory, error) {
	factories := make([]TreeFactory, n)
	for i := range factories {
		if !it.HasNext() {
			return nil, xerrors.Derive(xerrors.ErrFactoryExhausted, "iterator ended after %d of %d factories", i, n)
		}
		factories[i] = it.Next()
	}
	return factories, nil
}

// Multiple 是从候选特征中无放回随机选出若干个的选择器。
type Multiple struct {
	features []int
}

// NewMultiple 从 idxes 中无放回地选出 n 个特征，n 不小于候选数时返回全部候选。
func NewMultiple(idxes []int, n int, rng *rand.Rand) *Multiple {
	pool := make([]int, len(idxes))
	copy(pool, idxes)
	if n >= len(pool) {
		return &Multiple{features: pool}
	}
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return &Multiple{features: pool[:n]}
}

// Features 返回选出的特征下标。
func (m *Multiple) Features() []int {
	return m.features
}
