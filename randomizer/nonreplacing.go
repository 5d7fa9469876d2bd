package randomizer

import (
	"github.com/wyfcoding/randforest/dataset"
)

// NonReplacingRandomizer 无放回地抽取互不相同的样本。
// 样本数超过总行数时截断为总行数，由调用方负责记录。
type NonReplacingRandomizer struct {
	data    *dataset.Dataset
	samples int
}

func (r *NonReplacingRandomizer) InitializeData(_, samplesPerTree int, ds *dataset.Dataset) {
	r.data = ds
	r.samples = samplesPerTree
	r.samples = min(samplesPerTree, ds.Rows())
}

func (r *NonReplacingRandomizer) Data(seed uint64) *dataset.Dataset {
	rng := newRand(seed)
	total := r.data.Rows()
	idx := make([]int, total)
	for i := range idx {
		idx[i] = i
	}
	// 部分 Fisher-Yates：只需打乱前 samples 个位置。
	for i := 0; i < r.samples; i++ {
		j := i + rng.IntN(total-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return r.data.Subset(idx[:r.samples])
}
