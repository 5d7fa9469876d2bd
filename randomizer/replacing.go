package randomizer

import "github.com/wyfcoding/randforest/dataset"

// ReplacingRandomizer 从全部样本中均匀地有放回抽取。
type ReplacingRandomizer struct {
	data    *dataset.Dataset
	samples int
}

func (r *ReplacingRandomizer) InitializeData(_, samplesPerTree int, ds *dataset.Dataset) {
	r.data = ds
	r.samples = samplesPerTree
}

func (r *ReplacingRandomizer) Data(seed uint64) *dataset.Dataset {
	rng := newRand(seed)
	total := r.data.Rows()
	rows := make([]int, r.samples)
	for i := range rows {
		rows[i] = rng.IntN(total)
	}
	return r.data.Subset(rows)
}
