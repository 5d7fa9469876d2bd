package randomizer

import "github.com/wyfcoding/randforest/dataset"

// BalancedRandomizer 按类别分桶后，从每个类别有放回地抽取相同数量的样本，
// 用于抵消源数据中的类别不平衡。没有样本的类别不参与抽取。
type BalancedRandomizer struct {
	data     *dataset.Dataset
	buckets  [][]int
	perClass int
}

func (r *BalancedRandomizer) InitializeData(numLabels, samplesPerTree int, ds *dataset.Dataset) {
	r.data = ds
	r.buckets = make([][]int, numLabels)
	for row := 0; row < ds.Rows(); row++ {
		label := ds.Label(row)
		r.buckets[label] = append(r.buckets[label], row)
	}
	if numLabels > 0 {
		r.perClass = samplesPerTree / numLabels
	}
}

func (r *BalancedRandomizer) Data(seed uint64) *dataset.Dataset {
	rng := newRand(seed)
	rows := make([]int, 0, r.perClass*len(r.buckets))
	for _, bucket := range r.buckets {
		if len(bucket) == 0 {
			continue
		}
		for range r.perClass {
			rows = append(rows, bucket[rng.IntN(len(bucket))])
		}
	}
	return r.data.Subset(rows)
}
