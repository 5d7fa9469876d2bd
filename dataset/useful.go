package dataset

import "gonum.org/v1/gonum/mat"

// UsefulFeatures 返回取值不恒定的特征列下标，保持原有列顺序。
// 每一列与首行取值比较，发现不同即可判定；少于两行的数据集没有可用列。
func UsefulFeatures(d *Dataset) []int {
	return UsefulColumns(d.features)
}

// UsefulColumns 对任意矩阵执行同样的方差筛选。
func UsefulColumns(m mat.Matrix) []int {
	rows, cols := m.Dims()
	idxes := make([]int, 0, cols)
	for c := 0; c < cols; c++ {
		first := m.At(0, c)
		for r := 1; r < rows; r++ {
			if m.At(r, c) != first {
				idxes = append(idxes, c)
				break
			}
		}
	}
	return idxes
}
