// Package dataset 定义随机森林使用的带标签表格数据集。
//
// 特征矩阵为 rows × features 的实数矩阵，标签矩阵为 rows × labels 的 one-hot（或软）分类目标。
// 数据集创建后不可变，可在多个 goroutine 间只读共享。
package dataset

import (
	"gonum.org/v1/gonum/mat"

	"github.com/wyfcoding/randforest/xerrors"
)

// Dataset 是一组带标签的训练或测试样本。
type Dataset struct {
	features *mat.Dense
	labels   *mat.Dense
}

// New 基于特征矩阵与标签矩阵创建数据集，两者行数必须一致。
// 传入的矩阵会被复制，调用方之后的修改不会影响数据集。
func New(features, labels mat.Matrix) (*Dataset, error) {
	if features == nil || labels == nil {
		return nil, xerrors.ErrEmptyData
	}
	fr, _ := features.Dims()
	lr, _ := labels.Dims()
	if fr != lr {
		return nil, xerrors.Derive(xerrors.ErrDimMismatch, "features have %d rows, labels have %d", fr, lr)
	}
	return &Dataset{
		features: mat.DenseCopyOf(features),
		labels:   mat.DenseCopyOf(labels),
	}, nil
}

// FromClasses 基于特征矩阵与类别下标构造 one-hot 标签的数据集。
func FromClasses(features mat.Matrix, classes []int, numLabels int) (*Dataset, error) {
	rows, _ := features.Dims()
	if rows != len(classes) {
		return nil, xerrors.Derive(xerrors.ErrDimMismatch, "features have %d rows, %d classes given", rows, len(classes))
	}
	if numLabels <= 0 {
		return nil, xerrors.Derive(xerrors.ErrEmptyData, "label count must be positive")
	}
	labels := mat.NewDense(rows, numLabels, nil)
	for r, c := range classes {
		if c < 0 || c >= numLabels {
			return nil, xerrors.Derive(xerrors.ErrLabelNotFound, "row %d has class %d outside [0,%d)", r, c, numLabels)
		}
		labels.Set(r, c, 1)
	}
	return &Dataset{features: mat.DenseCopyOf(features), labels: labels}, nil
}

// Rows 返回样本数。
func (d *Dataset) Rows() int {
	r, _ := d.features.Dims()
	return r
}

// NumInputs 返回特征列数。
func (d *Dataset) NumInputs() int {
	_, c := d.features.Dims()
	return c
}

// NumLabels 返回标签列数。
func (d *Dataset) NumLabels() int {
	_, c := d.labels.Dims()
	return c
}

// Features 返回只读的特征矩阵。
func (d *Dataset) Features() mat.Matrix {
	return d.features
}

// Labels 返回只读的标签矩阵。
func (d *Dataset) Labels() mat.Matrix {
	return d.labels
}

// Label 返回第 row 行的类别下标（标签行中取值最大的列）。
func (d *Dataset) Label(row int) int {
	return ComputeBest(d.labels, row)
}

// Subset 按给定行下标（允许重复）复制出一个新的数据集，原数据集不受影响。
func (d *Dataset) Subset(rows []int) *Dataset {
	if len(rows) == 0 {
		return &Dataset{features: &mat.Dense{}, labels: &mat.Dense{}}
	}
	features := mat.NewDense(len(rows), d.NumInputs(), nil)
	labels := mat.NewDense(len(rows), d.NumLabels(), nil)
	for i, r := range rows {
		features.SetRow(i, d.features.RawRowView(r))
		labels.SetRow(i, d.labels.RawRowView(r))
	}
	return &Dataset{features: features, labels: labels}
}

// ComputeBest 返回矩阵第 row 行取值最大的列下标。
// 多列并列最大时取下标最小者。
func ComputeBest(m mat.Matrix, row int) int {
	_, cols := m.Dims()
	best := 0
	bestVal := m.At(row, 0)
	for c := 1; c < cols; c++ {
		if v := m.At(row, c); v > bestVal {
			best = c
			bestVal = v
		}
	}
	return best
}
