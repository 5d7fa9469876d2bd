// Package evaluation 基于预测票数矩阵计算分类评估指标。
//
// 类别 0 视为阴性，其余类别都视为阳性。
package evaluation

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/wyfcoding/randforest/dataset"
	"github.com/wyfcoding/randforest/xerrors"
)

// Confusion 是混淆矩阵，Count(actual, predicted) 为实际类别 actual 被预测为 predicted 的行数。
type Confusion struct {
	counts *mat.Dense
	n      int
}

// NewConfusion 由票数矩阵与期望标签矩阵构造混淆矩阵，两者按行取最高列。
func NewConfusion(tally, expected mat.Matrix) (*Confusion, error) {
	tr, tc := tally.Dims()
	er, ec := expected.Dims()
	if tr != er || tc != ec {
		return nil, xerrors.Derive(xerrors.ErrDimMismatch, "tally is %dx%d, expected is %dx%d", tr, tc, er, ec)
	}
	if tc == 0 {
		return nil, xerrors.Derive(xerrors.ErrEmptyData, "no label columns")
	}
	c := &Confusion{counts: mat.NewDense(tc, tc, nil), n: tc}
	for r := range tr {
		a, p := dataset.ComputeBest(expected, r), dataset.ComputeBest(tally, r)
		c.counts.Set(a, p, c.counts.At(a, p)+1)
	}
	return c, nil
}

// Classes 返回类别数。
func (c *Confusion) Classes() int { return c.n }

// Count 返回实际为 actual、预测为 predicted 的行数。
func (c *Confusion) Count(actual, predicted int) int {
	return int(c.counts.At(actual, predicted))
}

// TruePositive 返回预测为阳性且正确的行数。
func (c *Confusion) TruePositive() int {
	n := 0
	for i := 1; i < c.n; i++ {
		n += c.Count(i, i)
	}
	return n
}

// TrueNegative 返回预测为阴性且正确的行数。
func (c *Confusion) TrueNegative() int {
	return c.Count(0, 0)
}

// FalsePositive 返回预测为某个阳性类别但实际不是该类别的行数。
func (c *Confusion) FalsePositive() int {
	n := 0
	for p := 1; p < c.n; p++ {
		for a := range c.n {
			if a != p {
				n += c.Count(a, p)
			}
		}
	}
	return n
}

// FalseNegative 返回预测为阴性但实际为阳性的行数。
func (c *Confusion) FalseNegative() int {
	n := 0
	for a := 1; a < c.n; a++ {
		n += c.Count(a, 0)
	}
	return n
}

func (c *Confusion) String() string {
	var b strings.Builder
	for a := range c.n {
		for p := range c.n {
			if p > 0 {
				b.WriteByte('\t')
			}
			fmt.Fprintf(&b, "%d", c.Count(a, p))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Metric 是可供选择优化的评估指标。
type Metric int

const (
	Accuracy    Metric = iota // 全部结果中正确的比例。
	Precision                 // 阳性预测中正确的比例。
	NPV                       // 阴性预测中正确的比例。
	Specificity               // 实际阴性中被正确识别的比例。
	Sensitivity               // 实际阳性中被正确识别的比例。
)

var metricNames = [...]string{"ACCURACY", "PRECISION", "NPV", "SPECIFICITY", "SENSITIVITY"}

// Metrics 按声明顺序返回全部指标。
func Metrics() []Metric {
	return []Metric{Accuracy, Precision, NPV, Specificity, Sensitivity}
}

func (m Metric) String() string {
	if m < 0 || int(m) >= len(metricNames) {
		return "UNKNOWN"
	}
	return metricNames[m]
}

// ParseMetric 解析指标名称，大小写不敏感。
func ParseMetric(s string) (Metric, error) {
	for i, name := range metricNames {
		if strings.EqualFold(s, name) {
			return Metric(i), nil
		}
	}
	return Accuracy, xerrors.InvalidArg(fmt.Sprintf("unknown metric %q", s))
}

// Value 计算指标。
func (m Metric) Value(c *Confusion) float64 {
	switch m {
	case Accuracy:
		return ratio(c.TruePositive()+c.TrueNegative(), c.FalsePositive()+c.FalseNegative())
	case Precision:
		return ratio(c.TruePositive(), c.FalsePositive())
	case NPV:
		return ratio(c.TrueNegative(), c.FalseNegative())
	case Specificity:
		return ratio(c.TrueNegative(), c.FalsePositive())
	case Sensitivity:
		return ratio(c.TruePositive(), c.FalseNegative())
	}
	return 0
}

// ratio 在分子为 0 时返回 0，否则返回 num / (num + den)。
func ratio(num, den int) float64 {
	if num == 0 {
		return 0
	}
	return float64(num) / float64(num+den)
}

// Report 返回全部指标的取值，便于写入试验日志。
func Report(c *Confusion) string {
	var b strings.Builder
	for _, m := range Metrics() {
		fmt.Fprintf(&b, "%-12s %8.4f\n", m.String(), m.Value(c))
	}
	return b.String()
}
