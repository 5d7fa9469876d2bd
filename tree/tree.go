// Package tree 实现随机森林中的单棵分类决策树。
//
// 树基于一份采样数据集构建，节点按数值阈值做二元分裂，以信息增益（熵）评估分裂质量，
// 每个节点可用的候选特征由 selector.TreeFactory 决定。构建完成后树不可变，可并发投票。
package tree

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/wyfcoding/randforest/dataset"
	"github.com/wyfcoding/randforest/selector"
)

// minGain 以下的信息增益视为没有找到有效分裂。
const minGain = 1e-12

// Options 是构建单棵树所需的超参数。
type Options struct {
	LeafLimit int // 节点样本数不超过该值时成为叶子节点。
	MaxDepth  int // 树的最大深度，用于防止过拟合。
}

// TreeNode 结构体代表决策树的一个节点。
// 它可以是内部节点（根据特征进行分裂），也可以是叶子节点（给出预测标签）。
type TreeNode struct {
	Feature   int       // 分裂特征的索引，如果是叶子节点则无意义。
	Threshold float64   // 分裂阈值，特征值小于等于此阈值走向左子树，否则走向右子树。
	Left      *TreeNode // 左子节点。
	Right     *TreeNode // 右子节点。
	Label     int       // 叶子节点的预测标签。
	IsLeaf    bool      // 标记当前节点是否为叶子节点。
}

// DecisionTree 是训练好的分类决策树。
type DecisionTree struct {
	root      *TreeNode
	numLabels int
	impact    []float64 // 每个输入特征的分裂贡献。
	score     float64   // 1 - 训练样本上的准确率。
}

// builder 保存一次构建过程中的临时状态。
type builder struct {
	features mat.Matrix
	labels   []int
	opts     Options
	factory  selector.TreeFactory
	impact   []float64
	total    float64
	nLabels  int
}

// New 基于采样数据集构建一棵决策树。
func New(sample *dataset.Dataset, opts Options, factory selector.TreeFactory) *DecisionTree {
	n := sample.Rows()
	b := &builder{
		features: sample.Features(),
		labels:   make([]int, n),
		opts:     opts,
		factory:  factory,
		impact:   make([]float64, sample.NumInputs()),
		total:    float64(n),
		nLabels:  sample.NumLabels(),
	}
	rows := make([]int, n)
	for r := range rows {
		rows[r] = r
		b.labels[r] = sample.Label(r)
	}

	dt := &DecisionTree{
		root:      b.buildNode(rows, 0),
		numLabels: b.nLabels,
		impact:    b.impact,
	}
	dt.score = dt.trainingError(b.features, b.labels)
	return dt
}

// buildNode 递归构建以 rows 为样本的子树。
func (b *builder) buildNode(rows []int, depth int) *TreeNode {
	counts := b.classCounts(rows)
	label := majority(counts)

	if len(rows) <= b.opts.LeafLimit || depth >= b.opts.MaxDepth || isPure(counts) {
		return &TreeNode{IsLeaf: true, Label: label}
	}

	sel := b.factory.Selector(depth)
	best := b.bestSplit(rows, counts, sel.Features())
	if best.gain <= minGain {
		return &TreeNode{IsLeaf: true, Label: label}
	}

	left := make([]int, 0, best.leftSize)
	right := make([]int, 0, len(rows)-best.leftSize)
	for _, r := range rows {
		if b.features.At(r, best.feature) <= best.threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	b.impact[best.feature] += best.gain * float64(len(rows)) / b.total

	return &TreeNode{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      b.buildNode(left, depth+1),
		Right:     b.buildNode(right, depth+1),
		Label:     label,
	}
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	leftSize  int
}

// bestSplit 在候选特征上寻找信息增益最大的阈值。
// 对每个特征按取值排序后一次扫描，阈值取相邻两个不同取值的中点。
func (b *builder) bestSplit(rows []int, parentCounts []int, candidates []int) split {
	best := split{feature: -1}
	parentEntropy := entropy(parentCounts, len(rows))

	sorted := make([]int, len(rows))
	leftCounts := make([]int, b.nLabels)
	rightCounts := make([]int, b.nLabels)

	for _, f := range candidates {
		copy(sorted, rows)
		slices.SortFunc(sorted, func(x, y int) int {
			if c := cmp.Compare(b.features.At(x, f), b.features.At(y, f)); c != 0 {
				return c
			}
			return cmp.Compare(x, y)
		})

		clear(leftCounts)
		copy(rightCounts, parentCounts)

		for i := 1; i < len(sorted); i++ {
			moved := b.labels[sorted[i-1]]
			leftCounts[moved]++
			rightCounts[moved]--

			prev := b.features.At(sorted[i-1], f)
			curr := b.features.At(sorted[i], f)
			if curr <= prev {
				continue
			}

			nl, nr := i, len(sorted)-i
			childEntropy := (float64(nl)*entropy(leftCounts, nl) + float64(nr)*entropy(rightCounts, nr)) / float64(len(sorted))
			gain := parentEntropy - childEntropy
			if gain > best.gain {
				threshold := prev + (curr-prev)/2
				if threshold >= curr {
					threshold = prev
				}
				best = split{feature: f, threshold: threshold, gain: gain, leftSize: nl}
			}
		}
	}
	return best
}

func (b *builder) classCounts(rows []int) []int {
	counts := make([]int, b.nLabels)
	for _, r := range rows {
		counts[b.labels[r]]++
	}
	return counts
}

// entropy 计算给定类别计数的熵（信息论中的不确定性度量）。
func entropy(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	var h float64
	for _, c := range counts {
		if c > 0 {
			p := float64(c) / float64(n)
			h -= p * math.Log2(p)
		}
	}
	return h
}

// majority 返回计数最多的类别，并列时取下标最小者。
func majority(counts []int) int {
	best := 0
	for c := 1; c < len(counts); c++ {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

// Score 返回训练拟合质量（1 - 训练样本准确率），只用于进度报告，不影响投票权重。
func (dt *DecisionTree) Score() float64 {
	return dt.score
}

// NumLabels 返回树可预测的标签数。
func (dt *DecisionTree) NumLabels() int {
	return dt.numLabels
}

// Predict 返回第 row 行样本落入的叶子节点标签。
func (dt *DecisionTree) Predict(features mat.Matrix, row int) int {
	node := dt.root
	for !node.IsLeaf {
		if features.At(row, node.Feature) <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Label
}

// Vote 让每一行样本遍历到叶子节点，并在 tally 对应的标签列上加一。
func (dt *DecisionTree) Vote(features mat.Matrix, tally *mat.Dense) {
	rows, _ := features.Dims()
	dt.VoteRows(features, tally, 0, rows)
}

// VoteRows 只对 [from, to) 区间的行投票，便于按行分块并行。
func (dt *DecisionTree) VoteRows(features mat.Matrix, tally *mat.Dense, from, to int) {
	for r := from; r < to; r++ {
		label := dt.Predict(features, r)
		tally.Set(r, label, tally.At(r, label)+1)
	}
}

// AccumulateImpact 把本树的特征贡献累加到 impact 中。
func (dt *DecisionTree) AccumulateImpact(impact []float64) {
	for f, v := range dt.impact {
		if f < len(impact) {
			impact[f] += v
		}
	}
}

// Stats 返回树的深度与叶子数。
func (dt *DecisionTree) Stats() (depth, leaves int) {
	var walk func(n *TreeNode, d int)
	walk = func(n *TreeNode, d int) {
		if n.IsLeaf {
			leaves++
			depth = max(depth, d)
			return
		}
		walk(n.Left, d+1)
		walk(n.Right, d+1)
	}
	walk(dt.root, 0)
	return depth, leaves
}

func (dt *DecisionTree) trainingError(features mat.Matrix, labels []int) float64 {
	if len(labels) == 0 {
		return 1
	}
	good := 0
	for r, want := range labels {
		if dt.Predict(features, r) == want {
			good++
		}
	}
	return 1 - float64(good)/float64(len(labels))
}
