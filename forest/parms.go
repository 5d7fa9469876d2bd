package forest

import (
	"fmt"
	"math"

	"github.com/wyfcoding/randforest/config"
	"github.com/wyfcoding/randforest/dataset"
	"github.com/wyfcoding/randforest/randomizer"
)

const (
	defaultTrees    = 50
	defaultFeatures = 10
	defaultLeaf     = 1
	defaultExamples = 1000
	defaultDepth    = 50
)

// Parms 是一次训练的超参数。
//
// 本层不做取值范围校验，非正数等无意义的取值由调用方负责。
type Parms struct {
	numTrees           int
	numFeatures        int
	leafExampleLimit   int
	numExamplesPerTree int
	method             randomizer.Method
	maxTreeDepth       int
}

// NewParms 返回固定默认值的超参数。
func NewParms() *Parms {
	return &Parms{
		numTrees:           defaultTrees,
		numFeatures:        defaultFeatures,
		leafExampleLimit:   defaultLeaf,
		numExamplesPerTree: defaultExamples,
		method:             randomizer.Random,
		maxTreeDepth:       defaultDepth,
	}
}

// NewParmsFor 根据数据集的行数与输入列数推导默认超参数。
//
// 每次分裂的特征数取 sqrt(inputs)+1，并夹在 [inputs*4/numTrees, inputs/2] 之间；
// 下界优先于上界判断，因此当下界大于上界时结果取上界。
func NewParmsFor(rows, inputs int) *Parms {
	p := NewParms()
	features := int(math.Sqrt(float64(inputs))) + 1
	if lower := inputs * 4 / p.numTrees; features < lower {
		features = lower
	}
	if upper := inputs / 2; features > upper {
		features = upper
	}
	p.numFeatures = features
	p.numExamplesPerTree = rows / 5
	p.maxTreeDepth = 2 * inputs
	return p
}

// ParmsFor 是 NewParmsFor 针对数据集的便捷写法。
func ParmsFor(ds *dataset.Dataset) *Parms {
	return NewParmsFor(ds.Rows(), ds.NumInputs())
}

// NumTrees 返回树的数量。
func (p *Parms) NumTrees() int { return p.numTrees }

// NumFeatures 返回每次分裂的候选特征数。
func (p *Parms) NumFeatures() int { return p.numFeatures }

// LeafExampleLimit 返回叶子节点的样本数上限。
func (p *Parms) LeafExampleLimit() int { return p.leafExampleLimit }

// NumExamplesPerTree 返回每棵树的采样数。
func (p *Parms) NumExamplesPerTree() int { return p.numExamplesPerTree }

// Method 返回采样方式。
func (p *Parms) Method() randomizer.Method { return p.method }

// MaxTreeDepth 返回树的最大深度。
func (p *Parms) MaxTreeDepth() int { return p.maxTreeDepth }

func (p *Parms) SetNumTrees(n int) *Parms {
	p.numTrees = n
	return p
}

func (p *Parms) SetNumFeatures(n int) *Parms {
	p.numFeatures = n
	return p
}

func (p *Parms) SetLeafExampleLimit(n int) *Parms {
	p.leafExampleLimit = n
	return p
}

func (p *Parms) SetNumExamplesPerTree(n int) *Parms {
	p.numExamplesPerTree = n
	return p
}

func (p *Parms) SetMethod(m randomizer.Method) *Parms {
	p.method = m
	return p
}

func (p *Parms) SetMaxTreeDepth(n int) *Parms {
	p.maxTreeDepth = n
	return p
}

// Randomizer 返回与采样方式对应的新采样器实例。
func (p *Parms) Randomizer() randomizer.Randomizer {
	return p.method.Create()
}

// ApplyConfig 用配置中的非零字段覆盖当前取值。
func (p *Parms) ApplyConfig(cfg config.ForestConfig) (*Parms, error) {
	if cfg.Trees > 0 {
		p.numTrees = cfg.Trees
	}
	if cfg.Features > 0 {
		p.numFeatures = cfg.Features
	}
	if cfg.LeafLimit > 0 {
		p.leafExampleLimit = cfg.LeafLimit
	}
	if cfg.Examples > 0 {
		p.numExamplesPerTree = cfg.Examples
	}
	if cfg.MaxDepth > 0 {
		p.maxTreeDepth = cfg.MaxDepth
	}
	if cfg.Method != "" {
		m, err := randomizer.ParseMethod(cfg.Method)
		if err != nil {
			return p, err
		}
		p.method = m
	}
	return p, nil
}

func (p *Parms) String() string {
	return fmt.Sprintf("trees=%d features=%d leaf=%d examples=%d method=%s depth=%d",
		p.numTrees, p.numFeatures, p.leafExampleLimit, p.numExamplesPerTree, p.method, p.maxTreeDepth)
}
