// Package randomizer 提供为每棵树抽取训练子集的采样策略。
//
// 所有策略都遵循同一约定：InitializeData 只调用一次并持有完整数据集，
// 之后 Data 可在多个 goroutine 中并发调用，结果仅由 seed 决定，且不修改源数据集。
package randomizer

import (
	"math/rand/v2"
	"strings"

	"github.com/wyfcoding/randforest/dataset"
	"github.com/wyfcoding/randforest/xerrors"
)

// streamSalt 作为 PCG 的第二个种子分量，使采样流与其它使用同一 seed 的随机流错开。
const streamSalt = 0x9e3779b97f4a7c15

// Randomizer 是单棵树训练集的采样策略。
type Randomizer interface {
	// InitializeData 记录完整数据集与每棵树的样本数。
	InitializeData(numLabels, samplesPerTree int, ds *dataset.Dataset)
	// Data 根据 seed 生成一份采样数据集。
	Data(seed uint64) *dataset.Dataset
}

// Method 标识采样方式。
type Method int

const (
	// Balanced 有放回采样，每个类别数量相同。
	Balanced Method = iota
	// Unique 无放回采样。
	Unique
	// Random 有放回采样，类别比例与源数据一致。
	Random
)

type methodEntry struct {
	name        string
	description string
	create      func() Randomizer
}

var methodTable = map[Method]methodEntry{
	Balanced: {"BALANCED", "Class-balanced example sets with replacement.", func() Randomizer { return &BalancedRandomizer{} }},
	Unique:   {"UNIQUE", "Random example sets without replacement.", func() Randomizer { return &NonReplacingRandomizer{} }},
	Random:   {"RANDOM", "Random example sets with replacement.", func() Randomizer { return &ReplacingRandomizer{} }},
}

// Methods 按声明顺序返回全部采样方式。
func Methods() []Method {
	return []Method{Balanced, Unique, Random}
}

// Create 返回该采样方式对应的新采样器。
func (m Method) Create() Randomizer {
	entry, ok := methodTable[m]
	if !ok {
		return &ReplacingRandomizer{}
	}
	return entry.create()
}

func (m Method) String() string {
	if entry, ok := methodTable[m]; ok {
		return entry.name
	}
	return "UNKNOWN"
}

// Description 返回采样方式的说明文字。
func (m Method) Description() string {
	return methodTable[m].description
}

// ParseMethod 解析配置或命令行中的采样方式名称，大小写不敏感。
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods() {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return Random, xerrors.Derive(xerrors.ErrInvalidMethod, "unknown sampling method %q", s)
}

// MarshalText 让 Method 能以名称形式出现在配置与日志中。
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText 解析名称形式的 Method。
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func newRand(seed uint64) *rand.Rand {
	//nolint:gosec // 采样只要求可复现，不要求加密安全.
	return rand.New(rand.NewPCG(seed, seed^streamSalt))
}
