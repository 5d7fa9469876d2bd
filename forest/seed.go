package forest

import (
	"math/rand/v2"
	"sync"
	"time"
)

// 进程级随机源。所有森林的种子都从这里顺序抽取，SetSeed 之后的构建结果可复现。
var (
	seedMu  sync.Mutex
	seedRng = newSource(uint64(time.Now().UnixNano()))
)

func newSource(seed uint64) *rand.Rand {
	//nolint:gosec // 只要求可复现.
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

// SetSeed 重置进程级随机源。应在构建任何森林之前调用。
func SetSeed(seed uint64) {
	seedMu.Lock()
	seedRng = newSource(seed)
	seedMu.Unlock()
}

// nextSeeds 顺序抽取 n 个种子。
func nextSeeds(n int) []uint64 {
	seedMu.Lock()
	defer seedMu.Unlock()
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = seedRng.Uint64()
	}
	return seeds
}
