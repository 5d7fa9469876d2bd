// Package forest 实现随机森林分类器：并行构建多棵决策树，并通过多数投票给出预测。
//
// 构建流程：记录标签数，初始化采样器，从进程级随机源顺序抽取每棵树的种子，
// 顺序展开特征选择器工厂，然后在固定大小的 worker 池中并行建树。
// 构建完成后森林不可变，可在多个 goroutine 中并发预测。
package forest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/wyfcoding/randforest/dataset"
	"github.com/wyfcoding/randforest/logging"
	"github.com/wyfcoding/randforest/metrics"
	"github.com/wyfcoding/randforest/randomizer"
	"github.com/wyfcoding/randforest/report"
	"github.com/wyfcoding/randforest/selector"
	"github.com/wyfcoding/randforest/tracing"
	"github.com/wyfcoding/randforest/tree"
	"github.com/wyfcoding/randforest/worker"
	"github.com/wyfcoding/randforest/xerrors"
)

// minRowsPerChunk 以下的行数不再拆分并行投票。
const minRowsPerChunk = 256

// Forest 是训练好的随机森林。
type Forest struct {
	trees     []*tree.DecisionTree
	numLabels int
	numInputs int // 未经过滤的输入特征数。
}

type options struct {
	reporter report.Reporter
	logger   *slog.Logger
	metrics  *metrics.Metrics
	workers  int
}

// Option 配置一次森林构建。
type Option func(*options)

// WithReporter 设置进度上报接收方，每棵树完成后调用一次。
func WithReporter(r report.Reporter) Option {
	return func(o *options) { o.reporter = r }
}

// WithLogger 设置日志记录器。
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics 注入指标采集器，同时用于建树的 worker 池。
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithWorkers 设置并行建树的 worker 数，小于 1 时使用 GOMAXPROCS。
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// New 使用标准方式构建森林：先过滤掉恒定的特征列，再以进程级随机源的种子创建 Normal 特征选择器。
func New(ctx context.Context, ds *dataset.Dataset, parms *Parms, opts ...Option) (*Forest, error) {
	idxes := dataset.UsefulFeatures(ds)
	it := selector.NewNormal(nextSeeds(1)[0], idxes, parms.NumFeatures(), parms.NumTrees())
	return Build(ctx, ds, parms, it, opts...)
}

// Build 基于数据集、超参数与特征选择器工厂迭代器构建森林。
//
// factories 至少要能产出 parms.NumTrees() 个工厂。任意一棵树构建失败（返回错误或 panic）
// 都会使整个构建失败，返回的错误匹配 xerrors.ErrTreeBuild。
func Build(ctx context.Context, ds *dataset.Dataset, parms *Parms, factories selector.Iterator, opts ...Option) (*Forest, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	n := parms.NumTrees()

	ctx, span := tracing.StartSpan(ctx, "forest.Build",
		attribute.Int("forest.trees", n),
		attribute.Int("forest.rows", ds.Rows()),
		attribute.Int("forest.inputs", ds.NumInputs()),
		attribute.String("forest.method", parms.Method().String()),
	)
	defer span.End()
	start := time.Now()

	numLabels := ds.NumLabels()

	rnd := parms.Randomizer()
	if parms.Method() == randomizer.Unique && parms.NumExamplesPerTree() > ds.Rows() {
		o.logger.WarnContext(ctx, "examples per tree exceeds available rows, capping sample size",
			"requested", parms.NumExamplesPerTree(), "rows", ds.Rows())
	}
	o.logger.DebugContext(ctx, "initializing randomizer", "examples", parms.NumExamplesPerTree(), "method", parms.Method())
	rnd.InitializeData(numLabels, parms.NumExamplesPerTree(), ds)

	seeds := nextSeeds(n)

	built, err := selector.Expand(factories, n)
	if err != nil {
		tracing.SetError(span, err, "factory expansion failed")
		return nil, err
	}

	treeOpts := tree.Options{LeafLimit: parms.LeafExampleLimit(), MaxDepth: parms.MaxTreeDepth()}
	trees := make([]*tree.DecisionTree, n)
	prog := &progress{sink: o.reporter, logger: o.logger}
	inst := newInstruments(o.metrics)

	pool := worker.NewPool(
		worker.WithName("forest-build"),
		worker.WithSize(o.workers),
		worker.WithQueueSize(n),
		worker.WithLogger(o.logger),
		worker.WithMetrics(o.metrics),
		worker.WithFailFast(),
		worker.WithPanicHandler(func(r any) {
			attrs := []any{"panic", r}
			if tp, ok := r.(treePanic); ok {
				attrs = []any{"tree", tp.index, "panic", tp.value}
			}
			o.logger.ErrorContext(ctx, "tree construction panicked", attrs...)
		}),
	)
	var submitErr error
	for i := range n {
		submitErr = pool.Submit(func(context.Context) error {
			defer func() {
				if r := recover(); r != nil {
					panic(treePanic{index: i, value: r})
				}
			}()
			sample := rnd.Data(seeds[i])
			dt := tree.New(sample, treeOpts, built[i])
			trees[i] = dt
			inst.observeTree(dt)
			prog.report(ctx, dt.Score())
			return nil
		})
		if submitErr != nil {
			break
		}
	}
	if err := errors.Join(pool.Wait(), submitErr); err != nil {
		werr := xerrors.Wrap(err, xerrors.ErrTreeBuild, fmt.Sprintf("building %d trees", n)).
			WithContext("skipped", pool.Skipped())
		tracing.SetError(span, werr, "tree construction failed")
		o.logger.ErrorContext(ctx, "forest build failed", "error", err, "skipped", pool.Skipped())
		return nil, werr
	}

	inst.observeBuild(time.Since(start))
	o.logger.InfoContext(ctx, "forest built", "trees", n, "labels", numLabels,
		"best_score", prog.best, "duration", time.Since(start))

	return &Forest{trees: trees, numLabels: numLabels, numInputs: ds.NumInputs()}, nil
}

// treePanic 标记发生 panic 的树下标，由池的 panic 回调记录。
type treePanic struct {
	index int
	value any
}

func (p treePanic) String() string {
	return fmt.Sprintf("tree %d: %v", p.index, p.value)
}

// progress 在同一把锁内更新完成计数、最优得分并调用上报方，保证计数严格递增且不交错。
type progress struct {
	mu     sync.Mutex
	sink   report.Reporter
	logger *slog.Logger
	count  int
	best   float64
}

func (p *progress) report(ctx context.Context, score float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	if p.count == 1 || score < p.best {
		p.best = score
	}
	if p.sink == nil {
		return
	}
	if err := p.sink.DisplayEpoch(p.count, score, 0, false); err != nil {
		if errors.Is(err, report.ErrInterrupted) {
			p.logger.WarnContext(ctx, "interrupt requested during forest build, continuing", "trees_done", p.count)
			return
		}
		p.logger.ErrorContext(ctx, "progress report failed", "error", err, "trees_done", p.count)
	}
}

type instruments struct {
	treeScore *prometheus.HistogramVec
	treeDepth *prometheus.HistogramVec
	duration  *prometheus.HistogramVec
}

func newInstruments(m *metrics.Metrics) *instruments {
	if m == nil {
		return nil
	}
	return &instruments{
		treeScore: m.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forest_tree_training_error",
			Help:    "Training error of each built tree",
			Buckets: prometheus.LinearBuckets(0, 0.05, 20),
		}, []string{}),
		treeDepth: m.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forest_tree_depth",
			Help:    "Depth of each built tree",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}, []string{}),
		duration: m.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forest_build_duration_seconds",
			Help:    "Wall time of a complete forest build",
			Buckets: prometheus.DefBuckets,
		}, []string{}),
	}
}

func (i *instruments) observeTree(dt *tree.DecisionTree) {
	if i == nil {
		return
	}
	depth, _ := dt.Stats()
	i.treeScore.WithLabelValues().Observe(dt.Score())
	i.treeDepth.WithLabelValues().Observe(float64(depth))
}

func (i *instruments) observeBuild(d time.Duration) {
	if i == nil {
		return
	}
	i.duration.WithLabelValues().Observe(d.Seconds())
}

// NumTrees 返回树的数量。
func (f *Forest) NumTrees() int { return len(f.trees) }

// NumLabels 返回标签数。
func (f *Forest) NumLabels() int { return f.numLabels }

// NumInputs 返回输入特征数。
func (f *Forest) NumInputs() int { return f.numInputs }

// Scores 按构建顺序返回每棵树的训练误差。
func (f *Forest) Scores() []float64 {
	scores := make([]float64, len(f.trees))
	for i, t := range f.trees {
		scores[i] = t.Score()
	}
	return scores
}

// Predict 返回 rows × labels 的票数矩阵，每棵树为每一行投一票。
// gonum 不允许零行矩阵，features 没有行时返回空矩阵（IsEmpty 为 true，Dims 为 0×0）。
// 行数较多时按行分块并行投票，结果与串行投票完全一致。
func (f *Forest) Predict(features mat.Matrix) (*mat.Dense, error) {
	rows, cols := features.Dims()
	if cols != f.numInputs {
		return nil, xerrors.Derive(xerrors.ErrShapeMismatch, "features have %d columns, model expects %d", cols, f.numInputs)
	}
	if rows == 0 {
		return &mat.Dense{}, nil
	}
	tally := mat.NewDense(rows, f.numLabels, nil)

	chunks := min(runtime.GOMAXPROCS(0), (rows+minRowsPerChunk-1)/minRowsPerChunk)
	if chunks <= 1 {
		for _, t := range f.trees {
			t.Vote(features, tally)
		}
		return tally, nil
	}

	// 各分块写入 tally 中互不重叠的行。
	var g errgroup.Group
	size := (rows + chunks - 1) / chunks
	for from := 0; from < rows; from += size {
		to := min(from+size, rows)
		g.Go(func() error {
			for _, t := range f.trees {
				t.VoteRows(features, tally, from, to)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tally, nil
}

// Accuracy 返回森林在带标签测试集上的准确率。
func (f *Forest) Accuracy(ds *dataset.Dataset) (float64, error) {
	if ds.Rows() == 0 {
		return 0, xerrors.Derive(xerrors.ErrEmptyData, "test set has no rows")
	}
	tally, err := f.Predict(ds.Features())
	if err != nil {
		return 0, err
	}
	good := 0
	for r := range ds.Rows() {
		if dataset.ComputeBest(tally, r) == ds.Label(r) {
			good++
		}
	}
	return float64(good) / float64(ds.Rows()), nil
}

// Impact 返回每个输入特征在所有树上的平均分裂贡献，长度等于未过滤的输入特征数。
func (f *Forest) Impact() []float64 {
	impact := make([]float64, f.numInputs)
	if len(f.trees) == 0 {
		return impact
	}
	for _, t := range f.trees {
		t.AccumulateImpact(impact)
	}
	n := float64(len(f.trees))
	for i := range impact {
		impact[i] /= n
	}
	return impact
}

// Evaluate 对测试集做预测并记录耗时，返回票数矩阵。
func (f *Forest) Evaluate(ctx context.Context, ds *dataset.Dataset) (*mat.Dense, error) {
	defer logging.LogDuration(ctx, "forest evaluate", "rows", ds.Rows())()
	return f.Predict(ds.Features())
}
