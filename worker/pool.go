// Package worker 提供固定大小的 worker 池，用于执行 CPU 密集型的批量任务。
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sourcegraph/conc"

	"github.com/wyfcoding/randforest/metrics"
)

var (
	ErrPoolClosed = errors.New("worker pool is closed")
	ErrTaskPanic  = errors.New("worker task panic recovered")
)

// Task 是 worker 执行的任务函数。
type Task func(ctx context.Context) error

// Pool 是一个固定大小的 worker 池。
// 提交完所有任务后调用 Wait 关闭队列并等待执行完毕，Wait 返回第一个失败任务的错误。
type Pool struct {
	tasks   chan Task
	options *poolOptions
	metrics *workerMetrics
	wg      conc.WaitGroup
	mu      sync.RWMutex
	closed  bool
	active  atomic.Int32 // 当前正在执行任务的 worker 数量
	skipped atomic.Int64
	failed  atomic.Bool
	errOnce sync.Once
	err     error
}

type workerMetrics struct {
	busyWorkers prometheus.Gauge
	queueLength prometheus.Gauge
	tasksTotal  *prometheus.CounterVec
}

type poolOptions struct {
	Logger       *slog.Logger
	PanicHandler func(any)
	Metrics      *metrics.Metrics
	Name         string
	Size         int
	QueueSize    int
	FailFast     bool
}

// Option 定义配置选项。
type Option func(*poolOptions)

// WithName 设置池名称。
func WithName(name string) Option {
	return func(o *poolOptions) {
		o.Name = name
	}
}

// WithSize 设置 worker 数量，小于 1 时使用 GOMAXPROCS。
func WithSize(size int) Option {
	return func(o *poolOptions) {
		o.Size = size
	}
}

// WithQueueSize 设置任务队列大小。
func WithQueueSize(size int) Option {
	return func(o *poolOptions) {
		o.QueueSize = size
	}
}

// WithPanicHandler 设置 Panic 处理回调。
func WithPanicHandler(handler func(any)) Option {
	return func(o *poolOptions) {
		o.PanicHandler = handler
	}
}

// WithMetrics 注入指标采集器.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *poolOptions) {
		o.Metrics = m
	}
}

// WithLogger 设置日志记录器。
func WithLogger(l *slog.Logger) Option {
	return func(o *poolOptions) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithFailFast 开启后，任一任务失败即跳过队列中尚未开始的任务。
func WithFailFast() Option {
	return func(o *poolOptions) {
		o.FailFast = true
	}
}

// NewPool 创建一个新的 worker 池并立即启动 worker。
func NewPool(opts ...Option) *Pool {
	options := &poolOptions{
		Name:      "default-pool",
		Size:      runtime.GOMAXPROCS(0),
		QueueSize: 100,
		Logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.Size < 1 {
		options.Size = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		tasks:   make(chan Task, options.QueueSize),
		options: options,
	}

	if options.Metrics != nil {
		labels := prometheus.Labels{"pool": options.Name}
		p.metrics = &workerMetrics{
			busyWorkers: options.Metrics.NewGaugeVec(prometheus.GaugeOpts{
				Name: "worker_pool_busy_workers",
				Help: "Number of workers currently executing a task",
			}, []string{"pool"}).With(labels),
			queueLength: options.Metrics.NewGaugeVec(prometheus.GaugeOpts{
				Name: "worker_pool_queue_length",
				Help: "Current length of the task queue",
			}, []string{"pool"}).With(labels),
			tasksTotal: options.Metrics.NewCounterVec(prometheus.CounterOpts{
				Name: "worker_pool_tasks_total",
				Help: "Tasks handled by the pool, by outcome",
			}, []string{"pool", "outcome"}),
		}
	}

	p.start()
	return p
}

func (p *Pool) start() {
	p.options.Logger.Debug("worker pool starting", "name", p.options.Name, "size", p.options.Size)
	for range p.options.Size {
		p.wg.Go(p.runWorker)
	}
}

func (p *Pool) runWorker() {
	for task := range p.tasks {
		if p.metrics != nil {
			p.metrics.queueLength.Set(float64(len(p.tasks)))
		}
		if p.options.FailFast && p.failed.Load() {
			p.skipped.Add(1)
			p.observe("skipped")
			continue
		}
		p.executeTask(task)
	}
}

func (p *Pool) executeTask(task Task) {
	p.active.Add(1)
	if p.metrics != nil {
		p.metrics.busyWorkers.Inc()
	}
	defer func() {
		p.active.Add(-1)
		if p.metrics != nil {
			p.metrics.busyWorkers.Dec()
		}
		if r := recover(); r != nil {
			if p.options.PanicHandler != nil {
				p.options.PanicHandler(r)
			} else {
				p.options.Logger.Error("worker task panic recovered", "pool", p.options.Name, "panic", r)
			}
			p.fail(fmt.Errorf("%w: %v", ErrTaskPanic, r))
		}
	}()

	if err := task(context.Background()); err != nil {
		p.fail(err)
		return
	}
	p.observe("ok")
}

func (p *Pool) fail(err error) {
	p.failed.Store(true)
	p.errOnce.Do(func() { p.err = err })
	p.observe("failed")
}

func (p *Pool) observe(outcome string) {
	if p.metrics != nil {
		p.metrics.tasksTotal.WithLabelValues(p.options.Name, outcome).Inc()
	}
}

// Submit 提交一个任务。如果队列已满，则阻塞直到有空位。
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Wait 关闭任务队列，等待所有已提交的任务执行（或被跳过）完毕，返回第一个失败任务的错误。
// 重复调用是安全的。
func (p *Pool) Wait() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.options.Logger.Debug("worker pool stopped", "name", p.options.Name, "skipped", p.skipped.Load())
	return p.err
}

// Skipped 返回因快速失败而未执行的任务数。
func (p *Pool) Skipped() int64 {
	return p.skipped.Load()
}

// Size 返回 worker 数量。
func (p *Pool) Size() int {
	return p.options.Size
}
