// Package report 提供训练进度上报与试验日志。
package report

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wyfcoding/randforest/metrics"
)

// ErrInterrupted 由 Reporter 返回，表示希望中断训练。
// 森林构建会记录该信号但不会因此停止。
var ErrInterrupted = errors.New("training interrupted by reporter")

// Reporter 接收每个训练轮次（对随机森林而言是每棵完成的树）的进度。
//
// epoch 单调递增；score 为主指标，rating 为次指标，saved 表示本轮结果是否已保存。
type Reporter interface {
	DisplayEpoch(epoch int, score, rating float64, saved bool) error
}

// ReporterFunc 让普通函数实现 Reporter。
type ReporterFunc func(epoch int, score, rating float64, saved bool) error

func (f ReporterFunc) DisplayEpoch(epoch int, score, rating float64, saved bool) error {
	return f(epoch, score, rating, saved)
}

// LogReporter 将进度写入结构化日志。
type LogReporter struct {
	logger *slog.Logger
	total  int
}

// NewLogReporter 创建日志上报器，total 为预期的轮次总数，仅用于日志展示。
func NewLogReporter(logger *slog.Logger, total int) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger, total: total}
}

func (r *LogReporter) DisplayEpoch(epoch int, score, rating float64, saved bool) error {
	r.logger.LogAttrs(context.Background(), slog.LevelInfo, "tree completed",
		slog.Int("epoch", epoch),
		slog.Int("total", r.total),
		slog.Float64("score", score),
		slog.Float64("rating", rating),
		slog.Bool("saved", saved),
	)
	return nil
}

// MetricsReporter 将进度导出为 Prometheus 指标。
type MetricsReporter struct {
	completed prometheus.Gauge
	score     prometheus.Observer
}

// NewMetricsReporter 在 m 上注册进度指标，name 用于区分不同的训练任务。
func NewMetricsReporter(m *metrics.Metrics, name string) *MetricsReporter {
	return &MetricsReporter{
		completed: m.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forest_trees_completed",
			Help: "Trees completed in the current build",
		}, []string{"job"}).WithLabelValues(name),
		score: m.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forest_tree_score",
			Help:    "Per-tree training score (1 - accuracy)",
			Buckets: prometheus.LinearBuckets(0, 0.05, 20),
		}, []string{"job"}).WithLabelValues(name),
	}
}

func (r *MetricsReporter) DisplayEpoch(epoch int, score, _ float64, _ bool) error {
	r.completed.Set(float64(epoch))
	r.score.Observe(score)
	return nil
}

// Multi 依次调用多个 Reporter，返回遇到的全部错误。
type Multi []Reporter

func (m Multi) DisplayEpoch(epoch int, score, rating float64, saved bool) error {
	var errs []error
	for _, r := range m {
		if err := r.DisplayEpoch(epoch, score, rating, saved); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
