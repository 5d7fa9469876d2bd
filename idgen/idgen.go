// Package idgen 为训练产出的模型生成唯一 ID.
// 支持 Snowflake 和 Sonyflake 两种算法，可通过配置选择.
package idgen

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sony/sonyflake"

	"github.com/wyfcoding/randforest/config"
)

var (
	// ErrUnsupportedType 不支持的 ID 生成器类型.
	ErrUnsupportedType = errors.New("unsupported id generator type")
	// ErrParseTime 解析时间失败.
	ErrParseTime = errors.New("failed to parse start time")
	// ErrInvalidMachineID 错误的机器 ID.
	ErrInvalidMachineID = errors.New("machine_id out of range")
	// ErrExhausted Sonyflake 多次重试后仍无法生成 ID.
	ErrExhausted = errors.New("id generator exhausted")
)

const (
	maxRetries        = 3
	maxSnowflakeNode  = 1023
	maxSonyflakeNode  = 65535
	startTimeLayout   = "2006-01-02"
	modelPrefix       = "M"
	defaultMachineID  = 1
	sonyflakeBackoff  = 10 * time.Millisecond
	positiveInt64Mask = 0x7FFFFFFFFFFFFFFF
)

// Generator 定义 ID 生成器接口.
type Generator interface {
	Generate() (int64, error)
}

// SnowflakeGenerator 使用雪花算法实现 Generator.
// 每毫秒可生成 4096 个 ID，支持 1024 台机器.
type SnowflakeGenerator struct {
	node *snowflake.Node
}

// NewSnowflakeGenerator 创建一个新的 SnowflakeGenerator.
// 注意 StartTime 会修改 snowflake 包级的 Epoch.
func NewSnowflakeGenerator(cfg config.SnowflakeConfig) (*SnowflakeGenerator, error) {
	if cfg.MachineID < 0 || cfg.MachineID > maxSnowflakeNode {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMachineID, cfg.MachineID)
	}
	if cfg.StartTime != "" {
		st, err := time.Parse(startTimeLayout, cfg.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseTime, err)
		}
		snowflake.Epoch = st.UnixMilli()
	}

	node, err := snowflake.NewNode(cfg.MachineID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}

	slog.Info("snowflake generator initialized", "machine_id", cfg.MachineID, "epoch", snowflake.Epoch)
	return &SnowflakeGenerator{node: node}, nil
}

func (g *SnowflakeGenerator) Generate() (int64, error) {
	return g.node.Generate().Int64(), nil
}

// SonyflakeGenerator 使用 Sonyflake 算法实现 Generator.
// 每 10 毫秒可生成 256 个 ID，支持 65536 台机器.
type SonyflakeGenerator struct {
	sf *sonyflake.Sonyflake
}

// NewSonyflakeGenerator 创建一个新的 SonyflakeGenerator.
func NewSonyflakeGenerator(cfg config.SnowflakeConfig) (*SonyflakeGenerator, error) {
	startTime := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if cfg.StartTime != "" {
		st, err := time.Parse(startTimeLayout, cfg.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseTime, err)
		}
		startTime = st
	}
	if cfg.MachineID < 0 || cfg.MachineID > maxSonyflakeNode {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMachineID, cfg.MachineID)
	}

	mid := uint16(cfg.MachineID) //nolint:gosec // 已检查范围.
	sf, err := sonyflake.New(sonyflake.Settings{
		StartTime: startTime,
		MachineID: func() (uint16, error) { return mid, nil },
	})
	if err != nil {
		return nil, fmt.Errorf("create sonyflake: %w", err)
	}

	slog.Info("sonyflake generator initialized", "machine_id", cfg.MachineID, "start_time", startTime)
	return &SonyflakeGenerator{sf: sf}, nil
}

// Generate 生成一个新的 ID，时钟回拨等失败时最多重试 maxRetries 次.
func (g *SonyflakeGenerator) Generate() (int64, error) {
	var lastErr error
	for i := range maxRetries {
		id, err := g.sf.NextID()
		if err == nil {
			return int64(id & positiveInt64Mask), nil //nolint:gosec // 已屏蔽符号位.
		}
		lastErr = err
		slog.Warn("sonyflake generator failed, retrying", "retry", i+1, "error", err)
		time.Sleep(sonyflakeBackoff)
	}
	return 0, fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}

// NewGenerator 根据配置创建对应类型的 ID 生成器.
func NewGenerator(cfg config.SnowflakeConfig) (Generator, error) {
	switch cfg.Type {
	case "sonyflake":
		return NewSonyflakeGenerator(cfg)
	case "snowflake", "":
		return NewSnowflakeGenerator(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, cfg.Type)
	}
}

var (
	defaultMu        sync.Mutex
	defaultGenerator Generator
)

// Init 设置全局默认生成器.
func Init(cfg config.SnowflakeConfig) error {
	g, err := NewGenerator(cfg)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	defaultGenerator = g
	defaultMu.Unlock()
	return nil
}

// Default 返回全局默认生成器，未初始化时使用机器号 1 的 Snowflake.
func Default() (Generator, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultGenerator == nil {
		g, err := NewGenerator(config.SnowflakeConfig{MachineID: defaultMachineID})
		if err != nil {
			return nil, err
		}
		defaultGenerator = g
	}
	return defaultGenerator, nil
}

// ModelID 使用 g 生成模型 ID，格式为 "M" + 36 进制的唯一 ID.
func ModelID(g Generator) (string, error) {
	id, err := g.Generate()
	if err != nil {
		return "", err
	}
	return modelPrefix + strconv.FormatInt(id, 36), nil
}
