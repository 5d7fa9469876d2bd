// Package config 提供随机森林任务的配置加载与管理能力.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/wyfcoding/randforest/logging"
)

// EnvPrefix 为环境变量覆盖前缀，例如 RF_FOREST_TREES=100.
const EnvPrefix = "RF"

// Config 全局顶级配置结构.
type Config struct {
	Version   string          `mapstructure:"version"   toml:"version"`
	Log       LogConfig       `mapstructure:"log"       toml:"log"`
	Forest    ForestConfig    `mapstructure:"forest"    toml:"forest"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   toml:"metrics"`
	Minio     MinioConfig     `mapstructure:"minio"     toml:"minio"`
	Snowflake SnowflakeConfig `mapstructure:"snowflake" toml:"snowflake"`
	Cache     BigCacheConfig  `mapstructure:"cache"     toml:"cache"`
	Storage   StorageConfig   `mapstructure:"storage"   toml:"storage"`
	Tracing   TracingConfig   `mapstructure:"tracing"   toml:"tracing"`
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"omitempty,oneof=debug info warn error"` // 日志级别。
	Format     string `mapstructure:"format"      toml:"format"      validate:"omitempty,oneof=json text"`             // 日志格式。
	File       string `mapstructure:"file"        toml:"file"`                                                          // 日志文件路径，为空时输出到标准输出。
	Console    bool   `mapstructure:"console"     toml:"console"`                                                       // 写文件时是否同时输出到控制台。
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"`                                                      // 单个文件最大大小 (MB)。
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`                                                   // 最大备份数。
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"`                                                       // 最大保留天数。
	Compress   bool   `mapstructure:"compress"    toml:"compress"`                                                      // 是否启用压缩。
}

// ForestConfig 定义森林训练的超参数，零值字段表示沿用根据数据集推导的默认值.
type ForestConfig struct {
	Trees     int    `mapstructure:"trees"      toml:"trees"      validate:"gte=0"`
	Features  int    `mapstructure:"features"   toml:"features"   validate:"gte=0"`
	LeafLimit int    `mapstructure:"leaf_limit" toml:"leaf_limit" validate:"gte=0"`
	Examples  int    `mapstructure:"examples"   toml:"examples"   validate:"gte=0"`
	Method    string `mapstructure:"method"     toml:"method"     validate:"omitempty,oneof=BALANCED UNIQUE RANDOM balanced unique random"`
	MaxDepth  int    `mapstructure:"max_depth"  toml:"max_depth"  validate:"gte=0"`
	Seed      uint64 `mapstructure:"seed"       toml:"seed"`
	Workers   int    `mapstructure:"workers"    toml:"workers"    validate:"gte=0"`
}

// MetricsConfig 普罗米修斯监控指标暴露配置.
type MetricsConfig struct {
	Port    string `mapstructure:"port"    toml:"port"`
	Path    string `mapstructure:"path"    toml:"path"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

// MinioConfig 定义 S3 兼容对象存储 MinIO 的连接参数.
type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"          toml:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"     toml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" toml:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"       toml:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"           toml:"use_ssl"`
}

// SnowflakeConfig 模型 ID 生成器参数.
type SnowflakeConfig struct {
	StartTime string `mapstructure:"start_time" toml:"start_time"`
	Type      string `mapstructure:"type"       toml:"type" validate:"omitempty,oneof=snowflake sonyflake"`
	MachineID int64  `mapstructure:"machine_id" toml:"machine_id"`
}

// BigCacheConfig 模型缓存参数.
type BigCacheConfig struct {
	LifeWindow       time.Duration `mapstructure:"life_window"         toml:"life_window"`
	CleanWindow      time.Duration `mapstructure:"clean_window"        toml:"clean_window"`
	Shards           int           `mapstructure:"shards"              toml:"shards"`
	MaxEntrySize     int           `mapstructure:"max_entry_size"      toml:"max_entry_size"`
	HardMaxCacheSize int           `mapstructure:"hard_max_cache_size" toml:"hard_max_cache_size"`
	Verbose          bool          `mapstructure:"verbose"             toml:"verbose"`
}

// TracingConfig 链路追踪（OpenTelemetry OTLP）配置.
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SamplerRatio float64 `mapstructure:"sampler_ratio" toml:"sampler_ratio" validate:"gte=0,lte=1"`
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
}

// StorageConfig 选择模型仓库的后端.
type StorageConfig struct {
	Backend string `mapstructure:"backend" toml:"backend" validate:"omitempty,oneof=local minio"`
	Dir     string `mapstructure:"dir"     toml:"dir"`
}

var (
	vInstance = viper.New()
	hooksMu   sync.Mutex
	onReload  []func(*Config)
	validate  = validator.New()
)

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	hooksMu.Lock()
	onReload = append(onReload, hook)
	hooksMu.Unlock()
}

// Load 读取 TOML 配置文件，叠加 RF_ 前缀的环境变量并校验.
func Load(path string, conf *Config) error {
	v := viper.New()
	if err := read(v, path, conf); err != nil {
		return err
	}
	vInstance = v
	return nil
}

// Watch 在 Load 之后开启配置热更新：文件变化时重新解析、校验并应用日志级别.
func Watch(conf *Config) {
	v := vInstance
	v.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		next := *conf
		if err := v.Unmarshal(&next); err != nil {
			slog.Error("reload config unmarshal failed", "error", err)
			return
		}
		if err := validate.Struct(&next); err != nil {
			slog.Error("reload config validation failed", "error", err)
			return
		}
		*conf = next
		logging.SetLevel(conf.Log.Level)
		slog.Info("config hot-reloaded and validated successfully")

		hooksMu.Lock()
		hooks := append([]func(*Config){}, onReload...)
		hooksMu.Unlock()
		for _, hook := range hooks {
			hook(conf)
		}
	})
	v.WatchConfig()
}

func read(v *viper.Viper, path string, conf *Config) error {
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config error: %w", err)
	}
	if err := v.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}
	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// bindEnv 让文件中未出现的键也能被环境变量覆盖.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"log.level", "log.format", "log.file",
		"forest.trees", "forest.features", "forest.leaf_limit", "forest.examples",
		"forest.method", "forest.max_depth", "forest.seed", "forest.workers",
		"minio.endpoint", "minio.access_key_id", "minio.secret_access_key", "minio.bucket_name",
		"storage.backend", "storage.dir",
		"tracing.enabled", "tracing.otlp_endpoint",
	} {
		_ = v.BindEnv(key)
	}
}

// LoggingConfig 将日志配置转换为 logging.Config.
func (c *Config) LoggingConfig(service string) logging.Config {
	return logging.Config{
		Service:    service,
		Module:     "randforest",
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		Console:    c.Log.Console,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
		Compress:   c.Log.Compress,
	}
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	data, err := json.Marshal(conf)
	if err != nil {
		slog.Error("failed to marshal config for printing", "error", err)
		return
	}

	var configMap map[string]any
	if err := json.Unmarshal(data, &configMap); err != nil {
		slog.Error("failed to unmarshal config for masking", "error", err)
		return
	}

	mask(configMap)

	masked, err := json.MarshalIndent(configMap, "  ", "  ")
	if err != nil {
		slog.Error("failed to marshal masked config", "error", err)
		return
	}

	slog.Info("Current effective configuration", "config", string(masked))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "key", "token"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)
			continue
		}
		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"
				break
			}
		}
	}
}

// GetViper 返回最近一次 Load 使用的 Viper 实例.
func GetViper() *viper.Viper {
	return vInstance
}
