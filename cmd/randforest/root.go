package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/randforest/config"
	"github.com/wyfcoding/randforest/idgen"
	"github.com/wyfcoding/randforest/logging"
	"github.com/wyfcoding/randforest/metrics"
	"github.com/wyfcoding/randforest/modelstore"
	"github.com/wyfcoding/randforest/storage"
	"github.com/wyfcoding/randforest/tracing"
)

const serviceName = "randforest"

// app 保存一次命令执行共享的配置与基础设施。
type app struct {
	configPath string
	logLevel   string
	watch      bool

	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	stop    []func()
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Random forest classifier",
		Long:          `Train random forest classifiers on tab-delimited data, inspect feature impact, and make batch predictions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			for _, stop := range a.stop {
				stop()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "TOML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&a.watch, "watch", false, "reload the configuration file when it changes")

	root.AddCommand(newTrainCmd(a), newPredictCmd(a), newImpactCmd(a), newDistributeCmd(a))
	return root
}

func (a *app) setup(ctx context.Context) error {
	if a.configPath != "" {
		if err := config.Load(a.configPath, &a.cfg); err != nil {
			return err
		}
		if a.watch {
			config.Watch(&a.cfg)
		}
	}
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	logging.InitLogger(a.cfg.LoggingConfig(serviceName))
	a.logger = logging.Default().Logger

	if a.cfg.Metrics.Enabled {
		a.metrics = metrics.NewMetrics(serviceName)
		a.metrics.RegisterBuildInfo(serviceName, a.cfg.Version)
		a.stop = append(a.stop, a.metrics.ExposeHttp(a.cfg.Metrics.Port))
	}
	if a.configPath != "" {
		config.PrintWithMask(a.cfg)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	tcfg := a.cfg.Tracing
	if tcfg.ServiceName == "" {
		tcfg.ServiceName = serviceName
	}
	shutdown, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return err
	}
	a.stop = append(a.stop, func() {
		if err := shutdown(context.Background()); err != nil {
			a.logger.Warn("tracer shutdown failed", "error", err)
		}
	})
	a.logger.DebugContext(ctx, "randforest ready", "config", a.configPath)
	return nil
}

// repository 根据配置创建模型仓库。
func (a *app) repository() (*modelstore.Repository, error) {
	var store storage.Storage
	switch a.cfg.Storage.Backend {
	case "minio":
		client, err := storage.NewMinIOClient(a.cfg.Minio)
		if err != nil {
			return nil, err
		}
		storage.RegisterReloadHook(client)
		store = client
	default:
		dir := a.cfg.Storage.Dir
		if dir == "" {
			dir = "models"
		}
		local, err := storage.NewLocalStorage(dir)
		if err != nil {
			return nil, err
		}
		store = local
	}

	ids, err := idgen.NewGenerator(a.cfg.Snowflake)
	if err != nil {
		return nil, err
	}
	cache, err := modelstore.NewBlobCache(a.cfg.Cache, a.metrics)
	if err != nil {
		return nil, err
	}
	return modelstore.New(store,
		modelstore.WithCache(cache),
		modelstore.WithIDGenerator(ids),
		modelstore.WithLogger(a.logger),
	), nil
}
