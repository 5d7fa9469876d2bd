// Package modelstore 在对象存储中保存和读取训练好的森林模型，并在进程内缓存编码后的数据。
package modelstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wyfcoding/randforest/forest"
	"github.com/wyfcoding/randforest/idgen"
	"github.com/wyfcoding/randforest/retry"
	"github.com/wyfcoding/randforest/storage"
	"github.com/wyfcoding/randforest/tracing"
	"github.com/wyfcoding/randforest/xerrors"
)

const (
	contentType = "application/x-randforest"
	extension   = ".rf"
)

// Repository 管理模型的保存、读取与删除。
type Repository struct {
	store  storage.Storage
	cache  *BlobCache
	ids    idgen.Generator
	logger *slog.Logger
	prefix string
	policy retry.Policy
}

// Option 配置 Repository。
type Option func(*Repository)

// WithCache 启用模型数据缓存。
func WithCache(c *BlobCache) Option {
	return func(r *Repository) { r.cache = c }
}

// WithIDGenerator 设置生成模型名称所用的 ID 生成器。
func WithIDGenerator(g idgen.Generator) Option {
	return func(r *Repository) { r.ids = g }
}

// WithLogger 设置日志记录器。
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithPrefix 设置对象名前缀，例如 "models/"。
func WithPrefix(prefix string) Option {
	return func(r *Repository) { r.prefix = prefix }
}

// WithRetry 设置访问存储时的重试策略，默认 retry.Default()。
func WithRetry(p retry.Policy) Option {
	return func(r *Repository) { r.policy = p }
}

// New 创建模型仓库。
func New(store storage.Storage, opts ...Option) *Repository {
	r := &Repository{store: store, logger: slog.Default(), policy: retry.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) object(name string) string {
	return r.prefix + name + extension
}

// Save 以新生成的模型 ID 保存森林并返回该 ID。
func (r *Repository) Save(ctx context.Context, f *forest.Forest) (string, error) {
	g := r.ids
	if g == nil {
		var err error
		if g, err = idgen.Default(); err != nil {
			return "", xerrors.Internal("id generator unavailable", err)
		}
	}
	name, err := idgen.ModelID(g)
	if err != nil {
		return "", xerrors.Internal("generate model id", err)
	}
	return name, r.SaveAs(ctx, name, f)
}

// SaveAs 以指定名称保存森林，已存在时覆盖。
func (r *Repository) SaveAs(ctx context.Context, name string, f *forest.Forest) (err error) {
	ctx, span := tracing.StartSpan(ctx, "modelstore.Save", attribute.String("model.name", name))
	defer func() {
		tracing.SetError(span, err, "save model")
		span.End()
	}()

	var buf bytes.Buffer
	if err := forest.Encode(&buf, f); err != nil {
		return err
	}
	blob := buf.Bytes()
	err = retry.Do(ctx, r.policy, func(ctx context.Context) error {
		return r.store.Upload(ctx, r.object(name), bytes.NewReader(blob), int64(len(blob)), contentType)
	})
	if err != nil {
		return xerrors.Wrap(err, xerrors.ErrPersistenceIO, "upload model "+name)
	}
	r.remember(ctx, name, blob)
	r.logger.InfoContext(ctx, "model saved", "name", name, "bytes", len(blob), "trees", f.NumTrees())
	return nil
}

// Load 读取森林。模型不存在时返回的错误匹配 xerrors.ErrModelNotFound。
func (r *Repository) Load(ctx context.Context, name string) (f *forest.Forest, err error) {
	ctx, span := tracing.StartSpan(ctx, "modelstore.Load", attribute.String("model.name", name))
	defer func() {
		tracing.SetError(span, err, "load model")
		span.End()
	}()

	if r.cache != nil {
		if blob, ok := r.cache.Get(name); ok {
			span.SetAttributes(attribute.Bool("model.cached", true))
			return forest.Decode(bytes.NewReader(blob))
		}
	}

	var blob []byte
	err = retry.Do(ctx, r.policy, func(ctx context.Context) error {
		rc, err := r.store.Download(ctx, r.object(name))
		if err != nil {
			if errors.Is(err, storage.ErrNotExist) {
				return retry.Permanent(err)
			}
			return err
		}
		defer rc.Close()
		blob, err = io.ReadAll(rc)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, xerrors.Wrap(err, xerrors.ErrModelNotFound, name)
		}
		return nil, xerrors.Wrap(err, xerrors.ErrPersistenceIO, "download model "+name)
	}
	f, err = forest.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	r.remember(ctx, name, blob)
	return f, nil
}

// Exists 检查模型是否存在。
func (r *Repository) Exists(ctx context.Context, name string) (bool, error) {
	return r.store.Exists(ctx, r.object(name))
}

// Delete 删除模型及其缓存。
func (r *Repository) Delete(ctx context.Context, name string) error {
	if r.cache != nil {
		if err := r.cache.Delete(name); err != nil {
			r.logger.WarnContext(ctx, "model cache delete failed", "name", name, "error", err)
		}
	}
	err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		return r.store.Delete(ctx, r.object(name))
	})
	if err != nil {
		return xerrors.Wrap(err, xerrors.ErrPersistenceIO, "delete model "+name)
	}
	return nil
}

// remember 缓存失败只记录日志，不影响保存与读取。
func (r *Repository) remember(ctx context.Context, name string, blob []byte) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(name, blob); err != nil {
		r.logger.WarnContext(ctx, "model cache set failed", "name", name, "error", err)
	}
}
