// Package retry 提供指数退避重试，用于模型仓库访问对象存储等可能短暂失败的操作.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Policy 描述退避策略。MaxRetries 为 0 时只执行一次.
type Policy struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Jitter         float64
	MaxRetries     int
}

// Default 返回模型仓库使用的默认策略.
func Default() Policy {
	return Policy{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
	}
}

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent 标记不应重试的错误。Do 会直接返回其中包裹的原始错误.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

// Do 按策略执行 fn，直到成功、遇到 Permanent 错误、次数耗尽或 ctx 结束.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	var lastErr error
	backoff := p.InitialBackoff

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		var perm permanent
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if attempt == p.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", errors.Join(ctx.Err(), lastErr))
		case <-time.After(backoff):
		}

		next := float64(backoff) * p.Multiplier
		if p.Jitter > 0 {
			//nolint:gosec // 退避抖动不需要密码学随机数.
			next += (rand.Float64()*2 - 1) * p.Jitter * next
		}
		backoff = time.Duration(next)
		if p.MaxBackoff > 0 {
			backoff = min(backoff, p.MaxBackoff)
		}
	}

	if p.MaxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("retry failed after %d attempts: %w", p.MaxRetries+1, lastErr)
}
