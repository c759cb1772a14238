// Package dbcall 为引擎层的数据库调用施加超时和重试策略
// 幂等读在瞬时连接错误时有限次重试，写操作只施加超时，失败直接返回
package dbcall

import (
	"context"
	"database/sql/driver"
	"errors"
	"time"

	mysqlerr "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"reconnect_server/internal/config"
)

// Policy 数据库调用策略
type Policy struct {
	Timeout     time.Duration
	ReadRetries int
	Backoff     time.Duration
}

// FromConfig 从 MySQL 配置构建策略
func FromConfig(cfg *config.MysqlConfig) Policy {
	return Policy{
		Timeout:     cfg.QueryTimeoutDuration(),
		ReadRetries: cfg.ReadRetries,
		Backoff:     50 * time.Millisecond,
	}
}

// Default 测试和未配置时使用的策略
func Default() Policy {
	return Policy{Timeout: 3 * time.Second, ReadRetries: 2, Backoff: 50 * time.Millisecond}
}

// Read 执行幂等读，瞬时错误时重试
func (p Policy) Read(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = p.once(ctx, fn)
		if err == nil || !IsTransient(err) || attempt >= p.ReadRetries {
			return err
		}
		zap.L().Warn("transient db error, retrying read", zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return err
		case <-time.After(p.Backoff * time.Duration(attempt+1)):
		}
	}
}

// Write 执行写操作，只施加超时
func (p Policy) Write(ctx context.Context, fn func(ctx context.Context) error) error {
	return p.once(ctx, fn)
}

func (p Policy) once(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.Timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return fn(callCtx)
}

// IsTransient 连接断开、连接池拿到坏连接等可重试错误
func IsTransient(err error) bool {
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysqlerr.ErrInvalidConn)
}
