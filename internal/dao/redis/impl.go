package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"reconnect_server/pkg/errorx"
)

// RedisCache Redis 缓存实现
// 同时实现 CacheService 和 AsyncCacheService，调用方按需声明最小接口：
// 身份服务只需要同步读写，实时网关需要异步任务队列
type RedisCache struct {
	client   *redis.Client
	taskChan chan func()
	wg       sync.WaitGroup
	once     sync.Once

	mu     sync.RWMutex // 保护 closed 与 taskChan 的关闭
	closed bool
}

// NewRedisCache 创建 Redis 缓存实例并启动 workerNum 个任务协程
func NewRedisCache(client *redis.Client, workerNum, taskChanSize int) *RedisCache {
	if workerNum <= 0 {
		workerNum = 1
	}
	rc := &RedisCache{
		client:   client,
		taskChan: make(chan func(), taskChanSize),
	}
	for i := 0; i < workerNum; i++ {
		rc.wg.Add(1)
		go rc.startWorker()
	}
	zap.L().Info("Redis Cache Workers started", zap.Int("workers", workerNum), zap.Int("buffer", taskChanSize))
	return rc
}

// startWorker 单个 Worker 消费循环，任务 panic 只影响该任务
func (r *RedisCache) startWorker() {
	defer r.wg.Done()
	for task := range r.taskChan {
		r.runTask(task)
	}
}

func (r *RedisCache) runTask(task func()) {
	if task == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("Redis Worker panic", zap.Any("recover", rec))
		}
	}()
	task()
}

// ==================== String 操作 ====================

// Set 设置键值对并指定过期时间
func (r *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis set key %s", key)
	}
	return nil
}

// Get 获取键对应的值（键不存在返回空字符串和 nil）
func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", errorx.Wrapf(err, errorx.CodeCacheError, "redis get key %s", key)
	}
	return value, nil
}

// Exists 键是否存在
func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, errorx.Wrapf(err, errorx.CodeCacheError, "redis exists key %s", key)
	}
	return n > 0, nil
}

// ==================== Key 操作 ====================

// Delete 使用 UNLINK 异步释放内存
func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Unlink(ctx, keys...).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis unlink keys %v", keys)
	}
	return nil
}

// ==================== Set 集合操作 ====================

// AddToSet 向集合添加成员
func (r *RedisCache) AddToSet(ctx context.Context, key string, members ...interface{}) error {
	if err := r.client.SAdd(ctx, key, members...).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis sadd key %s", key)
	}
	return nil
}

// GetSetMembers 获取集合中的所有成员
func (r *RedisCache) GetSetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, errorx.Wrapf(err, errorx.CodeCacheError, "redis smembers key %s", key)
	}
	return members, nil
}

// RemoveFromSet 从集合中移除成员
func (r *RedisCache) RemoveFromSet(ctx context.Context, key string, members ...interface{}) error {
	if err := r.client.SRem(ctx, key, members...).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis srem key %s", key)
	}
	return nil
}

// ==================== 异步任务 ====================

// SubmitTask 提交异步缓存任务，Close 之后提交的任务直接丢弃
func (r *RedisCache) SubmitTask(action func()) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		zap.L().Debug("Redis cache closed, drop task")
		return
	}
	select {
	case r.taskChan <- action:
	default:
		// 降级：同步执行
		zap.L().Warn("Redis cache task channel full, executing synchronously")
		r.runTask(action)
	}
}

// Close 停止接收任务，等待已入队任务执行完毕后关闭客户端
func (r *RedisCache) Close() error {
	var err error
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.taskChan)
		r.mu.Unlock()
		r.wg.Wait()
		err = r.client.Close()
	})
	return err
}

// 确保 RedisCache 实现了 AsyncCacheService 接口
var _ AsyncCacheService = (*RedisCache)(nil)
