package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"reconnect_server/internal/config"
	dao "reconnect_server/internal/dao/mysql"
	"reconnect_server/internal/dao/mysql/repository"
	myredis "reconnect_server/internal/dao/redis"
	"reconnect_server/internal/handler"
	"reconnect_server/internal/https_server"
	"reconnect_server/internal/infrastructure/logger"
	"reconnect_server/internal/infrastructure/metrics"
	"reconnect_server/internal/service"
	"reconnect_server/internal/service/chat"
	"reconnect_server/pkg/constants"
	"reconnect_server/pkg/util/jwt"
	"reconnect_server/pkg/util/snowflake"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("reconnect_server: %v", err)
	}
}

func run() error {
	// 1. 加载配置
	conf, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, conf.MainConfig.Mode); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = zap.L().Sync() }()
	zap.L().Info("日志初始化成功")

	if err := handler.InitTrans("zh"); err != nil {
		return fmt.Errorf("init validator trans: %w", err)
	}

	// 3. 初始化数据库
	db, err := dao.Init(&conf.MysqlConfig)
	if err != nil {
		return err
	}
	defer func() { _ = dao.Close(db) }()

	// 4. 初始化 Redis，异步任务池供会话列表回填和在线状态使用
	rdb, err := myredis.Init(&conf.RedisConfig)
	if err != nil {
		return err
	}
	cache := myredis.NewRedisCache(rdb, conf.CacheConfig.WorkerPoolSize, constants.REDIS_TASK_BUFFER)
	defer func() { _ = cache.Close() }()
	zap.L().Info("Redis 初始化成功")

	// 5. 初始化 ID 生成器、JWT 和指标
	ids, err := snowflake.NewGenerator(conf.SnowflakeConfig.MachineID)
	if err != nil {
		return fmt.Errorf("init snowflake: %w", err)
	}
	tokens := jwt.NewManager(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry, conf.JWTConfig.Issuer)
	m := metrics.New()

	// 6. 初始化 Service 层 (依赖注入)
	svc, err := service.NewServices(service.Deps{
		Config:  conf,
		Repos:   repository.NewRepositories(db),
		Cache:   cache,
		Tokens:  tokens,
		IDs:     ids,
		Metrics: m,
	})
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}
	zap.L().Info("Service 层初始化成功")

	// 7. 初始化实时网关，channel 模式单进程，kafka 模式多实例共享广播
	hub := chat.NewHub(m)
	broker := chat.NewBroker(conf.KafkaConfig, hub)
	gateway := chat.NewGateway(hub, broker, svc.Message, svc.Auth, cache, m)
	zap.L().Info("网关初始化成功", zap.String("mode", conf.KafkaConfig.MessageMode))

	// 8. 初始化 HTTP 服务器
	engine := https_server.Init(conf, handler.NewHandlers(svc, gateway, m), svc.Auth, m.Handler())
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler: engine,
	}

	// 9. 启动服务，收到信号后优雅退出
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gateway.Run(gctx)
	})
	g.Go(func() error {
		zap.L().Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("关闭服务器...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// 先关闭 websocket 连接，hijack 的连接不受 Shutdown 管理
		if err := gateway.Shutdown(); err != nil {
			zap.L().Warn("gateway shutdown", zap.Error(err))
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	zap.L().Info("服务器已关闭")
	return nil
}
