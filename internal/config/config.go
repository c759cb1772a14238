// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找，敏感项可由 .env / 环境变量覆盖
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml" // TOML 配置文件解析库
	"github.com/joho/godotenv"
)

// MainConfig 主配置，包含应用基本信息
type MainConfig struct {
	AppName string `toml:"appName"` // 应用名称，用于日志标识等
	Host    string `toml:"host"`    // 服务器监听地址，如 "0.0.0.0"
	Port    int    `toml:"port"`    // 服务器监听端口，如 8000
	Mode    string `toml:"mode"`    // 运行模式：dev / release
	// TLSRedirect 为 true 时把 HTTP 请求重定向到 HTTPS，由 Nginx 终止 TLS 时保持 false
	TLSRedirect bool `toml:"tlsRedirect"`
}

// MysqlConfig MySQL 数据库连接配置
type MysqlConfig struct {
	Host            string `toml:"host"`            // MySQL 服务器地址
	Port            int    `toml:"port"`            // MySQL 端口，默认 3306
	User            string `toml:"user"`            // 数据库用户名
	Password        string `toml:"password"`        // 数据库密码
	DatabaseName    string `toml:"databaseName"`    // 数据库名称
	MaxOpenConns    int    `toml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `toml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `toml:"connMaxLifetime"` // 连接最大存活时间（秒）
	QueryTimeout    int    `toml:"queryTimeout"`    // 单次数据库调用超时（毫秒）
	ReadRetries     int    `toml:"readRetries"`     // 幂等读遇到瞬时错误时的重试次数
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host     string `toml:"host"`     // Redis 服务器地址
	Port     int    `toml:"port"`     // Redis 端口，默认 6379
	Password string `toml:"password"` // Redis 密码，无密码留空
	Db       int    `toml:"db"`       // Redis 数据库编号，默认 0
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`    // 日志文件存储目录
	FileName   string `toml:"fileName"`   // 日志文件名
	MaxSize    int    `toml:"maxSize"`    // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"` // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`     // 保留旧日志文件的最大天数
	Level      string `toml:"level"`      // 日志级别：debug, info, warn, error
}

// KafkaConfig Kafka 消息队列配置
type KafkaConfig struct {
	MessageMode string        `toml:"messageMode"` // 消息模式："channel" 或 "kafka"
	HostPort    string        `toml:"hostPort"`    // Kafka 服务器地址，如 "localhost:9092"
	ChatTopic   string        `toml:"chatTopic"`   // 聊天消息广播主题
	GroupID     string        `toml:"groupId"`     // 消费者组，每个进程需唯一以便都收到广播
	Partition   int           `toml:"partition"`   // 分区数
	Timeout     time.Duration `toml:"timeout"`     // 超时时间（秒）
}

// StaticSrcConfig 静态资源路径配置
type StaticSrcConfig struct {
	StaticAvatarPath string `toml:"staticAvatarPath"` // 头像文件存储路径
	AvatarMaxSize    int64  `toml:"avatarMaxSize"`    // 头像最大字节数
}

// JWTConfig JWT 认证配置
type JWTConfig struct {
	Secret            string `toml:"secret"`            // JWT 签名密钥，建议 32 字符以上
	AccessTokenExpiry int    `toml:"accessTokenExpiry"` // Access Token 有效期（分钟）
	Issuer            string `toml:"issuer"`            // 签发者
}

// SnowflakeConfig 雪花算法配置
type SnowflakeConfig struct {
	MachineID int64 `toml:"machineId"` // 雪花算法节点 ID，范围 0-1023
}

// CacheConfig 进程内/Redis 缓存配置
type CacheConfig struct {
	ConversationListTTL int `toml:"conversationListTTL"` // 会话列表缓存有效期（秒）
	MembershipLRUSize   int `toml:"membershipLRUSize"`   // 会话成员关系 LRU 容量
	WorkerPoolSize      int `toml:"workerPoolSize"`      // Redis 异步任务协程数
}

// Config 应用程序总配置，聚合所有子配置
type Config struct {
	MainConfig      `toml:"mainConfig"`      // 主配置
	MysqlConfig     `toml:"mysqlConfig"`     // MySQL 配置
	RedisConfig     `toml:"redisConfig"`     // Redis 配置
	LogConfig       `toml:"logConfig"`       // 日志配置
	KafkaConfig     `toml:"kafkaConfig"`     // Kafka 配置
	StaticSrcConfig `toml:"staticSrcConfig"` // 静态资源配置
	JWTConfig       `toml:"jwtConfig"`       // JWT 配置
	SnowflakeConfig `toml:"snowflakeConfig"` // 雪花算法配置
	CacheConfig     `toml:"cacheConfig"`     // 缓存配置
}

// 环境变量覆盖项
const (
	EnvMysqlPassword = "RECONNECT_MYSQL_PASSWORD"
	EnvJWTSecret     = "RECONNECT_JWT_SECRET"
	EnvRedisPassword = "RECONNECT_REDIS_PASSWORD"
)

// DefaultSearchPaths 候选配置文件路径（优先加载本地配置）
var DefaultSearchPaths = []string{
	"configs/config_local.toml",       // 本地开发配置（优先）
	"configs/config.toml",             // 默认配置
	"../../configs/config_local.toml", // 从子目录运行时的路径
	"../../configs/config.toml",       // 从子目录运行时的路径
}

// Default 返回带默认值的配置，配置文件中缺省的字段保留这些值
func Default() *Config {
	return &Config{
		MainConfig:  MainConfig{AppName: "reconnect_server", Host: "0.0.0.0", Port: 8000, Mode: "dev"},
		MysqlConfig: MysqlConfig{Host: "127.0.0.1", Port: 3306, MaxOpenConns: 50, MaxIdleConns: 10, ConnMaxLifetime: 3600, QueryTimeout: 3000, ReadRetries: 2},
		RedisConfig: RedisConfig{Host: "127.0.0.1", Port: 6379},
		LogConfig:   LogConfig{LogPath: "./logs", FileName: "reconnect.log", MaxSize: 100, MaxBackups: 7, MaxAge: 30, Level: "info"},
		KafkaConfig: KafkaConfig{MessageMode: "channel", ChatTopic: "reconnect_chat", Partition: 1, Timeout: 5},
		StaticSrcConfig: StaticSrcConfig{
			StaticAvatarPath: "./static/avatars",
			AvatarMaxSize:    5 << 20,
		},
		JWTConfig:       JWTConfig{AccessTokenExpiry: 60 * 24, Issuer: "reconnect"},
		SnowflakeConfig: SnowflakeConfig{MachineID: 1},
		CacheConfig:     CacheConfig{ConversationListTTL: 60, MembershipLRUSize: 4096, WorkerPoolSize: 8},
	}
}

// Load 从候选路径加载配置文件，找到第一个可解析的文件即停止
// 之后尝试加载 .env 并用环境变量覆盖敏感配置
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = DefaultSearchPaths
	}
	cfg := Default()

	var lastErr error
	loaded := false
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			lastErr = fmt.Errorf("parse config %s: %w", path, err)
			continue
		}
		loaded = true
		break
	}
	if !loaded {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, fmt.Errorf("could not find configuration file in any of the search paths")
	}

	// .env 不存在属于正常情况
	_ = godotenv.Load()
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvMysqlPassword); v != "" {
		cfg.MysqlConfig.Password = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		cfg.JWTConfig.Secret = v
	}
	if v := os.Getenv(EnvRedisPassword); v != "" {
		cfg.RedisConfig.Password = v
	}
}

// QueryTimeoutDuration 单次数据库调用超时
func (c MysqlConfig) QueryTimeoutDuration() time.Duration {
	if c.QueryTimeout <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.QueryTimeout) * time.Millisecond
}

// ConversationListTTLDuration 会话列表缓存有效期
func (c CacheConfig) ConversationListTTLDuration() time.Duration {
	return time.Duration(c.ConversationListTTL) * time.Second
}
