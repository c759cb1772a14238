// Package mysql 负责建立 MySQL 连接池、自动迁移表结构和关闭连接
// 连接句柄由调用方显式持有并注入 Repository 层，包内不保存全局实例
package mysql

import (
	"fmt"
	"time"

	"reconnect_server/internal/config"
	"reconnect_server/internal/model"

	"go.uber.org/zap"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DSN 构建 MySQL 连接字符串
// 格式：user:password@tcp(host:port)/database?params
func DSN(cfg *config.MysqlConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DatabaseName,
	)
}

// Init 打开连接池并执行 AutoMigrate
// 返回的 *gorm.DB 需在进程退出时交给 Close 释放
func Init(cfg *config.MysqlConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysqldriver.Open(DSN(cfg)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	if err := Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	zap.L().Info("mysql connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.DatabaseName),
	)
	return db, nil
}

// Migrate 创建或更新表结构，不会删除已有字段或数据
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.UserInfo{},
		&model.ContactEdge{},
		&model.Conversation{},
		&model.ConversationParticipant{},
		&model.Message{},
		&model.Notification{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Close 关闭连接池
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
