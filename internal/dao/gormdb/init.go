// Package gormdb 负责建立数据库连接、自动迁移表结构并初始化 Repository 层
// 支持 PostgreSQL 与 MySQL 两种驱动
package gormdb

import (
	"fmt"
	"time"

	"channel_chat_server/internal/config"
	"channel_chat_server/internal/dao/gormdb/repository"
	"channel_chat_server/internal/model"

	"go.uber.org/zap"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// retryDelay 两次连接尝试之间的等待时间
var retryDelay = 3 * time.Second

// DSN 根据驱动类型拼接连接字符串
func DSN(cfg *config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DatabaseName, cfg.SSLMode), nil
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DatabaseName), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Dialector 根据驱动类型返回 GORM 方言
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysqldriver.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open 建立数据库连接并配置连接池，连接失败时按配置重试
func Open(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	dialector, err := Dialector(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{}
	if mode == "dev" {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	} else {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Error)
	}

	retries := cfg.ConnRetries
	if retries <= 0 {
		retries = 1
	}

	var db *gorm.DB
	for i := 0; i < retries; i++ {
		db, err = gorm.Open(dialector, gormConfig)
		if err == nil {
			break
		}
		zap.L().Warn("数据库连接失败，稍后重试",
			zap.String("driver", cfg.Driver),
			zap.Int("attempt", i+1),
			zap.Duration("delay", retryDelay),
			zap.Error(err))
		time.Sleep(retryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s after %d retries: %w", cfg.Driver, retries, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	return db, nil
}

// Migrate 自动迁移 users、channels、messages 三张表
// 不会删除已有字段或数据
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Channel{},
		&model.Message{},
	)
}

// Init 打开连接、迁移表结构并返回 Repository 集合
func Init(cfg *config.DatabaseConfig, mode string) (*gorm.DB, *repository.Repositories, error) {
	db, err := Open(cfg, mode)
	if err != nil {
		return nil, nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("auto migrate: %w", err)
	}
	zap.L().Info("数据库初始化完成", zap.String("driver", cfg.Driver), zap.String("database", cfg.DatabaseName))
	return db, repository.NewRepositories(db), nil
}

// Close 关闭底层连接池
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
