// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// MainConfig 主配置，包含应用基本信息
type MainConfig struct {
	AppName string    `toml:"appName"` // 应用名称
	Host    string    `toml:"host"`    // 监听地址，如 "0.0.0.0"
	Port    int       `toml:"port"`    // 监听端口，如 8000
	Mode    string    `toml:"mode"`    // 运行模式：dev / release
	TLS     TLSConfig `toml:"tls"`     // HTTPS 配置
}

// TLSConfig HTTPS 证书配置
type TLSConfig struct {
	Enabled  bool   `toml:"enabled"`
	CertFile string `toml:"certFile"`
	KeyFile  string `toml:"keyFile"`
}

// DatabaseConfig 关系型数据库连接配置
type DatabaseConfig struct {
	Driver       string `toml:"driver"`       // postgres 或 mysql
	Host         string `toml:"host"`         // 数据库地址
	Port         int    `toml:"port"`         // 端口
	User         string `toml:"user"`         // 用户名
	Password     string `toml:"password"`     // 密码
	DatabaseName string `toml:"databaseName"` // 数据库名称
	SSLMode      string `toml:"sslMode"`      // 仅 postgres 使用
	MaxOpenConns int    `toml:"maxOpenConns"` // 最大连接数
	MaxIdleConns int    `toml:"maxIdleConns"` // 最大空闲连接数
	ConnRetries  int    `toml:"connRetries"`  // 启动时连接重试次数
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Enabled   bool   `toml:"enabled"`   // 关闭时频道类型和历史消息直接查库
	Host      string `toml:"host"`      // Redis 地址
	Port      int    `toml:"port"`      // Redis 端口，默认 6379
	Password  string `toml:"password"`  // 无密码留空
	Db        int    `toml:"db"`        // 数据库编号
	Workers   int    `toml:"workers"`   // 异步缓存任务协程数
	QueueSize int    `toml:"queueSize"` // 异步缓存任务队列长度
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`    // 日志文件存储目录
	FileName   string `toml:"fileName"`   // 日志文件名
	MaxSize    int    `toml:"maxSize"`    // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"` // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`     // 保留旧日志文件的最大天数
	Level      string `toml:"level"`      // debug, info, warn, error
}

// KafkaConfig Kafka 消息队列配置
type KafkaConfig struct {
	MessageMode string        `toml:"messageMode"` // "channel" 或 "kafka"
	HostPort    string        `toml:"hostPort"`    // 多个地址用逗号分隔
	ChatTopic   string        `toml:"chatTopic"`   // 聊天消息主题
	Partition   int           `toml:"partition"`   // 分区数
	Timeout     time.Duration `toml:"timeout"`     // 单位秒
}

// JWTConfig JWT 认证配置
type JWTConfig struct {
	Enabled           bool   `toml:"enabled"`           // 开启后 authenticate 必须携带 token
	Secret            string `toml:"secret"`            // 签名密钥
	AccessTokenExpiry int    `toml:"accessTokenExpiry"` // 有效期（分钟）
}

// ChatConfig 实时聊天相关参数
type ChatConfig struct {
	HistoryLimit    int           `toml:"historyLimit"`    // 历史消息默认条数
	MaxHistoryLimit int           `toml:"maxHistoryLimit"` // 历史消息最大条数
	StoreTimeout    time.Duration `toml:"storeTimeout"`    // 单次存储调用超时
	CacheTTL        time.Duration `toml:"cacheTTL"`        // 频道类型缓存过期时间
	HistoryCacheTTL time.Duration `toml:"historyCacheTTL"` // 历史消息缓存过期时间
	SendBufferSize  int           `toml:"sendBufferSize"`  // 每个连接的发送缓冲
	WriteWait       time.Duration `toml:"writeWait"`       // 写超时
	PongWait        time.Duration `toml:"pongWait"`        // 心跳超时
	MaxMessageSize  int64         `toml:"maxMessageSize"`  // 单帧最大字节数
	Locale          string        `toml:"locale"`          // 校验错误提示语言：zh / en
	AllowedOrigins  []string      `toml:"allowedOrigins"`  // CORS 白名单，为空时允许全部
}

// Config 应用程序总配置，聚合所有子配置
type Config struct {
	MainConfig     `toml:"mainConfig"`
	DatabaseConfig `toml:"databaseConfig"`
	RedisConfig    `toml:"redisConfig"`
	LogConfig      `toml:"logConfig"`
	KafkaConfig    `toml:"kafkaConfig"`
	JWTConfig      `toml:"jwtConfig"`
	ChatConfig     `toml:"chatConfig"`
}

var (
	config *Config
	once   sync.Once
)

// searchPaths 候选配置文件路径，本地配置优先
var searchPaths = []string{
	"configs/config_local.toml",
	"configs/config.toml",
	"../../configs/config_local.toml",
	"../../configs/config.toml",
}

// LoadConfig 按顺序尝试候选路径，找到第一个可用的配置文件即停止
func LoadConfig(cfg *Config) error {
	for _, path := range searchPaths {
		if _, err := toml.DecodeFile(path, cfg); err == nil {
			return nil
		}
	}
	return fmt.Errorf("could not find configuration file in any of the search paths")
}

// LoadFile 从指定路径加载配置并补全默认值
func LoadFile(path string) (*Config, error) {
	cfg := new(Config)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// GetConfig 获取全局配置实例（单例模式）
// 找不到配置文件时使用默认值
func GetConfig() *Config {
	once.Do(func() {
		config = new(Config)
		_ = LoadConfig(config)
		config.ApplyDefaults()
	})
	return config
}

// Default 返回只包含默认值的配置，测试中使用
func Default() *Config {
	cfg := new(Config)
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults 为缺失字段填充默认值
func (c *Config) ApplyDefaults() {
	if c.AppName == "" {
		c.AppName = "channel_chat_server"
	}
	if c.MainConfig.Host == "" {
		c.MainConfig.Host = "0.0.0.0"
	}
	if c.MainConfig.Port == 0 {
		c.MainConfig.Port = 8000
	}
	if c.Mode == "" {
		c.Mode = "release"
	}

	if c.Driver == "" {
		c.Driver = "postgres"
	}
	if c.DatabaseConfig.Port == 0 {
		if c.Driver == "mysql" {
			c.DatabaseConfig.Port = 3306
		} else {
			c.DatabaseConfig.Port = 5432
		}
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.ConnRetries == 0 {
		c.ConnRetries = 5
	}

	if c.RedisConfig.Port == 0 {
		c.RedisConfig.Port = 6379
	}
	if c.Workers == 0 {
		c.Workers = 8
	}
	if c.QueueSize == 0 {
		c.QueueSize = 1024
	}

	if c.LogPath == "" {
		c.LogPath = "./logs"
	}
	if c.Level == "" {
		c.Level = "info"
	}

	if c.MessageMode == "" {
		c.MessageMode = "channel"
	}
	if c.ChatTopic == "" {
		c.ChatTopic = "channel_chat_message"
	}
	if c.Partition == 0 {
		c.Partition = 1
	}
	if c.KafkaConfig.Timeout == 0 {
		c.KafkaConfig.Timeout = 1
	}

	if c.AccessTokenExpiry == 0 {
		c.AccessTokenExpiry = 60
	}

	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 50
	}
	if c.MaxHistoryLimit < c.HistoryLimit {
		c.MaxHistoryLimit = 200
		if c.MaxHistoryLimit < c.HistoryLimit {
			c.MaxHistoryLimit = c.HistoryLimit
		}
	}
	if c.StoreTimeout == 0 {
		c.StoreTimeout = 5 * time.Second
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 10 * time.Minute
	}
	if c.HistoryCacheTTL == 0 {
		c.HistoryCacheTTL = 5 * time.Second
	}
	if c.SendBufferSize == 0 {
		c.SendBufferSize = 256
	}
	if c.WriteWait == 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait == 0 {
		c.PongWait = 60 * time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 16 * 1024
	}
	if c.Locale == "" {
		c.Locale = "zh"
	}
}

// Addr 返回 HTTP 监听地址
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.MainConfig.Host, c.MainConfig.Port)
}

// KafkaTimeout 返回 Kafka 读写超时
func (c *Config) KafkaTimeout() time.Duration {
	return c.KafkaConfig.Timeout * time.Second
}
