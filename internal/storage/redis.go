package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"resume-coach-go/internal/config"
	"resume-coach-go/internal/constants"
)

// ErrNotFound 键不存在时返回的错误，封装底层的redis.Nil
var ErrNotFound = redis.Nil

// Redis 键值存储适配器，承担分析结果缓存
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建Redis客户端连接
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis配置不能为空")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis地址不能为空")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	})

	// 添加OpenTelemetry钩子，记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("为Redis注册OpenTelemetry钩子失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("连接Redis %s 失败: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 检查Redis连接
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	return r.Client.Ping(ctx).Err()
}

// GetCachedAnalysis 读取缓存的分析Markdown。未命中时返回ErrNotFound
func (r *Redis) GetCachedAnalysis(ctx context.Context, slug string) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}
	key := fmt.Sprintf(constants.KeyResumeAnalysis, slug)
	return r.Client.Get(ctx, key).Result()
}

// SetCachedAnalysis 写入分析Markdown缓存，过期时间来自配置。
// 只缓存模型路径的结果，降级结果不缓存以便尽快重试模型分析
func (r *Redis) SetCachedAnalysis(ctx context.Context, slug string, markdown string) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	key := fmt.Sprintf(constants.KeyResumeAnalysis, slug)
	return r.Client.Set(ctx, key, markdown, r.config.AnalysisTTL()).Err()
}

// DeleteCachedAnalysis 删除分析缓存，简历重新上传时使用
func (r *Redis) DeleteCachedAnalysis(ctx context.Context, slug string) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	key := fmt.Sprintf(constants.KeyResumeAnalysis, slug)
	return r.Client.Del(ctx, key).Err()
}
