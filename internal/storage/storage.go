// Package storage 聚合应用的所有存储依赖：
// MySQL关系数据、Redis缓存、MinIO对象归档、RabbitMQ消息队列与本地上传目录。
package storage

import (
	"context"
	"fmt"
	"strings"

	"resume-coach-go/internal/config"
	"resume-coach-go/internal/logger"
)

// Storage 存储管理器，聚合所有存储相关依赖
type Storage struct {
	// 关系型数据库
	MySQL *MySQL

	// 键值缓存
	Redis *Redis

	// 对象归档
	MinIO *MinIO

	// 消息队列
	RabbitMQ *RabbitMQ

	// 本地上传目录
	Local *Local
}

// NewStorage 创建存储管理器。MinIO与RabbitMQ为可选增强组件，
// 初始化失败只记录警告；MySQL、Redis或本地目录失败则整体失败
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	log := logger.Logger.With().Str("component", "storage").Logger()
	storage := &Storage{}
	var err error
	var initWarnings []string

	storage.Local, err = NewLocal(&cfg.Upload)
	if err != nil {
		return nil, fmt.Errorf("初始化本地存储失败: %w", err)
	}

	if cfg.MySQL.Host != "" {
		storage.MySQL, err = NewMySQL(&cfg.MySQL)
		if err != nil {
			return nil, fmt.Errorf("初始化MySQL失败: %w", err)
		}
		log.Info().Str("host", cfg.MySQL.Host).Msg("MySQL客户端初始化成功")
	}

	if cfg.Redis.Address != "" {
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("初始化Redis失败: %w", err)
		}
		log.Info().Str("address", cfg.Redis.Address).Msg("Redis客户端初始化成功")
	}

	if cfg.MinIO.Endpoint != "" {
		storage.MinIO, err = NewMinIO(&cfg.MinIO)
		if err != nil {
			log.Warn().Err(err).Msg("初始化MinIO失败，简历归档不可用")
			initWarnings = append(initWarnings, fmt.Sprintf("MinIO: %v", err))
		}
	}

	if cfg.RabbitMQ.URL != "" {
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			log.Warn().Err(err).Msg("初始化RabbitMQ失败，报告投递不可用")
			initWarnings = append(initWarnings, fmt.Sprintf("RabbitMQ: %v", err))
		}
	}

	if len(initWarnings) > 0 {
		log.Warn().Str("components", strings.Join(initWarnings, "; ")).
			Msg("部分存储组件初始化失败")
	}

	return storage, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	log := logger.Logger.With().Str("component", "storage").Logger()

	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			log.Error().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("关闭Redis连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			log.Error().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	// MinIO客户端无需显式关闭
}
