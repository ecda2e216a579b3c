package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"resume-coach-go/internal/config"
	"resume-coach-go/internal/logger"
)

// MinIO 对象存储适配器，归档原始简历文件。
// 归档是尽力而为的：失败只影响灾备副本，不阻塞上传流程
type MinIO struct {
	client       *minio.Client
	resumeBucket string
	logger       zerolog.Logger
}

// NewMinIO 创建MinIO客户端并确保归档存储桶存在
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	bucket := cfg.ResumeBucket
	if bucket == "" {
		bucket = "resumes"
	}

	m := &MinIO{
		client:       client,
		resumeBucket: bucket,
		logger:       logger.Logger.With().Str("component", "minio_storage").Logger(),
	}

	if err := m.ensureBucketExists(context.Background(), bucket); err != nil {
		return nil, fmt.Errorf("确保简历存储桶 %s 存在失败: %w", bucket, err)
	}

	return m, nil
}

// ensureBucketExists 确保存储桶存在，不存在时创建
func (m *MinIO) ensureBucketExists(ctx context.Context, bucketName string) error {
	exists, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
	}
	m.logger.Info().Str("bucket", bucketName).Msg("已创建简历归档存储桶")
	return nil
}

// ArchiveResume 归档原始简历，对象路径为 resumes/{slug}/{filename}
func (m *MinIO) ArchiveResume(ctx context.Context, slug, filename string, data []byte) (string, error) {
	objectName := path.Join("resumes", slug, filename)

	_, err := m.client.PutObject(ctx, m.resumeBucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		return "", fmt.Errorf("归档简历 %s 失败: %w", objectName, err)
	}

	m.logger.Debug().
		Str("object", objectName).
		Int("bytes", len(data)).
		Msg("简历归档完成")
	return objectName, nil
}

// GetArchivedResume 下载归档的简历文件
func (m *MinIO) GetArchivedResume(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.resumeBucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取归档对象 %s 失败: %w", objectName, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取归档对象 %s 失败: %w", objectName, err)
	}
	return data, nil
}
