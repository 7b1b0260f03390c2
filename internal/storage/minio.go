package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"resume-ats-go/internal/config"
	"resume-ats-go/internal/types"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/rs/zerolog"
)

// MinIO 原始简历文件的对象存储
type MinIO struct {
	client         *minio.Client
	cfg            *config.MinIOConfig
	originalBucket string
	logger         zerolog.Logger
}

// NewMinIO 创建MinIO客户端，确保存储桶存在并按配置设置过期规则
func NewMinIO(cfg *config.MinIOConfig, log zerolog.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("MinIO endpoint不能为空")
	}
	log = log.With().Str("component", "minio").Logger()

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{
		client:         client,
		cfg:            cfg,
		originalBucket: cfg.OriginalsBucket,
		logger:         log,
	}

	ctx := context.Background()
	if err := m.ensureBucketExists(ctx, m.originalBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保原始简历存储桶 %s 存在失败: %w", m.originalBucket, err)
	}

	if cfg.OriginalFileExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.originalBucket, "expire-originals", cfg.OriginalFileExpireDays); err != nil {
			log.Warn().Err(err).Str("bucket", m.originalBucket).Msg("设置生命周期规则失败")
		}
	}

	log.Info().Str("endpoint", cfg.Endpoint).Str("bucket", m.originalBucket).Msg("MinIO客户端初始化成功")
	return m, nil
}

func (m *MinIO) ensureBucketExists(ctx context.Context, bucketName, location string) error {
	exists, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
	}
	m.logger.Info().Str("bucket", bucketName).Msg("存储桶已创建")
	return nil
}

func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, lc)
}

// OriginalObjectKey 原始上传文件的对象键：analysis/{id}/original{ext}
func OriginalObjectKey(analysisID, fileName string) string {
	return fmt.Sprintf("analysis/%s/original%s", analysisID, strings.ToLower(filepath.Ext(fileName)))
}

// UploadOriginal 上传原始简历文件，同时计算内容MD5
// 返回: objectKey, md5Hex, error
func (m *MinIO) UploadOriginal(ctx context.Context, analysisID, fileName string, data []byte) (string, string, error) {
	objectKey := OriginalObjectKey(analysisID, fileName)

	hasher := md5.New()
	reader := io.TeeReader(bytes.NewReader(data), hasher)

	info, err := m.client.PutObject(ctx, m.originalBucket, objectKey, reader, int64(len(data)),
		minio.PutObjectOptions{ContentType: types.DetectFormat(fileName).ContentType()})
	if err != nil {
		return "", "", fmt.Errorf("上传原始文件到MinIO失败: %w", err)
	}

	md5Hex := hex.EncodeToString(hasher.Sum(nil))
	m.logger.Debug().Str("object", objectKey).Int64("size", info.Size).Str("md5", md5Hex).Msg("原始文件已上传")
	return objectKey, md5Hex, nil
}

// DownloadOriginal 下载原始文件
func (m *MinIO) DownloadOriginal(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.originalBucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s 失败: %w", objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s 失败: %w", objectKey, err)
	}
	return data, nil
}

// DeleteObject 删除对象，用于写库失败后的清理
func (m *MinIO) DeleteObject(ctx context.Context, objectKey string) error {
	return m.client.RemoveObject(ctx, m.originalBucket, objectKey, minio.RemoveObjectOptions{})
}

// Ping 检查存储桶可访问
func (m *MinIO) Ping(ctx context.Context) error {
	_, err := m.client.BucketExists(ctx, m.originalBucket)
	return err
}
