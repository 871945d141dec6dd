package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"
)

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	UseSSL          bool
}

// LogUploader ships rotated log files to S3 compatible storage.
type LogUploader struct {
	s3Client   s3iface.S3API
	config     *S3Config
	logger     *logrus.Logger
	activeFile func() string
}

// NewLogUploader S3アップローダーを作成
func NewLogUploader(config *S3Config, logger *logrus.Logger) (*LogUploader, error) {
	awsConfig := &aws.Config{
		Region:           aws.String(config.Region),
		Credentials:      credentials.NewStaticCredentials(config.AccessKeyID, config.SecretAccessKey, ""),
		DisableSSL:       aws.Bool(!config.UseSSL),
		S3ForcePathStyle: aws.Bool(true), // MinIOなどのS3互換ストレージ用
	}

	// エンドポイントが指定されている場合（MinIOなど）
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("AWSセッションの作成に失敗: %w", err)
	}

	return NewLogUploaderWithClient(s3.New(sess), config, logger), nil
}

// NewLogUploaderWithClient creates an uploader around an existing S3 client.
func NewLogUploaderWithClient(client s3iface.S3API, config *S3Config, logger *logrus.Logger) *LogUploader {
	return &LogUploader{
		s3Client: client,
		config:   config,
		logger:   logger,
	}
}

// SkipActiveFile makes UploadOldLogs ignore the file currently being written.
func (u *LogUploader) SkipActiveFile(active func() string) {
	u.activeFile = active
}

// UploadLogFile ログファイルをS3にアップロード
func (u *LogUploader) UploadLogFile(ctx context.Context, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("ファイルの読み込みに失敗: %w", err)
	}
	defer file.Close()

	fileName := filepath.Base(filePath)
	objectKey := fmt.Sprintf("logs/%s", fileName)

	_, err = u.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.config.Bucket),
		Key:         aws.String(objectKey),
		Body:        file,
		ContentType: aws.String("application/x-ndjson"),
		Metadata: map[string]*string{
			"upload-time": aws.String(time.Now().Format(time.RFC3339)),
			"source":      aws.String("todo-app"),
		},
	})
	if err != nil {
		return fmt.Errorf("S3アップロードに失敗: %w", err)
	}

	u.logger.WithFields(logrus.Fields{
		"file":   fileName,
		"bucket": u.config.Bucket,
		"key":    objectKey,
	}).Info("ログファイルをS3にアップロードしました")

	return nil
}

// UploadOldLogs 古いログファイルをアップロードして削除
func (u *LogUploader) UploadOldLogs(ctx context.Context, logDir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return 0, fmt.Errorf("ログディレクトリの読み取りに失敗: %w", err)
	}

	var active string
	if u.activeFile != nil {
		active = u.activeFile()
	}
	cutoffTime := time.Now().Add(-maxAge)

	uploaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}

		filePath := filepath.Join(logDir, entry.Name())
		if active != "" && filepath.Clean(active) == filepath.Clean(filePath) {
			continue
		}

		fileInfo, err := entry.Info()
		if err != nil {
			u.logger.WithError(err).WithField("file", entry.Name()).Error("ファイル情報の取得に失敗")
			continue
		}
		if !fileInfo.ModTime().Before(cutoffTime) {
			continue
		}

		if err := u.UploadLogFile(ctx, filePath); err != nil {
			u.logger.WithError(err).WithField("file", entry.Name()).Error("ログファイルのアップロードに失敗")
			continue
		}
		uploaded++

		// ローカルファイルを削除
		if err := os.Remove(filePath); err != nil {
			u.logger.WithError(err).WithField("file", entry.Name()).Error("ローカルファイルの削除に失敗")
		}
	}

	return uploaded, nil
}

// StartPeriodicUpload 定期的なアップロードを開始 (ctx のキャンセルで停止)
func (u *LogUploader) StartPeriodicUpload(ctx context.Context, logDir string, interval time.Duration, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := u.UploadOldLogs(ctx, logDir, maxAge); err != nil {
					u.logger.WithError(err).Error("定期的なログアップロードに失敗")
				}
			}
		}
	}()

	u.logger.WithFields(logrus.Fields{
		"interval": interval,
		"maxAge":   maxAge,
	}).Info("定期的なログアップロードを開始しました")
}
