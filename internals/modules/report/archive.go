package report

import (
	"bytes"
	"context"
	"fmt"

	"project-pulse/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// S3Archive uploads reports to an S3-compatible bucket.
type S3Archive struct {
	mc     *minio.Client
	bucket string
	prefix string
}

func NewS3Archive(ctx context.Context, cfg config.ArchiveConfig, logger *zerolog.Logger) (*S3Archive, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		region := cfg.Region
		if region == "" {
			region = "us-east-1"
		}
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info().Str("bucket", cfg.Bucket).Msg("created report archive bucket")
	}

	return &S3Archive{mc: mc, bucket: cfg.Bucket, prefix: "reports/"}, nil
}

func (a *S3Archive) Upload(ctx context.Context, name string, data []byte) error {
	_, err := a.mc.PutObject(ctx, a.bucket, a.prefix+name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}
