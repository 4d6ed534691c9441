package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/maraichr/tablescan/internal/config"
)

const reportPrefix = "reports/"

type Client struct {
	mc     *minio.Client
	bucket string
}

func NewClient(cfg config.MinIOConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Client{mc: mc, bucket: cfg.Bucket}, nil
}

func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// ReportKey is the object name a report document is archived under.
func ReportKey(reportID string) string {
	return reportPrefix + reportID + ".json"
}

// ArchiveReport uploads a finished report document and returns its object key.
func (c *Client) ArchiveReport(ctx context.Context, reportID string, doc []byte) (string, error) {
	key := ReportKey(reportID)
	_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(doc), int64(len(doc)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("archive report %s: %w", reportID, err)
	}
	return key, nil
}

// OpenReport streams an archived report document.
func (c *Client) OpenReport(ctx context.Context, reportID string) (io.ReadCloser, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, ReportKey(reportID), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("open report %s: %w", reportID, err)
	}
	return obj, nil
}

func (c *Client) Bucket() string {
	return c.bucket
}
