package s3fetch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/eunmann/wadtik/pkg/humanfmt"
)

// Ranged download defaults. A ticket or small channel package fits in one
// part; only large packages are split.
const (
	DefaultPartConcurrency       = 4
	DefaultPartSize        int64 = 8 * humanfmt.MiB
)

// DownloaderConfig tunes ranged downloads of a single object.
type DownloaderConfig struct {
	// Concurrency is the number of parts of one object in flight.
	Concurrency int
	// PartSize is the size of each ranged GET in bytes.
	PartSize int64
}

func (cfg DownloaderConfig) withDefaults() DownloaderConfig {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultPartConcurrency
	}
	if cfg.PartSize <= 0 {
		cfg.PartSize = DefaultPartSize
	}
	return cfg
}

// Downloader fetches objects with the S3 transfer manager.
type Downloader struct {
	manager *manager.Downloader
}

// NewDownloader creates a Downloader on an existing S3 client.
func NewDownloader(s3Client manager.DownloadAPIClient, cfg DownloaderConfig) *Downloader {
	cfg = cfg.withDefaults()
	return &Downloader{manager: manager.NewDownloader(s3Client, func(d *manager.Downloader) {
		d.Concurrency = cfg.Concurrency
		d.PartSize = cfg.PartSize
		d.BufferProvider = manager.NewPooledBufferedWriterReadFromProvider(int(cfg.PartSize))
	})}
}

// DownloadResult describes a finished download.
type DownloadResult struct {
	BytesDownloaded int64
	Duration        time.Duration
}

// DownloadToFile writes the object to destPath. A failed download removes
// the partial file.
func (d *Downloader) DownloadToFile(ctx context.Context, bucket, key, destPath string) (res *DownloadResult, err error) {
	start := time.Now()

	file, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("create destination file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", destPath, cerr)
		}
		if err != nil {
			os.Remove(destPath)
			res = nil
		}
	}()

	n, err := d.manager.Download(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download %s%s/%s: %w", uriScheme, bucket, key, err)
	}
	return &DownloadResult{BytesDownloaded: n, Duration: time.Since(start)}, nil
}
