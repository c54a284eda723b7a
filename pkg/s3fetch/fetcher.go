package s3fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eunmann/wadtik/internal/logctx"
	"github.com/eunmann/wadtik/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// FetchConfig configures the fetcher.
type FetchConfig struct {
	// TempDir is the parent of the download directory (default: os.TempDir()).
	TempDir string
	// Concurrency is the number of objects downloaded in parallel (default: 4).
	Concurrency int
	// Downloader configures ranged downloads of each object.
	Downloader DownloaderConfig
	// KeepFiles if true, Cleanup leaves downloaded files in place.
	KeepFiles bool
}

// Object is a downloaded S3 object.
type Object struct {
	// URI is the s3:// URI the object was fetched from.
	URI string
	// Path is the local copy.
	Path string
	Size int64
}

type downloadFunc func(ctx context.Context, bucket, key, destPath string) (*DownloadResult, error)

type listFunc func(ctx context.Context, bucket, prefix string, keep func(string) bool) ([]string, error)

// Fetcher downloads S3 inputs into a private temporary directory.
type Fetcher struct {
	cfg      FetchConfig
	download downloadFunc
	list     listFunc

	mu  sync.Mutex
	dir string
}

// NewFetcher creates a fetcher backed by client.
func NewFetcher(client *Client, cfg FetchConfig) *Fetcher {
	return newFetcher(cfg, client.NewDownloader(cfg.Downloader).DownloadToFile, client.ListKeys)
}

func newFetcher(cfg FetchConfig, download downloadFunc, list listFunc) *Fetcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Fetcher{
		cfg:      cfg,
		download: download,
		list:     list,
	}
}

// Dir returns the download directory, creating it on first use.
func (f *Fetcher) Dir() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dir != "" {
		return f.dir, nil
	}
	dir, err := os.MkdirTemp(f.cfg.TempDir, "wadtik-s3-*")
	if err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	f.dir = dir
	return dir, nil
}

// Fetch downloads the single object named by uri.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (*Object, error) {
	bucket, key, err := ParseObjectURI(uri)
	if err != nil {
		return nil, err
	}
	dir, err := f.Dir()
	if err != nil {
		return nil, err
	}
	return f.fetchOne(ctx, bucket, key, filepath.Join(dir, localName(key)))
}

// FetchPrefix downloads every object under the URI's prefix for which keep
// returns true. Objects are returned in listing order.
func (f *Fetcher) FetchPrefix(ctx context.Context, uri string, keep func(key string) bool) ([]Object, error) {
	bucket, prefix, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}

	keys, err := f.list(ctx, bucket, prefix, keep)
	if err != nil {
		return nil, err
	}
	dir, err := f.Dir()
	if err != nil {
		return nil, err
	}

	objects := make([]Object, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Concurrency)

	for i, key := range keys {
		g.Go(func() error {
			// Keys from different prefixes can share a base name.
			dest := filepath.Join(dir, fmt.Sprintf("%05d-%s", i, localName(key)))
			obj, err := f.fetchOne(ctx, bucket, key, dest)
			if err != nil {
				return fmt.Errorf("download %s: %w", key, err)
			}
			objects[i] = *obj
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("wait for downloads: %w", err)
	}

	return objects, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, bucket, key, dest string) (*Object, error) {
	start := time.Now()
	uri := uriScheme + bucket + "/" + key

	res, err := f.download(ctx, bucket, key, dest)
	if err != nil {
		return nil, err
	}

	logging.FileCreated(logctx.FromContext(ctx), "fetch", time.Since(start)).
		Str("uri", uri).
		Str("file", dest).
		Bytes("size", res.BytesDownloaded).
		Throughput(res.BytesDownloaded).
		LogDebug("object downloaded")

	return &Object{URI: uri, Path: dest, Size: res.BytesDownloaded}, nil
}

// Cleanup removes downloaded files.
func (f *Fetcher) Cleanup() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cfg.KeepFiles || f.dir == "" {
		return nil
	}
	err := os.RemoveAll(f.dir)
	f.dir = ""
	return err
}
