package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ludo-technologies/tcagate/domain"
	"github.com/ludo-technologies/tcagate/internal/config"
)

// NewReportArchive creates the archive selected by cfg, or nil when
// archiving is disabled
func NewReportArchive(ctx context.Context, cfg config.ArchiveConfig) (domain.ReportArchive, error) {
	switch cfg.Backend {
	case config.ArchiveBackendNone:
		return nil, nil
	case config.ArchiveBackendLocal:
		return NewLocalArchive(cfg.Dir), nil
	case config.ArchiveBackendS3:
		archive, err := NewS3Archive(ctx, S3Config{
			Bucket:       cfg.Bucket,
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			AccessKey:    cfg.AccessKey,
			SecretKey:    cfg.SecretKey,
			UsePathStyle: cfg.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return archive, nil
	case config.ArchiveBackendGCS:
		archive, err := NewGCSArchive(ctx, cfg.Bucket)
		if err != nil {
			return nil, err
		}
		return archive, nil
	}
	return nil, domain.NewConfigError(fmt.Sprintf("unknown archive backend %q", cfg.Backend), nil)
}

// LocalArchive stores reports below a directory
type LocalArchive struct {
	dir string
}

// NewLocalArchive creates a filesystem-backed archive
func NewLocalArchive(dir string) *LocalArchive {
	return &LocalArchive{dir: dir}
}

func (a *LocalArchive) path(key string) string {
	return filepath.Join(a.dir, filepath.FromSlash(key))
}

// Put stores data under key
func (a *LocalArchive) Put(_ context.Context, key string, data []byte) error {
	if err := writeFileAtomic(a.path(key), data); err != nil {
		return fmt.Errorf("local put %s: %w", key, err)
	}
	return nil
}

// Get returns the data stored under key
func (a *LocalArchive) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(a.path(key))
	if err != nil {
		return nil, fmt.Errorf("local get %s: %w", key, err)
	}
	return data, nil
}

var _ domain.ReportArchive = (*LocalArchive)(nil)
