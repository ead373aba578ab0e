package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// ExpiredDeleter removes rows created before cutoff (unix seconds).
type ExpiredDeleter interface {
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}

type EmbeddingCacheCleanupJob struct {
	repo       ExpiredDeleter
	maxAgeDays int
	now        func() time.Time
}

func NewEmbeddingCacheCleanupJob(repo ExpiredDeleter, maxAgeDays int) *EmbeddingCacheCleanupJob {
	return &EmbeddingCacheCleanupJob{repo: repo, maxAgeDays: maxAgeDays, now: time.Now}
}

func (j *EmbeddingCacheCleanupJob) Name() string {
	return "embedding_cache_cleanup"
}

func (j *EmbeddingCacheCleanupJob) Run(ctx context.Context) error {
	return deleteOlderThan(ctx, j.repo, j.maxAgeDays, 30, j.now)
}

func deleteOlderThan(ctx context.Context, repo ExpiredDeleter, maxAgeDays, fallbackDays int, now func() time.Time) error {
	if repo == nil {
		return nil
	}
	if maxAgeDays <= 0 {
		maxAgeDays = fallbackDays
	}
	cutoff := now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour).Unix()
	removed, err := repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("expired rows deleted", zap.Int64("count", removed), zap.Int64("cutoff", cutoff))
	return nil
}
