package job

import (
	"context"
	"time"
)

type QALogCleanupJob struct {
	repo       ExpiredDeleter
	maxAgeDays int
	now        func() time.Time
}

func NewQALogCleanupJob(repo ExpiredDeleter, maxAgeDays int) *QALogCleanupJob {
	return &QALogCleanupJob{repo: repo, maxAgeDays: maxAgeDays, now: time.Now}
}

func (j *QALogCleanupJob) Name() string {
	return "qa_log_cleanup"
}

func (j *QALogCleanupJob) Run(ctx context.Context) error {
	return deleteOlderThan(ctx, j.repo, j.maxAgeDays, 90, j.now)
}
