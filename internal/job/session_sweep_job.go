package job

import (
	"context"
	"time"
)

type IdleSweeper interface {
	SweepIdle(ctx context.Context, maxIdle time.Duration) int
}

type SessionSweepJob struct {
	sweeper IdleSweeper
	maxIdle time.Duration
}

func NewSessionSweepJob(sweeper IdleSweeper, maxIdle time.Duration) *SessionSweepJob {
	return &SessionSweepJob{sweeper: sweeper, maxIdle: maxIdle}
}

func (j *SessionSweepJob) Name() string {
	return "session_idle_sweep"
}

func (j *SessionSweepJob) Run(ctx context.Context) error {
	if j.sweeper == nil || j.maxIdle <= 0 {
		return nil
	}
	j.sweeper.SweepIdle(ctx, j.maxIdle)
	return nil
}
