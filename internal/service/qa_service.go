package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mag7qa/internal/agent"
	"github.com/xxxsen/mag7qa/internal/conversation"
	"github.com/xxxsen/mag7qa/internal/metrics"
	"github.com/xxxsen/mag7qa/internal/model"
	appErr "github.com/xxxsen/mag7qa/internal/pkg/errors"
	"github.com/xxxsen/mag7qa/internal/pkg/timeutil"
)

const (
	maxK          = 50
	maxSnippetLen = 5000
	maxQueryLen   = 4000
)

// Runner answers a question inside a session.
type Runner interface {
	Run(ctx context.Context, sess *conversation.Session, query string, opts agent.Options) (*agent.Result, error)
}

// QALogStore persists answered questions. It is optional.
type QALogStore interface {
	Save(ctx context.Context, item *model.QALog) error
	ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]model.QALog, error)
}

type AskInput struct {
	Query      string
	K          int
	SnippetLen int
}

type QAService struct {
	sessions *conversation.Store
	runner   Runner
	logs     QALogStore
	metrics  *metrics.Collector
	defaults agent.Options
}

func NewQAService(sessions *conversation.Store, runner Runner, logs QALogStore, m *metrics.Collector, defaults agent.Options) *QAService {
	return &QAService{
		sessions: sessions,
		runner:   runner,
		logs:     logs,
		metrics:  m,
		defaults: defaults,
	}
}

func (s *QAService) CreateSession(ctx context.Context, userID string) model.SessionInfo {
	sess := s.sessions.Create(userID)
	s.metrics.SetActiveSessions(s.sessions.Len())
	logutil.GetLogger(ctx).Info("session created", zap.String("user_id", userID), zap.String("session_id", sess.ID()))
	return sessionInfo(sess)
}

func (s *QAService) ListSessions(ctx context.Context, userID string) []model.SessionInfo {
	_ = ctx
	list := s.sessions.List(userID)
	out := make([]model.SessionInfo, 0, len(list))
	for _, sess := range list {
		out = append(out, sessionInfo(sess))
	}
	return out
}

func (s *QAService) Ask(ctx context.Context, userID, sessionID string, in AskInput) (*model.StructuredAnswer, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" || len(query) > maxQueryLen {
		return nil, appErr.ErrInvalid
	}
	opts, err := s.options(in)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(userID, sessionID)
	if err != nil {
		return nil, err
	}
	res, err := s.runner.Run(ctx, sess, query, opts)
	if err != nil {
		return nil, err
	}
	s.saveLog(ctx, userID, sessionID, query, res)
	return &res.Answer, nil
}

func (s *QAService) options(in AskInput) (agent.Options, error) {
	opts := s.defaults
	if in.K != 0 {
		opts.K = in.K
	}
	if in.SnippetLen != 0 {
		opts.SnippetLen = in.SnippetLen
	}
	if opts.K < 0 || opts.K > maxK {
		return opts, fmt.Errorf("%w: k must be within [1, %d]", appErr.ErrInvalid, maxK)
	}
	if opts.SnippetLen < 0 || opts.SnippetLen > maxSnippetLen {
		return opts, fmt.Errorf("%w: snippet_len must be within [1, %d]", appErr.ErrInvalid, maxSnippetLen)
	}
	return opts, nil
}

func (s *QAService) saveLog(ctx context.Context, userID, sessionID, query string, res *agent.Result) {
	if s.logs == nil {
		return
	}
	sources, err := json.Marshal(res.Answer.Sources)
	if err != nil {
		sources = []byte("[]")
	}
	item := &model.QALog{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		UserID:      userID,
		Query:       query,
		Answer:      res.Answer.Answer,
		Confidence:  res.Answer.Confidence,
		Degraded:    res.Degraded,
		SourcesJSON: string(sources),
		Ctime:       timeutil.NowUnix(),
	}
	if err := s.logs.Save(ctx, item); err != nil {
		logutil.GetLogger(ctx).Warn("save qa log failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *QAService) History(ctx context.Context, userID, sessionID string) ([]model.ConversationTurn, error) {
	_ = ctx
	sess, err := s.sessions.Get(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Turns(), nil
}

// Logs reads persisted answers. Logs outlive their session, so no session lookup is done.
func (s *QAService) Logs(ctx context.Context, userID, sessionID string, limit int) ([]model.QALog, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, appErr.ErrInvalid
	}
	if s.logs == nil {
		return []model.QALog{}, nil
	}
	return s.logs.ListBySession(ctx, userID, sessionID, limit)
}

func (s *QAService) Reset(ctx context.Context, userID, sessionID string) error {
	sess, err := s.sessions.Get(userID, sessionID)
	if err != nil {
		return err
	}
	// wait for an in-flight question so its turn is not recorded after the reset
	return sess.Exclusive(func() error {
		sess.Reset()
		logutil.GetLogger(ctx).Info("session reset", zap.String("session_id", sessionID))
		return nil
	})
}

func (s *QAService) Delete(ctx context.Context, userID, sessionID string) error {
	if err := s.sessions.Delete(userID, sessionID); err != nil {
		return err
	}
	s.metrics.SetActiveSessions(s.sessions.Len())
	logutil.GetLogger(ctx).Info("session deleted", zap.String("session_id", sessionID))
	return nil
}

func (s *QAService) SweepIdle(ctx context.Context, maxIdle time.Duration) int {
	removed := s.sessions.SweepIdle(maxIdle)
	s.metrics.SetActiveSessions(s.sessions.Len())
	if removed > 0 {
		logutil.GetLogger(ctx).Info("idle sessions removed", zap.Int("count", removed))
	}
	return removed
}

func sessionInfo(sess *conversation.Session) model.SessionInfo {
	return model.SessionInfo{
		ID:         sess.ID(),
		Turns:      sess.Len(),
		Ctime:      sess.Ctime(),
		LastActive: sess.LastActive().Unix(),
	}
}
