package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mag7qa/internal/ai"
	"github.com/xxxsen/mag7qa/internal/conversation"
	"github.com/xxxsen/mag7qa/internal/metrics"
	"github.com/xxxsen/mag7qa/internal/model"
	appErr "github.com/xxxsen/mag7qa/internal/pkg/errors"
)

const (
	DefaultK            = 5
	DefaultHistoryTurns = 6
)

type Options struct {
	K          int
	SnippetLen int
}

func (o Options) withDefaults() Options {
	if o.K == 0 {
		o.K = DefaultK
	}
	if o.SnippetLen == 0 {
		o.SnippetLen = DefaultSnippetLen
	}
	return o
}

type Result struct {
	Answer   model.StructuredAnswer
	Degraded bool
	Chunks   []model.DocumentChunk
}

type Pipeline struct {
	retriever    IRetriever
	generator    ai.IGenerator
	historyTurns int
	defaults     Defaults
	metrics      *metrics.Collector
}

type Option func(*Pipeline)

func WithHistoryTurns(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.historyTurns = n
		}
	}
}

func WithDefaults(d Defaults) Option {
	return func(p *Pipeline) {
		p.defaults = d
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

func NewPipeline(retriever IRetriever, generator ai.IGenerator, opts ...Option) *Pipeline {
	p := &Pipeline{
		retriever:    retriever,
		generator:    generator,
		historyTurns: DefaultHistoryTurns,
		defaults:     DefaultConfidences,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Answer runs one question through the pipeline and records the turn in sess.
func (p *Pipeline) Answer(ctx context.Context, sess *conversation.Session, query string, opts Options) (*model.StructuredAnswer, error) {
	res, err := p.Run(ctx, sess, query, opts)
	if err != nil {
		return nil, err
	}
	return &res.Answer, nil
}

// Run holds the session lock for the whole invocation. Failed runs leave the
// session untouched.
func (p *Pipeline) Run(ctx context.Context, sess *conversation.Session, query string, opts Options) (*Result, error) {
	if sess == nil {
		return nil, fmt.Errorf("%w: session is required", appErr.ErrInvalid)
	}
	opts = opts.withDefaults()
	if opts.SnippetLen < 0 {
		return nil, fmt.Errorf("%w: snippet_len must be positive", appErr.ErrInvalid)
	}
	var res *Result
	err := sess.Exclusive(func() error {
		var err error
		res, err = p.run(ctx, sess, query, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, sess *conversation.Session, query string, opts Options) (*Result, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("session_id", sess.ID()))

	start := time.Now()
	chunks, err := p.retriever.Retrieve(ctx, query, opts.K)
	p.metrics.ObserveRetrieval(time.Since(start))
	if err != nil {
		p.metrics.ObserveQuery(metrics.OutcomeRetrievalError)
		logger.Error("retrieve context failed", zap.Error(err))
		return nil, err
	}
	contextText, citations := Assemble(chunks, opts.SnippetLen)
	prompt := BuildPrompt(PromptContext{
		ChatHistory: sess.RenderRecent(p.historyTurns),
		Context:     contextText,
		Query:       query,
	})

	start = time.Now()
	raw, err := p.generate(ctx, prompt)
	p.metrics.ObserveGeneration(time.Since(start))
	if err != nil {
		p.metrics.ObserveQuery(metrics.OutcomeGenerationError)
		logger.Error("generate answer failed", zap.Error(err))
		return nil, err
	}

	parsed := Parse(raw)
	degraded := false
	if f, ok := parsed.(ParseFailure); ok {
		degraded = true
		logger.Warn("model output is not valid structured json, using raw text", zap.Error(f.Err))
		p.metrics.ObserveQuery(metrics.OutcomeDegraded)
	} else {
		p.metrics.ObserveQuery(metrics.OutcomeParsed)
	}
	answer := Resolve(parsed, citations, p.defaults)
	sess.Record(query, answer.Answer)
	logger.Info("query answered",
		zap.Int("chunks", len(chunks)),
		zap.Bool("degraded", degraded),
		zap.Float64("confidence", answer.Confidence),
	)
	return &Result{Answer: answer, Degraded: degraded, Chunks: chunks}, nil
}

func (p *Pipeline) generate(ctx context.Context, prompt string) (string, error) {
	if p.generator == nil {
		return "", fmt.Errorf("%w: no language model configured", ErrGeneration)
	}
	resp, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: empty response", ErrGeneration)
	}
	return resp.Text(), nil
}
