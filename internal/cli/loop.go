package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mag7qa/internal/agent"
	"github.com/xxxsen/mag7qa/internal/config"
	"github.com/xxxsen/mag7qa/internal/conversation"
	"github.com/xxxsen/mag7qa/internal/model"
)

const (
	bannerText = "🔷 MAG7 Conversational Agent (multi-turn, typo-tolerant, step-by-step). Type 'exit' to quit."
	promptText = "User: "
	statusText = "System: Searching relevant sections from 10-K/Q filings..."
	separator  = "\n---\n"
)

// Asker answers one question within a session.
type Asker interface {
	Answer(ctx context.Context, sess *conversation.Session, query string, opts agent.Options) (*model.StructuredAnswer, error)
}

// ErrorPolicy says what the loop does when a question fails.
type ErrorPolicy struct {
	OnRetrievalError  string
	OnGenerationError string
}

type Loop struct {
	in      *bufio.Reader
	out     io.Writer
	asker   Asker
	session *conversation.Session
	opts    agent.Options
	policy  ErrorPolicy

	banner lipgloss.Style
	status lipgloss.Style
	errs   lipgloss.Style
}

func NewLoop(in io.Reader, out io.Writer, asker Asker, sess *conversation.Session, opts agent.Options, policy ErrorPolicy) *Loop {
	r := lipgloss.NewRenderer(out)
	return &Loop{
		in:      bufio.NewReader(in),
		out:     out,
		asker:   asker,
		session: sess,
		opts:    opts,
		policy:  policy,
		banner:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		status:  r.NewStyle().Faint(true),
		errs:    r.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// Run reads questions until exit, quit or end of input.
func (l *Loop) Run(ctx context.Context) error {
	if _, err := fmt.Fprint(l.out, l.banner.Render(bannerText)+"\n\n"); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.WriteString(l.out, promptText); err != nil {
			return err
		}
		line, readErr := l.in.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return readErr
		}
		if readErr != nil && line == "" {
			_, _ = io.WriteString(l.out, "\n")
			return nil
		}
		query := strings.TrimRight(line, "\r\n")
		if isExit(query) {
			return nil
		}
		if strings.TrimSpace(query) != "" {
			if err := l.ask(ctx, query); err != nil {
				return err
			}
		}
		if readErr != nil {
			return nil
		}
	}
}

func (l *Loop) ask(ctx context.Context, query string) error {
	fmt.Fprintf(l.out, "\nUser: %s\n\n", query)
	fmt.Fprint(l.out, l.status.Render(statusText)+"\n\n")

	answer, err := l.asker.Answer(ctx, l.session, query, l.opts)
	if err != nil {
		if l.shouldAbort(err) {
			return err
		}
		logutil.GetLogger(ctx).Error("answer failed", zap.Error(err))
		fmt.Fprint(l.out, l.errs.Render("Error: "+err.Error())+"\n")
		_, err = io.WriteString(l.out, separator+"\n")
		return err
	}
	fmt.Fprint(l.out, "Response:\n")
	if err := writeAnswer(l.out, answer); err != nil {
		return err
	}
	_, err = io.WriteString(l.out, separator+"\n")
	return err
}

func (l *Loop) shouldAbort(err error) bool {
	switch {
	case errors.Is(err, agent.ErrRetrieval):
		return l.policy.OnRetrievalError == config.PolicyAbort
	case errors.Is(err, agent.ErrGeneration):
		return l.policy.OnGenerationError == config.PolicyAbort
	default:
		return false
	}
}

// writeAnswer prints two-space indented json with non-ASCII and html characters left as is.
func writeAnswer(w io.Writer, answer *model.StructuredAnswer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(answer)
}

func isExit(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit":
		return true
	default:
		return false
	}
}
