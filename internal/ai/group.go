package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type GeneratorEntry struct {
	Name      string
	Generator IGenerator
}

type groupGenerator struct {
	items []GeneratorEntry
}

// NewGroupGenerator tries each generator in order and returns the first answer.
// A single entry is returned unwrapped.
func NewGroupGenerator(items []GeneratorEntry) IGenerator {
	live := make([]GeneratorEntry, 0, len(items))
	for _, item := range items {
		if item.Generator != nil {
			live = append(live, item)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0].Generator
	}
	return &groupGenerator{items: live}
}

func (g *groupGenerator) Generate(ctx context.Context, prompt string) (TextResponse, error) {
	var errs []error
	for i, item := range g.items {
		res, err := item.Generator.Generate(ctx, prompt)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		errs = append(errs, fmt.Errorf("%s: %w", item.Name, err))
		logutil.GetLogger(ctx).Warn("generator failed, trying next",
			zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	return nil, errors.Join(errs...)
}

func (g *groupGenerator) ModelName() string {
	names := make([]string, 0, len(g.items))
	for _, item := range g.items {
		names = append(names, item.Generator.ModelName())
	}
	return strings.Join(names, "|")
}
