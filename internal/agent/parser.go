package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/xxxsen/mag7qa/internal/model"
)

// inlineFence matches a fence that opens mid-line, which markdown does not treat as a block.
var inlineFence = regexp.MustCompile("(?s)```(?i:json)?(.*?)```")

var (
	errNoJSONObject  = errors.New("no json object in model output")
	errMissingAnswer = errors.New("answer field is missing")
)

// ParseResult is either ParseSuccess or ParseFailure.
type ParseResult interface {
	isParseResult()
}

type ParseSuccess struct {
	Answer  string
	Sources []model.SourceCitation
	// Confidence is nil when the model gave none or an unusable value.
	Confidence *float64
}

type ParseFailure struct {
	Raw string
	Err error
}

func (ParseSuccess) isParseResult() {}
func (ParseFailure) isParseResult() {}

type Defaults struct {
	Confidence         float64
	FallbackConfidence float64
}

var DefaultConfidences = Defaults{Confidence: 0.85, FallbackConfidence: 0.7}

// Parse never panics and never fails; unusable output becomes a ParseFailure.
func Parse(raw string) ParseResult {
	for _, candidate := range jsonCandidates(raw) {
		obj, ok := decodeObject(candidate)
		if !ok {
			continue
		}
		res, err := fromObject(obj)
		if err != nil {
			return ParseFailure{Raw: raw, Err: err}
		}
		return res
	}
	return ParseFailure{Raw: raw, Err: errNoJSONObject}
}

// Resolve maps any parse result to the answer handed back to the caller.
func Resolve(res ParseResult, citations []model.SourceCitation, d Defaults) model.StructuredAnswer {
	switch r := res.(type) {
	case ParseSuccess:
		out := model.StructuredAnswer{
			Answer:     r.Answer,
			Sources:    r.Sources,
			Confidence: d.Confidence,
		}
		if len(out.Sources) == 0 {
			out.Sources = cloneCitations(citations)
		}
		if r.Confidence != nil {
			out.Confidence = *r.Confidence
		}
		return out
	case ParseFailure:
		return model.StructuredAnswer{
			Answer:     r.Raw,
			Sources:    cloneCitations(citations),
			Confidence: d.FallbackConfidence,
		}
	default:
		return model.StructuredAnswer{
			Sources:    cloneCitations(citations),
			Confidence: d.FallbackConfidence,
		}
	}
}

// jsonCandidates lists the places a json object may hide, most specific first:
// fenced code blocks, inline fences, the outermost brace span, then the whole text.
func jsonCandidates(raw string) []string {
	out := make([]string, 0, 4)
	out = append(out, fencedBlocks(raw)...)
	for _, m := range inlineFence.FindAllStringSubmatch(raw, -1) {
		out = append(out, m[1])
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		out = append(out, raw[start:end+1])
	}
	out = append(out, strings.TrimSpace(raw))
	return out
}

func fencedBlocks(raw string) []string {
	source := []byte(raw)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	blocks := make([]string, 0)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(source))
		}
		blocks = append(blocks, buf.String())
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

func decodeObject(candidate string) (map[string]json.RawMessage, bool) {
	candidate = strings.TrimSpace(candidate)
	if !strings.HasPrefix(candidate, "{") {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func fromObject(obj map[string]json.RawMessage) (ParseSuccess, error) {
	rawAnswer, ok := obj["answer"]
	if !ok {
		return ParseSuccess{}, errMissingAnswer
	}
	var answer string
	if err := json.Unmarshal(rawAnswer, &answer); err != nil || isNull(rawAnswer) {
		return ParseSuccess{}, fmt.Errorf("answer must be a string")
	}
	sources, err := decodeSources(obj["sources"])
	if err != nil {
		return ParseSuccess{}, err
	}
	return ParseSuccess{
		Answer:     answer,
		Sources:    sources,
		Confidence: decodeConfidence(obj["confidence"]),
	}, nil
}

func decodeSources(raw json.RawMessage) ([]model.SourceCitation, error) {
	if len(raw) == 0 || isNull(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("sources must be a list")
	}
	out := make([]model.SourceCitation, 0, len(items))
	for i, item := range items {
		var fields map[string]interface{}
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil || fields == nil {
			return nil, fmt.Errorf("sources[%d] must be an object", i)
		}
		c := model.SourceCitation{
			Company: stringify(fields["company"]),
			Filing:  stringify(fields["filing"]),
			Period:  stringify(fields["period"]),
			URL:     stringify(fields["url"]),
		}
		if s := stringify(fields["snippet"]); s != nil {
			c.Snippet = *s
		}
		out = append(out, c)
	}
	return out, nil
}

// decodeConfidence accepts a number or numeric string within [0, 1].
func decodeConfidence(raw json.RawMessage) *float64 {
	if len(raw) == 0 || isNull(raw) {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		v = parsed
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
		return nil
	}
	return &v
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func cloneCitations(in []model.SourceCitation) []model.SourceCitation {
	out := make([]model.SourceCitation, 0, len(in))
	for _, c := range in {
		out = append(out, model.SourceCitation{
			Company: cloneString(c.Company),
			Filing:  cloneString(c.Filing),
			Period:  cloneString(c.Period),
			Snippet: c.Snippet,
			URL:     cloneString(c.URL),
		})
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
