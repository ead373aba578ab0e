package agent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xxxsen/mag7qa/internal/model"
)

const DefaultSnippetLen = 500

// Assemble builds the prompt context and one citation per chunk, in retrieval order.
func Assemble(chunks []model.DocumentChunk, snippetLen int) (string, []model.SourceCitation) {
	if snippetLen <= 0 {
		snippetLen = DefaultSnippetLen
	}
	snippets := make([]string, 0, len(chunks))
	citations := make([]model.SourceCitation, 0, len(chunks))
	for _, c := range chunks {
		snippet := truncateRunes(c.Text, snippetLen)
		snippets = append(snippets, snippet)
		citations = append(citations, citationFor(c.Metadata, snippet))
	}
	return strings.Join(snippets, "\n"), citations
}

func citationFor(meta map[string]interface{}, snippet string) model.SourceCitation {
	period := metaString(meta, "date")
	if period == nil || *period == "" {
		period = metaString(meta, "year")
	}
	var url *string
	if v, ok := meta["url"]; ok {
		url = stringify(v)
	} else {
		url = metaString(meta, "source")
	}
	return model.SourceCitation{
		Company: metaString(meta, "company"),
		Filing:  metaString(meta, "form"),
		Period:  period,
		Snippet: snippet,
		URL:     url,
	}
}

func metaString(meta map[string]interface{}, key string) *string {
	if meta == nil {
		return nil
	}
	return stringify(meta[key])
}

// stringify renders scalar metadata values; nil stays nil.
func stringify(v interface{}) *string {
	var s string
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		s = val
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	case json.Number:
		s = val.String()
	case bool:
		s = strconv.FormatBool(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			s = fmt.Sprint(val)
		} else {
			s = string(data)
		}
	}
	return &s
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
