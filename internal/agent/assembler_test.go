package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mag7qa/internal/model"
)

func TestAssembleMetadataMapping(t *testing.T) {
	chunks := []model.DocumentChunk{
		{Text: "alpha", Metadata: map[string]interface{}{"company": "AAPL", "form": "10-Q", "date": "2023-02-03", "url": "https://sec.gov/a"}},
		{Text: "beta", Metadata: map[string]interface{}{"company": "MSFT", "form": "10-K", "date": "", "year": float64(2023), "source": "msft.htm"}},
		{Text: "gamma", Metadata: map[string]interface{}{"url": nil, "source": "ignored.htm", "year": 2022}},
		{Text: "delta"},
	}
	ctxText, citations := Assemble(chunks, 500)
	require.Equal(t, "alpha\nbeta\ngamma\ndelta", ctxText)
	require.Len(t, citations, len(chunks))

	require.Equal(t, "AAPL", *citations[0].Company)
	require.Equal(t, "10-Q", *citations[0].Filing)
	require.Equal(t, "2023-02-03", *citations[0].Period)
	require.Equal(t, "https://sec.gov/a", *citations[0].URL)

	require.Equal(t, "2023", *citations[1].Period)
	require.Equal(t, "msft.htm", *citations[1].URL)

	require.Nil(t, citations[2].Company)
	require.Equal(t, "2022", *citations[2].Period)
	require.Nil(t, citations[2].URL)

	require.Nil(t, citations[3].Company)
	require.Nil(t, citations[3].Filing)
	require.Nil(t, citations[3].Period)
	require.Nil(t, citations[3].URL)
	require.Equal(t, "delta", citations[3].Snippet)
}

func TestAssembleTruncatesByRune(t *testing.T) {
	text := strings.Repeat("€", 10)
	ctxText, citations := Assemble([]model.DocumentChunk{{Text: text}}, 4)
	require.Equal(t, "€€€€", ctxText)
	require.Equal(t, "€€€€", citations[0].Snippet)

	long := strings.Repeat("a", 700)
	_, citations = Assemble([]model.DocumentChunk{{Text: long}}, 0)
	require.Len(t, citations[0].Snippet, DefaultSnippetLen)
}

func TestAssembleIsPure(t *testing.T) {
	chunks := []model.DocumentChunk{
		{Text: "one", Metadata: map[string]interface{}{"company": "TSLA"}},
		{Text: "two", Metadata: map[string]interface{}{"company": "META"}},
	}
	ctx1, c1 := Assemble(chunks, 500)
	ctx2, c2 := Assemble(chunks, 500)
	require.Equal(t, ctx1, ctx2)
	require.Equal(t, c1, c2)
	require.Equal(t, "TSLA", chunks[0].Metadata["company"])

	ctxText, citations := Assemble(nil, 500)
	require.Equal(t, "", ctxText)
	require.NotNil(t, citations)
	require.Empty(t, citations)
}
