package agent

import (
	"fmt"
	"strings"
)

const instructionHeader = `You are a financial Q&A AI agent for the Magnificent 7 (AAPL, MSFT, AMZN, GOOGL, META, NVDA, TSLA).
Your instructions:
- Accept and answer all user queries, including complex, comparative, or trend questions.
- Auto-correct obvious typos (e.g., 'Q1 20218' → 'Q1 2018'). If unsure, clarify.
- Use the chat history to interpret follow-ups.
- Only answer using the provided context (from SEC filings); never guess or hallucinate data.
- For comparative, trend, or multi-step queries, reason step by step in the 'answer' field.
- Always cite your sources in a list of dicts with company, filing, period, snippet, and url.
- If context is missing, state so clearly.
- Output ONLY valid JSON with these fields: answer, sources, confidence.`

// PromptContext carries the per query values of the prompt.
type PromptContext struct {
	ChatHistory string
	Context     string
	Query       string
}

type schemaField struct {
	Name        string
	Type        string
	Description string
}

var answerSchema = []schemaField{
	{Name: "answer", Type: "string", Description: "The final answer to the user's question, with step-by-step reasoning if needed."},
	{Name: "sources", Type: "array", Description: "A list of dicts with keys: company, filing, period, snippet, url, showing where info came from."},
	{Name: "confidence", Type: "number", Description: "A float between 0 and 1 expressing confidence in the answer."},
}

var formatInstructions = buildFormatInstructions(answerSchema)

func buildFormatInstructions(fields []schemaField) string {
	var sb strings.Builder
	sb.WriteString("The output should be a markdown code snippet formatted in the following schema, including the leading and trailing \"```json\" and \"```\":\n\n")
	sb.WriteString("```json\n{\n")
	for _, f := range fields {
		fmt.Fprintf(&sb, "\t\"%s\": %s  // %s\n", f.Name, f.Type, f.Description)
	}
	sb.WriteString("}\n```")
	return sb.String()
}

func FormatInstructions() string {
	return formatInstructions
}

// BuildPrompt concatenates the fixed sections with the caller's values, so
// braces in history or context are never treated as placeholders.
func BuildPrompt(pc PromptContext) string {
	var sb strings.Builder
	sb.Grow(len(instructionHeader) + len(formatInstructions) + len(pc.ChatHistory) + len(pc.Context) + len(pc.Query) + 96)
	sb.WriteString(instructionHeader)
	sb.WriteString("\n\n")
	sb.WriteString(formatInstructions)
	sb.WriteString("\n\nChat history:\n")
	sb.WriteString(pc.ChatHistory)
	sb.WriteString("\n\nContext from SEC filings:\n")
	sb.WriteString(pc.Context)
	sb.WriteString("\n\nUser question: ")
	sb.WriteString(pc.Query)
	sb.WriteString("\n")
	return sb.String()
}
