package ollama

import "fmt"

func buildAnswerPrompt(question, contextBlock string) string {
	return fmt.Sprintf(`You are an assistant for a team's work backlog.
Answer the question using only the context below.
When the context contains exact counts or metrics, repeat them verbatim; never invent numbers.
If the context is insufficient, say so directly.

Question:
%s

Context:
%s
`, question, contextBlock)
}

func buildIntentPrompt(query string) string {
	return `You classify questions about a work backlog.
Return a strict JSON object with keys:
intent (one of "retrieve", "count_or_check", "detail", "compare", "report") and confidence (number from 0 to 1).
No markdown, no extra keys.

Question:
` + query
}
