package llm

import "context"

// Generator produces freeform text from a prompt. There is no guarantee the
// text is valid JSON; callers own all parsing and validation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Usage contains token usage and cost information for one call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}
