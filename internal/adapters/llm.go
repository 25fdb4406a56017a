package adapters

import (
	"context"

	"github.com/adabguard/adabguard/internal/adapters/llm"
)

// LLM defines the interface for language model operations
type LLM interface {
	// ChatCompletion performs a chat completion request
	ChatCompletion(ctx context.Context, messages []llm.ChatCompletionMessage) (llm.ChatCompletionResponse, error)
}

// Classifier decides whether a message must be removed. Implementations are
// expected to be slow and fallible, callers treat an error as "do not delete".
type Classifier interface {
	Classify(ctx context.Context, text string) (bool, error)
}
