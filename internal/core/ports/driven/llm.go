package driven

import "context"

// LLMService produces grounded answers from a prompt. It is the only
// collaborator of the query pipeline that performs generation.
//
// Implementations may include:
//   - OpenAI (chat completions)
//   - Any OpenAI-compatible inference server
//   - The template fallback used when no backend is reachable
type LLMService interface {
	// Generate produces a text completion from a prompt. The call
	// honours the context deadline; on timeout it is aborted and a
	// timeout-flavoured error is returned.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight
	// request. The startup capability probe uses it to decide
	// between the configured backend and the fallback generator.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}
