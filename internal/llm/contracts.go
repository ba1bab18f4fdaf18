package llm

import "context"

// Inferer is the single-call inference interface the batch loop depends on.
// Implementations send one image plus the instruction prompt and return the
// best-effort plain text of the reply.
type Inferer interface {
	Infer(ctx context.Context, imagePath, prompt string) (string, error)
}
