// Package llm abstracts the external inference process used for per-line
// transaction extraction and vendor normalization. Implementations are slow,
// fallible and non-deterministic; callers must treat every invocation as
// expensive.
package llm

import "context"

// Client is the capability interface for the external inference process.
// A request is a single text instruction; the response is the model's raw,
// unstructured text output. Repair and validation of that output belong to
// the caller.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
