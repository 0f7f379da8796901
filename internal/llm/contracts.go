package llm

import "context"

// FieldExtractor is the interface the pipeline depends on. The return value
// is the model's raw text, expected (but not guaranteed) to contain a JSON
// object; recovery and coercion are the caller's concern.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, transcript string) ([]byte, error)
}
