package llm

import "context"

type contextKey struct{}

// Purposes recorded on journaled requests.
const (
	PurposePhrase  = "phrase"
	PurposeUnknown = "unknown"
)

// WithPurpose attaches a purpose label to the context for request logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, contextKey{}, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(contextKey{}).(string); ok {
		return v
	}
	return PurposeUnknown
}
