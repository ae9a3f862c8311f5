package usecase

import "context"

type apiKeyContextKey struct{}

// WithAPIKey returns a context carrying the caller's API key.
func WithAPIKey(ctx context.Context, apiKey string) context.Context {
	return context.WithValue(ctx, apiKeyContextKey{}, apiKey)
}

// APIKeyFromContext returns the API key stored by WithAPIKey, or "".
func APIKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(apiKeyContextKey{}).(string)
	return key
}
