package llm

import "context"

type apiKeyContextKey struct{}

// WithRequestAPIKey stores a caller-supplied bearer token for one request.
func WithRequestAPIKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, apiKeyContextKey{}, key)
}

// RequestAPIKeyFromContext returns the request-scoped token, if any.
func RequestAPIKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(apiKeyContextKey{}).(string)
	return key
}
