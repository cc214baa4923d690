// Package requestctx carries the authenticated caller through request contexts.
package requestctx

import "context"

// emailContextKey is the context key for the authenticated account email.
type emailContextKey struct{}

// WithEmail stores the caller's normalized account email in context.
func WithEmail(ctx context.Context, email string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, emailContextKey{}, email)
}

// EmailFromContext returns the caller email stored in context.
func EmailFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(emailContextKey{}).(string)
	return value
}
