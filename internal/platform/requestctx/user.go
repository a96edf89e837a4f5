// Package requestctx carries authenticated caller identity through contexts.
package requestctx

import "context"

type callerContextKey struct{}

type caller struct {
	subject string
	role    string
}

// WithCaller stores the authenticated subject and role in context.
func WithCaller(ctx context.Context, subject, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callerContextKey{}, caller{subject: subject, role: role})
}

// CallerFromContext returns the subject and role stored in context.
// ok is false when no caller was stored.
func CallerFromContext(ctx context.Context) (subject, role string, ok bool) {
	if ctx == nil {
		return "", "", false
	}
	value, ok := ctx.Value(callerContextKey{}).(caller)
	if !ok {
		return "", "", false
	}
	return value.subject, value.role, true
}

// SubjectFromContext returns the authenticated subject, or "" when absent.
func SubjectFromContext(ctx context.Context) string {
	subject, _, _ := CallerFromContext(ctx)
	return subject
}
