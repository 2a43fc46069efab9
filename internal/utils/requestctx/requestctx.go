package requestctx

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	subjectKey
)

// WithRequestID stores the request id on ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request id stored on ctx.
func RequestID(ctx context.Context) string {
	return value(ctx, requestIDKey)
}

// WithSubject stores the authenticated user id on ctx.
func WithSubject(ctx context.Context, subject string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, subjectKey, subject)
}

// Subject returns the authenticated user id stored on ctx.
func Subject(ctx context.Context) string {
	return value(ctx, subjectKey)
}

func value(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}
