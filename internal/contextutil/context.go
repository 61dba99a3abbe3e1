package contextutil

import "context"

type contextKey string

const TraceIDKey contextKey = "traceID"
const SessionKey contextKey = "session"

// Session is the per-request session binding placed in the context by the
// auth guard.
type Session struct {
	Token    string
	UserID   int64
	UserName string
}

func TraceIDFromContext(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return "unknown-trace-id"
	}
	return traceID
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(SessionKey).(Session)
	return s, ok
}
