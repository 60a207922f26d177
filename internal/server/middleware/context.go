// Package middleware holds the HTTP middleware shared by every route: request IDs,
// structured request logging, timeouts and bearer authentication.
package middleware

import "context"

type contextKey struct{ name string }

var (
	requestIDKey = contextKey{"request_id"}
	logFieldsKey = contextKey{"log_fields"}
	subjectKey   = contextKey{"subject"}
	tokenIDKey   = contextKey{"token_id"}
)

// WithRequestID returns a context carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns the request ID from context, or "" if none is set.
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// WithIdentity returns a context with the token subject and token id set.
func WithIdentity(ctx context.Context, subject, tokenID string) context.Context {
	ctx = context.WithValue(ctx, subjectKey, subject)
	ctx = context.WithValue(ctx, tokenIDKey, tokenID)
	return ctx
}

// GetSubject returns the authenticated subject and true if set; otherwise "", false.
func GetSubject(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey).(string)
	return v, ok
}

// GetTokenID returns the jti of the presented access token and true if set.
func GetTokenID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tokenIDKey).(string)
	return v, ok
}

func contextWithFields(ctx context.Context, fields *logFields) context.Context {
	return context.WithValue(ctx, logFieldsKey, fields)
}

// AddLogField attaches key=value to the request log line written by Logging.
// No-op when value is empty or Logging is not installed.
func AddLogField(ctx context.Context, key, value string) {
	if value == "" {
		return
	}
	if fields, ok := ctx.Value(logFieldsKey).(*logFields); ok {
		fields.set(key, value)
	}
}

// AddError records err on the request log line. No-op if err is nil.
func AddError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	AddLogField(ctx, "error", err.Error())
}
