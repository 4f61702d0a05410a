package requestctx

import "context"

type ctxKey string

const requestIDKey ctxKey = "hrpay.request_id"

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

// CorrelationID prefers an explicit id and falls back to the request id.
func CorrelationID(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return GetRequestID(ctx)
}
