package contextkeys

import (
	"context"

	"github.com/google/uuid"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

type traceIDKeyType struct{}

var traceIDKey = traceIDKeyType{}

// ContextWithTraceID помещает trace_id в контекст
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext возвращает пустую строку, если trace_id не найден
func TraceIDFromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// NewTracedContext кладет в контекст trace_id (новый, если traceID пустой)
// и логгер, обогащенный этим trace_id. Используется фоновыми триггерами.
func NewTracedContext(ctx context.Context, base port.LoggerPort, traceID string) context.Context {
	if traceID == "" {
		traceID = uuid.New().String()
	}
	ctx = ContextWithTraceID(ctx, traceID)
	return ContextWithLogger(ctx, base.WithFields(port.Fields{"trace_id": traceID}))
}
