package contextkeys

import (
	"context"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

type loggerKey struct{}

// ContextWithLogger кладет логгер запроса или фоновой задачи в контекст
func ContextWithLogger(ctx context.Context, logger port.LoggerPort) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFromContext никогда не возвращает nil: без логгера в контексте записи отбрасываются
func LoggerFromContext(ctx context.Context) port.LoggerPort {
	if logger, ok := ctx.Value(loggerKey{}).(port.LoggerPort); ok && logger != nil {
		return logger
	}
	return discardLogger{}
}

type discardLogger struct{}

func (discardLogger) Debug(string, port.Fields)                 {}
func (discardLogger) Info(string, port.Fields)                  {}
func (discardLogger) Warn(string, port.Fields)                  {}
func (discardLogger) Error(string, error, port.Fields)          {}
func (d discardLogger) WithFields(port.Fields) port.LoggerPort { return d }
