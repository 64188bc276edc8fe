package rabbitmq

import (
	"fmt"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	"github.com/sarbdeol/bi-market-intelligence/pkg/rabbitmq/rabbitmq_common"
)

// PkgLoggerBridge пропускает логи pkg/rabbitmq через LoggerPort сервиса
type PkgLoggerBridge struct {
	internalLogger port.LoggerPort
}

var _ rabbitmq_common.Logger = (*PkgLoggerBridge)(nil)

func NewPkgLoggerBridge(logger port.LoggerPort) rabbitmq_common.Logger {
	return &PkgLoggerBridge{internalLogger: logger}
}

// toFields превращает пары key/value в Fields.
// Нестроковый ключ приводится к строке, значение без пары попадает в "extra".
func (b *PkgLoggerBridge) toFields(keysAndValues ...interface{}) port.Fields {
	if len(keysAndValues) == 0 {
		return nil
	}
	fields := make(port.Fields, (len(keysAndValues)+1)/2)
	for len(keysAndValues) >= 2 {
		key, value := keysAndValues[0], keysAndValues[1]
		keysAndValues = keysAndValues[2:]
		if s, ok := key.(string); ok {
			fields[s] = value
			continue
		}
		fields[fmt.Sprint(key)] = value
	}
	if len(keysAndValues) == 1 {
		fields["extra"] = keysAndValues[0]
	}
	return fields
}

func (b *PkgLoggerBridge) Debug(msg string, keysAndValues ...interface{}) {
	b.internalLogger.Debug(msg, b.toFields(keysAndValues...))
}

func (b *PkgLoggerBridge) Info(msg string, keysAndValues ...interface{}) {
	b.internalLogger.Info(msg, b.toFields(keysAndValues...))
}

func (b *PkgLoggerBridge) Warn(msg string, keysAndValues ...interface{}) {
	b.internalLogger.Warn(msg, b.toFields(keysAndValues...))
}

func (b *PkgLoggerBridge) Error(err error, msg string, keysAndValues ...interface{}) {
	b.internalLogger.Error(msg, err, b.toFields(keysAndValues...))
}
