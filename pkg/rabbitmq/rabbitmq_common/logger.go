package rabbitmq_common

// Logger - логгер пакетов rabbitmq в стиле key/value.
// Сервис подставляет сюда мост к своему LoggerPort.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(err error, msg string, keysAndValues ...interface{})
}

// Discard используется, когда логгер не передан
var Discard Logger = discard{}

type discard struct{}

func (discard) Debug(string, ...interface{})        {}
func (discard) Info(string, ...interface{})         {}
func (discard) Warn(string, ...interface{})         {}
func (discard) Error(error, string, ...interface{}) {}
