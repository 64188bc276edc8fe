package port

// Fields - структурированные поля записи лога
type Fields map[string]interface{}

// LoggerPort - логгер, которым пользуются ядро и адаптеры.
// Реализации: slog (stdout), Fluent Bit и их композиция.
type LoggerPort interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, err error, fields Fields)
	// WithFields возвращает дочерний логгер, добавляющий fields к каждой записи
	WithFields(fields Fields) LoggerPort
}
