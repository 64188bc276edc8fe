package port

import "context"

// EventListenerPort - источник входящих событий: потребитель очереди или планировщик.
// Потребители блокируются в Start до отмены ctx, планировщик возвращается сразу.
type EventListenerPort interface {
	Start(ctx context.Context) error
	Close() error
}
