package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus - статус прогона сбора
type RunStatus string

const (
	RunPending RunStatus = "PENDING"
	RunRunning RunStatus = "RUNNING"
	RunSuccess RunStatus = "SUCCESS"
	RunFailed  RunStatus = "FAILED"
	RunBlocked RunStatus = "BLOCKED"
)

// MaxRunErrorLength - сколько символов ошибки сохраняется в прогоне
const MaxRunErrorLength = 500

// CollectionRun - аудит одной сверки (источник × район)
type CollectionRun struct {
	ID            uuid.UUID  `json:"id"`
	SourceID      uuid.UUID  `json:"source_id"`
	Area          string     `json:"area"`
	SourceURL     string     `json:"source_url,omitempty"`
	Status        RunStatus  `json:"status"`
	ListingsFound int        `json:"listings_found"`
	ListingsNew   int        `json:"listings_new"`
	ListingsUpd   int        `json:"listings_updated"`
	ListingsRem   int        `json:"listings_removed"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewCollectionRun создает прогон в статусе RUNNING
func NewCollectionRun(sourceID uuid.UUID, area, sourceURL string, now time.Time) *CollectionRun {
	started := now
	return &CollectionRun{
		ID:        uuid.New(),
		SourceID:  sourceID,
		Area:      area,
		SourceURL: sourceURL,
		Status:    RunRunning,
		StartedAt: &started,
		CreatedAt: now,
	}
}

// Succeed фиксирует успешное завершение
func (r *CollectionRun) Succeed(found, created, updated int, now time.Time) {
	r.Status = RunSuccess
	r.ListingsFound = found
	r.ListingsNew = created
	r.ListingsUpd = updated
	r.CompletedAt = &now
}

// Fail фиксирует ошибку. Текст обрезается до MaxRunErrorLength символов.
func (r *CollectionRun) Fail(status RunStatus, err error, now time.Time) {
	r.Status = status
	if err != nil {
		r.ErrorMessage = TruncateError(err.Error())
	}
	r.CompletedAt = &now
}

// TruncateError обрезает сообщение по символам, а не по байтам
func TruncateError(msg string) string {
	runes := []rune(msg)
	if len(runes) <= MaxRunErrorLength {
		return msg
	}
	return string(runes[:MaxRunErrorLength])
}
