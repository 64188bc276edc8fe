package domain

// PipelineJob - задача конвейера, запускаемая внешним триггером
type PipelineJob string

const (
	JobCollect     PipelineJob = "collect"
	JobAggregate   PipelineJob = "aggregate"
	JobCheckAlerts PipelineJob = "check-alerts"
	JobSweep       PipelineJob = "sweep"
)

// ParsePipelineJob проверяет имя задачи
func ParsePipelineJob(raw string) (PipelineJob, error) {
	switch j := PipelineJob(raw); j {
	case JobCollect, JobAggregate, JobCheckAlerts, JobSweep:
		return j, nil
	}
	return "", ErrUnknownJob
}

// ReconcileResult - итог сверки одной единицы
type ReconcileResult struct {
	Found   int `json:"found"`
	New     int `json:"new"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// CollectSummary - итог запуска сбора по всем единицам
type CollectSummary struct {
	Units     int `json:"units"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Blocked   int `json:"blocked"`
	Locked    int `json:"locked"`
	New       int `json:"new"`
	Updated   int `json:"updated"`
}

// AggregateSummary - итог расчета метрик
type AggregateSummary struct {
	Areas   int `json:"areas"`
	Written int `json:"written"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// AlertCheckSummary - итог проверки алертов
type AlertCheckSummary struct {
	AreasChecked int `json:"areas_checked"`
	Raised       int `json:"raised"`
	Suppressed   int `json:"suppressed"`
}

// SweepResult - итог очистки
type SweepResult struct {
	ListingsRemoved int64 `json:"listings_removed"`
	RunsDeleted     int64 `json:"runs_deleted"`
}
