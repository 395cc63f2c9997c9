package port

import (
	"context"

	"hazard-vision/internal/domain/entity"
)

// Alerter подаёт звуковой сигнал тревоги
type Alerter interface {
	Alert(ctx context.Context, report *entity.Report) error
}

// ReportPublisher доставляет отчёты живого режима
type ReportPublisher interface {
	PublishReport(ctx context.Context, report *entity.Report)
	PublishError(ctx context.Context, err error)
}
