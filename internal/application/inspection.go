package app

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"hazard-vision/internal/domain/entity"
)

// InspectionService выбор моделей и проверка отдельных изображений
type InspectionService struct {
	models   *ModelPool
	pipeline *InferencePipeline
	log      *zap.Logger
}

// InspectionOutput содержит отчёт и его HTML
type InspectionOutput struct {
	Report *entity.Report
	HTML   string
}

// NewInspectionService создаёт сервис проверки изображений
func NewInspectionService(models *ModelPool, pipeline *InferencePipeline, log *zap.Logger) *InspectionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &InspectionService{
		models:   models,
		pipeline: pipeline,
		log:      log,
	}
}

// SelectPreset перезагружает пул под выбранный набор моделей
func (s *InspectionService) SelectPreset(ctx context.Context, preset entity.Preset) error {
	s.log.Info("preset selected", zap.String("preset", string(preset)))
	pool, err := s.models.Load(ctx, preset.Kinds())
	if err != nil {
		return err
	}
	return pool.Release()
}

// EnsurePreset загружает набор, если текущий пул ему не соответствует
func (s *InspectionService) EnsurePreset(ctx context.Context, preset entity.Preset) error {
	if s.models.Status() == entity.StatusSuccess && slices.Equal(s.LoadedKinds(), preset.Kinds()) {
		return nil
	}
	return s.SelectPreset(ctx, preset)
}

// InspectWithPreset проверяет изображение на наборе пользователя; пустой набор означает текущий пул
func (s *InspectionService) InspectWithPreset(ctx context.Context, preset entity.Preset, frame entity.Frame) (*InspectionOutput, error) {
	if preset != "" {
		if err := s.EnsurePreset(ctx, preset); err != nil {
			return nil, err
		}
	}
	return s.Inspect(ctx, frame)
}

// Status состояние загрузки моделей
func (s *InspectionService) Status() entity.LoadStatus {
	return s.models.Status()
}

// LoadedKinds модели текущего пула
func (s *InspectionService) LoadedKinds() []entity.ModelKind {
	pool := s.models.Acquire()
	defer pool.Release()
	return pool.Kinds()
}

// Inspect прогоняет изображение через текущий пул.
// Пул фиксируется на время вызова, смена выбора его не затрагивает.
func (s *InspectionService) Inspect(ctx context.Context, frame entity.Frame) (*InspectionOutput, error) {
	pool := s.models.Acquire()
	defer func() {
		if err := pool.Release(); err != nil {
			s.log.Warn("release models", zap.Error(err))
		}
	}()

	report, err := s.pipeline.RunOnce(ctx, pool, frame)
	if err != nil {
		return nil, err
	}
	return &InspectionOutput{Report: report, HTML: RenderHTML(report)}, nil
}
