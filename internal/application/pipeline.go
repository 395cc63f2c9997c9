package app

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"hazard-vision/internal/domain/entity"
	"hazard-vision/internal/domain/port"
)

// InferencePipeline прогоняет кадр через все модели пула и собирает отчёт
type InferencePipeline struct {
	lexicon  *entity.HazardLexicon
	alerter  port.Alerter
	metrics  *Metrics
	parallel bool
	log      *zap.Logger
	now      func() time.Time
}

// PipelineOption настройка конвейера
type PipelineOption func(*InferencePipeline)

// WithParallel включает параллельный запуск моделей
func WithParallel(parallel bool) PipelineOption {
	return func(p *InferencePipeline) { p.parallel = parallel }
}

// WithAlerter задаёт сигнал тревоги
func WithAlerter(a port.Alerter) PipelineOption {
	return func(p *InferencePipeline) { p.alerter = a }
}

// WithMetrics задаёт счётчики
func WithMetrics(m *Metrics) PipelineOption {
	return func(p *InferencePipeline) { p.metrics = m }
}

// NewInferencePipeline создаёт конвейер
func NewInferencePipeline(lexicon *entity.HazardLexicon, log *zap.Logger, opts ...PipelineOption) *InferencePipeline {
	if lexicon == nil {
		lexicon = entity.NewHazardLexicon(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	p := &InferencePipeline{
		lexicon: lexicon,
		metrics: NewMetrics(),
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Metrics счётчики конвейера
func (p *InferencePipeline) Metrics() *Metrics {
	return p.metrics
}

// capabilityResult вывод одной модели и найденные опасные метки
type capabilityResult struct {
	block   entity.ReportBlock
	hazards []string
}

// RunOnce запускает все модели пула на одном кадре.
// Ошибка любой модели прерывает весь вызов, частичного отчёта нет.
func (p *InferencePipeline) RunOnce(ctx context.Context, pool *Pool, frame entity.Frame) (*entity.Report, error) {
	if pool.Len() == 0 {
		return nil, entity.ErrNoModelsLoaded
	}
	if err := validateFrame(frame); err != nil {
		return nil, err
	}

	start := p.now()
	results, err := p.invokeAll(ctx, pool.Capabilities(), frame)
	if err != nil {
		p.metrics.IncrementErrors()
		p.log.Error("prediction failed", zap.String("source", string(frame.Source)), zap.Error(err))
		return nil, err
	}

	report := &entity.Report{CreatedAt: start}
	for _, res := range results {
		report.Blocks = append(report.Blocks, res.block)
		if len(res.hazards) > 0 {
			report.Hazards = append(report.Hazards, entity.HazardMatch{
				Kind:   res.block.Kind,
				Model:  res.block.Kind.DisplayName(),
				Labels: res.hazards,
			})
		}
	}

	p.metrics.RecordLatency(p.now().Sub(start))
	p.metrics.IncrementFrames()

	if report.HasHazards() {
		report.Alert = true
		p.metrics.IncrementHazards()
		p.log.Warn("dangerous items detected",
			zap.String("source", string(frame.Source)),
			zap.Any("hazards", report.Hazards))
		if p.alerter != nil {
			if err := p.alerter.Alert(ctx, report); err != nil {
				p.log.Warn("alert failed", zap.Error(err))
			}
		}
	}

	return report, nil
}

func (p *InferencePipeline) invokeAll(ctx context.Context, caps []Capability, frame entity.Frame) ([]capabilityResult, error) {
	results := make([]capabilityResult, len(caps))

	if !p.parallel {
		for i, c := range caps {
			res, err := p.invoke(ctx, c, frame)
			if err != nil {
				return nil, err
			}
			results[i] = res
		}
		return results, nil
	}

	// Порядок отчёта задаётся индексом, а не временем завершения.
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range caps {
		g.Go(func() error {
			res, err := p.invoke(gctx, c, frame)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *InferencePipeline) invoke(ctx context.Context, c Capability, frame entity.Frame) (capabilityResult, error) {
	res := capabilityResult{block: entity.ReportBlock{Kind: c.Kind, Title: c.Kind.BlockTitle()}}

	switch c.Kind {
	case entity.KindClassifier:
		model, ok := c.Instance.(port.Classifier)
		if !ok {
			return res, invocationError(c.Kind, fmt.Errorf("unexpected model %T", c.Instance))
		}
		predictions, err := model.Classify(ctx, frame)
		if err != nil {
			return res, invocationError(c.Kind, err)
		}
		res.block.Output = predictions
		for _, pr := range predictions {
			if p.lexicon.Matches(pr.Label, entity.MatchSubstring) {
				res.hazards = append(res.hazards, pr.Label)
			}
		}
	case entity.KindDetector:
		model, ok := c.Instance.(port.Detector)
		if !ok {
			return res, invocationError(c.Kind, fmt.Errorf("unexpected model %T", c.Instance))
		}
		detections, err := model.Detect(ctx, frame)
		if err != nil {
			return res, invocationError(c.Kind, err)
		}
		res.block.Output = detections
		// Метки детектора сравниваются со словарём только целиком.
		for _, d := range detections {
			if p.lexicon.Matches(d.Label, entity.MatchExact) {
				res.hazards = append(res.hazards, d.Label)
			}
		}
	case entity.KindPoseEstimator:
		model, ok := c.Instance.(port.PoseEstimator)
		if !ok {
			return res, invocationError(c.Kind, fmt.Errorf("unexpected model %T", c.Instance))
		}
		pose, err := model.Estimate(ctx, frame)
		if err != nil {
			return res, invocationError(c.Kind, err)
		}
		res.block.Output = pose
	default:
		return res, invocationError(c.Kind, fmt.Errorf("unsupported model kind %q", c.Kind))
	}

	return res, nil
}

func invocationError(kind entity.ModelKind, err error) error {
	return fmt.Errorf("%w: %s: %v", entity.ErrCapabilityInvocationFailed, kind.DisplayName(), err)
}

// validateFrame проверяет, что кадр не пуст и декодируется целиком
func validateFrame(frame entity.Frame) error {
	if frame.Empty() {
		return entity.ErrNoImageProvided
	}
	if _, _, err := image.Decode(bytes.NewReader(frame.Data)); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrNoImageProvided, err)
	}
	return nil
}
