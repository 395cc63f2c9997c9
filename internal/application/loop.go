package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"hazard-vision/internal/domain/entity"
	"hazard-vision/internal/domain/port"
)

// LiveKinds модели, которые работают в живом режиме
var LiveKinds = []entity.ModelKind{entity.KindClassifier, entity.KindDetector}

// FrameSource снимает очередной кадр
type FrameSource func(ctx context.Context) (entity.Frame, error)

// LoopTask запущенный цикл живого распознавания
type LoopTask struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	err  error
	tick uint64
}

// Stop отменяет цикл и ждёт завершения текущего тика. Повторный вызов ничего не делает.
func (t *LoopTask) Stop() {
	t.cancel()
	<-t.done
}

// Done закрывается после выхода из цикла
func (t *LoopTask) Done() <-chan struct{} {
	return t.done
}

// Err причина остановки; nil если цикл отменён через Stop
func (t *LoopTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Ticks количество завершённых тиков
func (t *LoopTask) Ticks() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tick
}

// RunLoop запускает цикл: кадр, отчёт, публикация, пауза.
// Одновременно выполняется не больше одного распознавания, кадры не копятся.
// Цикл завершается при отмене, ошибке источника кадров или ошибке распознавания.
func (p *InferencePipeline) RunLoop(ctx context.Context, pool *Pool, source FrameSource, publisher port.ReportPublisher, interval time.Duration) *LoopTask {
	ctx, cancel := context.WithCancel(ctx)
	task := &LoopTask{cancel: cancel, done: make(chan struct{})}
	live := pool.Restrict(LiveKinds...)

	go func() {
		defer close(task.done)
		defer cancel()

		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			if err := p.tick(ctx, live, source, publisher); err != nil {
				if ctx.Err() != nil {
					// остановка во время тика не считается ошибкой
					return
				}
				task.fail(err)
				publisher.PublishError(ctx, err)
				p.log.Error("live detection stopped", zap.Error(err))
				return
			}
			task.mu.Lock()
			task.tick++
			task.mu.Unlock()

			if ctx.Err() != nil {
				return
			}
			timer.Reset(interval)
		}
	}()

	return task
}

func (t *LoopTask) fail(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
}

func (p *InferencePipeline) tick(ctx context.Context, pool *Pool, source FrameSource, publisher port.ReportPublisher) error {
	frame, err := source(ctx)
	if err != nil {
		if errors.Is(err, entity.ErrCameraUnavailable) || errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", entity.ErrCameraUnavailable, err)
	}
	frame.Source = entity.SourceCamera

	report, err := p.RunOnce(ctx, pool, frame)
	if err != nil {
		return err
	}
	publisher.PublishReport(ctx, report)
	return nil
}
