package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hazard-vision/internal/domain/entity"
	"hazard-vision/internal/domain/port"
)

// CameraService управляет веб-камерой и циклом живого распознавания
type CameraService struct {
	device    port.CaptureDevice
	models    *ModelPool
	pipeline  *InferencePipeline
	publisher port.ReportPublisher
	interval  time.Duration
	log       *zap.Logger

	mu     sync.Mutex
	stream port.Stream
	pool   *Pool
	task   *LoopTask
}

// NewCameraService создаёт сервис камеры
func NewCameraService(device port.CaptureDevice, models *ModelPool, pipeline *InferencePipeline,
	publisher port.ReportPublisher, interval time.Duration, log *zap.Logger) *CameraService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CameraService{
		device:    device,
		models:    models,
		pipeline:  pipeline,
		publisher: publisher,
		interval:  interval,
		log:       log,
	}
}

// Active сообщает, открыт ли поток
func (s *CameraService) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// Start открывает камеру, загружает живые модели и запускает цикл.
// Повторный вызов при работающей камере ничего не делает.
func (s *CameraService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return nil
	}
	if s.device == nil {
		return entity.ErrCameraUnavailable
	}

	stream, err := s.device.Open(ctx)
	if err != nil {
		s.log.Error("error accessing webcam", zap.Error(err))
		return err
	}

	pool, err := s.models.Load(ctx, LiveKinds)
	if err != nil {
		if cerr := stream.Close(); cerr != nil {
			s.log.Warn("close camera stream", zap.Error(cerr))
		}
		return err
	}

	// Цикл работает на собственном контексте: запрос, запустивший камеру, уже завершится.
	s.stream = stream
	s.pool = pool
	s.task = s.pipeline.RunLoop(context.Background(), pool, stream.Capture, s.publisher, s.interval)
	s.log.Info("camera started")

	go s.watch(s.task)
	return nil
}

// Stop останавливает цикл и освобождает все дорожки захвата. Повторный вызов ничего не делает.
func (s *CameraService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *CameraService) stopLocked() error {
	if s.stream == nil {
		return nil
	}

	s.task.Stop()
	err := multierr.Combine(s.stream.Close(), s.pool.Release())

	s.stream = nil
	s.pool = nil
	s.task = nil
	s.log.Info("camera stopped")
	if err != nil {
		return fmt.Errorf("stop camera: %w", err)
	}
	return nil
}

// watch освобождает камеру, если цикл завершился сам (ошибка кадра или распознавания)
func (s *CameraService) watch(task *LoopTask) {
	<-task.Done()
	if task.Err() == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task != task {
		return
	}
	if err := s.stopLocked(); err != nil {
		s.log.Warn("release camera after failure", zap.Error(err))
	}
}
