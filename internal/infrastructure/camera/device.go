//go:build gocv
// +build gocv

package camera

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"hazard-vision/internal/domain/entity"
	"hazard-vision/internal/domain/port"
)

// Device веб-камера через OpenCV VideoCapture
type Device struct {
	opts Options
	log  *zap.Logger
}

// NewDevice создаёт устройство захвата
func NewDevice(opts Options, log *zap.Logger) *Device {
	if log == nil {
		log = zap.NewNop()
	}
	return &Device{opts: opts, log: log}
}

func (d *Device) Open(ctx context.Context) (port.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := probe(d.opts.Device); err != nil {
		return nil, err
	}

	capture, err := gocv.OpenVideoCapture(d.opts.Device)
	if err != nil {
		return nil, classify(err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, classify(fmt.Errorf("device %d is not opened", d.opts.Device))
	}
	if d.opts.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(d.opts.Width))
	}
	if d.opts.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(d.opts.Height))
	}

	d.log.Info("webcam opened", zap.Int("device", d.opts.Device))
	return &stream{capture: capture, frame: gocv.NewMat()}, nil
}

type stream struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	frame   gocv.Mat
	closed  bool
}

// Capture читает кадр и кодирует его в JPEG
func (s *stream) Capture(ctx context.Context) (entity.Frame, error) {
	if err := ctx.Err(); err != nil {
		return entity.Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return entity.Frame{}, fmt.Errorf("%w: stream closed", entity.ErrCameraUnavailable)
	}
	if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
		return entity.Frame{}, fmt.Errorf("%w: cannot read frame", entity.ErrCameraUnavailable)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, s.frame)
	if err != nil {
		return entity.Frame{}, fmt.Errorf("%w: encode frame: %v", entity.ErrCameraUnavailable, err)
	}
	defer buf.Close()

	data := append([]byte(nil), buf.GetBytes()...)
	return entity.Frame{Data: data, Source: entity.SourceCamera}, nil
}

func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.frame.Close(); err != nil {
		s.capture.Close()
		return err
	}
	return s.capture.Close()
}

// Проверка реализации интерфейса
var _ port.CaptureDevice = (*Device)(nil)
