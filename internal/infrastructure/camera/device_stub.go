//go:build !gocv
// +build !gocv

package camera

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"hazard-vision/internal/domain/entity"
	"hazard-vision/internal/domain/port"
)

// Device заглушка без OpenCV: проверяет доступ к устройству и сообщает о недоступности захвата
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
	return nil, fmt.Errorf("%w: gocv build tag is not enabled", entity.ErrCameraUnavailable)
}

// Проверка реализации интерфейса
var _ port.CaptureDevice = (*Device)(nil)
