package port

import (
	"context"

	"hazard-vision/internal/domain/entity"
)

// CaptureDevice источник видео (веб-камера)
type CaptureDevice interface {
	// Open захватывает устройство; ошибки оборачивают
	// entity.ErrCameraPermissionDenied или entity.ErrCameraUnavailable
	Open(ctx context.Context) (Stream, error)
}

// Stream открытый поток кадров
type Stream interface {
	// Capture снимает один кадр
	Capture(ctx context.Context) (entity.Frame, error)
	// Close останавливает все дорожки захвата
	Close() error
}
