package onnx

import (
	"context"

	"go.uber.org/zap"

	"hazard-vision/internal/domain/port"
)

// Loader подменяет классификатор моделью ONNX, остальные модели берёт у base
type Loader struct {
	port.ModelLoader
	opts Options
	log  *zap.Logger
}

// NewLoader оборачивает базовый загрузчик
func NewLoader(base port.ModelLoader, opts Options, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{ModelLoader: base, opts: opts, log: log}
}

func (l *Loader) LoadClassifier(ctx context.Context) (port.Classifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.log.Info("loading ONNX classifier", zap.String("model", l.opts.ModelPath))
	c, err := NewClassifier(l.opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Проверка реализации интерфейса
var _ port.ModelLoader = (*Loader)(nil)
