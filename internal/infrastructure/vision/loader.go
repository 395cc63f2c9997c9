package vision

import (
	"context"

	"go.uber.org/zap"

	"hazard-vision/internal/domain/port"
)

// Options пути к моделям OpenCV DNN и пороги постобработки
type Options struct {
	MobileNetModel  string
	MobileNetConfig string
	MobileNetLabels string
	TopK            int

	SSDModel  string
	SSDConfig string
	SSDLabels string
	MinScore  float64
	MaxBoxes  int

	PoseModel  string
	PoseConfig string
}

// DefaultOptions значения как у браузерных моделей: 3 класса, 20 рамок, порог 0.5
func DefaultOptions() Options {
	return Options{TopK: 3, MinScore: 0.5, MaxBoxes: 20}
}

// Loader загружает модели OpenCV DNN
type Loader struct {
	opts Options
	log  *zap.Logger
}

// NewLoader создаёт загрузчик
func NewLoader(opts Options, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{opts: opts, log: log}
}

func (l *Loader) LoadClassifier(ctx context.Context) (port.Classifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.log.Info("loading classifier", zap.String("model", l.opts.MobileNetModel))
	return newDNNClassifier(l.opts)
}

func (l *Loader) LoadDetector(ctx context.Context) (port.Detector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.log.Info("loading detector", zap.String("model", l.opts.SSDModel))
	return newDNNDetector(l.opts)
}

func (l *Loader) LoadPoseEstimator(ctx context.Context) (port.PoseEstimator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.log.Info("loading pose estimator", zap.String("model", l.opts.PoseModel))
	return newDNNPoseEstimator(l.opts)
}

// Проверка реализации интерфейса
var _ port.ModelLoader = (*Loader)(nil)
