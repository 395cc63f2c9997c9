package port

import (
	"context"

	"hazard-vision/internal/domain/entity"
)

// Model общий интерфейс загруженной модели
type Model interface {
	// Close освобождает ресурсы модели
	Close() error
}

// Classifier интерфейс классификатора изображений
type Classifier interface {
	Model
	// Classify возвращает предсказания в порядке, выданном моделью
	Classify(ctx context.Context, frame entity.Frame) ([]entity.Prediction, error)
}

// Detector интерфейс детектора объектов
type Detector interface {
	Model
	// Detect возвращает найденные объекты с рамками
	Detect(ctx context.Context, frame entity.Frame) ([]entity.Detection, error)
}

// PoseEstimator интерфейс оценки позы
type PoseEstimator interface {
	Model
	// Estimate возвращает одну позу
	Estimate(ctx context.Context, frame entity.Frame) (*entity.Pose, error)
}

// ModelLoader загружает модели по требованию
type ModelLoader interface {
	LoadClassifier(ctx context.Context) (Classifier, error)
	LoadDetector(ctx context.Context) (Detector, error)
	LoadPoseEstimator(ctx context.Context) (PoseEstimator, error)
}
