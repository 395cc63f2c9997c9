package entity

import "fmt"

// ModelKind тип предобученной модели
type ModelKind string

const (
	KindClassifier    ModelKind = "mobilenet" // классификатор изображений
	KindDetector      ModelKind = "coco-ssd"  // детектор объектов
	KindPoseEstimator ModelKind = "posenet"   // оценка позы человека
)

// DisplayName возвращает имя модели для отчёта
func (k ModelKind) DisplayName() string {
	switch k {
	case KindClassifier:
		return "MobileNet"
	case KindDetector:
		return "Coco-SSD"
	case KindPoseEstimator:
		return "PoseNet"
	default:
		return string(k)
	}
}

// BlockTitle заголовок блока отчёта для модели
func (k ModelKind) BlockTitle() string {
	switch k {
	case KindClassifier:
		return "MobileNet Predictions"
	case KindDetector:
		return "Coco-SSD Detections"
	case KindPoseEstimator:
		return "PoseNet Prediction"
	default:
		return string(k)
	}
}

// ParseModelKind разбирает идентификатор модели
func ParseModelKind(s string) (ModelKind, error) {
	switch k := ModelKind(s); k {
	case KindClassifier, KindDetector, KindPoseEstimator:
		return k, nil
	}
	return "", fmt.Errorf("unknown model kind %q", s)
}

// UniqueKinds схлопывает дубликаты, сохраняя порядок первого вхождения
func UniqueKinds(kinds []ModelKind) []ModelKind {
	seen := make(map[ModelKind]struct{}, len(kinds))
	out := make([]ModelKind, 0, len(kinds))
	for _, k := range kinds {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// LoadStatus состояние загрузки пула моделей
type LoadStatus string

const (
	StatusIdle    LoadStatus = "idle"
	StatusLoading LoadStatus = "loading"
	StatusSuccess LoadStatus = "success"
	StatusError   LoadStatus = "error"
)

// Message текст состояния для пользователя
func (s LoadStatus) Message() string {
	switch s {
	case StatusLoading:
		return "Loading models, please wait..."
	case StatusSuccess:
		return "Models loaded successfully."
	case StatusError:
		return "Error loading models. Please try again."
	default:
		return "No models loaded."
	}
}
