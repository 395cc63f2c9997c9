package entity

import (
	"encoding/json"
	"fmt"
)

// Prediction результат классификатора
type Prediction struct {
	Label string  `json:"className"`
	Score float64 `json:"probability"`
}

// BoundingBox рамка объекта в пикселях.
// В JSON записывается массивом [x, y, width, height], как у coco-ssd.
type BoundingBox struct {
	X      float64 // левый верхний угол
	Y      float64 // левый верхний угол
	Width  float64 // ширина рамки
	Height float64 // высота рамки
}

func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X, b.Y, b.Width, b.Height})
}

func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v) != 4 {
		return fmt.Errorf("bbox must have 4 values, got %d", len(v))
	}
	*b = BoundingBox{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	return nil
}

// Center возвращает координаты центра рамки
func (b BoundingBox) Center() (x, y float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Detection результат детектора; порядок полей совпадает с выводом coco-ssd
type Detection struct {
	Box   BoundingBox `json:"bbox"`
	Label string      `json:"class"`
	Score float64     `json:"score"`
}

// Position точка на изображении
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Keypoint ключевая точка позы
type Keypoint struct {
	Part     string   `json:"part"`
	Position Position `json:"position"`
	Score    float64  `json:"score"`
}

// Pose результат оценки позы
type Pose struct {
	Score     float64    `json:"score"`
	Keypoints []Keypoint `json:"keypoints"`
}
