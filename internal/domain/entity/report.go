package entity

import "time"

// ReportBlock вывод одной модели
type ReportBlock struct {
	Kind   ModelKind `json:"kind"`
	Title  string    `json:"title"`
	Output any       `json:"output"` // []Prediction, []Detection или *Pose
}

// Report сводный результат по одному кадру.
// Секция опасностей (Hazards) всегда выводится после всех блоков.
type Report struct {
	Blocks    []ReportBlock `json:"blocks"`
	Hazards   []HazardMatch `json:"hazards,omitempty"`
	Alert     bool          `json:"alert"`
	CreatedAt time.Time     `json:"created_at"`
}

// HasHazards сообщает, найдены ли опасные предметы
func (r *Report) HasHazards() bool {
	return len(r.Hazards) > 0
}
