package vision

import (
	"sort"

	"hazard-vision/internal/domain/entity"
)

// TopK отбирает k лучших классов по убыванию вероятности
func TopK(scores []float32, labels []string, k int) []entity.Prediction {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	if k > len(idx) {
		k = len(idx)
	}

	out := make([]entity.Prediction, 0, k)
	for _, i := range idx[:k] {
		out = append(out, entity.Prediction{Label: labelAt(labels, i), Score: float64(scores[i])})
	}
	return out
}

// ssdRow строка выхода SSD: [image_id, class_id, score, x1, y1, x2, y2], координаты нормированы
type ssdRow [7]float32

// ParseSSD переводит выход SSD в детекции в пикселях исходного кадра
func ParseSSD(rows []ssdRow, width, height int, labels []string, minScore float64, maxBoxes int) []entity.Detection {
	out := make([]entity.Detection, 0, len(rows))
	for _, r := range rows {
		score := float64(r[2])
		if score < minScore {
			continue
		}
		x1, y1 := clamp01(r[3])*float64(width), clamp01(r[4])*float64(height)
		x2, y2 := clamp01(r[5])*float64(width), clamp01(r[6])*float64(height)
		if x2 <= x1 || y2 <= y1 {
			continue
		}
		out = append(out, entity.Detection{
			Label: labelAt(labels, int(r[1])),
			Score: score,
			Box:   entity.BoundingBox{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1},
		})
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if maxBoxes > 0 && len(out) > maxBoxes {
		out = out[:maxBoxes]
	}
	return out
}

func clamp01(v float32) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return float64(v)
}

// openPoseParts порядок карт OpenPose COCO в именах PoseNet; шея не используется
var openPoseParts = []string{
	"nose", "", "rightShoulder", "rightElbow", "rightWrist",
	"leftShoulder", "leftElbow", "leftWrist", "rightHip", "rightKnee",
	"rightAnkle", "leftHip", "leftKnee", "leftAnkle", "rightEye",
	"leftEye", "rightEar", "leftEar",
}

// heatPeak максимум тепловой карты одной части тела
type heatPeak struct {
	X, Y  int
	Score float32
}

// BuildPose собирает позу из максимумов тепловых карт размером mapW×mapH
func BuildPose(peaks []heatPeak, mapW, mapH, width, height int) *entity.Pose {
	pose := &entity.Pose{Keypoints: make([]entity.Keypoint, 0, len(openPoseParts))}
	if mapW <= 0 || mapH <= 0 {
		return pose
	}

	var total float64
	for i, peak := range peaks {
		if i >= len(openPoseParts) || openPoseParts[i] == "" {
			continue
		}
		kp := entity.Keypoint{
			Part: openPoseParts[i],
			Position: entity.Position{
				X: float64(peak.X) * float64(width) / float64(mapW),
				Y: float64(peak.Y) * float64(height) / float64(mapH),
			},
			Score: float64(peak.Score),
		}
		total += kp.Score
		pose.Keypoints = append(pose.Keypoints, kp)
	}
	if n := len(pose.Keypoints); n > 0 {
		pose.Score = total / float64(n)
	}
	return pose
}
