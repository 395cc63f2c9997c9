package entity

import (
	"fmt"
	"strings"
)

// Preset один из вариантов выбора моделей
type Preset string

const (
	PresetMobileNet        Preset = "mobilenet"
	PresetCocoSSD          Preset = "coco-ssd"
	PresetPoseNet          Preset = "posenet"
	PresetMobileNetCocoSSD Preset = "mobilenet+coco-ssd"
	PresetMobileNetPoseNet Preset = "mobilenet+posenet"
	PresetCocoSSDPoseNet   Preset = "coco-ssd+posenet"
)

type presetInfo struct {
	kinds       []ModelKind
	description string
}

var presets = map[Preset]presetInfo{
	PresetMobileNet: {
		kinds:       []ModelKind{KindClassifier},
		description: "MobileNet is a lightweight deep learning model for image classification. It is optimized for mobile devices.",
	},
	PresetCocoSSD: {
		kinds:       []ModelKind{KindDetector},
		description: "Coco-SSD is a fast and accurate object detection model trained on the COCO dataset.",
	},
	PresetPoseNet: {
		kinds:       []ModelKind{KindPoseEstimator},
		description: "PoseNet detects human poses in real-time, including key points like the head, shoulders, and knees.",
	},
	PresetMobileNetCocoSSD: {
		kinds:       []ModelKind{KindClassifier, KindDetector},
		description: "This combination applies MobileNet for classification and Coco-SSD for object detection on the same image.",
	},
	PresetMobileNetPoseNet: {
		kinds:       []ModelKind{KindClassifier, KindPoseEstimator},
		description: "This combination applies MobileNet for classification and PoseNet for human pose detection.",
	},
	PresetCocoSSDPoseNet: {
		kinds:       []ModelKind{KindDetector, KindPoseEstimator},
		description: "This combination applies Coco-SSD for object detection and PoseNet for human pose detection.",
	},
}

// Presets возвращает все варианты в порядке меню
func Presets() []Preset {
	return []Preset{
		PresetMobileNet,
		PresetCocoSSD,
		PresetPoseNet,
		PresetMobileNetCocoSSD,
		PresetMobileNetPoseNet,
		PresetCocoSSDPoseNet,
	}
}

// ParsePreset разбирает идентификатор варианта.
// Старые идентификаторы вида "mobilenet-coco-ssd" тоже принимаются.
func ParsePreset(s string) (Preset, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := presets[Preset(s)]; ok {
		return Preset(s), nil
	}
	for _, p := range Presets() {
		if strings.ReplaceAll(string(p), "+", "-") == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown preset %q", s)
}

// Kinds набор моделей варианта (копия)
func (p Preset) Kinds() []ModelKind {
	info, ok := presets[p]
	if !ok {
		return nil
	}
	return append([]ModelKind(nil), info.kinds...)
}

// Description статическое описание варианта
func (p Preset) Description() string {
	return presets[p].description
}
