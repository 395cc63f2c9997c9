//go:build !gocv
// +build !gocv

package vision

import (
	"errors"

	"hazard-vision/internal/domain/port"
)

const gocvEnabled = false

var errNoGoCV = errors.New("gocv build tag is not enabled")

// newDNNClassifier возвращает ошибку, если сборка без тега gocv.
func newDNNClassifier(opts Options) (port.Classifier, error) {
	_ = opts
	return nil, errNoGoCV
}

// newDNNDetector возвращает ошибку, если сборка без тега gocv.
func newDNNDetector(opts Options) (port.Detector, error) {
	_ = opts
	return nil, errNoGoCV
}

// newDNNPoseEstimator возвращает ошибку, если сборка без тега gocv.
func newDNNPoseEstimator(opts Options) (port.PoseEstimator, error) {
	_ = opts
	return nil, errNoGoCV
}
