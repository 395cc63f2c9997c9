//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"hazard-vision/internal/domain/entity"
	"hazard-vision/internal/domain/port"
)

const gocvEnabled = true

// dnnNet сеть OpenCV; Forward не потокобезопасен, поэтому вызовы сериализуются
type dnnNet struct {
	mu  sync.Mutex
	net gocv.Net
}

func readNet(model, config string) (*dnnNet, error) {
	net := gocv.ReadNet(model, config)
	if net.Empty() {
		return nil, fmt.Errorf("failed to read network %s", model)
	}
	return &dnnNet{net: net}, nil
}

// forward прогоняет blob и возвращает выход; вызывающий закрывает Mat
func (n *dnnNet) forward(blob gocv.Mat) gocv.Mat {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.net.SetInput(blob, "")
	return n.net.Forward("")
}

func (n *dnnNet) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.net.Close()
}

// GoCVClassifier MobileNet через OpenCV DNN
type GoCVClassifier struct {
	*dnnNet
	labels []string
	topK   int
}

func newDNNClassifier(opts Options) (port.Classifier, error) {
	labels, err := LoadLabels(opts.MobileNetLabels)
	if err != nil {
		return nil, err
	}
	net, err := readNet(opts.MobileNetModel, opts.MobileNetConfig)
	if err != nil {
		return nil, err
	}
	return &GoCVClassifier{dnnNet: net, labels: labels, topK: opts.TopK}, nil
}

// Classify возвращает topK классов
func (c *GoCVClassifier) Classify(ctx context.Context, frame entity.Frame) ([]entity.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mat, err := decodeToMat(frame.Data)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(224, 224), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	prob := c.forward(blob)
	defer prob.Close()

	flat := prob.Reshape(1, 1)
	defer flat.Close()

	scores := make([]float32, flat.Cols())
	for i := range scores {
		scores[i] = flat.GetFloatAt(0, i)
	}
	return TopK(scores, c.labels, c.topK), nil
}

// GoCVDetector SSD MobileNet (COCO) через OpenCV DNN
type GoCVDetector struct {
	*dnnNet
	labels   []string
	minScore float64
	maxBoxes int
}

func newDNNDetector(opts Options) (port.Detector, error) {
	labels, err := LoadLabels(opts.SSDLabels)
	if err != nil {
		return nil, err
	}
	net, err := readNet(opts.SSDModel, opts.SSDConfig)
	if err != nil {
		return nil, err
	}
	return &GoCVDetector{dnnNet: net, labels: labels, minScore: opts.MinScore, maxBoxes: opts.MaxBoxes}, nil
}

// Detect возвращает объекты с рамками в пикселях исходного кадра
func (d *GoCVDetector) Detect(ctx context.Context, frame entity.Frame) ([]entity.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mat, err := decodeToMat(frame.Data)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0, image.Pt(300, 300), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	prob := d.forward(blob)
	defer prob.Close()

	det := gocv.GetBlobChannel(prob, 0, 0)
	defer det.Close()

	rows := make([]ssdRow, 0, det.Rows())
	for r := 0; r < det.Rows(); r++ {
		var row ssdRow
		for c := 0; c < len(row) && c < det.Cols(); c++ {
			row[c] = det.GetFloatAt(r, c)
		}
		rows = append(rows, row)
	}
	return ParseSSD(rows, mat.Cols(), mat.Rows(), d.labels, d.minScore, d.maxBoxes), nil
}

// GoCVPoseEstimator OpenPose COCO через OpenCV DNN
type GoCVPoseEstimator struct {
	*dnnNet
}

func newDNNPoseEstimator(opts Options) (port.PoseEstimator, error) {
	net, err := readNet(opts.PoseModel, opts.PoseConfig)
	if err != nil {
		return nil, err
	}
	return &GoCVPoseEstimator{dnnNet: net}, nil
}

// Estimate возвращает одну позу по максимумам тепловых карт
func (p *GoCVPoseEstimator) Estimate(ctx context.Context, frame entity.Frame) (*entity.Pose, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mat, err := decodeToMat(frame.Data)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(368, 368), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	prob := p.forward(blob)
	defer prob.Close()

	peaks := make([]heatPeak, 0, len(openPoseParts))
	mapW, mapH := 0, 0
	for i := range openPoseParts {
		heat := gocv.GetBlobChannel(prob, 0, i)
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(heat)
		mapW, mapH = heat.Cols(), heat.Rows()
		heat.Close()
		peaks = append(peaks, heatPeak{X: maxLoc.X, Y: maxLoc.Y, Score: maxVal})
	}
	return BuildPose(peaks, mapW, mapH, mat.Cols(), mat.Rows()), nil
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to decode image: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, errors.New("failed to decode image")
	}
	return mat, nil
}
