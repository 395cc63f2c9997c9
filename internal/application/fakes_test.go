package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hazard-vision/internal/domain/entity"
	"hazard-vision/internal/domain/port"
)

// testFrame возвращает валидный PNG кадр
func testFrame(t *testing.T) entity.Frame {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return entity.Frame{Data: buf.Bytes(), Source: entity.SourceUpload}
}

type fakeModel struct {
	closed atomic.Int32
	calls  atomic.Int32
	delay  time.Duration
	err    error
}

func (m *fakeModel) Close() error {
	m.closed.Add(1)
	return nil
}

func (m *fakeModel) wait(ctx context.Context) error {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

type fakeClassifier struct {
	fakeModel
	predictions []entity.Prediction
}

func (c *fakeClassifier) Classify(ctx context.Context, _ entity.Frame) ([]entity.Prediction, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.predictions, nil
}

type fakeDetector struct {
	fakeModel
	detections []entity.Detection
}

func (d *fakeDetector) Detect(ctx context.Context, _ entity.Frame) ([]entity.Detection, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	return d.detections, nil
}

type fakePose struct {
	fakeModel
	pose *entity.Pose
}

func (p *fakePose) Estimate(ctx context.Context, _ entity.Frame) (*entity.Pose, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return p.pose, nil
}

// fakeLoader каждый раз отдаёт новые экземпляры и запоминает их
type fakeLoader struct {
	mu          sync.Mutex
	failKind    entity.ModelKind
	predictions []entity.Prediction
	detections  []entity.Detection
	pose        *entity.Pose
	loaded      []*fakeModel
	calls       []entity.ModelKind
}

var errBoom = errors.New("boom")

func (l *fakeLoader) record(kind entity.ModelKind, m *fakeModel) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, kind)
	if kind == l.failKind {
		return errBoom
	}
	l.loaded = append(l.loaded, m)
	return nil
}

func (l *fakeLoader) LoadClassifier(context.Context) (port.Classifier, error) {
	c := &fakeClassifier{predictions: l.predictions}
	if err := l.record(entity.KindClassifier, &c.fakeModel); err != nil {
		return nil, err
	}
	return c, nil
}

func (l *fakeLoader) LoadDetector(context.Context) (port.Detector, error) {
	d := &fakeDetector{detections: l.detections}
	if err := l.record(entity.KindDetector, &d.fakeModel); err != nil {
		return nil, err
	}
	return d, nil
}

func (l *fakeLoader) LoadPoseEstimator(context.Context) (port.PoseEstimator, error) {
	p := &fakePose{pose: l.pose}
	if err := l.record(entity.KindPoseEstimator, &p.fakeModel); err != nil {
		return nil, err
	}
	return p, nil
}

func (l *fakeLoader) models() []*fakeModel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*fakeModel(nil), l.loaded...)
}

type fakeAlerter struct {
	count atomic.Int32
}

func (a *fakeAlerter) Alert(context.Context, *entity.Report) error {
	a.count.Add(1)
	return nil
}

type fakePublisher struct {
	mu      sync.Mutex
	reports []*entity.Report
	errs    []error
	notify  chan struct{}
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{notify: make(chan struct{}, 100)}
}

func (p *fakePublisher) PublishReport(_ context.Context, r *entity.Report) {
	p.mu.Lock()
	p.reports = append(p.reports, r)
	p.mu.Unlock()
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *fakePublisher) PublishError(_ context.Context, err error) {
	p.mu.Lock()
	p.errs = append(p.errs, err)
	p.mu.Unlock()
}

func (p *fakePublisher) reportCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reports)
}

func (p *fakePublisher) errors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]error(nil), p.errs...)
}

// poolOf собирает пул из готовых моделей
func poolOf(caps ...Capability) *Pool {
	return newPool(caps)
}
