package onnx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"sync"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"

	"hazard-vision/internal/domain/entity"
	"hazard-vision/internal/infrastructure/vision"
)

var (
	envMu          sync.Mutex
	envInitialized bool
)

// initEnvironment инициализирует ONNX Runtime один раз на процесс
func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envInitialized {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	envInitialized = true
	return nil
}

// Shutdown освобождает окружение ONNX Runtime
func Shutdown() error {
	envMu.Lock()
	defer envMu.Unlock()
	if !envInitialized {
		return nil
	}
	envInitialized = false
	return ort.DestroyEnvironment()
}

// ReadMetadata читает описание модели
func ReadMetadata(path string) (Metadata, error) {
	var meta Metadata
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, fmt.Errorf("failed to read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if meta.ImageSize <= 0 || len(meta.InputShape) == 0 || len(meta.OutputShape) == 0 {
		return meta, errors.New("metadata must define image_size, input_shape and output_shape")
	}
	if meta.InputName == "" {
		meta.InputName = "input"
	}
	if meta.OutputName == "" {
		meta.OutputName = "output"
	}
	return meta, nil
}

// Classifier классификатор на ONNX Runtime
type Classifier struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	meta         Metadata
	topK         int
}

// NewClassifier загружает модель и выделяет тензоры
func NewClassifier(opts Options) (*Classifier, error) {
	meta, err := ReadMetadata(opts.MetadataPath)
	if err != nil {
		return nil, err
	}
	if err := initEnvironment(opts.LibraryPath); err != nil {
		return nil, err
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(opts.ModelPath,
		[]string{meta.InputName}, []string{meta.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 3
	}

	return &Classifier{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		meta:         meta,
		topK:         topK,
	}, nil
}

// Classify возвращает topK классов
func (c *Classifier) Classify(ctx context.Context, frame entity.Frame) ([]entity.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	input := Preprocess(img, c.meta)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(input) != len(c.inputTensor.GetData()) {
		return nil, fmt.Errorf("expected %d input values, got %d", len(c.inputTensor.GetData()), len(input))
	}
	copy(c.inputTensor.GetData(), input)

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	scores := append([]float32(nil), c.outputTensor.GetData()...)
	if c.meta.Softmax {
		Softmax(scores)
	}
	return vision.TopK(scores, c.meta.Classes, c.topK), nil
}

// Close освобождает сессию и тензоры
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.inputTensor != nil {
		err = multierr.Append(err, c.inputTensor.Destroy())
		c.inputTensor = nil
	}
	if c.outputTensor != nil {
		err = multierr.Append(err, c.outputTensor.Destroy())
		c.outputTensor = nil
	}
	if c.session != nil {
		err = multierr.Append(err, c.session.Destroy())
		c.session = nil
	}
	return err
}

// Preprocess переводит изображение в CHW float32 нужного размера
func Preprocess(img image.Image, meta Metadata) []float32 {
	size := uint(meta.ImageSize)
	resized := resize.Resize(size, size, img, resize.Lanczos3)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	data := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			idx := y*width + x
			for ch, v := range [3]uint32{r, g, b} {
				data[ch*plane+idx] = normalize(float32(v)/65535.0, meta, ch)
			}
		}
	}
	return data
}

func normalize(v float32, meta Metadata, ch int) float32 {
	if ch < len(meta.Mean) {
		v -= meta.Mean[ch]
	}
	if ch < len(meta.Std) && meta.Std[ch] != 0 {
		v /= meta.Std[ch]
	}
	return v
}

// Softmax нормирует логиты на месте
func Softmax(scores []float32) {
	if len(scores) == 0 {
		return
	}
	maxVal := scores[0]
	for _, s := range scores[1:] {
		if s > maxVal {
			maxVal = s
		}
	}
	var sum float64
	for i, s := range scores {
		e := math.Exp(float64(s - maxVal))
		scores[i] = float32(e)
		sum += e
	}
	for i := range scores {
		scores[i] = float32(float64(scores[i]) / sum)
	}
}
