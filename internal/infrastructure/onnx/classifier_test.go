package onnx

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hazard-vision/internal/domain/port"
)

func TestPreprocess(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	t.Run("CHW layout", func(t *testing.T) {
		data := Preprocess(img, Metadata{ImageSize: 4})
		require.Len(t, data, 3*4*4)
		assert.InDelta(t, 1.0, data[0], 0.01)
		assert.InDelta(t, 0.0, data[16], 0.01)
		assert.InDelta(t, 0.0, data[32], 0.01)
	})

	t.Run("mean and std", func(t *testing.T) {
		meta := Metadata{ImageSize: 2, Mean: []float32{0.5, 0.5, 0.5}, Std: []float32{0.5, 0.5, 0.5}}
		data := Preprocess(img, meta)
		require.Len(t, data, 12)
		assert.InDelta(t, 1.0, data[0], 0.01)
		assert.InDelta(t, -1.0, data[4], 0.01)
	})
}

func TestSoftmax(t *testing.T) {
	scores := []float32{1, 2, 3}
	Softmax(scores)

	var sum float32
	for _, s := range scores {
		sum += s
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
	assert.Greater(t, scores[2], scores[1])
	assert.Greater(t, scores[1], scores[0])

	Softmax(nil)
}

func TestReadMetadata(t *testing.T) {
	dir := t.TempDir()

	t.Run("defaults", func(t *testing.T) {
		path := filepath.Join(dir, "ok.json")
		body := `{"input_shape":[1,3,224,224],"output_shape":[1,2],"classes":["knife","cup"],"image_size":224}`
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		meta, err := ReadMetadata(path)
		require.NoError(t, err)
		assert.Equal(t, "input", meta.InputName)
		assert.Equal(t, "output", meta.OutputName)
		assert.Equal(t, []string{"knife", "cup"}, meta.Classes)
	})

	t.Run("incomplete", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"classes":["x"]}`), 0o644))

		_, err := ReadMetadata(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadMetadata(filepath.Join(dir, "absent.json"))
		assert.Error(t, err)
	})
}

type baseLoader struct{ port.ModelLoader }

func TestLoaderFailsWithoutMetadata(t *testing.T) {
	l := NewLoader(baseLoader{}, Options{MetadataPath: filepath.Join(t.TempDir(), "absent.json")}, nil)

	_, err := l.LoadClassifier(context.Background())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.LoadClassifier(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
