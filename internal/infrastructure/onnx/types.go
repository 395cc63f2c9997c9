package onnx

// Metadata описание экспортированной модели (model_metadata.json)
type Metadata struct {
	InputShape  []int64   `json:"input_shape"`
	OutputShape []int64   `json:"output_shape"`
	Classes     []string  `json:"classes"`
	ImageSize   int       `json:"image_size"`
	InputName   string    `json:"input_name,omitempty"`
	OutputName  string    `json:"output_name,omitempty"`
	Mean        []float32 `json:"mean,omitempty"`
	Std         []float32 `json:"std,omitempty"`
	Softmax     bool      `json:"softmax,omitempty"` // выход модели в логитах
}

// Options пути к модели ONNX
type Options struct {
	ModelPath    string
	MetadataPath string
	LibraryPath  string
	TopK         int
}
