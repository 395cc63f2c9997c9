package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config настройки сервиса
type Config struct {
	HTTPPort      string
	TelegramToken string
	CORSOrigins   []string
	MaxUploadMB   int
	LogLevel      string
	Environment   string

	AlertSoundPath string

	// Inference
	InferenceParallel bool
	HazardTerms       []string

	Camera CameraConfig
	Models ModelsConfig
}

// CameraConfig параметры устройства захвата
type CameraConfig struct {
	Device int
	Width  int
	Height int
	Tick   time.Duration
}

// ModelsConfig пути к весам моделей
type ModelsConfig struct {
	ClassifierBackend string // "dnn" или "onnx"

	MobileNetModel  string
	MobileNetConfig string
	MobileNetLabels string

	SSDModel  string
	SSDConfig string
	SSDLabels string

	PoseModel  string
	PoseConfig string

	ONNXModel    string
	ONNXMetadata string
	ONNXLibrary  string
}

// IsDev сообщает, запущен ли сервис в режиме разработки
func (c *Config) IsDev() bool {
	return c.Environment == "dev"
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		TelegramToken:     os.Getenv("TELEGRAM_TOKEN"),
		CORSOrigins:       getEnvList("CORS_ORIGINS", []string{"*"}),
		MaxUploadMB:       getEnvInt("MAX_UPLOAD_MB", 10),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Environment:       getEnv("ENVIRONMENT", "production"),
		AlertSoundPath:    getEnv("ALERT_SOUND_PATH", "p/sound.mp3"),
		InferenceParallel: getEnvBool("INFERENCE_PARALLEL", false),
		HazardTerms:       getEnvList("HAZARD_TERMS", nil),
		Camera: CameraConfig{
			Device: getEnvInt("CAMERA_DEVICE", 0),
			Width:  getEnvInt("CAMERA_WIDTH", 640),
			Height: getEnvInt("CAMERA_HEIGHT", 480),
			Tick:   getEnvDuration("CAMERA_TICK", 100*time.Millisecond),
		},
		Models: ModelsConfig{
			ClassifierBackend: strings.ToLower(getEnv("CLASSIFIER_BACKEND", "dnn")),
			MobileNetModel:    getEnv("MOBILENET_MODEL", "models/mobilenet.caffemodel"),
			MobileNetConfig:   getEnv("MOBILENET_CONFIG", "models/mobilenet.prototxt"),
			MobileNetLabels:   getEnv("MOBILENET_LABELS", "models/imagenet_labels.txt"),
			SSDModel:          getEnv("SSD_MODEL", "models/ssd_mobilenet.pb"),
			SSDConfig:         getEnv("SSD_CONFIG", "models/ssd_mobilenet.pbtxt"),
			SSDLabels:         getEnv("SSD_LABELS", "models/coco_labels.txt"),
			PoseModel:         getEnv("POSE_MODEL", "models/pose_iter_440000.caffemodel"),
			PoseConfig:        getEnv("POSE_CONFIG", "models/openpose_pose_coco.prototxt"),
			ONNXModel:         getEnv("ONNX_MODEL", "models/mobilenet.onnx"),
			ONNXMetadata:      getEnv("ONNX_METADATA", "models/mobilenet_metadata.json"),
			ONNXLibrary:       os.Getenv("ONNX_LIBRARY"),
		},
	}

	return cfg, nil
}

func getEnv(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList разбирает список через запятую, пустые элементы отбрасываются
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
