package container

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hazard-vision/config"
	"hazard-vision/internal/api/web"
	app "hazard-vision/internal/application"
	"hazard-vision/internal/domain/entity"
	"hazard-vision/internal/domain/port"
	"hazard-vision/internal/infrastructure/onnx"
	"hazard-vision/internal/infrastructure/vision"
)

type Container struct {
	Models            *app.ModelPool
	Pipeline          *app.InferencePipeline
	UserService       *app.UserService
	InspectionService *app.InspectionService
	CameraService     *app.CameraService
	Hub               *web.Hub
}

func New(cfg *config.Config, userRepo port.UserRepository, loader port.ModelLoader, device port.CaptureDevice, log *zap.Logger) *Container {
	if log == nil {
		log = zap.NewNop()
	}

	hub := web.NewHub(cfg.CORSOrigins, log.Named("ws"))

	models := app.NewModelPool(loader, log.Named("models"))
	models.OnStatus(hub.PublishStatus)

	lexicon := entity.NewHazardLexicon(cfg.HazardTerms)
	metrics := app.NewMetrics()

	// Загрузки и фото из бота получают тревогу в своём ответе.
	pipeline := app.NewInferencePipeline(lexicon, log.Named("pipeline"),
		app.WithParallel(cfg.InferenceParallel),
		app.WithMetrics(metrics),
	)
	// Живой режим общий для всех страниц, тревога уходит через хаб.
	live := app.NewInferencePipeline(lexicon, log.Named("live"),
		app.WithParallel(cfg.InferenceParallel),
		app.WithMetrics(metrics),
		app.WithAlerter(hub),
	)

	return &Container{
		Models:            models,
		Pipeline:          pipeline,
		UserService:       app.NewUserService(userRepo),
		InspectionService: app.NewInspectionService(models, pipeline, log.Named("inspection")),
		CameraService:     app.NewCameraService(device, models, live, hub, cfg.Camera.Tick, log.Named("camera")),
		Hub:               hub,
	}
}

// NewModelLoader загрузчик моделей по настройкам: OpenCV DNN, классификатор опционально на ONNX Runtime
func NewModelLoader(cfg *config.Config, log *zap.Logger) port.ModelLoader {
	if log == nil {
		log = zap.NewNop()
	}
	opts := vision.DefaultOptions()
	opts.MobileNetModel = cfg.Models.MobileNetModel
	opts.MobileNetConfig = cfg.Models.MobileNetConfig
	opts.MobileNetLabels = cfg.Models.MobileNetLabels
	opts.SSDModel = cfg.Models.SSDModel
	opts.SSDConfig = cfg.Models.SSDConfig
	opts.SSDLabels = cfg.Models.SSDLabels
	opts.PoseModel = cfg.Models.PoseModel
	opts.PoseConfig = cfg.Models.PoseConfig

	var loader port.ModelLoader = vision.NewLoader(opts, log.Named("vision"))
	if cfg.Models.ClassifierBackend == "onnx" {
		loader = onnx.NewLoader(loader, onnx.Options{
			ModelPath:    cfg.Models.ONNXModel,
			MetadataPath: cfg.Models.ONNXMetadata,
			LibraryPath:  cfg.Models.ONNXLibrary,
			TopK:         opts.TopK,
		}, log.Named("onnx"))
	}
	return loader
}

// Close останавливает камеру и отпускает модели
func (c *Container) Close() error {
	return multierr.Combine(
		c.CameraService.Stop(),
		c.Models.Close(),
		onnx.Shutdown(),
	)
}
