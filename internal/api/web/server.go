package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	app "hazard-vision/internal/application"
	"hazard-vision/internal/domain/entity"
)

//go:embed static/index.html
var indexHTML []byte

// Options параметры HTTP-сервера
type Options struct {
	Port           string
	CORSOrigins    []string
	MaxUploadMB    int
	AlertSoundPath string
}

// Server страница, JSON API и websocket
type Server struct {
	opts       Options
	inspection *app.InspectionService
	camera     *app.CameraService
	hub        *Hub
	metrics    *app.Metrics
	log        *zap.Logger
	started    time.Time
	http       *http.Server
}

// NewServer создаёт сервер
func NewServer(opts Options, inspection *app.InspectionService, camera *app.CameraService,
	hub *Hub, metrics *app.Metrics, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 10
	}
	s := &Server{
		opts:       opts,
		inspection: inspection,
		camera:     camera,
		hub:        hub,
		metrics:    metrics,
		log:        log,
		started:    time.Now(),
	}
	s.http = &http.Server{
		Addr:         ":" + opts.Port,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler маршруты с CORS
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /alert.mp3", s.handleAlertSound)
	mux.HandleFunc("GET /ws", s.hub.ServeWS)

	mux.HandleFunc("GET /api/presets", s.handlePresets)
	mux.HandleFunc("GET /api/models", s.handleModelsStatus)
	mux.HandleFunc("POST /api/models", s.handleSelectModels)
	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.HandleFunc("POST /api/camera/start", s.handleCameraStart)
	mux.HandleFunc("POST /api/camera/stop", s.handleCameraStop)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)

	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}

// Start слушает порт до Shutdown
func (s *Server) Start() error {
	s.log.Info("HTTP server listening",
		zap.String("addr", s.http.Addr),
		zap.String("websocket", "ws://localhost:"+s.opts.Port+"/ws"))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает сервер и закрывает websocket-клиентов
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.hub.Close()
	return err
}

type presetView struct {
	ID          entity.Preset      `json:"id"`
	Description string             `json:"description"`
	Models      []entity.ModelKind `json:"models"`
}

type modelsView struct {
	Status      entity.LoadStatus  `json:"status"`
	Message     string             `json:"message"`
	Description string             `json:"description,omitempty"`
	Models      []entity.ModelKind `json:"models"`
}

type selectRequest struct {
	Preset string `json:"preset"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleAlertSound(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.opts.AlertSoundPath)
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	presets := entity.Presets()
	out := make([]presetView, 0, len(presets))
	for _, p := range presets {
		out = append(out, presetView{ID: p, Description: p.Description(), Models: p.Kinds()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleModelsStatus(w http.ResponseWriter, r *http.Request) {
	status := s.inspection.Status()
	writeJSON(w, http.StatusOK, modelsView{
		Status:  status,
		Message: status.Message(),
		Models:  s.inspection.LoadedKinds(),
	})
}

func (s *Server) handleSelectModels(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request"})
		return
	}
	preset, err := entity.ParsePreset(req.Preset)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := s.inspection.SelectPreset(r.Context(), preset); err != nil {
		s.writeError(w, err)
		return
	}

	status := s.inspection.Status()
	writeJSON(w, http.StatusOK, modelsView{
		Status:      status,
		Message:     status.Message(),
		Description: preset.Description(),
		Models:      s.inspection.LoadedKinds(),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.opts.MaxUploadMB)<<20)

	// Без поля image кадр остаётся пустым: сначала проверяется наличие моделей.
	frame := entity.Frame{Source: entity.SourceUpload}
	file, _, err := r.FormFile("image")
	switch {
	case err == nil:
		data, rerr := io.ReadAll(file)
		file.Close()
		if rerr != nil {
			writeUploadError(w, rerr)
			return
		}
		frame.Data = data
	case isTooLarge(err):
		writeUploadError(w, err)
		return
	}

	out, err := s.inspection.Inspect(r.Context(), frame)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReportPayload(out.Report))
}

func (s *Server) handleCameraStart(w http.ResponseWriter, r *http.Request) {
	if err := s.camera.Start(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": s.camera.Active()})
}

func (s *Server) handleCameraStop(w http.ResponseWriter, r *http.Request) {
	if err := s.camera.Stop(); err != nil {
		s.log.Warn("camera stop", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": s.camera.Active()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"models_status":  s.inspection.Status(),
		"camera_active":  s.camera.Active(),
		"active_clients": s.hub.Clients(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"pipeline":          s.metrics.Snapshot(),
		"active_clients":    s.hub.Clients(),
		"system_uptime_sec": int(time.Since(s.started).Seconds()),
		"timestamp":         time.Now().Format(time.RFC3339),
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, code, map[string]string{"error": entity.UserMessage(err)})
}

// statusCode HTTP-код для ошибки домена
func statusCode(err error) int {
	switch {
	case errors.Is(err, entity.ErrNoModelsLoaded):
		return http.StatusConflict
	case errors.Is(err, entity.ErrNoImageProvided):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrCameraPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrCameraUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

func writeUploadError(w http.ResponseWriter, err error) {
	if isTooLarge(err) {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Image is too large"})
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": entity.UserMessage(entity.ErrNoImageProvided)})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
