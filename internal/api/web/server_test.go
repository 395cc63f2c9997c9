package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "hazard-vision/internal/application"
	"hazard-vision/internal/domain/entity"
	"hazard-vision/internal/domain/port"
)

type stubModel struct{}

func (stubModel) Close() error { return nil }

type stubClassifier struct{ stubModel }

func (stubClassifier) Classify(context.Context, entity.Frame) ([]entity.Prediction, error) {
	return []entity.Prediction{{Label: "meat cleaver", Score: 0.8}, {Label: "spatula", Score: 0.1}}, nil
}

type stubDetector struct{ stubModel }

func (stubDetector) Detect(context.Context, entity.Frame) ([]entity.Detection, error) {
	return []entity.Detection{{Label: "cup", Score: 0.9}}, nil
}

type stubPose struct{ stubModel }

func (stubPose) Estimate(context.Context, entity.Frame) (*entity.Pose, error) {
	return &entity.Pose{Score: 0.5}, nil
}

type stubLoader struct{}

func (stubLoader) LoadClassifier(context.Context) (port.Classifier, error) {
	return stubClassifier{}, nil
}

func (stubLoader) LoadDetector(context.Context) (port.Detector, error) {
	return stubDetector{}, nil
}

func (stubLoader) LoadPoseEstimator(context.Context) (port.PoseEstimator, error) {
	return stubPose{}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	hub := NewHub([]string{"*"}, nil)
	models := app.NewModelPool(stubLoader{}, nil)
	models.OnStatus(hub.PublishStatus)
	pipeline := app.NewInferencePipeline(nil, nil)
	live := app.NewInferencePipeline(nil, nil, app.WithMetrics(pipeline.Metrics()), app.WithAlerter(hub))
	inspection := app.NewInspectionService(models, pipeline, nil)
	camera := app.NewCameraService(nil, models, live, hub, time.Millisecond, nil)

	s := NewServer(Options{Port: "0", CORSOrigins: []string{"*"}, MaxUploadMB: 1},
		inspection, camera, hub, pipeline.Metrics(), nil)
	t.Cleanup(func() { models.Close() })
	return s
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func predictRequest(t *testing.T, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if data != nil {
		part, err := w.CreateFormFile("image", "test.png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/predict", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func selectPreset(t *testing.T, h http.Handler, preset string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/models", strings.NewReader(`{"preset":"`+preset+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestPresets(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/presets", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var presets []presetView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &presets))
	require.Len(t, presets, 6)
	assert.Equal(t, entity.PresetMobileNet, presets[0].ID)
	assert.Equal(t, []entity.ModelKind{entity.KindClassifier, entity.KindDetector}, presets[3].Models)
	assert.NotEmpty(t, presets[5].Description)
}

func TestIndex(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "model-selector")
}

func TestPredictWithoutModels(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, predictRequest(t, testPNG(t)))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Please load models first!", decode(t, rec)["error"])

	// без моделей и без изображения приоритет у отсутствия моделей
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, predictRequest(t, nil))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSelectModels(t *testing.T) {
	h := newTestServer(t).Handler()

	t.Run("unknown preset", func(t *testing.T) {
		rec := selectPreset(t, h, "yolo")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("legacy id", func(t *testing.T) {
		rec := selectPreset(t, h, "mobilenet-coco-ssd")
		require.Equal(t, http.StatusOK, rec.Code)

		var view modelsView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.Equal(t, entity.StatusSuccess, view.Status)
		assert.Equal(t, "Models loaded successfully.", view.Message)
		assert.Equal(t, []entity.ModelKind{entity.KindClassifier, entity.KindDetector}, view.Models)
	})

	t.Run("status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/models", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "success", decode(t, rec)["status"])
	})
}

func TestPredict(t *testing.T) {
	h := newTestServer(t).Handler()
	require.Equal(t, http.StatusOK, selectPreset(t, h, "mobilenet+coco-ssd").Code)

	t.Run("missing image", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, predictRequest(t, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Please upload an image!", decode(t, rec)["error"])
	})

	t.Run("not an image", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, predictRequest(t, []byte("plain text")))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("hazard", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, predictRequest(t, testPNG(t)))
		require.Equal(t, http.StatusOK, rec.Code)

		var payload ReportPayload
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.True(t, payload.Alert)
		require.Len(t, payload.Hazards, 1)
		assert.Equal(t, "MobileNet", payload.Hazards[0].Model)
		assert.Equal(t, []string{"meat cleaver"}, payload.Hazards[0].Labels)

		assert.Contains(t, payload.HTML, "<p><strong>Coco-SSD Detections:</strong></p>")
		assert.True(t, strings.HasSuffix(payload.HTML, "<li>meat cleaver</li></ul>"))
	})
}

func TestPredictTooLarge(t *testing.T) {
	h := newTestServer(t).Handler()
	require.Equal(t, http.StatusOK, selectPreset(t, h, "mobilenet").Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, predictRequest(t, make([]byte, 2<<20)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCameraWithoutDevice(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/camera/start", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Camera is not available.", decode(t, rec)["error"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/camera/stop", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["active"])
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "idle", body["models_status"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec), "pipeline")
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/predict", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusCode(entity.ErrNoModelsLoaded))
	assert.Equal(t, http.StatusBadRequest, statusCode(entity.ErrNoImageProvided))
	assert.Equal(t, http.StatusForbidden, statusCode(entity.ErrCameraPermissionDenied))
	assert.Equal(t, http.StatusServiceUnavailable, statusCode(entity.ErrCameraUnavailable))
	assert.Equal(t, http.StatusInternalServerError, statusCode(entity.ErrCapabilityInvocationFailed))
	assert.Equal(t, http.StatusInternalServerError, statusCode(entity.ErrModelLoadFailed))
}

func readUntil(t *testing.T, conn *websocket.Conn, msgType string) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestWebsocketBroadcast(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	welcome := readUntil(t, conn, MsgWelcome)
	assert.NotEmpty(t, welcome.ClientID)
	assert.Equal(t, 1, s.hub.Clients())

	require.Equal(t, http.StatusOK, selectPreset(t, s.Handler(), "mobilenet").Code)
	status := readUntil(t, conn, MsgStatus)
	assert.Equal(t, "loading", status.Payload.(map[string]any)["status"])

	// тревога загрузки приходит только в ответе на запрос, остальные страницы молчат
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, predictRequest(t, testPNG(t)))
	require.Equal(t, http.StatusOK, rec.Code)
	var payload ReportPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.True(t, payload.Alert)

	require.NoError(t, conn.WriteJSON(Message{Type: MsgPing}))
	seen := typesUntil(t, conn, MsgPong)
	assert.NotContains(t, seen, MsgAlert)
	assert.NotContains(t, seen, MsgReport)
}

// typesUntil читает сообщения до msgType и возвращает типы прочитанных перед ним
func typesUntil(t *testing.T, conn *websocket.Conn, msgType string) []string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var seen []string
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == msgType {
			return seen
		}
		seen = append(seen, msg.Type)
	}
}

func TestHubPublishError(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	readUntil(t, conn, MsgWelcome)

	s.hub.PublishError(context.Background(), entity.ErrCameraUnavailable)
	msg := readUntil(t, conn, MsgError)
	assert.Equal(t, "Camera is not available.", msg.Payload.(map[string]any)["error"])

	s.hub.Close()
	assert.Equal(t, 0, s.hub.Clients())
	s.hub.Close()
}
