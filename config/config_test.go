package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("CAMERA_TICK", "")
	t.Setenv("HAZARD_TERMS", "")
	t.Setenv("CLASSIFIER_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, 100*time.Millisecond, cfg.Camera.Tick)
	require.Nil(t, cfg.HazardTerms)
	require.Equal(t, "dnn", cfg.Models.ClassifierBackend)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("CAMERA_TICK", "250ms")
	t.Setenv("HAZARD_TERMS", "knife, , axe")
	t.Setenv("INFERENCE_PARALLEL", "true")
	t.Setenv("CLASSIFIER_BACKEND", "ONNX")
	t.Setenv("ENVIRONMENT", "dev")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.HTTPPort)
	require.Equal(t, 250*time.Millisecond, cfg.Camera.Tick)
	require.Equal(t, []string{"knife", "axe"}, cfg.HazardTerms)
	require.True(t, cfg.InferenceParallel)
	require.Equal(t, "onnx", cfg.Models.ClassifierBackend)
	require.True(t, cfg.IsDev())
}

func TestGetEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "lots")
	require.Equal(t, 10, getEnvInt("MAX_UPLOAD_MB", 10))
}
