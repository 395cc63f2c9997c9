package app

import (
	"sync/atomic"
	"time"
)

// Metrics счётчики работы конвейера
type Metrics struct {
	totalFrames   atomic.Int64
	totalErrors   atomic.Int64
	totalHazards  atomic.Int64
	totalLatency  atomic.Int64
	lastFrameTime atomic.Int64
}

// MetricsSnapshot снимок счётчиков для /api/metrics
type MetricsSnapshot struct {
	TotalFrames   int64   `json:"total_frames"`
	TotalErrors   int64   `json:"total_errors"`
	HazardReports int64   `json:"hazard_reports"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	LastFrameUnix int64   `json:"last_frame_unix"`
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncrementFrames() {
	m.totalFrames.Add(1)
	m.lastFrameTime.Store(time.Now().Unix())
}

func (m *Metrics) IncrementErrors() {
	m.totalErrors.Add(1)
}

func (m *Metrics) IncrementHazards() {
	m.totalHazards.Add(1)
}

func (m *Metrics) RecordLatency(duration time.Duration) {
	m.totalLatency.Add(duration.Milliseconds())
}

func (m *Metrics) GetAvgLatency() float64 {
	frames := m.totalFrames.Load()
	if frames == 0 {
		return 0
	}
	return float64(m.totalLatency.Load()) / float64(frames)
}

// Snapshot возвращает текущие значения
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TotalFrames:   m.totalFrames.Load(),
		TotalErrors:   m.totalErrors.Load(),
		HazardReports: m.totalHazards.Load(),
		AvgLatencyMs:  m.GetAvgLatency(),
		LastFrameUnix: m.lastFrameTime.Load(),
	}
}
