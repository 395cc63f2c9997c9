package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hazard-vision/internal/domain/entity"
	"hazard-vision/internal/domain/port"
)

// Capability одна загруженная модель с её типом
type Capability struct {
	Kind     entity.ModelKind
	Instance port.Model
}

// Pool неизменяемый набор загруженных моделей.
// Экземпляры закрываются, когда отпущена последняя ссылка.
type Pool struct {
	caps []Capability
	refs atomic.Int64
}

func newPool(caps []Capability) *Pool {
	p := &Pool{caps: caps}
	p.refs.Store(1)
	return p
}

// Capabilities возвращает модели в порядке запроса
func (p *Pool) Capabilities() []Capability {
	if p == nil {
		return nil
	}
	return append([]Capability(nil), p.caps...)
}

// Len количество моделей
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.caps)
}

// Kinds типы моделей в порядке итерации
func (p *Pool) Kinds() []entity.ModelKind {
	kinds := make([]entity.ModelKind, 0, p.Len())
	for _, c := range p.Capabilities() {
		kinds = append(kinds, c.Kind)
	}
	return kinds
}

// Restrict возвращает снимок только с указанными типами, порядок сохраняется.
// Снимок разделяет экземпляры с исходным пулом и сам ничего не закрывает.
func (p *Pool) Restrict(kinds ...entity.ModelKind) *Pool {
	allowed := make(map[entity.ModelKind]struct{}, len(kinds))
	for _, k := range kinds {
		allowed[k] = struct{}{}
	}
	var caps []Capability
	for _, c := range p.Capabilities() {
		if _, ok := allowed[c.Kind]; ok {
			caps = append(caps, c)
		}
	}
	view := &Pool{caps: caps}
	view.refs.Store(-1)
	return view
}

func (p *Pool) retain() bool {
	for {
		n := p.refs.Load()
		if n <= 0 {
			return false
		}
		if p.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release отпускает ссылку; последняя ссылка закрывает модели
func (p *Pool) Release() error {
	if p == nil || p.refs.Load() < 0 {
		return nil
	}
	if p.refs.Add(-1) != 0 {
		return nil
	}
	return closeCapabilities(p.caps)
}

func closeCapabilities(caps []Capability) error {
	var err error
	for _, c := range caps {
		if c.Instance == nil {
			continue
		}
		err = multierr.Append(err, c.Instance.Close())
	}
	return err
}

// ModelPool владеет текущим пулом моделей и заменяет его целиком при смене выбора
type ModelPool struct {
	loader port.ModelLoader
	log    *zap.Logger

	loadMu  sync.Mutex // загрузки выполняются по одной
	mu      sync.Mutex
	current *Pool
	status  entity.LoadStatus

	listenersMu sync.RWMutex
	listeners   []func(entity.LoadStatus)
}

// NewModelPool создаёт пустой пул
func NewModelPool(loader port.ModelLoader, log *zap.Logger) *ModelPool {
	if log == nil {
		log = zap.NewNop()
	}
	return &ModelPool{
		loader:  loader,
		log:     log,
		current: newPool(nil),
		status:  entity.StatusIdle,
	}
}

// OnStatus подписывает обработчик на смену состояния загрузки
func (m *ModelPool) OnStatus(fn func(entity.LoadStatus)) {
	m.listenersMu.Lock()
	m.listeners = append(m.listeners, fn)
	m.listenersMu.Unlock()
}

// Status текущее состояние загрузки
func (m *ModelPool) Status() entity.LoadStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Acquire возвращает снимок текущего пула; вызывающий обязан вызвать Release
func (m *ModelPool) Acquire() *Pool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.retain() {
		return m.current
	}
	return newPool(nil)
}

// Load очищает текущий пул и загружает запрошенные модели.
// Если хотя бы одна модель не загрузилась, пул остаётся пустым.
// Возвращённый пул уже захвачен, вызывающий обязан вызвать Release.
func (m *ModelPool) Load(ctx context.Context, kinds []entity.ModelKind) (*Pool, error) {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	kinds = entity.UniqueKinds(kinds)
	m.swap(newPool(nil), entity.StatusLoading)

	caps := make([]Capability, 0, len(kinds))
	for _, kind := range kinds {
		instance, err := m.loadOne(ctx, kind)
		if err != nil {
			if cerr := closeCapabilities(caps); cerr != nil {
				m.log.Warn("close partially loaded models", zap.Error(cerr))
			}
			m.setStatus(entity.StatusError)
			m.log.Error("model loading failed", zap.String("kind", string(kind)), zap.Error(err))
			return nil, fmt.Errorf("%w: %s: %v", entity.ErrModelLoadFailed, kind, err)
		}
		caps = append(caps, Capability{Kind: kind, Instance: instance})
	}

	pool := newPool(caps)
	m.swap(pool, entity.StatusSuccess)
	m.log.Info("models loaded", zap.Strings("kinds", kindStrings(kinds)))

	pool.retain()
	return pool, nil
}

// Close отпускает текущий пул
func (m *ModelPool) Close() error {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	m.mu.Lock()
	old := m.current
	m.current = newPool(nil)
	m.status = entity.StatusIdle
	m.mu.Unlock()
	return old.Release()
}

func (m *ModelPool) loadOne(ctx context.Context, kind entity.ModelKind) (port.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch kind {
	case entity.KindClassifier:
		return m.loader.LoadClassifier(ctx)
	case entity.KindDetector:
		return m.loader.LoadDetector(ctx)
	case entity.KindPoseEstimator:
		return m.loader.LoadPoseEstimator(ctx)
	}
	return nil, fmt.Errorf("unsupported model kind %q", kind)
}

func (m *ModelPool) swap(next *Pool, status entity.LoadStatus) {
	m.mu.Lock()
	old := m.current
	m.current = next
	m.status = status
	m.mu.Unlock()

	if err := old.Release(); err != nil {
		m.log.Warn("release previous models", zap.Error(err))
	}
	m.notify(status)
}

func (m *ModelPool) setStatus(status entity.LoadStatus) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
	m.notify(status)
}

func (m *ModelPool) notify(status entity.LoadStatus) {
	m.listenersMu.RLock()
	defer m.listenersMu.RUnlock()
	for _, fn := range m.listeners {
		fn(status)
	}
}

func kindStrings(kinds []entity.ModelKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
