package wakeword

import (
	"context"
	"fmt"
	"sync"
	"time"

	"voice-satellite/log"
	"voice-satellite/metrics"
	"voice-satellite/utils/features"
)

// Target receives the engine's output. Wakeup and Stop are called from the
// engine goroutine; implementations hand them to their own goroutine.
type Target interface {
	HandleAudio(chunk []byte)
	Wakeup(m *Model)
	Stop()
}

// EngineConfig configures an Engine
type EngineConfig struct {
	QueueSize  int
	Refractory time.Duration
	// StopModel is always fed; its detections are forwarded while it is active
	StopModel *Model
	// Target returns the current receiver, nil when no session is connected
	Target func() Target
	// Muted reports whether the satellite is muted
	Muted func() bool
	// NewExtractor creates the feature frontend for a model family
	NewExtractor func(Kind) (features.Extractor, error)
	Now          func() time.Time
}

// DefaultExtractor returns the standard frontend for kind
func DefaultExtractor(kind Kind) (features.Extractor, error) {
	switch kind {
	case KindMicro:
		return features.MicroExtractor()
	case KindOpen:
		return features.OpenExtractor()
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownModelType, kind)
	}
}

// Engine turns microphone chunks into wake and stop activations
type Engine struct {
	cfg   EngineConfig
	queue chan []byte
	done  chan struct{}
	once  sync.Once

	mu     sync.Mutex
	models []*Model

	// owned by the Run goroutine
	extractors map[Kind]features.Extractor
	lastWake   time.Time
	hasWake    bool
	errCount   int
}

// NewEngine creates an engine; call Run to start consuming
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Refractory <= 0 {
		cfg.Refractory = 2 * time.Second
	}
	if cfg.NewExtractor == nil {
		cfg.NewExtractor = DefaultExtractor
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Muted == nil {
		cfg.Muted = func() bool { return false }
	}
	if cfg.Target == nil {
		cfg.Target = func() Target { return nil }
	}
	return &Engine{
		cfg:        cfg,
		queue:      make(chan []byte, cfg.QueueSize),
		done:       make(chan struct{}),
		extractors: make(map[Kind]features.Extractor),
	}
}

// Push queues a chunk without blocking. It reports false when the chunk was dropped.
func (e *Engine) Push(chunk []byte) bool {
	select {
	case <-e.done:
		return false
	default:
	}
	select {
	case e.queue <- chunk:
		return true
	default:
		metrics.ChunksDropped.Inc()
		return false
	}
}

// Close stops the Run loop after the chunk in progress
func (e *Engine) Close() {
	e.once.Do(func() { close(e.done) })
}

// SetModels replaces the loaded wake models. Only active ones are fed; the
// change is picked up at the start of the next chunk.
func (e *Engine) SetModels(models []*Model) {
	snapshot := append([]*Model(nil), models...)
	e.mu.Lock()
	e.models = snapshot
	e.mu.Unlock()
}

// Models returns the loaded wake models
func (e *Engine) Models() []*Model {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.models
}

// StopModel returns the shared stop word model
func (e *Engine) StopModel() *Model {
	return e.cfg.StopModel
}

// Run consumes chunks until ctx ends, Close is called or a nil chunk arrives
func (e *Engine) Run(ctx context.Context) {
	log.Infof("wake word engine started")
	defer log.Infof("wake word engine stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case chunk := <-e.queue:
			if chunk == nil {
				return
			}
			e.safeProcess(chunk)
		}
	}
}

// safeProcess is the per-chunk error boundary: failures and panics are
// logged and the loop moves on.
func (e *Engine) safeProcess(chunk []byte) {
	defer func() {
		if r := recover(); r != nil {
			e.chunkFailed(fmt.Errorf("panic: %v", r))
		}
	}()

	if err := e.processChunk(chunk); err != nil {
		e.chunkFailed(err)
		return
	}
	if e.errCount > 0 {
		log.Infof("audio processing recovered after %d failed chunks", e.errCount)
		e.errCount = 0
	}
}

func (e *Engine) chunkFailed(err error) {
	metrics.ChunkErrors.Inc()
	e.errCount++
	if e.errCount == 1 || e.errCount%500 == 0 {
		log.Errorf("audio chunk processing failed (%d in a row): %v", e.errCount, err)
	}
}

func (e *Engine) processChunk(chunk []byte) error {
	e.mu.Lock()
	loaded := e.models
	e.mu.Unlock()

	var active []*Model
	for _, m := range loaded {
		if m.IsActive() {
			active = append(active, m)
		}
	}

	target := e.cfg.Target()
	if target != nil {
		target.HandleAudio(chunk)
	}

	// features are computed once per family per chunk
	frames := make(map[Kind][][]float32)
	framesFor := func(kind Kind) ([][]float32, error) {
		if f, ok := frames[kind]; ok {
			return f, nil
		}
		ext, ok := e.extractors[kind]
		if !ok {
			var err error
			if ext, err = e.cfg.NewExtractor(kind); err != nil {
				return nil, fmt.Errorf("create %s features: %w", kind, err)
			}
			e.extractors[kind] = ext
		}
		f, err := ext.ProcessStreaming(chunk)
		if err != nil {
			return nil, fmt.Errorf("%s features: %w", kind, err)
		}
		frames[kind] = f
		return f, nil
	}

	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, m := range active {
		f, err := framesFor(m.Kind())
		if err != nil {
			keep(err)
			continue
		}
		for _, frame := range f {
			act, err := m.Feed(frame)
			if err != nil {
				keep(fmt.Errorf("model %s: %w", m.ID(), err))
				break
			}
			if act.Fired && e.gateWake(m, target) {
				log.Infof("wake word detected: %s (%.2f)", m.Phrase(), act.Probability)
				metrics.WakeActivations.WithLabelValues(m.ID()).Inc()
				target.Wakeup(m)
			}
		}
	}

	if stop := e.cfg.StopModel; stop != nil {
		f, err := framesFor(stop.Kind())
		if err != nil {
			keep(err)
		} else {
			stopped := false
			for _, frame := range f {
				act, err := stop.Feed(frame)
				if err != nil {
					keep(fmt.Errorf("stop model: %w", err))
					break
				}
				stopped = stopped || act.Fired
			}
			if stopped && stop.IsActive() && target != nil && !e.cfg.Muted() {
				log.Infof("stop word detected")
				metrics.StopActivations.Inc()
				target.Stop()
			}
		}
	}

	return firstErr
}

// gateWake applies mute and refractory gating. The refractory clock is
// shared by all wake models.
func (e *Engine) gateWake(m *Model, target Target) bool {
	if target == nil {
		return false
	}
	if e.cfg.Muted() {
		metrics.SuppressedActivations.WithLabelValues("muted").Inc()
		return false
	}
	now := e.cfg.Now()
	if e.hasWake && now.Sub(e.lastWake) <= e.cfg.Refractory {
		metrics.SuppressedActivations.WithLabelValues("refractory").Inc()
		log.Debugf("wake word %s inside refractory period", m.ID())
		return false
	}
	e.lastWake = now
	e.hasWake = true
	return true
}
