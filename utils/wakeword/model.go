package wakeword

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"voice-satellite/log"
	"voice-satellite/model"
)

// Kind is a wake word model family
type Kind string

const (
	// KindMicro models output a boolean per feature frame
	KindMicro Kind = "micro"
	// KindOpen models output a probability per feature window
	KindOpen Kind = "openWakeWord"
)

var (
	ErrModelNotFound    = errors.New("wakeword: model not found")
	ErrUnknownModelType = errors.New("wakeword: unknown model type")
)

// ModelInfo is everything known about a model before it is loaded
type ModelInfo struct {
	ID               string
	WakeWord         string
	Kind             Kind
	TrainedLanguages []string
	ConfigPath       string
	ModelPath        string

	// micro family only
	ProbabilityCutoff float64
	SlidingWindowSize int
}

// ReadModelInfo parses one model config file. The model id is the file name without extension.
func ReadModelInfo(configPath string) (ModelInfo, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("%w: %v", ErrModelNotFound, err)
	}

	var file model.WakeWordFile
	if err := json.Unmarshal(data, &file); err != nil {
		return ModelInfo{}, fmt.Errorf("parse %s: %w", configPath, err)
	}

	id := strings.TrimSuffix(filepath.Base(configPath), filepath.Ext(configPath))
	info := ModelInfo{
		ID:               id,
		WakeWord:         file.WakeWord,
		TrainedLanguages: file.TrainedLanguages,
		ConfigPath:       configPath,
	}

	switch Kind(file.Type) {
	case KindMicro:
		info.Kind = KindMicro
		info.ProbabilityCutoff = 0.5
		info.SlidingWindowSize = 5
		if file.Micro != nil {
			if file.Micro.ProbabilityCutoff > 0 {
				info.ProbabilityCutoff = file.Micro.ProbabilityCutoff
			}
			if file.Micro.SlidingWindowSize > 0 {
				info.SlidingWindowSize = file.Micro.SlidingWindowSize
			}
		}
	case KindOpen:
		info.Kind = KindOpen
	default:
		return ModelInfo{}, fmt.Errorf("%w %q in %s", ErrUnknownModelType, file.Type, configPath)
	}

	modelFile := file.Model
	if modelFile == "" {
		modelFile = id + ".tflite"
	}
	info.ModelPath = filepath.Join(filepath.Dir(configPath), modelFile)

	if info.WakeWord == "" {
		info.WakeWord = strings.ReplaceAll(id, "_", " ")
	}
	return info, nil
}

// ScanDirs finds every model config in dirs. When an id appears twice the
// first directory wins. Unreadable entries are logged and skipped.
func ScanDirs(dirs []string) map[string]ModelInfo {
	found := make(map[string]ModelInfo)
	for _, dir := range dirs {
		paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil || len(paths) == 0 {
			log.Warnf("no wake word models in %s", dir)
			continue
		}
		sort.Strings(paths)

		for _, path := range paths {
			info, err := ReadModelInfo(path)
			if err != nil {
				log.Warnf("skipping wake word config: %v", err)
				continue
			}
			if _, ok := found[info.ID]; ok {
				continue
			}
			found[info.ID] = info
			log.Debugf("found wake word %s (%s, %s)", info.ID, info.WakeWord, info.Kind)
		}
	}
	return found
}

// Model is a loaded wake word model
type Model struct {
	Info     ModelInfo
	detector Detector
	active   atomic.Bool
}

// NewModel wraps a detector for info. New models start inactive.
func NewModel(info ModelInfo, detector Detector) *Model {
	return &Model{Info: info, detector: detector}
}

func (m *Model) ID() string     { return m.Info.ID }
func (m *Model) Phrase() string { return m.Info.WakeWord }
func (m *Model) Kind() Kind     { return m.Info.Kind }

// IsActive reports whether detections of this model are forwarded
func (m *Model) IsActive() bool { return m.active.Load() }

// SetActive switches forwarding of detections on or off
func (m *Model) SetActive(active bool) { m.active.Store(active) }

// Feed runs one feature frame through the detector
func (m *Model) Feed(features []float32) (Activation, error) {
	return m.detector.Feed(features)
}

// Load creates the classifier for info through rt
func Load(info ModelInfo, rt Runtime) (*Model, error) {
	switch info.Kind {
	case KindMicro:
		c, err := rt.LoadMicro(info)
		if err != nil {
			return nil, fmt.Errorf("load micro model %s: %w", info.ID, err)
		}
		return NewModel(info, NewMicroDetector(c)), nil
	case KindOpen:
		c, err := rt.LoadOpen(info)
		if err != nil {
			return nil, fmt.Errorf("load openWakeWord model %s: %w", info.ID, err)
		}
		return NewModel(info, NewOpenDetector(c)), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownModelType, info.Kind)
	}
}
