package features

// Extractor turns PCM chunks into feature frames for one model family
type Extractor interface {
	ProcessStreaming(chunk []byte) ([][]float32, error)
}

// MicroExtractor yields one 40-value log-mel frame every 10 ms
func MicroExtractor() (Extractor, error) {
	return NewMelFrontend(MicroConfig())
}

// WindowedExtractor stacks consecutive mel frames into fixed-size windows
type WindowedExtractor struct {
	mel    *MelFrontend
	frames int // frames per window
	step   int // new frames between windows
	ring   [][]float32
	fresh  int
}

// Open family defaults: 76 mel frames (760 ms) emitted every 8 frames (80 ms)
const (
	OpenWindowFrames = 76
	OpenWindowStep   = 8
)

// OpenExtractor yields flattened 76x32 mel windows every 80 ms
func OpenExtractor() (Extractor, error) {
	return NewWindowedExtractor(OpenConfig(), OpenWindowFrames, OpenWindowStep)
}

// NewWindowedExtractor creates an extractor emitting frames*NumMel values every step frames
func NewWindowedExtractor(cfg MelConfig, frames, step int) (*WindowedExtractor, error) {
	mel, err := NewMelFrontend(cfg)
	if err != nil {
		return nil, err
	}
	if frames <= 0 {
		frames = 1
	}
	if step <= 0 {
		step = 1
	}
	return &WindowedExtractor{mel: mel, frames: frames, step: step}, nil
}

func (w *WindowedExtractor) ProcessStreaming(chunk []byte) ([][]float32, error) {
	frames, err := w.mel.ProcessStreaming(chunk)
	if err != nil {
		return nil, err
	}

	var windows [][]float32
	for _, frame := range frames {
		w.ring = append(w.ring, frame)
		if len(w.ring) > w.frames {
			w.ring = w.ring[len(w.ring)-w.frames:]
		}
		w.fresh++

		if len(w.ring) == w.frames && w.fresh >= w.step {
			w.fresh = 0
			flat := make([]float32, 0, w.frames*w.mel.NumMel())
			for _, f := range w.ring {
				flat = append(flat, f...)
			}
			windows = append(windows, flat)
		}
	}
	return windows, nil
}
