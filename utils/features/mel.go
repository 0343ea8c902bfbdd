// Package features turns 16 kHz 16-bit PCM into log-mel feature frames for
// the wake word classifiers.
package features

import (
	"encoding/binary"
	"errors"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

const SampleRate = 16000

// MelConfig describes one streaming log-mel frontend
type MelConfig struct {
	WindowSize int     // samples per analysis window
	HopSize    int     // samples between windows
	FFTSize    int     // FFT length, >= WindowSize
	NumMel     int     // mel channels per frame
	LowHz      float64 // lowest filter edge
	HighHz     float64 // highest filter edge
}

// MicroConfig is the frontend of the micro model family: 30 ms windows every 10 ms, 40 channels
func MicroConfig() MelConfig {
	return MelConfig{WindowSize: 480, HopSize: 160, FFTSize: 512, NumMel: 40, LowHz: 125, HighHz: 7500}
}

// OpenConfig is the frontend of the open model family: 25 ms windows every 10 ms, 32 channels
func OpenConfig() MelConfig {
	return MelConfig{WindowSize: 400, HopSize: 160, FFTSize: 512, NumMel: 32, LowHz: 60, HighHz: 3800}
}

// MelFrontend computes log-mel frames from a PCM stream. Samples that do not
// fill a window yet are kept for the next call.
type MelFrontend struct {
	cfg     MelConfig
	fft     *fourier.FFT
	window  []float64
	filters [][]float64
	pending []float64
	frame   []float64
	coeffs  []complex128
}

// NewMelFrontend validates cfg and precomputes the window and filterbank
func NewMelFrontend(cfg MelConfig) (*MelFrontend, error) {
	if cfg.WindowSize <= 0 || cfg.HopSize <= 0 || cfg.NumMel <= 0 {
		return nil, errors.New("features: window, hop and mel sizes must be positive")
	}
	if cfg.FFTSize < cfg.WindowSize {
		return nil, errors.New("features: FFT size smaller than window")
	}
	if cfg.HighHz <= cfg.LowHz || cfg.HighHz > SampleRate/2 {
		return nil, errors.New("features: invalid filter frequency range")
	}

	window := make([]float64, cfg.WindowSize)
	for i := range window {
		window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(cfg.WindowSize))
	}

	return &MelFrontend{
		cfg:     cfg,
		fft:     fourier.NewFFT(cfg.FFTSize),
		window:  window,
		filters: melFilterbank(cfg),
		frame:   make([]float64, cfg.FFTSize),
	}, nil
}

// NumMel returns the number of values in every frame
func (m *MelFrontend) NumMel() int {
	return m.cfg.NumMel
}

// ProcessStreaming consumes little-endian int16 PCM and returns every frame completed by it
func (m *MelFrontend) ProcessStreaming(chunk []byte) ([][]float32, error) {
	if len(chunk)%2 != 0 {
		return nil, errors.New("features: odd PCM byte count")
	}
	for i := 0; i+1 < len(chunk); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(chunk[i:]))
		m.pending = append(m.pending, float64(sample)/32768.0)
	}

	var frames [][]float32
	for len(m.pending) >= m.cfg.WindowSize {
		frames = append(frames, m.compute(m.pending[:m.cfg.WindowSize]))
		m.pending = m.pending[m.cfg.HopSize:]
	}

	// keep the backing array from growing without bound
	if cap(m.pending) > 4*m.cfg.WindowSize {
		m.pending = append([]float64(nil), m.pending...)
	}
	return frames, nil
}

// Reset drops buffered samples
func (m *MelFrontend) Reset() {
	m.pending = nil
}

func (m *MelFrontend) compute(samples []float64) []float32 {
	for i := range m.frame {
		m.frame[i] = 0
	}
	for i, s := range samples {
		m.frame[i] = s * m.window[i]
	}
	m.coeffs = m.fft.Coefficients(m.coeffs, m.frame)

	out := make([]float32, m.cfg.NumMel)
	for ch, filter := range m.filters {
		var energy float64
		for bin, weight := range filter {
			if weight == 0 {
				continue
			}
			c := m.coeffs[bin]
			energy += weight * (real(c)*real(c) + imag(c)*imag(c))
		}
		out[ch] = float32(math.Log(energy + 1e-6))
	}
	return out
}

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterbank builds triangular filters over the FFT bins
func melFilterbank(cfg MelConfig) [][]float64 {
	bins := cfg.FFTSize/2 + 1
	lowMel, highMel := hzToMel(cfg.LowHz), hzToMel(cfg.HighHz)

	centers := make([]float64, cfg.NumMel+2)
	for i := range centers {
		mel := lowMel + (highMel-lowMel)*float64(i)/float64(cfg.NumMel+1)
		centers[i] = melToHz(mel) * float64(cfg.FFTSize) / SampleRate
	}

	filters := make([][]float64, cfg.NumMel)
	for ch := range filters {
		left, center, right := centers[ch], centers[ch+1], centers[ch+2]
		filter := make([]float64, bins)
		for bin := range filter {
			f := float64(bin)
			switch {
			case f > left && f <= center:
				filter[bin] = (f - left) / (center - left)
			case f > center && f < right:
				filter[bin] = (right - f) / (right - center)
			}
		}
		filters[ch] = filter
	}
	return filters
}
