package wakeword

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// HTTPRuntime scores feature frames on an inference service.
//
// Request:  POST {base}/infer {"model": "<model path>", "kind": "micro", "features": [...]}
// Response: {"status": "success", "probabilities": [...]} or {"status": "error", "detail": "..."}
type HTTPRuntime struct {
	baseURL string
	client  *http.Client
}

// InferRequest is the body of POST /infer
type InferRequest struct {
	Model    string    `json:"model"`
	Kind     string    `json:"kind"`
	Features []float32 `json:"features"`
}

// InferResponse is the reply of POST /infer
type InferResponse struct {
	Status        string    `json:"status"`
	Probabilities []float32 `json:"probabilities"`
	Error         string    `json:"detail,omitempty"`
}

// NewHTTPRuntime creates a runtime talking to baseURL
func NewHTTPRuntime(baseURL string, timeout time.Duration) *HTTPRuntime {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPRuntime{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Health checks GET {base}/health
func (r *HTTPRuntime) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service health: %s", resp.Status)
	}
	return nil
}

func (r *HTTPRuntime) LoadMicro(info ModelInfo) (MicroClassifier, error) {
	if _, err := os.Stat(info.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelNotFound, err)
	}
	window := info.SlidingWindowSize
	if window <= 0 {
		window = 1
	}
	return &httpMicro{runtime: r, info: info, window: window}, nil
}

func (r *HTTPRuntime) LoadOpen(info ModelInfo) (OpenClassifier, error) {
	if _, err := os.Stat(info.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelNotFound, err)
	}
	return &httpOpen{runtime: r, info: info}, nil
}

// infer posts one feature frame and returns the probabilities
func (r *HTTPRuntime) infer(info ModelInfo, features []float32) ([]float32, error) {
	reqBody, err := json.Marshal(InferRequest{
		Model:    info.ModelPath,
		Kind:     string(info.Kind),
		Features: features,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, r.baseURL+"/infer", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference service: %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	var inferResp InferResponse
	if err := json.Unmarshal(respBody, &inferResp); err != nil {
		return nil, err
	}
	if inferResp.Status != "success" {
		return nil, fmt.Errorf("inference failed: %s", inferResp.Error)
	}
	return inferResp.Probabilities, nil
}

// httpMicro fires when the mean of the last window probabilities reaches the cutoff
type httpMicro struct {
	runtime *HTTPRuntime
	info    ModelInfo
	window  int
	recent  []float32
}

func (c *httpMicro) ProcessStreaming(features []float32) (bool, error) {
	probs, err := c.runtime.infer(c.info, features)
	if err != nil {
		return false, err
	}

	for _, p := range probs {
		c.recent = append(c.recent, p)
		if len(c.recent) > c.window {
			c.recent = c.recent[1:]
		}
	}
	if len(c.recent) < c.window {
		return false, nil
	}

	var sum float64
	for _, p := range c.recent {
		sum += float64(p)
	}
	if sum/float64(len(c.recent)) >= c.info.ProbabilityCutoff {
		// start over so one utterance fires once
		c.recent = c.recent[:0]
		return true, nil
	}
	return false, nil
}

type httpOpen struct {
	runtime *HTTPRuntime
	info    ModelInfo
}

func (c *httpOpen) ProcessStreaming(features []float32) ([]float32, error) {
	return c.runtime.infer(c.info, features)
}
