package server

import (
	"context"
	"fmt"
	"time"

	"voice-satellite/log"
	"voice-satellite/utils/wakeword"
)

// WaitForInference blocks until the classifier service answers its health check
// Params:
//   - ctx: cancels the wait
//   - rt: runtime pointing at the service
//   - attempts: number of checks, one per interval
//   - interval: pause between checks
//
// Returns:
//   - error: if the service never became ready
func WaitForInference(ctx context.Context, rt *wakeword.HTTPRuntime, attempts int, interval time.Duration) error {
	log.Infof("waiting for the wake word inference service...")
	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = rt.Health(ctx); lastErr == nil {
			log.Infof("wake word inference service is ready")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("inference service not available after %d attempts: %w", attempts, lastErr)
}
