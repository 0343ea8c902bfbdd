package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"voice-satellite/config"
	"voice-satellite/handle"
	"voice-satellite/log"
	"voice-satellite/satellite"
	"voice-satellite/utils"
)

// StartAPIServer listens for hub connections and serves them until ctx ends
// Params:
//   - ctx: cancelling it closes the listener
//   - cfg: satellite configuration with the API host and port
//   - state: shared satellite state
//
// Returns:
//   - error: if the listener cannot be opened or accepting fails
func StartAPIServer(ctx context.Context, cfg *config.Config, state *satellite.State) error {
	localIP := utils.GetLocalIP()

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	log.Infof("API server listening on %s (local IP: %s)", addr, localIP)
	return Serve(ctx, ln, cfg, state)
}

// Serve accepts connections from ln until ctx ends
func Serve(ctx context.Context, ln net.Listener, cfg *config.Config, state *satellite.State) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				log.Warnf("accept: %v", err)
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		handle.HandleConnection(conn, state, cfg)
	}
}
