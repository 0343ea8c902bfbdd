package handle

import (
	"net"

	"voice-satellite/config"
	"voice-satellite/log"
	"voice-satellite/satellite"
)

// HandleConnection wraps an accepted hub connection in a session with its
// own orchestrator and serves it in a new goroutine
// Params:
//   - conn: accepted TCP connection
//   - state: shared satellite state
//   - cfg: satellite configuration
func HandleConnection(conn net.Conn, state *satellite.State, cfg *config.Config) *satellite.Session {
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
		tcp.SetKeepAlive(true)
	}

	log.Infof("new hub connection from %s", conn.RemoteAddr())

	session := satellite.NewSession(conn, state.Slug(), cfg.API.MaxFrameSize)
	satellite.New(state, session)

	go session.Serve()
	return session
}
