package satellite

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"voice-satellite/api"
	"voice-satellite/log"
	"voice-satellite/metrics"
	"voice-satellite/model"

	"github.com/google/uuid"
)

const (
	readBufferSize = 4096
	writeQueueSize = 256
	taskQueueSize  = 64
	writeTimeout   = 10 * time.Second
)

// Handler receives the messages of a session after the handshake layer.
// All methods run on the session's control goroutine.
type Handler interface {
	// OnConnect runs after ConnectResponse; its messages are sent next
	OnConnect() []api.Message
	HandleMessage(msg api.Message) []api.Message
	ConnectionLost()
}

// Session owns one hub connection. A reader goroutine decodes frames, a
// writer goroutine owns the socket for writes and a control goroutine runs
// message handling and every posted task in order.
type Session struct {
	conn         net.Conn
	name         string
	maxFrameSize int
	handler      Handler
	State        model.ConnectionState

	writeChan chan []byte
	tasks     chan func()

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewSession wraps conn. name is reported in HelloResponse.
func NewSession(conn net.Conn, name string, maxFrameSize int) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		conn:         conn,
		name:         name,
		maxFrameSize: maxFrameSize,
		writeChan:    make(chan []byte, writeQueueSize),
		tasks:        make(chan func(), taskQueueSize),
		ctx:          ctx,
		cancel:       cancel,
	}
	s.State.SessionId = uuid.NewString()
	if addr := conn.RemoteAddr(); addr != nil {
		s.State.ClientIP = addr.String()
	}
	return s
}

// SetHandler installs the handler; call before Serve
func (s *Session) SetHandler(h Handler) { s.handler = h }

// ID returns the session id
func (s *Session) ID() string { return s.State.SessionId }

// Alive reports whether the connection is still open
func (s *Session) Alive() bool { return s.ctx.Err() == nil }

// Done is closed when the session ends
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Serve runs the session until the connection ends
func (s *Session) Serve() {
	metrics.ConnectionsTotal.Inc()
	metrics.ActiveConnections.Inc()
	log.Infof("session %s: connected from %s", s.ID(), s.State.ClientIP)

	defer func() {
		s.Close()
		s.State.Connected = false
		if s.handler != nil {
			s.handler.ConnectionLost()
		}
		metrics.ActiveConnections.Dec()
		log.Infof("session %s: closed", s.ID())
	}()

	go s.writeLoop()
	go s.readLoop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.tasks:
			fn()
		}
	}
}

// Post runs fn on the control goroutine. It reports false once the
// session has ended. It must not be called from the control goroutine.
func (s *Session) Post(fn func()) bool {
	select {
	case <-s.ctx.Done():
		return false
	case s.tasks <- fn:
		return true
	}
}

// Send encodes msgs into one write. Safe from any goroutine; messages sent
// after the session ends are dropped.
func (s *Session) Send(msgs ...api.Message) {
	if len(msgs) == 0 || !s.Alive() {
		return
	}
	data := api.Encode(msgs...)
	select {
	case <-s.ctx.Done():
	case s.writeChan <- data:
		metrics.FramesSent.Add(float64(len(msgs)))
	}
}

// Close tears the connection down
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.conn.Close()
	})
}

// closeAfterFlush closes the connection once everything queued before it is written
func (s *Session) closeAfterFlush() {
	select {
	case <-s.ctx.Done():
	case s.writeChan <- nil:
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case data := <-s.writeChan:
			if data == nil {
				s.Close()
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := s.conn.Write(data); err != nil {
				if s.Alive() {
					log.Errorf("session %s: write: %v", s.ID(), err)
				}
				s.Close()
				return
			}
		}
	}
}

func (s *Session) readLoop() {
	decoder := api.NewDecoder(s.maxFrameSize)
	defer func() {
		decoder.Reset()
		s.Close()
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			decoder.Write(buf[:n])
			if !s.drain(decoder) {
				return
			}
		}
		if err != nil {
			if s.Alive() && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Warnf("session %s: read: %v", s.ID(), err)
			}
			return
		}
	}
}

// drain dispatches every complete frame; false ends the session
func (s *Session) drain(decoder *api.Decoder) bool {
	for {
		msg, err := decoder.Next()
		if errors.Is(err, api.ErrNeedMoreData) {
			return true
		}
		if err != nil {
			metrics.ProtocolErrors.Inc()
			log.Errorf("session %s: %v, closing connection", s.ID(), err)
			return false
		}
		metrics.FramesReceived.WithLabelValues(strconv.FormatUint(uint64(msg.MessageType()), 10)).Inc()
		if !s.Post(func() { s.dispatch(msg) }) {
			return false
		}
	}
}

// dispatch handles the handshake messages itself and hands the rest to the handler
func (s *Session) dispatch(msg api.Message) {
	switch m := msg.(type) {
	case *api.HelloRequest:
		s.State.HelloReceived = true
		s.State.ClientInfo = m.ClientInfo
		log.Infof("session %s: hello from %q (api %d.%d)", s.ID(), m.ClientInfo, m.APIVersionMajor, m.APIVersionMinor)
		s.Send(&api.HelloResponse{
			APIVersionMajor: APIVersionMajor,
			APIVersionMinor: APIVersionMinor,
			ServerInfo:      "voice-satellite " + Version,
			Name:            s.name,
		})
	case *api.ConnectRequest:
		s.State.Connected = true
		s.Send(&api.ConnectResponse{})
		if s.handler != nil {
			s.Send(s.handler.OnConnect()...)
		}
	case *api.PingRequest:
		s.Send(&api.PingResponse{})
	case *api.DisconnectRequest:
		log.Infof("session %s: hub requested disconnect", s.ID())
		s.Send(&api.DisconnectResponse{})
		s.closeAfterFlush()
	case *api.Unknown:
		log.Debugf("session %s: ignoring message type %d", s.ID(), m.Type)
	default:
		if s.handler != nil {
			s.Send(s.handler.HandleMessage(msg)...)
		}
	}
}
