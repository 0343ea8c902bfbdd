package audio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"voice-satellite/log"

	"github.com/gorilla/websocket"
	"gopkg.in/hraban/opus.v2"
)

// upgrader accepts remote microphones from any origin on the local network
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketSource accepts a remote microphone streaming binary websocket
// messages, either raw PCM or one opus packet per message.
type WebSocketSource struct {
	listen    string
	path      string
	format    string
	chunkSize int

	mu     sync.Mutex
	server *http.Server
}

// NewWebSocketSource creates a source listening on listen at path. format is "pcm" or "opus".
func NewWebSocketSource(listen, path, format string, blockSize int) *WebSocketSource {
	if blockSize <= 0 {
		blockSize = 1024
	}
	if path == "" {
		path = "/audio"
	}
	return &WebSocketSource{
		listen:    listen,
		path:      path,
		format:    format,
		chunkSize: blockSize * SampleWidth,
	}
}

func (s *WebSocketSource) Name() string { return "websocket:" + s.listen + s.path }

// Start serves the websocket endpoint in the background
func (s *WebSocketSource) Start(ctx context.Context, push func(chunk []byte)) error {
	if s.format != "pcm" && s.format != "opus" {
		return fmt.Errorf("unsupported websocket audio format %q", s.format)
	}

	mux := http.NewServeMux()
	mux.Handle(s.path, s.Handler(push))
	server := &http.Server{Addr: s.listen, Handler: mux}

	s.mu.Lock()
	s.server = server
	s.mu.Unlock()

	go func() {
		log.Infof("remote microphone listening on %s%s (%s)", s.listen, s.path, s.format)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("remote microphone server: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		s.Close()
	}()
	return nil
}

// Close shuts the HTTP server down
func (s *WebSocketSource) Close() error {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// Handler upgrades requests and streams their audio into push
func (s *WebSocketSource) Handler(push func(chunk []byte)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Errorf("remote microphone upgrade: %v", err)
			return
		}
		defer conn.Close()
		log.Infof("remote microphone connected from %s", r.RemoteAddr)

		if err := s.stream(conn, push); err != nil {
			log.Warnf("remote microphone %s: %v", r.RemoteAddr, err)
		}
		log.Infof("remote microphone %s disconnected", r.RemoteAddr)
	})
}

func (s *WebSocketSource) stream(conn *websocket.Conn, push func(chunk []byte)) error {
	chunker := NewChunker(s.chunkSize)

	var decoder *opus.Decoder
	var pcm []int16
	if s.format == "opus" {
		var err error
		if decoder, err = opus.NewDecoder(SampleRate, Channels); err != nil {
			return fmt.Errorf("create opus decoder: %w", err)
		}
		// 120 ms, the longest opus frame
		pcm = make([]int16, SampleRate*120/1000)
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if messageType != websocket.BinaryMessage {
			log.Debugf("remote microphone: ignoring message type %d", messageType)
			continue
		}

		if decoder != nil {
			n, err := decoder.Decode(data, pcm)
			if err != nil {
				log.Warnf("remote microphone: opus decode: %v", err)
				continue
			}
			data = int16ToBytes(pcm[:n])
		}
		chunker.Write(data, push)
	}
}

// int16ToBytes converts samples to little-endian bytes
func int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(uint16(s) >> 8)
	}
	return out
}
