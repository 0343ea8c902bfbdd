package satellite

import (
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"voice-satellite/api"
	"voice-satellite/utils/wakeword"
)

type fakePlayer struct {
	mu      sync.Mutex
	plays   [][]string
	done    func()
	playing bool
	stops   int
	ducked  bool
	paused  bool
	volume  int
}

func (p *fakePlayer) Play(urls []string, done func()) {
	p.mu.Lock()
	prev := p.done
	p.plays = append(p.plays, urls)
	p.done = done
	p.playing = true
	p.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// finish completes the current playback as if it ran to the end
func (p *fakePlayer) finish() {
	p.mu.Lock()
	done := p.done
	p.done = nil
	p.playing = false
	p.mu.Unlock()
	if done != nil {
		done()
	}
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	p.stops++
	p.mu.Unlock()
	p.finish()
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

func (p *fakePlayer) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
}

func (p *fakePlayer) SetVolume(v int) {
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
}

func (p *fakePlayer) Duck() {
	p.mu.Lock()
	p.ducked = true
	p.mu.Unlock()
}

func (p *fakePlayer) Unduck() {
	p.mu.Lock()
	p.ducked = false
	p.mu.Unlock()
}

func (p *fakePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) playCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.plays)
}

func (p *fakePlayer) lastPlay() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.plays) == 0 {
		return nil
	}
	return p.plays[len(p.plays)-1]
}

func (p *fakePlayer) isDucked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ducked
}

func (p *fakePlayer) stopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

type nopDetector struct{}

func (nopDetector) Feed([]float32) (wakeword.Activation, error) { return wakeword.Activation{}, nil }

type fixture struct {
	state     *State
	engine    *wakeword.Engine
	stopModel *wakeword.Model
	okayNabu  *wakeword.Model
	tts       *fakePlayer
	music     *fakePlayer
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		tts:       &fakePlayer{},
		music:     &fakePlayer{},
		stopModel: wakeword.NewModel(wakeword.ModelInfo{ID: "stop", WakeWord: "Stop", Kind: wakeword.KindMicro}, nopDetector{}),
		okayNabu:  wakeword.NewModel(wakeword.ModelInfo{ID: "okay_nabu", WakeWord: "Okay Nabu", Kind: wakeword.KindMicro}, nopDetector{}),
	}
	f.okayNabu.SetActive(true)
	f.engine = wakeword.NewEngine(wakeword.EngineConfig{StopModel: f.stopModel})

	opts := Options{
		Name:           "Kitchen Satellite",
		MAC:            "00:11:22:a1:b2:c3",
		Sounds:         Sounds{Wakeup: "wake.flac", TimerFinished: "timer.flac", Processing: "thinking.flac"},
		TimerRepeatGap: 10 * time.Millisecond,
		Engine:         f.engine,
		Music:          f.music,
		TTS:            f.tts,
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.state = NewState(opts)
	f.state.AddLoaded(f.okayNabu)
	return f
}

// hub is the test side of a connection
type hub struct {
	t    *testing.T
	conn net.Conn
	sat  *Satellite
	msgs chan api.Message
	eof  chan struct{}
}

func (f *fixture) dial(t *testing.T) *hub {
	t.Helper()
	client, server := net.Pipe()
	session := NewSession(server, f.state.Slug(), 1<<20)
	sat := New(f.state, session)
	go session.Serve()

	h := &hub{t: t, conn: client, sat: sat, msgs: make(chan api.Message, 256), eof: make(chan struct{})}
	go h.readLoop()
	t.Cleanup(func() { client.Close() })
	return h
}

func (h *hub) readLoop() {
	defer close(h.eof)
	dec := api.NewDecoder(1 << 20)
	buf := make([]byte, 4096)
	for {
		n, err := h.conn.Read(buf)
		if n > 0 {
			dec.Write(buf[:n])
			for {
				msg, err := dec.Next()
				if err != nil {
					break
				}
				h.msgs <- msg
			}
		}
		if err != nil {
			return
		}
	}
}

func (h *hub) send(msgs ...api.Message) {
	h.t.Helper()
	if _, err := h.conn.Write(api.Encode(msgs...)); err != nil {
		h.t.Fatalf("write: %v", err)
	}
}

func (h *hub) next() api.Message {
	h.t.Helper()
	select {
	case msg := <-h.msgs:
		return msg
	case <-time.After(3 * time.Second):
		h.t.Fatal("timed out waiting for a message")
		return nil
	}
}

// handshake performs hello and connect and drains the initial states
func (h *hub) handshake() {
	h.t.Helper()
	h.send(&api.HelloRequest{ClientInfo: "test hub", APIVersionMajor: 1, APIVersionMinor: 10}, &api.ConnectRequest{})
	if _, ok := h.next().(*api.HelloResponse); !ok {
		h.t.Fatal("expected HelloResponse")
	}
	if _, ok := h.next().(*api.ConnectResponse); !ok {
		h.t.Fatal("expected ConnectResponse")
	}
	h.sync()
}

// sync waits until everything sent so far was handled, returning what was
// produced on the way.
func (h *hub) sync() []api.Message {
	h.t.Helper()
	h.send(&api.PingRequest{})
	var out []api.Message
	for {
		msg := h.next()
		if _, ok := msg.(*api.PingResponse); ok {
			return out
		}
		out = append(out, msg)
	}
}

// expectNothing asserts that nothing but the ping answer arrives
func (h *hub) expectNothing() {
	h.t.Helper()
	if got := h.sync(); len(got) != 0 {
		h.t.Fatalf("unexpected messages: %#v", got)
	}
}

func (h *hub) event(kind api.VoiceAssistantEvent, data ...string) {
	h.t.Helper()
	msg := &api.VoiceAssistantEventResponse{EventType: kind}
	for i := 0; i+1 < len(data); i += 2 {
		msg.Data = append(msg.Data, api.EventData{Name: data[i], Value: data[i+1]})
	}
	h.send(msg)
}

func (h *hub) waitClosed() {
	h.t.Helper()
	select {
	case <-h.eof:
	case <-time.After(3 * time.Second):
		h.t.Fatal("connection was not closed")
	}
}

func (h *hub) closed() bool {
	select {
	case <-h.eof:
		return true
	default:
		return false
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe)
}
