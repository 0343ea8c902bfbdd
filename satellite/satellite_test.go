package satellite

import (
	"context"
	"testing"
	"time"

	"voice-satellite/api"
	"voice-satellite/utils/features"
	"voice-satellite/utils/wakeword"
)

func TestWakeStartsPipeline(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()

	h.sat.Wakeup(f.okayNabu)
	msg, ok := h.next().(*api.VoiceAssistantRequest)
	if !ok || !msg.Start || msg.WakeWordPhrase != "Okay Nabu" {
		t.Fatalf("expected pipeline start, got %#v", msg)
	}
	h.sync()

	if got := f.tts.lastPlay(); len(got) != 1 || got[0] != "wake.flac" {
		t.Fatalf("wake cue = %v", got)
	}
	if !f.music.isDucked() {
		t.Fatal("music not ducked")
	}
	if !f.stopModel.IsActive() {
		t.Fatal("stop word inactive during the pipeline")
	}

	h.sat.HandleAudio([]byte{1, 2, 3, 4})
	audio, ok := h.next().(*api.VoiceAssistantAudio)
	if !ok || len(audio.Data) != 4 {
		t.Fatalf("expected audio, got %#v", audio)
	}

	h.event(api.EventSTTEnd)
	h.sync()
	h.sat.HandleAudio([]byte{1, 2, 3, 4})
	h.expectNothing()
}

func TestWakeIgnoredWhilePipelineActive(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()

	h.sat.Wakeup(f.okayNabu)
	if _, ok := h.next().(*api.VoiceAssistantRequest); !ok {
		t.Fatal("expected pipeline start")
	}
	h.sat.Wakeup(f.okayNabu)
	h.expectNothing()
	if n := f.tts.playCount(); n != 1 {
		t.Fatalf("wake cue played %d times", n)
	}
}

func TestWakeIgnoredWhileMuted(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()

	h.send(&api.SwitchCommandRequest{Key: 1, State: true})
	state, ok := h.next().(*api.SwitchStateResponse)
	if !ok || state.Key != 1 || !state.State {
		t.Fatalf("expected mute switch state, got %#v", state)
	}

	h.sat.Wakeup(f.okayNabu)
	h.expectNothing()
	if f.tts.playCount() != 0 {
		t.Fatal("cue played while muted")
	}
}

func TestMuteStopsStreaming(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()

	h.sat.Wakeup(f.okayNabu)
	h.next()
	h.send(&api.SwitchCommandRequest{Key: 1, State: true})
	h.sync()

	if f.stopModel.IsActive() {
		t.Fatal("stop word active after mute")
	}
	h.sat.HandleAudio(make([]byte, 2048))
	h.expectNothing()
}

func TestTTSWithoutContinuation(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()

	h.sat.Wakeup(f.okayNabu)
	h.next()
	h.event(api.EventRunStart)
	h.event(api.EventSTTEnd)
	h.event(api.EventIntentEnd, "continue_conversation", "0")
	h.event(api.EventTTSEnd, "url", "http://hub/tts.mp3")
	h.event(api.EventRunEnd)
	h.expectNothing()

	if got := f.tts.lastPlay(); len(got) != 1 || got[0] != "http://hub/tts.mp3" {
		t.Fatalf("tts play = %v", got)
	}
	if !f.stopModel.IsActive() {
		t.Fatal("stop word inactive during TTS")
	}

	f.tts.finish()
	if _, ok := h.next().(*api.VoiceAssistantAnnounceFinished); !ok {
		t.Fatal("expected AnnounceFinished")
	}
	h.sync()
	if f.stopModel.IsActive() {
		t.Fatal("stop word still active after TTS finished")
	}
	if f.music.isDucked() {
		t.Fatal("music still ducked")
	}

	// idle again: the next wake starts a new run
	h.sat.Wakeup(f.okayNabu)
	if _, ok := h.next().(*api.VoiceAssistantRequest); !ok {
		t.Fatal("expected a new pipeline")
	}
}

func TestStreamedTTSPlaysOnce(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()

	h.sat.Wakeup(f.okayNabu)
	h.next()
	h.event(api.EventRunStart, "url", "http://hub/stream.flac")
	h.event(api.EventIntentProgress, "tts_start_streaming", "1")
	h.event(api.EventTTSEnd)
	h.sync()

	plays := 0
	f.tts.mu.Lock()
	for _, urls := range f.tts.plays {
		if urls[0] == "http://hub/stream.flac" {
			plays++
		}
	}
	f.tts.mu.Unlock()
	if plays != 1 {
		t.Fatalf("streamed response played %d times", plays)
	}
}

func TestContinueConversation(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()

	h.sat.Wakeup(f.okayNabu)
	h.next()
	h.event(api.EventRunStart)
	h.event(api.EventIntentEnd, "continue_conversation", "1")
	h.event(api.EventTTSEnd, "url", "http://hub/question.mp3")
	h.event(api.EventRunEnd)
	h.sync()

	f.tts.finish()
	if _, ok := h.next().(*api.VoiceAssistantAnnounceFinished); !ok {
		t.Fatal("expected AnnounceFinished")
	}
	req, ok := h.next().(*api.VoiceAssistantRequest)
	if !ok || !req.Start || req.WakeWordPhrase != "" {
		t.Fatalf("expected follow-up pipeline, got %#v", req)
	}
	h.sync()
	if !f.stopModel.IsActive() {
		t.Fatal("stop word inactive during follow-up")
	}
	h.sat.HandleAudio([]byte{9, 9})
	if _, ok := h.next().(*api.VoiceAssistantAudio); !ok {
		t.Fatal("microphone not reopened")
	}
}

func TestRunEndWithoutTTS(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()

	h.sat.Wakeup(f.okayNabu)
	h.next()
	h.event(api.EventRunStart)
	h.event(api.EventError, "code", "stt-no-text-recognized", "message", "no text")
	h.event(api.EventRunEnd)
	if _, ok := h.next().(*api.VoiceAssistantAnnounceFinished); !ok {
		t.Fatal("expected AnnounceFinished")
	}
	h.sync()
	if f.stopModel.IsActive() {
		t.Fatal("stop word active after run end")
	}
}

func TestPipelineRefusedByHub(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()

	h.sat.Wakeup(f.okayNabu)
	h.next()
	h.send(&api.VoiceAssistantResponse{Error: true})
	if _, ok := h.next().(*api.VoiceAssistantAnnounceFinished); !ok {
		t.Fatal("expected AnnounceFinished")
	}
	h.sync()

	h.sat.HandleAudio([]byte{1, 2, 3, 4})
	h.expectNothing()
	if f.stopModel.IsActive() {
		t.Fatal("stop word active after the pipeline was refused")
	}
	if f.music.isDucked() {
		t.Fatal("music still ducked")
	}
}

// withoutMediaStates drops media player state pushes
func withoutMediaStates(msgs []api.Message) []api.Message {
	var out []api.Message
	for _, msg := range msgs {
		if _, ok := msg.(*api.MediaPlayerStateResponse); !ok {
			out = append(out, msg)
		}
	}
	return out
}

func TestWakeCutsAnnouncement(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()

	h.send(&api.VoiceAssistantAnnounceRequest{MediaID: "http://hub/announce.mp3", StartConversation: true})
	h.sync()

	h.sat.Wakeup(f.okayNabu)
	got := withoutMediaStates(h.sync())
	if len(got) != 2 {
		t.Fatalf("expected AnnounceFinished and one pipeline start, got %#v", got)
	}
	if _, ok := got[0].(*api.VoiceAssistantAnnounceFinished); !ok {
		t.Fatalf("expected AnnounceFinished, got %#v", got[0])
	}
	req, ok := got[1].(*api.VoiceAssistantRequest)
	if !ok || !req.Start || req.WakeWordPhrase != "Okay Nabu" {
		t.Fatalf("expected wake pipeline, got %#v", got[1])
	}
	if got := f.tts.lastPlay(); got[0] != "wake.flac" {
		t.Fatalf("wake cue = %v", got)
	}
	if !f.stopModel.IsActive() {
		t.Fatal("stop word inactive during the new pipeline")
	}
	if !f.music.isDucked() {
		t.Fatal("music not ducked during the new pipeline")
	}

	h.sat.HandleAudio([]byte{7, 7})
	if _, ok := h.next().(*api.VoiceAssistantAudio); !ok {
		t.Fatal("microphone not streaming")
	}
	h.expectNothing()
}

func TestTimerDuringResponse(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()

	h.sat.Wakeup(f.okayNabu)
	h.next()
	h.event(api.EventRunStart)
	h.event(api.EventTTSEnd, "url", "http://hub/tts.mp3")
	h.sync()

	h.send(&api.VoiceAssistantTimerEventResponse{EventType: api.TimerFinished, TimerID: "t1", Name: "tea"})
	got := h.sync()
	if len(got) != 1 {
		t.Fatalf("expected a single AnnounceFinished, got %#v", got)
	}
	if _, ok := got[0].(*api.VoiceAssistantAnnounceFinished); !ok {
		t.Fatalf("expected AnnounceFinished, got %#v", got[0])
	}
	if got := f.tts.lastPlay(); got[0] != "timer.flac" {
		t.Fatalf("timer chime = %v", got)
	}
	if !f.stopModel.IsActive() {
		t.Fatal("stop word inactive while the timer rings")
	}

	// a late run end must not touch the ringing timer
	h.event(api.EventRunEnd)
	h.expectNothing()
	if !f.stopModel.IsActive() {
		t.Fatal("run end deactivated the stop word")
	}

	h.sat.Stop()
	h.expectNothing()
	if f.stopModel.IsActive() {
		t.Fatal("stop word active after the timer was stopped")
	}
}

func TestThinkingSound(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()

	h.sat.Wakeup(f.okayNabu)
	h.next()
	h.event(api.EventIntentStart)
	h.sync()
	if got := f.tts.lastPlay(); got[0] != "wake.flac" {
		t.Fatalf("processing cue played while disabled: %v", got)
	}

	h.send(&api.SwitchCommandRequest{Key: 2, State: true})
	h.sync()
	h.event(api.EventIntentStart)
	h.sync()
	if got := f.tts.lastPlay(); got[0] != "thinking.flac" {
		t.Fatalf("processing cue = %v", got)
	}
}

func TestStopWordInterruptsTTS(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()

	h.sat.Wakeup(f.okayNabu)
	h.next()
	h.event(api.EventIntentEnd, "continue_conversation", "1")
	h.event(api.EventTTSEnd, "url", "http://hub/long.mp3")
	h.sync()

	h.sat.Stop()
	got := h.sync()
	if len(got) != 1 {
		t.Fatalf("expected a single AnnounceFinished, got %#v", got)
	}
	if _, ok := got[0].(*api.VoiceAssistantAnnounceFinished); !ok {
		t.Fatalf("expected AnnounceFinished, got %#v", got[0])
	}
	if f.tts.stopCount() == 0 {
		t.Fatal("tts not stopped")
	}
	if f.stopModel.IsActive() {
		t.Fatal("stop word active after stop")
	}
}

func TestTimerInterruptedByWake(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()

	h.send(&api.VoiceAssistantTimerEventResponse{EventType: api.TimerFinished, TimerID: "t1", Name: "pasta"})
	h.sync()
	if got := f.tts.lastPlay(); len(got) != 1 || got[0] != "timer.flac" {
		t.Fatalf("timer chime = %v", got)
	}
	if !f.stopModel.IsActive() {
		t.Fatal("stop word inactive while ringing")
	}

	// the chime repeats after the gap
	f.tts.finish()
	eventually(t, "second chime", func() bool { return f.tts.playCount() == 2 })

	h.sat.Wakeup(f.okayNabu)
	h.expectNothing()
	if f.stopModel.IsActive() {
		t.Fatal("stop word active after the timer was stopped")
	}
	if f.music.isDucked() {
		t.Fatal("music still ducked")
	}

	time.Sleep(50 * time.Millisecond)
	if n := f.tts.playCount(); n != 2 {
		t.Fatalf("chime kept ringing: %d plays", n)
	}

	// the next wake starts a pipeline normally
	h.sat.Wakeup(f.okayNabu)
	if _, ok := h.next().(*api.VoiceAssistantRequest); !ok {
		t.Fatal("expected pipeline start")
	}
}

func TestAnnounce(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()

	f.music.Play([]string{"radio"}, nil)
	h.send(&api.VoiceAssistantAnnounceRequest{
		MediaID:            "http://hub/announce.mp3",
		PreannounceMediaID: "http://hub/chime.mp3",
		Text:               "dinner is ready",
		StartConversation:  true,
	})
	h.sync()

	got := f.tts.lastPlay()
	if len(got) != 2 || got[0] != "http://hub/chime.mp3" || got[1] != "http://hub/announce.mp3" {
		t.Fatalf("announce urls = %v", got)
	}
	f.music.mu.Lock()
	paused := f.music.paused
	f.music.mu.Unlock()
	if !paused {
		t.Fatal("music not paused for the announcement")
	}

	f.tts.finish()
	var finished, restarted bool
	for !finished || !restarted {
		switch m := h.next().(type) {
		case *api.VoiceAssistantAnnounceFinished:
			finished = true
		case *api.VoiceAssistantRequest:
			restarted = m.Start
		}
	}
	eventually(t, "music resumed", func() bool {
		f.music.mu.Lock()
		defer f.music.mu.Unlock()
		return !f.music.paused
	})
}

func TestMediaPlayerStopEndsOutput(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()

	h.send(&api.VoiceAssistantAnnounceRequest{MediaID: "http://hub/a.mp3"})
	h.sync()
	h.send(&api.MediaPlayerCommandRequest{Key: 0, HasCommand: true, Command: api.MediaPlayerCommandStop})

	var finished int
	for _, msg := range h.sync() {
		if _, ok := msg.(*api.VoiceAssistantAnnounceFinished); ok {
			finished++
		}
	}
	if finished != 1 {
		t.Fatalf("AnnounceFinished sent %d times", finished)
	}
	if f.stopModel.IsActive() {
		t.Fatal("stop word active after stop")
	}
}

func TestConnectionLostReleasesSlot(t *testing.T) {
	f := newFixture(t, nil)
	h := f.dial(t)
	h.handshake()
	h.sat.Wakeup(f.okayNabu)
	h.next()

	h.conn.Close()
	eventually(t, "connection cleanup", func() bool {
		return f.state.Active() == nil && f.tts.stopCount() > 0 && !f.stopModel.IsActive()
	})
}

type countingExtractor struct{}

func (countingExtractor) ProcessStreaming(chunk []byte) ([][]float32, error) {
	return [][]float32{{float32(len(chunk))}}, nil
}

type firingMicro struct{}

func (firingMicro) ProcessStreaming([]float32) (bool, error) { return true, nil }

func TestEngineDrivesActiveSatellite(t *testing.T) {
	f := newFixture(t, nil)
	model := wakeword.NewModel(wakeword.ModelInfo{ID: "hey_jarvis", WakeWord: "Hey Jarvis", Kind: wakeword.KindMicro},
		wakeword.NewMicroDetector(firingMicro{}))
	model.SetActive(true)

	engine := wakeword.NewEngine(wakeword.EngineConfig{
		StopModel:    f.stopModel,
		Target:       f.state.EngineTarget,
		Muted:        f.state.Muted,
		NewExtractor: func(wakeword.Kind) (features.Extractor, error) { return countingExtractor{}, nil },
	})
	engine.SetModels([]*wakeword.Model{model})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	// no session: detections go nowhere
	engine.Push(make([]byte, 2048))

	h := f.dial(t)
	h.handshake()
	engine.Push(make([]byte, 2048))

	req, ok := h.next().(*api.VoiceAssistantRequest)
	if !ok || req.WakeWordPhrase != "Hey Jarvis" {
		t.Fatalf("expected wake from engine, got %#v", req)
	}
	engine.Push(make([]byte, 2048))
	if audio, ok := h.next().(*api.VoiceAssistantAudio); !ok || len(audio.Data) != 2048 {
		t.Fatalf("expected streamed audio, got %#v", audio)
	}
}
