// Package satellite implements the device side of the hub protocol: the
// connection session, the voice pipeline orchestrator and the entities it
// exposes.
package satellite

import (
	"sync/atomic"
	"time"

	"voice-satellite/api"
	"voice-satellite/log"
	"voice-satellite/metrics"
	"voice-satellite/model"
	"voice-satellite/utils/wakeword"

	"github.com/google/uuid"
)

// Satellite drives the voice pipeline for one connection. Everything except
// HandleAudio, Wakeup and Stop runs on the session's control goroutine.
type Satellite struct {
	state   *State
	session *Session

	run       model.PipelineRun
	streaming atomic.Bool

	// playGen invalidates done callbacks of superseded TTS and announcements
	playGen uint64
	// speaking is set while a response or announcement awaits completion
	speaking bool
}

// New creates the orchestrator for session and installs it as its handler
func New(state *State, session *Session) *Satellite {
	s := &Satellite{state: state, session: session}
	session.SetHandler(s)
	return s
}

// Session returns the underlying connection session
func (s *Satellite) Session() *Session { return s.session }

// OnConnect claims the active slot and pushes entity states
func (s *Satellite) OnConnect() []api.Message {
	s.state.Takeover(s)
	s.state.events.Publish("connected", map[string]interface{}{
		"session": s.session.ID(),
		"client":  s.session.State.ClientInfo,
	})
	return s.entityMessages(&api.SubscribeStatesRequest{})
}

// HandleMessage routes hub messages
func (s *Satellite) HandleMessage(msg api.Message) []api.Message {
	if s.state.Active() != s {
		if !s.session.Alive() {
			return nil
		}
		// hubs that skip ConnectRequest claim the slot with their first request
		s.state.Takeover(s)
	}

	switch m := msg.(type) {
	case *api.DeviceInfoRequest:
		return []api.Message{s.state.DeviceInfo()}
	case *api.ListEntitiesRequest:
		return append(s.entityMessages(m), &api.ListEntitiesDoneResponse{})
	case *api.SubscribeStatesRequest, *api.SubscribeHomeAssistantStatesRequest, *api.SwitchCommandRequest:
		return s.entityMessages(m)
	case *api.MediaPlayerCommandRequest:
		out := s.entityMessages(m)
		if m.HasCommand && m.Command == api.MediaPlayerCommandStop && s.busy() {
			s.stop()
		}
		return out
	case *api.SubscribeVoiceAssistantRequest:
		log.Debugf("session %s: voice assistant subscribe=%v", s.session.ID(), m.Subscribe)
	case *api.VoiceAssistantResponse:
		if m.Error {
			log.Warnf("session %s: hub refused the pipeline", s.session.ID())
			s.ttsFinished()
		}
	case *api.VoiceAssistantEventResponse:
		s.handleEvent(m)
	case *api.VoiceAssistantAnnounceRequest:
		s.announce(m)
	case *api.VoiceAssistantTimerEventResponse:
		s.handleTimer(m)
	case *api.VoiceAssistantConfigurationRequest:
		return []api.Message{s.state.Configuration()}
	case *api.VoiceAssistantSetConfiguration:
		s.state.SetActiveWakeWords(m.ActiveWakeWords)
	default:
		log.Debugf("session %s: unhandled %T", s.session.ID(), msg)
	}
	return nil
}

// ConnectionLost resets the run and releases the slot
func (s *Satellite) ConnectionLost() {
	s.run.Reset()
	s.setStreaming(false)
	s.playGen++
	s.speaking = false
	if !s.state.Release(s) {
		return
	}
	s.state.tts.Stop()
	s.state.music.Stop()
	s.unduck()
	s.state.setStopWordActive(false)
	s.state.events.Publish("disconnected", map[string]interface{}{"session": s.session.ID()})
}

// HandleAudio forwards a microphone chunk while the hub is listening
func (s *Satellite) HandleAudio(chunk []byte) {
	if !s.streaming.Load() || s.state.Muted() {
		return
	}
	s.session.Send(&api.VoiceAssistantAudio{Data: chunk})
}

// Wakeup is called by the engine when a wake word fires
func (s *Satellite) Wakeup(m *wakeword.Model) {
	phrase := m.Phrase()
	id := m.ID()
	s.session.Post(func() { s.wakeup(id, phrase) })
}

// Stop is called by the engine when the stop word fires
func (s *Satellite) Stop() {
	s.session.Post(s.stop)
}

func (s *Satellite) entityMessages(msg api.Message) []api.Message {
	var out []api.Message
	for _, e := range s.state.entities {
		out = append(out, e.HandleMessage(msg)...)
	}
	return out
}

func (s *Satellite) setStreaming(on bool) {
	s.run.StreamingAudio = on
	s.streaming.Store(on)
}

func (s *Satellite) busy() bool {
	if s.run.TimerFinished || s.run.PipelineActive {
		return true
	}
	stop := s.state.StopWord()
	return stop != nil && stop.IsActive()
}

func (s *Satellite) wakeup(id, phrase string) {
	if s.run.TimerFinished {
		log.Infof("wake word %s stops the timer", id)
		s.stopTimer()
		return
	}
	if s.state.Muted() || s.run.PipelineActive {
		log.Debugf("ignoring wake word %s (muted=%v, pipeline active=%v)", id, s.state.Muted(), s.run.PipelineActive)
		return
	}

	log.Infof("wake word %s detected (%q)", id, phrase)
	metrics.PipelineRuns.WithLabelValues("wake").Inc()
	s.cutOutput()
	s.run.RunId = uuid.NewString()
	s.session.Send(&api.VoiceAssistantRequest{Start: true, WakeWordPhrase: phrase})
	s.state.music.Duck()
	s.setStreaming(true)
	s.run.PipelineActive = true
	s.state.setStopWordActive(true)
	s.playCue(s.state.sounds.Wakeup)
	s.state.events.Publish("wake", map[string]interface{}{
		"run":       s.run.RunId,
		"wake_word": id,
		"phrase":    phrase,
	})
}

func (s *Satellite) handleEvent(m *api.VoiceAssistantEventResponse) {
	log.Debugf("pipeline event %s", m.EventType)

	switch m.EventType {
	case api.EventRunStart:
		s.run.TTSURL = m.Value("url")
		s.run.TTSPlayed = false
		s.run.ContinueConversation = false
		s.run.PipelineActive = true
		s.state.setStopWordActive(true)
	case api.EventSTTVADEnd, api.EventSTTEnd:
		s.setStreaming(false)
	case api.EventIntentStart:
		if s.state.ThinkingSound() {
			s.state.setStopWordActive(true)
			s.state.music.Duck()
			s.playCue(s.state.sounds.Processing)
		}
	case api.EventIntentProgress:
		if s.run.PipelineActive && m.Value("tts_start_streaming") == "1" {
			s.playTTS()
		}
	case api.EventIntentEnd:
		if m.Value("continue_conversation") == "1" {
			s.run.ContinueConversation = true
		}
	case api.EventTTSEnd:
		if url := m.Value("url"); url != "" {
			s.run.TTSURL = url
		}
		if s.run.PipelineActive {
			s.playTTS()
		}
	case api.EventRunEnd:
		s.setStreaming(false)
		if !s.run.TTSPlayed {
			s.ttsFinished()
		}
		s.run.TTSPlayed = false
	case api.EventError:
		log.Warnf("pipeline error: %s: %s", m.Value("code"), m.Value("message"))
	}

	s.state.events.Publish("pipeline", map[string]interface{}{
		"run":   s.run.RunId,
		"event": m.EventType.String(),
	})
}

func (s *Satellite) playTTS() {
	if s.run.TTSURL == "" || s.run.TTSPlayed {
		return
	}
	s.run.TTSPlayed = true
	s.state.setStopWordActive(true)
	log.Infof("playing response %s", s.run.TTSURL)
	s.state.tts.Play([]string{s.run.TTSURL}, s.finishWhenDone())
}

func (s *Satellite) announce(m *api.VoiceAssistantAnnounceRequest) {
	var urls []string
	if m.PreannounceMediaID != "" {
		urls = append(urls, m.PreannounceMediaID)
	}
	urls = append(urls, m.MediaID)

	log.Infof("announcement %q (start conversation=%v)", m.Text, m.StartConversation)
	metrics.PipelineRuns.WithLabelValues("announce").Inc()
	s.state.setStopWordActive(true)
	s.run.ContinueConversation = m.StartConversation
	s.state.music.Duck()
	s.state.mediaPlayer.Play(urls, true, s.finishWhenDone())
	s.state.events.Publish("announce", map[string]interface{}{
		"text":               m.Text,
		"start_conversation": m.StartConversation,
	})
}

// finishWhenDone returns a done callback that completes the current output
// unless a newer one replaced it.
func (s *Satellite) finishWhenDone() func() {
	s.playGen++
	s.speaking = true
	gen := s.playGen
	return func() {
		s.session.Post(func() {
			if gen == s.playGen {
				s.ttsFinished()
			}
		})
	}
}

// ttsFinished completes spoken output: report it, then either reopen the
// microphone for a follow-up or return to idle.
func (s *Satellite) ttsFinished() {
	s.speaking = false
	s.state.setStopWordActive(false)
	s.session.Send(&api.VoiceAssistantAnnounceFinished{})

	if s.run.ContinueConversation {
		log.Infof("continuing conversation")
		metrics.PipelineRuns.WithLabelValues("continue").Inc()
		s.run.ContinueConversation = false
		s.run.TTSURL = ""
		s.run.TTSPlayed = false
		s.session.Send(&api.VoiceAssistantRequest{Start: true})
		s.setStreaming(true)
		s.run.PipelineActive = true
		s.state.setStopWordActive(true)
		return
	}

	s.run.PipelineActive = false
	s.setStreaming(false)
	s.unduck()
	s.state.events.Publish("idle", map[string]interface{}{"run": s.run.RunId})
}

func (s *Satellite) handleTimer(m *api.VoiceAssistantTimerEventResponse) {
	log.Infof("timer %s %q: %d/%d seconds left (event %d)", m.TimerID, m.Name, m.SecondsLeft, m.TotalSeconds, m.EventType)

	switch m.EventType {
	case api.TimerFinished:
		if s.run.TimerFinished {
			return
		}
		// the chime takes over the output player
		s.cutOutput()
		s.state.setStopWordActive(true)
		s.run.TimerFinished = true
		s.state.music.Duck()
		s.playTimerChime()
		s.state.events.Publish("timer_finished", map[string]interface{}{"timer": m.TimerID, "name": m.Name})
	case api.TimerCancelled:
		if s.run.TimerFinished {
			s.stopTimer()
		}
	}
}

func (s *Satellite) playTimerChime() {
	if !s.run.TimerFinished || s.state.sounds.TimerFinished == "" {
		return
	}
	s.state.tts.Play([]string{s.state.sounds.TimerFinished}, func() {
		s.session.Post(func() {
			if !s.run.TimerFinished {
				return
			}
			time.AfterFunc(s.state.timerGap, func() {
				s.session.Post(s.playTimerChime)
			})
		})
	})
}

func (s *Satellite) stopTimer() {
	s.run.TimerFinished = false
	s.state.setStopWordActive(false)
	s.state.tts.Stop()
	if !s.run.PipelineActive {
		s.unduck()
	}
	log.Infof("timer alarm stopped")
}

// cutOutput completes a pending response or announcement that is about to
// be replaced on the output player. Its follow-up conversation is dropped.
func (s *Satellite) cutOutput() {
	if !s.speaking {
		return
	}
	s.playGen++
	s.run.ContinueConversation = false
	s.ttsFinished()
}

// unduck restores the volume of both players
func (s *Satellite) unduck() {
	s.state.music.Unduck()
	s.state.tts.Unduck()
}

// stop silences the ringing timer or the current spoken output
func (s *Satellite) stop() {
	if s.run.TimerFinished {
		s.stopTimer()
		return
	}
	log.Infof("stop requested")
	s.state.events.Publish("stop", map[string]interface{}{"run": s.run.RunId})
	s.playGen++
	s.state.tts.Stop()
	s.setStreaming(false)
	s.run.ContinueConversation = false
	s.ttsFinished()
}

// onMuted ends streaming and spoken output
func (s *Satellite) onMuted() {
	s.setStreaming(false)
	s.run.ContinueConversation = false
	s.state.tts.Stop()
	s.state.setStopWordActive(false)
}

func (s *Satellite) playCue(path string) {
	if path == "" {
		return
	}
	s.state.tts.Play([]string{path}, nil)
}
