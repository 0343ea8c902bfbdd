package satellite

import (
	"sync"

	"voice-satellite/api"
	"voice-satellite/log"
	"voice-satellite/utils/player"
)

// Entity translates hub entity requests into responses. Entities ignore
// messages addressed to other keys.
type Entity interface {
	Key() uint32
	HandleMessage(msg api.Message) []api.Message
}

// MediaPlayerEntity exposes the music player to the hub and plays
// announcements over it, pausing music for their duration.
type MediaPlayerEntity struct {
	key      uint32
	objectID string
	uniqueID string

	music    Player
	announce Player
	send     func(msgs ...api.Message)
	onVolume func(volume float32)

	mu          sync.Mutex
	state       api.MediaPlayerState
	volume      float32
	muted       bool
	announcing  bool
	musicPaused bool
}

// NewMediaPlayerEntity creates the media player entity. send publishes
// unsolicited state updates; onVolume persists volume changes.
func NewMediaPlayerEntity(key uint32, slug string, music, announce Player, volume float32,
	send func(msgs ...api.Message), onVolume func(volume float32)) *MediaPlayerEntity {
	e := &MediaPlayerEntity{
		key:      key,
		objectID: "media_player",
		uniqueID: slug + "_media_player",
		music:    music,
		announce: announce,
		send:     send,
		onVolume: onVolume,
		state:    api.MediaPlayerStateIdle,
		volume:   clampVolume(volume),
	}
	e.applyVolume(e.volume)
	return e
}

func (e *MediaPlayerEntity) Key() uint32 { return e.key }

// HandleMessage answers list, subscribe and command requests
func (e *MediaPlayerEntity) HandleMessage(msg api.Message) []api.Message {
	switch m := msg.(type) {
	case *api.ListEntitiesRequest:
		return []api.Message{&api.ListEntitiesMediaPlayerResponse{
			ObjectID:      e.objectID,
			Key:           e.key,
			Name:          "Media Player",
			UniqueID:      e.uniqueID,
			SupportsPause: true,
		}}
	case *api.SubscribeStatesRequest, *api.SubscribeHomeAssistantStatesRequest:
		return []api.Message{e.StateResponse()}
	case *api.MediaPlayerCommandRequest:
		if m.Key != e.key {
			return nil
		}
		return e.handleCommand(m)
	}
	return nil
}

func (e *MediaPlayerEntity) handleCommand(m *api.MediaPlayerCommandRequest) []api.Message {
	if m.HasMediaURL {
		e.play([]string{m.MediaURL}, m.HasAnnouncement && m.Announcement, nil, false)
		return []api.Message{e.StateResponse()}
	}

	if m.HasCommand {
		switch m.Command {
		case api.MediaPlayerCommandPause:
			e.music.Pause()
			e.setState(api.MediaPlayerStatePaused, false)
		case api.MediaPlayerCommandPlay:
			e.music.Resume()
			e.setState(api.MediaPlayerStatePlaying, false)
		case api.MediaPlayerCommandStop:
			e.mu.Lock()
			e.musicPaused = false
			e.mu.Unlock()
			e.setState(api.MediaPlayerStateIdle, false)
			e.music.Stop()
			e.announce.Stop()
		case api.MediaPlayerCommandMute:
			e.mu.Lock()
			e.muted = true
			e.mu.Unlock()
			e.applyVolume(0)
		case api.MediaPlayerCommandUnmute:
			e.mu.Lock()
			e.muted = false
			volume := e.volume
			e.mu.Unlock()
			e.applyVolume(volume)
		default:
			log.Debugf("media player: unsupported command %d", m.Command)
		}
	}

	if m.HasVolume {
		volume := clampVolume(m.Volume)
		e.mu.Lock()
		e.volume = volume
		muted := e.muted
		e.mu.Unlock()
		if !muted {
			e.applyVolume(volume)
		}
		if e.onVolume != nil {
			e.onVolume(volume)
		}
	}
	return []api.Message{e.StateResponse()}
}

// Play starts urls on the music player, or as an announcement over paused
// music. done runs once when playback ends or is superseded.
func (e *MediaPlayerEntity) Play(urls []string, announcement bool, done func()) {
	e.play(urls, announcement, done, true)
}

// play pushes the resulting state to the hub when notify is set; command
// replies carry it instead.
func (e *MediaPlayerEntity) play(urls []string, announcement bool, done func(), notify bool) {
	if len(urls) == 0 {
		return
	}
	if !announcement {
		e.music.Play(urls, player.Then(func() { e.finished(false) }, done))
		e.setState(api.MediaPlayerStatePlaying, notify)
		return
	}

	e.mu.Lock()
	e.announcing = true
	if e.music.IsPlaying() {
		e.music.Pause()
		e.musicPaused = true
	}
	e.mu.Unlock()

	e.announce.Play(urls, player.Then(func() { e.finished(true) }, done))
	e.setState(api.MediaPlayerStatePlaying, notify)
}

func (e *MediaPlayerEntity) finished(announcement bool) {
	e.mu.Lock()
	resume := false
	if announcement {
		e.announcing = false
		resume = e.musicPaused
		e.musicPaused = false
	}
	announcing := e.announcing
	e.mu.Unlock()

	if resume {
		e.music.Resume()
		e.setState(api.MediaPlayerStatePlaying, true)
		return
	}
	if !announcing && !e.music.IsPlaying() {
		e.setState(api.MediaPlayerStateIdle, true)
	}
}

// StateResponse reports the current state, volume and mute flag
func (e *MediaPlayerEntity) StateResponse() *api.MediaPlayerStateResponse {
	e.mu.Lock()
	defer e.mu.Unlock()
	return &api.MediaPlayerStateResponse{
		Key:    e.key,
		State:  e.state,
		Volume: e.volume,
		Muted:  e.muted,
	}
}

func (e *MediaPlayerEntity) setState(state api.MediaPlayerState, notify bool) {
	e.mu.Lock()
	changed := e.state != state
	e.state = state
	e.mu.Unlock()
	if notify && changed && e.send != nil {
		e.send(e.StateResponse())
	}
}

func (e *MediaPlayerEntity) applyVolume(volume float32) {
	v := int(volume*100 + 0.5)
	e.music.SetVolume(v)
	e.announce.SetVolume(v)
}

func clampVolume(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SwitchEntity is a boolean configuration switch backed by get and set
type SwitchEntity struct {
	key      uint32
	objectID string
	uniqueID string
	name     string
	icon     string
	get      func() bool
	set      func(bool)
}

// NewSwitchEntity creates a configuration switch
func NewSwitchEntity(key uint32, slug, objectID, name, icon string, get func() bool, set func(bool)) *SwitchEntity {
	return &SwitchEntity{
		key:      key,
		objectID: objectID,
		uniqueID: slug + "_" + objectID,
		name:     name,
		icon:     icon,
		get:      get,
		set:      set,
	}
}

func (e *SwitchEntity) Key() uint32 { return e.key }

func (e *SwitchEntity) HandleMessage(msg api.Message) []api.Message {
	switch m := msg.(type) {
	case *api.ListEntitiesRequest:
		return []api.Message{&api.ListEntitiesSwitchResponse{
			ObjectID:       e.objectID,
			Key:            e.key,
			Name:           e.name,
			UniqueID:       e.uniqueID,
			Icon:           e.icon,
			EntityCategory: api.EntityCategoryConfig,
		}}
	case *api.SubscribeStatesRequest, *api.SubscribeHomeAssistantStatesRequest:
		return []api.Message{e.stateResponse()}
	case *api.SwitchCommandRequest:
		if m.Key != e.key {
			return nil
		}
		e.set(m.State)
		return []api.Message{e.stateResponse()}
	}
	return nil
}

func (e *SwitchEntity) stateResponse() *api.SwitchStateResponse {
	return &api.SwitchStateResponse{Key: e.key, State: e.get()}
}
