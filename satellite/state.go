package satellite

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"voice-satellite/api"
	"voice-satellite/log"
	"voice-satellite/metrics"
	"voice-satellite/model"
	"voice-satellite/utils/wakeword"
)

// Player is the audio output contract. done runs exactly once when a
// started sequence ends or is superseded, from any goroutine.
type Player interface {
	Play(urls []string, done func())
	Pause()
	Resume()
	Stop()
	SetVolume(volume int)
	Duck()
	Unduck()
	IsPlaying() bool
}

// EventSink receives satellite events for external consumers
type EventSink interface {
	Publish(event string, fields map[string]interface{})
}

type noEvents struct{}

func (noEvents) Publish(string, map[string]interface{}) {}

// Sounds are the cue files played locally
type Sounds struct {
	Wakeup        string
	TimerFinished string
	Processing    string
}

// Options configures a State
type Options struct {
	Name               string // display name
	MAC                string
	Version            string
	Sounds             Sounds
	MaxActiveWakeWords int
	TimerRepeatGap     time.Duration

	PreferencesPath string
	Preferences     *model.Preferences

	// Available wake words, without the stop model
	Available map[string]wakeword.ModelInfo
	Runtime   wakeword.Runtime
	Engine    *wakeword.Engine

	Music  Player // media player entity output
	TTS    Player // cues, TTS and announcements
	Events EventSink
}

// State is shared by every connection: device identity, entities, players,
// wake word models and the single active satellite slot.
type State struct {
	name      string
	slug      string
	mac       string
	version   string
	sounds    Sounds
	maxActive int
	timerGap  time.Duration

	available map[string]wakeword.ModelInfo
	runtime   wakeword.Runtime
	engine    *wakeword.Engine

	music  Player
	tts    Player
	events EventSink

	mediaPlayer *MediaPlayerEntity
	entities    []Entity

	muted atomic.Bool

	mu        sync.Mutex
	active    *Satellite
	loaded    map[string]*wakeword.Model
	prefs     *model.Preferences
	prefsPath string
}

// NewState builds the shared state and its entities
func NewState(opts Options) *State {
	if opts.Version == "" {
		opts.Version = Version
	}
	if opts.MaxActiveWakeWords <= 0 {
		opts.MaxActiveWakeWords = 2
	}
	if opts.TimerRepeatGap <= 0 {
		opts.TimerRepeatGap = time.Second
	}
	if opts.Preferences == nil {
		opts.Preferences = &model.Preferences{}
	}
	if opts.Events == nil {
		opts.Events = noEvents{}
	}
	if opts.Available == nil {
		opts.Available = map[string]wakeword.ModelInfo{}
	}

	st := &State{
		name:      opts.Name,
		slug:      Slug(opts.Name, opts.MAC),
		mac:       opts.MAC,
		version:   opts.Version,
		sounds:    opts.Sounds,
		maxActive: opts.MaxActiveWakeWords,
		timerGap:  opts.TimerRepeatGap,
		available: opts.Available,
		runtime:   opts.Runtime,
		engine:    opts.Engine,
		music:     opts.Music,
		tts:       opts.TTS,
		events:    opts.Events,
		loaded:    make(map[string]*wakeword.Model),
		prefs:     opts.Preferences,
		prefsPath: opts.PreferencesPath,
	}

	volume := float32(1.0)
	if opts.Preferences.Volume != nil {
		volume = float32(*opts.Preferences.Volume)
	}
	st.mediaPlayer = NewMediaPlayerEntity(0, st.slug, opts.Music, opts.TTS, volume, st.Send, st.saveVolume)
	st.entities = []Entity{
		st.mediaPlayer,
		NewSwitchEntity(1, st.slug, "mute", "Mute", "mdi:microphone-off", st.Muted, st.SetMuted),
		NewSwitchEntity(2, st.slug, "thinking_sound", "Thinking Sound", "mdi:timer-sand", st.ThinkingSound, st.SetThinkingSound),
	}
	return st
}

// Slug returns the device name reported to the hub
func (st *State) Slug() string { return st.slug }

// Name returns the display name
func (st *State) Name() string { return st.name }

// MAC returns the configured MAC address
func (st *State) MAC() string { return st.mac }

// Entities returns the registered entities in key order
func (st *State) Entities() []Entity { return st.entities }

// Takeover makes s the active satellite. A live previous holder is evicted
// and its connection closed.
func (st *State) Takeover(s *Satellite) {
	st.mu.Lock()
	prev := st.active
	st.active = s
	st.mu.Unlock()

	if prev == nil || prev == s {
		return
	}
	if prev.session.Alive() {
		log.Warnf("session %s replaces live session %s", s.session.ID(), prev.session.ID())
		metrics.SessionTakeovers.Inc()
		prev.session.Close()
	}
}

// Release frees the slot if s holds it and reports whether it did
func (st *State) Release(s *Satellite) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.active != s {
		return false
	}
	st.active = nil
	return true
}

// Active returns the satellite holding the slot, or nil
func (st *State) Active() *Satellite {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.active
}

// EngineTarget is the wake word engine's view of the active satellite
func (st *State) EngineTarget() wakeword.Target {
	if s := st.Active(); s != nil {
		return s
	}
	return nil
}

// Send delivers messages to the active satellite, dropping them when there is none
func (st *State) Send(msgs ...api.Message) {
	if s := st.Active(); s != nil {
		s.session.Send(msgs...)
	}
}

// Muted reports whether the microphone is muted
func (st *State) Muted() bool { return st.muted.Load() }

// SetMuted changes the mute switch. Muting ends streaming and TTS on the active satellite.
func (st *State) SetMuted(muted bool) {
	if st.muted.Swap(muted) == muted {
		return
	}
	log.Infof("microphone muted: %v", muted)
	st.events.Publish("muted", map[string]interface{}{"muted": muted})
	if muted {
		if s := st.Active(); s != nil {
			s.onMuted()
		}
	}
}

// ThinkingSound reports whether the processing cue is enabled
func (st *State) ThinkingSound() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.prefs.ThinkingSound != 0
}

// SetThinkingSound enables or disables the processing cue and persists it
func (st *State) SetThinkingSound(enabled bool) {
	st.mu.Lock()
	if enabled {
		st.prefs.ThinkingSound = 1
	} else {
		st.prefs.ThinkingSound = 0
	}
	st.mu.Unlock()
	st.savePreferences()
}

func (st *State) saveVolume(volume float32) {
	v := float64(volume)
	st.mu.Lock()
	st.prefs.Volume = &v
	st.mu.Unlock()
	st.savePreferences()
}

func (st *State) savePreferences() {
	if st.prefsPath == "" {
		return
	}
	st.mu.Lock()
	snapshot := *st.prefs
	snapshot.ActiveWakeWords = append([]string(nil), st.prefs.ActiveWakeWords...)
	st.mu.Unlock()

	if err := snapshot.Save(st.prefsPath); err != nil {
		log.Errorf("save preferences: %v", err)
	}
}

// StopWord returns the shared stop model, or nil when the engine has none
func (st *State) StopWord() *wakeword.Model {
	if st.engine == nil {
		return nil
	}
	return st.engine.StopModel()
}

func (st *State) setStopWordActive(active bool) {
	if m := st.StopWord(); m != nil {
		m.SetActive(active)
	}
}

// AddLoaded registers an already loaded wake model, used at startup
func (st *State) AddLoaded(m *wakeword.Model) {
	st.mu.Lock()
	st.loaded[m.ID()] = m
	st.mu.Unlock()
}

// SetActiveWakeWords loads and activates up to the allowed number of ids.
// Unknown ids are skipped; a request naming only unknown ids changes
// nothing. It reports whether the active set changed.
func (st *State) SetActiveWakeWords(ids []string) bool {
	if !st.setActiveWakeWords(ids) {
		return false
	}
	st.savePreferences()
	return true
}

func (st *State) setActiveWakeWords(ids []string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	var active []*wakeword.Model
	seen := make(map[string]bool)
	for _, id := range ids {
		if len(active) >= st.maxActive {
			log.Warnf("ignoring wake word %s: at most %d may be active", id, st.maxActive)
			break
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		m, ok := st.loaded[id]
		if !ok {
			info, known := st.available[id]
			if !known || st.runtime == nil {
				log.Warnf("ignoring unknown wake word %s", id)
				continue
			}
			var err error
			if m, err = wakeword.Load(info, st.runtime); err != nil {
				log.Errorf("wake word %s: %v", id, err)
				continue
			}
			st.loaded[id] = m
			log.Infof("loaded wake word %s (%s)", id, info.WakeWord)
		}
		active = append(active, m)
	}

	if len(ids) > 0 && len(active) == 0 {
		return false
	}

	activeIDs := make([]string, 0, len(active))
	for _, m := range active {
		activeIDs = append(activeIDs, m.ID())
	}
	all := make([]*wakeword.Model, 0, len(st.loaded))
	for id, m := range st.loaded {
		m.SetActive(contains(activeIDs, id))
		all = append(all, m)
	}
	if st.engine != nil {
		st.engine.SetModels(all)
	}

	st.prefs.ActiveWakeWords = activeIDs
	log.Infof("active wake words: %v", activeIDs)
	return true
}

// ActiveWakeWords returns the ids of active wake models, sorted
func (st *State) ActiveWakeWords() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	var ids []string
	for id, m := range st.loaded {
		if m.IsActive() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Configuration describes available and active wake words
func (st *State) Configuration() *api.VoiceAssistantConfigurationResponse {
	ids := make([]string, 0, len(st.available))
	for id := range st.available {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	resp := &api.VoiceAssistantConfigurationResponse{
		ActiveWakeWords:    st.ActiveWakeWords(),
		MaxActiveWakeWords: uint32(st.maxActive),
	}
	for _, id := range ids {
		info := st.available[id]
		resp.AvailableWakeWords = append(resp.AvailableWakeWords, api.WakeWord{
			ID:               id,
			WakeWord:         info.WakeWord,
			TrainedLanguages: info.TrainedLanguages,
		})
	}
	return resp
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
