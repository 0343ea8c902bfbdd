package api

// VoiceAssistantEvent is the pipeline event kind sent by the hub
type VoiceAssistantEvent uint32

const (
	EventError          VoiceAssistantEvent = 0
	EventRunStart       VoiceAssistantEvent = 1
	EventRunEnd         VoiceAssistantEvent = 2
	EventSTTStart       VoiceAssistantEvent = 3
	EventSTTEnd         VoiceAssistantEvent = 4
	EventIntentStart    VoiceAssistantEvent = 5
	EventIntentEnd      VoiceAssistantEvent = 6
	EventTTSStart       VoiceAssistantEvent = 7
	EventTTSEnd         VoiceAssistantEvent = 8
	EventWakeWordStart  VoiceAssistantEvent = 9
	EventWakeWordEnd    VoiceAssistantEvent = 10
	EventSTTVADStart    VoiceAssistantEvent = 11
	EventSTTVADEnd      VoiceAssistantEvent = 12
	EventTTSStreamStart VoiceAssistantEvent = 98
	EventTTSStreamEnd   VoiceAssistantEvent = 99
	EventIntentProgress VoiceAssistantEvent = 100
)

var eventNames = map[VoiceAssistantEvent]string{
	EventError:          "error",
	EventRunStart:       "run-start",
	EventRunEnd:         "run-end",
	EventSTTStart:       "stt-start",
	EventSTTEnd:         "stt-end",
	EventIntentStart:    "intent-start",
	EventIntentEnd:      "intent-end",
	EventTTSStart:       "tts-start",
	EventTTSEnd:         "tts-end",
	EventWakeWordStart:  "wake_word-start",
	EventWakeWordEnd:    "wake_word-end",
	EventSTTVADStart:    "stt-vad-start",
	EventSTTVADEnd:      "stt-vad-end",
	EventTTSStreamStart: "tts-stream-start",
	EventTTSStreamEnd:   "tts-stream-end",
	EventIntentProgress: "intent-progress",
}

func (e VoiceAssistantEvent) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "unknown"
}

// TimerEvent is the timer lifecycle event kind
type TimerEvent uint32

const (
	TimerStarted   TimerEvent = 0
	TimerUpdated   TimerEvent = 1
	TimerCancelled TimerEvent = 2
	TimerFinished  TimerEvent = 3
)

// FeatureFlag bits advertised in DeviceInfoResponse
type FeatureFlag uint32

const (
	FeatureVoiceAssistant    FeatureFlag = 1 << 0
	FeatureSpeaker           FeatureFlag = 1 << 1
	FeatureAPIAudio          FeatureFlag = 1 << 2
	FeatureTimers            FeatureFlag = 1 << 3
	FeatureAnnounce          FeatureFlag = 1 << 4
	FeatureStartConversation FeatureFlag = 1 << 5
)

type MediaPlayerState uint32

const (
	MediaPlayerStateNone    MediaPlayerState = 0
	MediaPlayerStateIdle    MediaPlayerState = 1
	MediaPlayerStatePlaying MediaPlayerState = 2
	MediaPlayerStatePaused  MediaPlayerState = 3
)

type MediaPlayerCommand uint32

const (
	MediaPlayerCommandPlay   MediaPlayerCommand = 0
	MediaPlayerCommandPause  MediaPlayerCommand = 1
	MediaPlayerCommandStop   MediaPlayerCommand = 2
	MediaPlayerCommandMute   MediaPlayerCommand = 3
	MediaPlayerCommandUnmute MediaPlayerCommand = 4
)

type EntityCategory uint32

const (
	EntityCategoryNone       EntityCategory = 0
	EntityCategoryConfig     EntityCategory = 1
	EntityCategoryDiagnostic EntityCategory = 2
)
