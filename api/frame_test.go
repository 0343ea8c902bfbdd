package api

import (
	"errors"
	"reflect"
	"testing"
)

func sampleMessages() []Message {
	return []Message{
		&HelloRequest{ClientInfo: "Home Assistant 2025.1", APIVersionMajor: 1, APIVersionMinor: 10},
		&HelloResponse{APIVersionMajor: 1, APIVersionMinor: 10, ServerInfo: "satellite", Name: "kitchen"},
		&ConnectRequest{Password: "secret"},
		&ConnectResponse{InvalidPassword: true},
		&DisconnectRequest{},
		&DisconnectResponse{},
		&PingRequest{},
		&PingResponse{},
		&DeviceInfoRequest{},
		&DeviceInfoResponse{
			UsesPassword:               true,
			Name:                       "kitchen-a1b2c3",
			MACAddress:                 "00:11:22:a1:b2:c3",
			ESPHomeVersion:             "2025.1.0",
			Model:                      "Linux Voice Assistant",
			Manufacturer:               "Open Home Foundation",
			FriendlyName:               "Kitchen",
			VoiceAssistantFeatureFlags: uint32(FeatureVoiceAssistant | FeatureAPIAudio),
		},
		&ListEntitiesRequest{},
		&ListEntitiesSwitchResponse{
			ObjectID: "mute", Key: 1, Name: "Mute", UniqueID: "kitchen-mute", Icon: "mdi:microphone-off",
			AssumedState: true, DisabledByDefault: true, EntityCategory: EntityCategoryConfig, DeviceClass: "switch",
		},
		&ListEntitiesDoneResponse{},
		&SubscribeStatesRequest{},
		&SwitchStateResponse{Key: 2, State: true},
		&SwitchCommandRequest{Key: 2, State: true},
		&SubscribeHomeAssistantStatesRequest{},
		&ListEntitiesMediaPlayerResponse{
			ObjectID: "media_player", Key: 0xdeadbeef, Name: "Media Player", UniqueID: "kitchen-mp",
			Icon: "mdi:speaker", DisabledByDefault: true, EntityCategory: EntityCategoryDiagnostic, SupportsPause: true,
		},
		&MediaPlayerStateResponse{Key: 7, State: MediaPlayerStatePaused, Volume: 0.75, Muted: true},
		&MediaPlayerCommandRequest{
			Key: 7, HasCommand: true, Command: MediaPlayerCommandUnmute, HasVolume: true, Volume: 0.25,
			HasMediaURL: true, MediaURL: "http://hub/media.mp3", HasAnnouncement: true, Announcement: true,
		},
		&SubscribeVoiceAssistantRequest{Subscribe: true, Flags: 3},
		&VoiceAssistantRequest{Start: true, ConversationID: "c1", Flags: 1, WakeWordPhrase: "Okay Nabu"},
		&VoiceAssistantResponse{Port: 6054, Error: true},
		&VoiceAssistantEventResponse{
			EventType: EventIntentProgress,
			Data:      []EventData{{Name: "tts_start_streaming", Value: "1"}, {Name: "url", Value: ""}},
		},
		&VoiceAssistantAudio{Data: []byte{1, 2, 3, 0, 255}, End: true},
		&VoiceAssistantTimerEventResponse{
			EventType: TimerFinished, TimerID: "t1", Name: "pasta", TotalSeconds: 600, SecondsLeft: 0, IsActive: true,
		},
		&VoiceAssistantAnnounceRequest{MediaID: "http://hub/a.mp3", Text: "dinner", PreannounceMediaID: "http://hub/pre.mp3", StartConversation: true},
		&VoiceAssistantAnnounceFinished{Success: true},
		&VoiceAssistantConfigurationRequest{},
		&VoiceAssistantConfigurationResponse{
			AvailableWakeWords: []WakeWord{
				{ID: "okay_nabu", WakeWord: "Okay Nabu", TrainedLanguages: []string{"en"}},
				{ID: "hey_jarvis", WakeWord: "Hey Jarvis"},
			},
			ActiveWakeWords:    []string{"okay_nabu"},
			MaxActiveWakeWords: 2,
		},
		&VoiceAssistantSetConfiguration{ActiveWakeWords: []string{"okay_nabu", "hey_jarvis"}},
	}
}

func TestRoundTripEveryVariant(t *testing.T) {
	msgs := sampleMessages()
	if len(msgs) != len(registry) {
		t.Fatalf("sample covers %d of %d registered types", len(msgs), len(registry))
	}
	for _, msg := range msgs {
		encoded := Encode(msg)
		decoded, n, err := DecodeFrame(encoded, 0)
		if err != nil {
			t.Fatalf("%T: decode: %v", msg, err)
		}
		if n != len(encoded) {
			t.Fatalf("%T: consumed %d of %d bytes", msg, n, len(encoded))
		}
		if !reflect.DeepEqual(decoded, msg) {
			t.Errorf("%T: got %+v, want %+v", msg, decoded, msg)
		}
	}
}

func TestZeroValueRoundTrip(t *testing.T) {
	for _, msg := range sampleMessages() {
		zero := newMessage(msg.MessageType())
		decoded, _, err := DecodeFrame(Encode(zero), 0)
		if err != nil {
			t.Fatalf("%T: %v", zero, err)
		}
		if !reflect.DeepEqual(decoded, zero) {
			t.Errorf("%T: got %+v, want zero value", zero, decoded)
		}
	}
}

func TestEmptyPayloadFrame(t *testing.T) {
	encoded := Encode(&PingRequest{})
	want := []byte{0x00, 0x00, byte(TypePingRequest)}
	if !reflect.DeepEqual(encoded, want) {
		t.Fatalf("encoded = %v, want %v", encoded, want)
	}
	msg, n, err := DecodeFrame(encoded, 0)
	if err != nil || n != 3 {
		t.Fatalf("decode: n=%d err=%v", n, err)
	}
	if _, ok := msg.(*PingRequest); !ok {
		t.Fatalf("got %T", msg)
	}
}

func TestPartialDeliveryInvariance(t *testing.T) {
	msgs := sampleMessages()
	stream := Encode(msgs...)

	for _, step := range []int{1, 2, 3, 7, 64, len(stream)} {
		d := NewDecoder(0)
		var got []Message
		for off := 0; off < len(stream); off += step {
			end := off + step
			if end > len(stream) {
				end = len(stream)
			}
			d.Write(stream[off:end])
			for {
				msg, err := d.Next()
				if errors.Is(err, ErrNeedMoreData) {
					break
				}
				if err != nil {
					t.Fatalf("step %d: %v", step, err)
				}
				got = append(got, msg)
			}
		}
		if !reflect.DeepEqual(got, msgs) {
			t.Fatalf("step %d: decoded %d messages, want %d in order", step, len(got), len(msgs))
		}
		if d.Buffered() != 0 {
			t.Fatalf("step %d: %d bytes left over", step, d.Buffered())
		}
	}
}

func TestNeedMoreDataConsumesNothing(t *testing.T) {
	encoded := Encode(&HelloResponse{Name: "kitchen"})
	for i := 0; i < len(encoded); i++ {
		_, n, err := DecodeFrame(encoded[:i], 0)
		if !errors.Is(err, ErrNeedMoreData) {
			t.Fatalf("prefix %d: err = %v", i, err)
		}
		if n != 0 {
			t.Fatalf("prefix %d: consumed %d", i, n)
		}
	}
}

func TestFramingErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{"bad preamble", []byte{0x01, 0x00, 0x07}, ErrInvalidPreamble},
		{"varint overflow", []byte{0x00, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}, ErrVarintOverflow},
		{"frame too large", []byte{0x00, 0x80, 0x80, 0x80, 0x08, 0x07}, ErrFrameTooLarge},
		{"garbage payload", []byte{0x00, 0x02, byte(TypeHelloRequest), 0x0a, 0x05}, ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, n, err := DecodeFrame(tt.buf, 1024)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !IsFramingError(err) {
				t.Fatalf("IsFramingError(%v) = false", err)
			}
			if n != 0 {
				t.Fatalf("consumed %d", n)
			}
		})
	}
}

func TestUnknownTypeIsSkipped(t *testing.T) {
	unknown := &Unknown{Type: 9999, Payload: []byte{0x08, 0x01}}
	stream := Encode(unknown, &PingRequest{})

	d := NewDecoder(0)
	d.Write(stream)
	first, err := d.Next()
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if !reflect.DeepEqual(first, unknown) {
		t.Fatalf("first = %+v", first)
	}
	second, err := d.Next()
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if _, ok := second.(*PingRequest); !ok {
		t.Fatalf("second = %T", second)
	}
}

func TestDecodedBytesDoNotAliasBuffer(t *testing.T) {
	d := NewDecoder(0)
	d.Write(Encode(&VoiceAssistantAudio{Data: []byte{9, 9, 9}}))
	msg, err := d.Next()
	if err != nil {
		t.Fatal(err)
	}
	d.Write(Encode(&VoiceAssistantAudio{Data: []byte{1, 1, 1}}))
	if got := msg.(*VoiceAssistantAudio).Data; !reflect.DeepEqual(got, []byte{9, 9, 9}) {
		t.Fatalf("data changed to %v", got)
	}
}

func TestEventValue(t *testing.T) {
	ev := &VoiceAssistantEventResponse{Data: []EventData{{Name: "url", Value: "http://x"}}}
	if ev.Value("url") != "http://x" || ev.Value("missing") != "" {
		t.Fatal("Value lookup failed")
	}
}
