package api

// MessageType is the numeric message id carried in every frame header
type MessageType uint32

const (
	TypeHelloRequest                        MessageType = 1
	TypeHelloResponse                       MessageType = 2
	TypeConnectRequest                      MessageType = 3
	TypeConnectResponse                     MessageType = 4
	TypeDisconnectRequest                   MessageType = 5
	TypeDisconnectResponse                  MessageType = 6
	TypePingRequest                         MessageType = 7
	TypePingResponse                        MessageType = 8
	TypeDeviceInfoRequest                   MessageType = 9
	TypeDeviceInfoResponse                  MessageType = 10
	TypeListEntitiesRequest                 MessageType = 11
	TypeListEntitiesSwitchResponse          MessageType = 17
	TypeListEntitiesDoneResponse            MessageType = 19
	TypeSubscribeStatesRequest              MessageType = 20
	TypeSwitchStateResponse                 MessageType = 26
	TypeSwitchCommandRequest                MessageType = 33
	TypeSubscribeHomeAssistantStatesRequest MessageType = 38
	TypeListEntitiesMediaPlayerResponse     MessageType = 63
	TypeMediaPlayerStateResponse            MessageType = 64
	TypeMediaPlayerCommandRequest           MessageType = 65
	TypeSubscribeVoiceAssistantRequest      MessageType = 89
	TypeVoiceAssistantRequest               MessageType = 90
	TypeVoiceAssistantResponse              MessageType = 91
	TypeVoiceAssistantEventResponse         MessageType = 92
	TypeVoiceAssistantAudio                 MessageType = 106
	TypeVoiceAssistantTimerEventResponse    MessageType = 115
	TypeVoiceAssistantAnnounceRequest       MessageType = 119
	TypeVoiceAssistantAnnounceFinished      MessageType = 120
	TypeVoiceAssistantConfigurationRequest  MessageType = 121
	TypeVoiceAssistantConfigurationResponse MessageType = 122
	TypeVoiceAssistantSetConfiguration      MessageType = 123
)

// Message is one typed protocol message. The set is closed: only types in
// this package implement it.
type Message interface {
	MessageType() MessageType
	appendPayload(b []byte) []byte
	unmarshalPayload(b []byte) error
}

var registry = map[MessageType]func() Message{
	TypeHelloRequest:                        func() Message { return &HelloRequest{} },
	TypeHelloResponse:                       func() Message { return &HelloResponse{} },
	TypeConnectRequest:                      func() Message { return &ConnectRequest{} },
	TypeConnectResponse:                     func() Message { return &ConnectResponse{} },
	TypeDisconnectRequest:                   func() Message { return &DisconnectRequest{} },
	TypeDisconnectResponse:                  func() Message { return &DisconnectResponse{} },
	TypePingRequest:                         func() Message { return &PingRequest{} },
	TypePingResponse:                        func() Message { return &PingResponse{} },
	TypeDeviceInfoRequest:                   func() Message { return &DeviceInfoRequest{} },
	TypeDeviceInfoResponse:                  func() Message { return &DeviceInfoResponse{} },
	TypeListEntitiesRequest:                 func() Message { return &ListEntitiesRequest{} },
	TypeListEntitiesSwitchResponse:          func() Message { return &ListEntitiesSwitchResponse{} },
	TypeListEntitiesDoneResponse:            func() Message { return &ListEntitiesDoneResponse{} },
	TypeSubscribeStatesRequest:              func() Message { return &SubscribeStatesRequest{} },
	TypeSwitchStateResponse:                 func() Message { return &SwitchStateResponse{} },
	TypeSwitchCommandRequest:                func() Message { return &SwitchCommandRequest{} },
	TypeSubscribeHomeAssistantStatesRequest: func() Message { return &SubscribeHomeAssistantStatesRequest{} },
	TypeListEntitiesMediaPlayerResponse:     func() Message { return &ListEntitiesMediaPlayerResponse{} },
	TypeMediaPlayerStateResponse:            func() Message { return &MediaPlayerStateResponse{} },
	TypeMediaPlayerCommandRequest:           func() Message { return &MediaPlayerCommandRequest{} },
	TypeSubscribeVoiceAssistantRequest:      func() Message { return &SubscribeVoiceAssistantRequest{} },
	TypeVoiceAssistantRequest:               func() Message { return &VoiceAssistantRequest{} },
	TypeVoiceAssistantResponse:              func() Message { return &VoiceAssistantResponse{} },
	TypeVoiceAssistantEventResponse:         func() Message { return &VoiceAssistantEventResponse{} },
	TypeVoiceAssistantAudio:                 func() Message { return &VoiceAssistantAudio{} },
	TypeVoiceAssistantTimerEventResponse:    func() Message { return &VoiceAssistantTimerEventResponse{} },
	TypeVoiceAssistantAnnounceRequest:       func() Message { return &VoiceAssistantAnnounceRequest{} },
	TypeVoiceAssistantAnnounceFinished:      func() Message { return &VoiceAssistantAnnounceFinished{} },
	TypeVoiceAssistantConfigurationRequest:  func() Message { return &VoiceAssistantConfigurationRequest{} },
	TypeVoiceAssistantConfigurationResponse: func() Message { return &VoiceAssistantConfigurationResponse{} },
	TypeVoiceAssistantSetConfiguration:      func() Message { return &VoiceAssistantSetConfiguration{} },
}

func newMessage(t MessageType) Message {
	if f, ok := registry[t]; ok {
		return f()
	}
	return nil
}

// empty is embedded by messages without fields
type empty struct{}

func (empty) appendPayload(b []byte) []byte { return b }

func (empty) unmarshalPayload(b []byte) error {
	return walk(b, func(field) error { return nil })
}

// Unknown carries a message whose type is not registered
type Unknown struct {
	Type    MessageType
	Payload []byte
}

func (m *Unknown) MessageType() MessageType { return m.Type }

func (m *Unknown) appendPayload(b []byte) []byte { return append(b, m.Payload...) }

func (m *Unknown) unmarshalPayload(b []byte) error {
	m.Payload = append([]byte(nil), b...)
	return nil
}

// HelloRequest opens the handshake
type HelloRequest struct {
	ClientInfo      string
	APIVersionMajor uint32
	APIVersionMinor uint32
}

func (*HelloRequest) MessageType() MessageType { return TypeHelloRequest }

func (m *HelloRequest) appendPayload(b []byte) []byte {
	b = appendString(b, 1, m.ClientInfo)
	b = appendUint32(b, 2, m.APIVersionMajor)
	return appendUint32(b, 3, m.APIVersionMinor)
}

func (m *HelloRequest) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.ClientInfo = f.string()
		case 2:
			m.APIVersionMajor = f.uint32()
		case 3:
			m.APIVersionMinor = f.uint32()
		}
		return nil
	})
}

// HelloResponse answers HelloRequest with the protocol version and device name
type HelloResponse struct {
	APIVersionMajor uint32
	APIVersionMinor uint32
	ServerInfo      string
	Name            string
}

func (*HelloResponse) MessageType() MessageType { return TypeHelloResponse }

func (m *HelloResponse) appendPayload(b []byte) []byte {
	b = appendUint32(b, 1, m.APIVersionMajor)
	b = appendUint32(b, 2, m.APIVersionMinor)
	b = appendString(b, 3, m.ServerInfo)
	return appendString(b, 4, m.Name)
}

func (m *HelloResponse) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.APIVersionMajor = f.uint32()
		case 2:
			m.APIVersionMinor = f.uint32()
		case 3:
			m.ServerInfo = f.string()
		case 4:
			m.Name = f.string()
		}
		return nil
	})
}

type ConnectRequest struct {
	Password string
}

func (*ConnectRequest) MessageType() MessageType { return TypeConnectRequest }

func (m *ConnectRequest) appendPayload(b []byte) []byte { return appendString(b, 1, m.Password) }

func (m *ConnectRequest) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		if f.num == 1 {
			m.Password = f.string()
		}
		return nil
	})
}

type ConnectResponse struct {
	InvalidPassword bool
}

func (*ConnectResponse) MessageType() MessageType { return TypeConnectResponse }

func (m *ConnectResponse) appendPayload(b []byte) []byte { return appendBool(b, 1, m.InvalidPassword) }

func (m *ConnectResponse) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		if f.num == 1 {
			m.InvalidPassword = f.bool()
		}
		return nil
	})
}

type DisconnectRequest struct{ empty }

func (*DisconnectRequest) MessageType() MessageType { return TypeDisconnectRequest }

type DisconnectResponse struct{ empty }

func (*DisconnectResponse) MessageType() MessageType { return TypeDisconnectResponse }

type PingRequest struct{ empty }

func (*PingRequest) MessageType() MessageType { return TypePingRequest }

type PingResponse struct{ empty }

func (*PingResponse) MessageType() MessageType { return TypePingResponse }

type DeviceInfoRequest struct{ empty }

func (*DeviceInfoRequest) MessageType() MessageType { return TypeDeviceInfoRequest }

// DeviceInfoResponse describes the satellite and its voice capabilities
type DeviceInfoResponse struct {
	UsesPassword               bool
	Name                       string
	MACAddress                 string
	ESPHomeVersion             string
	Model                      string
	Manufacturer               string
	FriendlyName               string
	VoiceAssistantFeatureFlags uint32
}

func (*DeviceInfoResponse) MessageType() MessageType { return TypeDeviceInfoResponse }

func (m *DeviceInfoResponse) appendPayload(b []byte) []byte {
	b = appendBool(b, 1, m.UsesPassword)
	b = appendString(b, 2, m.Name)
	b = appendString(b, 3, m.MACAddress)
	b = appendString(b, 4, m.ESPHomeVersion)
	b = appendString(b, 6, m.Model)
	b = appendString(b, 12, m.Manufacturer)
	b = appendString(b, 13, m.FriendlyName)
	return appendUint32(b, 17, m.VoiceAssistantFeatureFlags)
}

func (m *DeviceInfoResponse) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.UsesPassword = f.bool()
		case 2:
			m.Name = f.string()
		case 3:
			m.MACAddress = f.string()
		case 4:
			m.ESPHomeVersion = f.string()
		case 6:
			m.Model = f.string()
		case 12:
			m.Manufacturer = f.string()
		case 13:
			m.FriendlyName = f.string()
		case 17:
			m.VoiceAssistantFeatureFlags = f.uint32()
		}
		return nil
	})
}

type ListEntitiesRequest struct{ empty }

func (*ListEntitiesRequest) MessageType() MessageType { return TypeListEntitiesRequest }

// ListEntitiesSwitchResponse describes one switch entity
type ListEntitiesSwitchResponse struct {
	ObjectID          string
	Key               uint32
	Name              string
	UniqueID          string
	Icon              string
	AssumedState      bool
	DisabledByDefault bool
	EntityCategory    EntityCategory
	DeviceClass       string
}

func (*ListEntitiesSwitchResponse) MessageType() MessageType { return TypeListEntitiesSwitchResponse }

func (m *ListEntitiesSwitchResponse) appendPayload(b []byte) []byte {
	b = appendString(b, 1, m.ObjectID)
	b = appendFixed32(b, 2, m.Key)
	b = appendString(b, 3, m.Name)
	b = appendString(b, 4, m.UniqueID)
	b = appendString(b, 5, m.Icon)
	b = appendBool(b, 6, m.AssumedState)
	b = appendBool(b, 7, m.DisabledByDefault)
	b = appendUint32(b, 8, uint32(m.EntityCategory))
	return appendString(b, 9, m.DeviceClass)
}

func (m *ListEntitiesSwitchResponse) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.ObjectID = f.string()
		case 2:
			m.Key = f.uint32()
		case 3:
			m.Name = f.string()
		case 4:
			m.UniqueID = f.string()
		case 5:
			m.Icon = f.string()
		case 6:
			m.AssumedState = f.bool()
		case 7:
			m.DisabledByDefault = f.bool()
		case 8:
			m.EntityCategory = EntityCategory(f.uint32())
		case 9:
			m.DeviceClass = f.string()
		}
		return nil
	})
}

type ListEntitiesDoneResponse struct{ empty }

func (*ListEntitiesDoneResponse) MessageType() MessageType { return TypeListEntitiesDoneResponse }

type SubscribeStatesRequest struct{ empty }

func (*SubscribeStatesRequest) MessageType() MessageType { return TypeSubscribeStatesRequest }

type SwitchStateResponse struct {
	Key   uint32
	State bool
}

func (*SwitchStateResponse) MessageType() MessageType { return TypeSwitchStateResponse }

func (m *SwitchStateResponse) appendPayload(b []byte) []byte {
	b = appendFixed32(b, 1, m.Key)
	return appendBool(b, 2, m.State)
}

func (m *SwitchStateResponse) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Key = f.uint32()
		case 2:
			m.State = f.bool()
		}
		return nil
	})
}

type SwitchCommandRequest struct {
	Key   uint32
	State bool
}

func (*SwitchCommandRequest) MessageType() MessageType { return TypeSwitchCommandRequest }

func (m *SwitchCommandRequest) appendPayload(b []byte) []byte {
	b = appendFixed32(b, 1, m.Key)
	return appendBool(b, 2, m.State)
}

func (m *SwitchCommandRequest) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Key = f.uint32()
		case 2:
			m.State = f.bool()
		}
		return nil
	})
}

type SubscribeHomeAssistantStatesRequest struct{ empty }

func (*SubscribeHomeAssistantStatesRequest) MessageType() MessageType {
	return TypeSubscribeHomeAssistantStatesRequest
}

// ListEntitiesMediaPlayerResponse describes the media player entity
type ListEntitiesMediaPlayerResponse struct {
	ObjectID          string
	Key               uint32
	Name              string
	UniqueID          string
	Icon              string
	DisabledByDefault bool
	EntityCategory    EntityCategory
	SupportsPause     bool
}

func (*ListEntitiesMediaPlayerResponse) MessageType() MessageType {
	return TypeListEntitiesMediaPlayerResponse
}

func (m *ListEntitiesMediaPlayerResponse) appendPayload(b []byte) []byte {
	b = appendString(b, 1, m.ObjectID)
	b = appendFixed32(b, 2, m.Key)
	b = appendString(b, 3, m.Name)
	b = appendString(b, 4, m.UniqueID)
	b = appendString(b, 5, m.Icon)
	b = appendBool(b, 6, m.DisabledByDefault)
	b = appendUint32(b, 7, uint32(m.EntityCategory))
	return appendBool(b, 8, m.SupportsPause)
}

func (m *ListEntitiesMediaPlayerResponse) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.ObjectID = f.string()
		case 2:
			m.Key = f.uint32()
		case 3:
			m.Name = f.string()
		case 4:
			m.UniqueID = f.string()
		case 5:
			m.Icon = f.string()
		case 6:
			m.DisabledByDefault = f.bool()
		case 7:
			m.EntityCategory = EntityCategory(f.uint32())
		case 8:
			m.SupportsPause = f.bool()
		}
		return nil
	})
}

type MediaPlayerStateResponse struct {
	Key    uint32
	State  MediaPlayerState
	Volume float32
	Muted  bool
}

func (*MediaPlayerStateResponse) MessageType() MessageType { return TypeMediaPlayerStateResponse }

func (m *MediaPlayerStateResponse) appendPayload(b []byte) []byte {
	b = appendFixed32(b, 1, m.Key)
	b = appendUint32(b, 2, uint32(m.State))
	b = appendFloat(b, 3, m.Volume)
	return appendBool(b, 4, m.Muted)
}

func (m *MediaPlayerStateResponse) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Key = f.uint32()
		case 2:
			m.State = MediaPlayerState(f.uint32())
		case 3:
			m.Volume = f.float()
		case 4:
			m.Muted = f.bool()
		}
		return nil
	})
}

// MediaPlayerCommandRequest carries optional command, volume and media parts
type MediaPlayerCommandRequest struct {
	Key             uint32
	HasCommand      bool
	Command         MediaPlayerCommand
	HasVolume       bool
	Volume          float32
	HasMediaURL     bool
	MediaURL        string
	HasAnnouncement bool
	Announcement    bool
}

func (*MediaPlayerCommandRequest) MessageType() MessageType { return TypeMediaPlayerCommandRequest }

func (m *MediaPlayerCommandRequest) appendPayload(b []byte) []byte {
	b = appendFixed32(b, 1, m.Key)
	b = appendBool(b, 2, m.HasCommand)
	b = appendUint32(b, 3, uint32(m.Command))
	b = appendBool(b, 4, m.HasVolume)
	b = appendFloat(b, 5, m.Volume)
	b = appendBool(b, 6, m.HasMediaURL)
	b = appendString(b, 7, m.MediaURL)
	b = appendBool(b, 8, m.HasAnnouncement)
	return appendBool(b, 9, m.Announcement)
}

func (m *MediaPlayerCommandRequest) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Key = f.uint32()
		case 2:
			m.HasCommand = f.bool()
		case 3:
			m.Command = MediaPlayerCommand(f.uint32())
		case 4:
			m.HasVolume = f.bool()
		case 5:
			m.Volume = f.float()
		case 6:
			m.HasMediaURL = f.bool()
		case 7:
			m.MediaURL = f.string()
		case 8:
			m.HasAnnouncement = f.bool()
		case 9:
			m.Announcement = f.bool()
		}
		return nil
	})
}

type SubscribeVoiceAssistantRequest struct {
	Subscribe bool
	Flags     uint32
}

func (*SubscribeVoiceAssistantRequest) MessageType() MessageType {
	return TypeSubscribeVoiceAssistantRequest
}

func (m *SubscribeVoiceAssistantRequest) appendPayload(b []byte) []byte {
	b = appendBool(b, 1, m.Subscribe)
	return appendUint32(b, 2, m.Flags)
}

func (m *SubscribeVoiceAssistantRequest) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Subscribe = f.bool()
		case 2:
			m.Flags = f.uint32()
		}
		return nil
	})
}

// VoiceAssistantRequest asks the hub to start (or stop) a pipeline run
type VoiceAssistantRequest struct {
	Start          bool
	ConversationID string
	Flags          uint32
	WakeWordPhrase string
}

func (*VoiceAssistantRequest) MessageType() MessageType { return TypeVoiceAssistantRequest }

func (m *VoiceAssistantRequest) appendPayload(b []byte) []byte {
	b = appendBool(b, 1, m.Start)
	b = appendString(b, 2, m.ConversationID)
	b = appendUint32(b, 3, m.Flags)
	return appendString(b, 5, m.WakeWordPhrase)
}

func (m *VoiceAssistantRequest) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Start = f.bool()
		case 2:
			m.ConversationID = f.string()
		case 3:
			m.Flags = f.uint32()
		case 5:
			m.WakeWordPhrase = f.string()
		}
		return nil
	})
}

type VoiceAssistantResponse struct {
	Port  uint32
	Error bool
}

func (*VoiceAssistantResponse) MessageType() MessageType { return TypeVoiceAssistantResponse }

func (m *VoiceAssistantResponse) appendPayload(b []byte) []byte {
	b = appendUint32(b, 1, m.Port)
	return appendBool(b, 2, m.Error)
}

func (m *VoiceAssistantResponse) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Port = f.uint32()
		case 2:
			m.Error = f.bool()
		}
		return nil
	})
}

// EventData is one name/value pair attached to a pipeline event
type EventData struct {
	Name  string
	Value string
}

// VoiceAssistantEventResponse is a pipeline lifecycle event pushed by the hub
type VoiceAssistantEventResponse struct {
	EventType VoiceAssistantEvent
	Data      []EventData
}

func (*VoiceAssistantEventResponse) MessageType() MessageType { return TypeVoiceAssistantEventResponse }

// Value returns the data value for name, or "" if absent
func (m *VoiceAssistantEventResponse) Value(name string) string {
	for _, d := range m.Data {
		if d.Name == name {
			return d.Value
		}
	}
	return ""
}

func (m *VoiceAssistantEventResponse) appendPayload(b []byte) []byte {
	b = appendUint32(b, 1, uint32(m.EventType))
	for _, d := range m.Data {
		var inner []byte
		inner = appendString(inner, 1, d.Name)
		inner = appendString(inner, 2, d.Value)
		b = appendEmbedded(b, 2, inner)
	}
	return b
}

func (m *VoiceAssistantEventResponse) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.EventType = VoiceAssistantEvent(f.uint32())
		case 2:
			var d EventData
			err := walk(f.raw, func(g field) error {
				switch g.num {
				case 1:
					d.Name = g.string()
				case 2:
					d.Value = g.string()
				}
				return nil
			})
			if err != nil {
				return err
			}
			m.Data = append(m.Data, d)
		}
		return nil
	})
}

// VoiceAssistantAudio carries raw microphone or response audio
type VoiceAssistantAudio struct {
	Data []byte
	End  bool
}

func (*VoiceAssistantAudio) MessageType() MessageType { return TypeVoiceAssistantAudio }

func (m *VoiceAssistantAudio) appendPayload(b []byte) []byte {
	b = appendBytes(b, 1, m.Data)
	return appendBool(b, 2, m.End)
}

func (m *VoiceAssistantAudio) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Data = f.bytes()
		case 2:
			m.End = f.bool()
		}
		return nil
	})
}

type VoiceAssistantTimerEventResponse struct {
	EventType    TimerEvent
	TimerID      string
	Name         string
	TotalSeconds uint32
	SecondsLeft  uint32
	IsActive     bool
}

func (*VoiceAssistantTimerEventResponse) MessageType() MessageType {
	return TypeVoiceAssistantTimerEventResponse
}

func (m *VoiceAssistantTimerEventResponse) appendPayload(b []byte) []byte {
	b = appendUint32(b, 1, uint32(m.EventType))
	b = appendString(b, 2, m.TimerID)
	b = appendString(b, 3, m.Name)
	b = appendUint32(b, 4, m.TotalSeconds)
	b = appendUint32(b, 5, m.SecondsLeft)
	return appendBool(b, 6, m.IsActive)
}

func (m *VoiceAssistantTimerEventResponse) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.EventType = TimerEvent(f.uint32())
		case 2:
			m.TimerID = f.string()
		case 3:
			m.Name = f.string()
		case 4:
			m.TotalSeconds = f.uint32()
		case 5:
			m.SecondsLeft = f.uint32()
		case 6:
			m.IsActive = f.bool()
		}
		return nil
	})
}

type VoiceAssistantAnnounceRequest struct {
	MediaID            string
	Text               string
	PreannounceMediaID string
	StartConversation  bool
}

func (*VoiceAssistantAnnounceRequest) MessageType() MessageType {
	return TypeVoiceAssistantAnnounceRequest
}

func (m *VoiceAssistantAnnounceRequest) appendPayload(b []byte) []byte {
	b = appendString(b, 1, m.MediaID)
	b = appendString(b, 2, m.Text)
	b = appendString(b, 3, m.PreannounceMediaID)
	return appendBool(b, 4, m.StartConversation)
}

func (m *VoiceAssistantAnnounceRequest) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.MediaID = f.string()
		case 2:
			m.Text = f.string()
		case 3:
			m.PreannounceMediaID = f.string()
		case 4:
			m.StartConversation = f.bool()
		}
		return nil
	})
}

type VoiceAssistantAnnounceFinished struct {
	Success bool
}

func (*VoiceAssistantAnnounceFinished) MessageType() MessageType {
	return TypeVoiceAssistantAnnounceFinished
}

func (m *VoiceAssistantAnnounceFinished) appendPayload(b []byte) []byte {
	return appendBool(b, 1, m.Success)
}

func (m *VoiceAssistantAnnounceFinished) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		if f.num == 1 {
			m.Success = f.bool()
		}
		return nil
	})
}

// VoiceAssistantConfigurationRequest asks for the wake word configuration.
// The external wake word list the hub may attach is skipped.
type VoiceAssistantConfigurationRequest struct{ empty }

func (*VoiceAssistantConfigurationRequest) MessageType() MessageType {
	return TypeVoiceAssistantConfigurationRequest
}

// WakeWord describes one available wake word model
type WakeWord struct {
	ID               string
	WakeWord         string
	TrainedLanguages []string
}

type VoiceAssistantConfigurationResponse struct {
	AvailableWakeWords []WakeWord
	ActiveWakeWords    []string
	MaxActiveWakeWords uint32
}

func (*VoiceAssistantConfigurationResponse) MessageType() MessageType {
	return TypeVoiceAssistantConfigurationResponse
}

func (m *VoiceAssistantConfigurationResponse) appendPayload(b []byte) []byte {
	for _, w := range m.AvailableWakeWords {
		var inner []byte
		inner = appendString(inner, 1, w.ID)
		inner = appendString(inner, 2, w.WakeWord)
		inner = appendRepeatedString(inner, 3, w.TrainedLanguages)
		b = appendEmbedded(b, 1, inner)
	}
	b = appendRepeatedString(b, 2, m.ActiveWakeWords)
	return appendUint32(b, 3, m.MaxActiveWakeWords)
}

func (m *VoiceAssistantConfigurationResponse) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			var w WakeWord
			err := walk(f.raw, func(g field) error {
				switch g.num {
				case 1:
					w.ID = g.string()
				case 2:
					w.WakeWord = g.string()
				case 3:
					w.TrainedLanguages = append(w.TrainedLanguages, g.string())
				}
				return nil
			})
			if err != nil {
				return err
			}
			m.AvailableWakeWords = append(m.AvailableWakeWords, w)
		case 2:
			m.ActiveWakeWords = append(m.ActiveWakeWords, f.string())
		case 3:
			m.MaxActiveWakeWords = f.uint32()
		}
		return nil
	})
}

type VoiceAssistantSetConfiguration struct {
	ActiveWakeWords []string
}

func (*VoiceAssistantSetConfiguration) MessageType() MessageType {
	return TypeVoiceAssistantSetConfiguration
}

func (m *VoiceAssistantSetConfiguration) appendPayload(b []byte) []byte {
	return appendRepeatedString(b, 1, m.ActiveWakeWords)
}

func (m *VoiceAssistantSetConfiguration) unmarshalPayload(b []byte) error {
	return walk(b, func(f field) error {
		if f.num == 1 {
			m.ActiveWakeWords = append(m.ActiveWakeWords, f.string())
		}
		return nil
	})
}
