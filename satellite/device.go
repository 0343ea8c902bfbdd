package satellite

import (
	"regexp"
	"strings"

	"voice-satellite/api"
)

const (
	// Version is the protocol server version reported in DeviceInfo
	Version = "2025.9.0"

	Manufacturer = "Open Home Foundation"
	Model        = "Linux Voice Assistant"

	// APIVersionMajor and APIVersionMinor are sent in HelloResponse
	APIVersionMajor = 1
	APIVersionMinor = 10
)

// FeatureFlags advertises streaming voice, API audio, timers, announcements
// and hub-started conversations.
const FeatureFlags = uint32(api.FeatureVoiceAssistant |
	api.FeatureAPIAudio |
	api.FeatureTimers |
	api.FeatureAnnounce |
	api.FeatureStartConversation)

var separators = regexp.MustCompile(`[\s-]+`)

// Slug derives the device name: the lowercased display name with whitespace
// and hyphen runs collapsed to "-", followed by the last six hex digits of
// the MAC address.
func Slug(name, mac string) string {
	slug := separators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	slug = strings.Trim(slug, "-")

	hex := strings.ToLower(strings.NewReplacer(":", "", "-", "").Replace(mac))
	if len(hex) > 6 {
		hex = hex[len(hex)-6:]
	}
	if hex == "" {
		return slug
	}
	if slug == "" {
		return hex
	}
	return slug + "-" + hex
}

// DeviceInfo builds the DeviceInfoResponse for st
func (st *State) DeviceInfo() *api.DeviceInfoResponse {
	return &api.DeviceInfoResponse{
		UsesPassword:               false,
		Name:                       st.slug,
		MACAddress:                 st.mac,
		ESPHomeVersion:             st.version,
		Model:                      Model,
		Manufacturer:               Manufacturer,
		FriendlyName:               st.name,
		VoiceAssistantFeatureFlags: FeatureFlags,
	}
}
