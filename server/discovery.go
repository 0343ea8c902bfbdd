package server

import (
	"fmt"
	"strings"

	"voice-satellite/config"
	"voice-satellite/log"
	"voice-satellite/satellite"

	"github.com/grandcat/zeroconf"
)

const (
	discoveryService = "_esphomelib._tcp"
	discoveryDomain  = "local."
)

// StartDiscovery advertises the API server over mDNS so the hub can find it
// Params:
//   - cfg: satellite configuration with the API port
//   - state: shared state providing the device name and MAC
//
// Returns:
//   - func(): stops the advertisement
//   - error: if registration failed
func StartDiscovery(cfg *config.Config, state *satellite.State) (func(), error) {
	server, err := zeroconf.Register(state.Slug(), discoveryService, discoveryDomain, cfg.API.Port, discoveryTXT(state), nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	log.Infof("mdns: advertising %s as %s on port %d", state.Slug(), discoveryService, cfg.API.Port)
	return server.Shutdown, nil
}

func discoveryTXT(state *satellite.State) []string {
	mac := strings.ToLower(strings.ReplaceAll(state.MAC(), ":", ""))
	return []string{
		"friendly_name=" + state.Name(),
		"version=" + satellite.Version,
		"mac=" + mac,
		"platform=linux",
		"board=host",
		"network=ethernet",
	}
}
