package utils

import (
	"fmt"
	"net"
	"os/exec"
	"strings"

	"voice-satellite/config"
	"voice-satellite/log"

	"gopkg.in/hraban/opus.v2"
)

// Init checks the runtime dependencies the configuration needs
// Params:
//   - cfg: satellite configuration
//
// Returns:
//   - error: if the player binary is missing or opus decoding is unavailable
func Init(cfg *config.Config) error {
	path, err := exec.LookPath(cfg.Player.Binary)
	if err != nil {
		return fmt.Errorf("player binary %q not found: %w", cfg.Player.Binary, err)
	}
	log.Debugf("using player %s", path)

	if cfg.Audio.Source == "websocket" && cfg.Audio.WebSocket.Format == "opus" {
		if _, err := opus.NewDecoder(16000, 1); err != nil {
			return fmt.Errorf("opus decoder unavailable: %w", err)
		}
	}

	if cfg.Audio.Source == "arecord" {
		if _, err := exec.LookPath("arecord"); err != nil {
			return fmt.Errorf("arecord not found: %w", err)
		}
	}
	return nil
}

// GetLocalIP returns the first non-loopback IPv4 address, or "127.0.0.1"
func GetLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return ip4.String()
			}
		}
	}
	return "127.0.0.1"
}

// GetMACAddress returns the MAC of the first up, non-loopback interface
// with a hardware address, formatted as aa:bb:cc:dd:ee:ff
func GetMACAddress() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		return strings.ToLower(iface.HardwareAddr.String()), nil
	}
	return "", fmt.Errorf("no network interface with a hardware address")
}
