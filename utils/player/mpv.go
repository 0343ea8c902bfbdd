// Package player plays URLs and files through mpv processes.
package player

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"voice-satellite/log"

	"github.com/google/uuid"
)

// MpvPlayer plays one sequence of URLs at a time. Volume and pause changes
// reach the running process over mpv's JSON IPC socket.
type MpvPlayer struct {
	name      string
	binary    string
	device    string
	duckRatio float64

	mu      sync.Mutex
	volume  int
	ducked  bool
	paused  bool
	current *playback
}

// playback is one Play call
type playback struct {
	cancel context.CancelFunc
	once   sync.Once
	done   func()
	socket string
}

func (pb *playback) finish() {
	pb.once.Do(func() {
		if pb.done != nil {
			pb.done()
		}
	})
}

// Options configures an MpvPlayer
type Options struct {
	Name      string  // used in log lines
	Binary    string  // mpv executable
	Device    string  // mpv --audio-device, empty for default
	DuckRatio float64 // volume multiplier while ducked
	Volume    int     // initial volume 0-100
}

// NewMpvPlayer creates an idle player
func NewMpvPlayer(opts Options) *MpvPlayer {
	if opts.Binary == "" {
		opts.Binary = "mpv"
	}
	if opts.DuckRatio <= 0 || opts.DuckRatio > 1 {
		opts.DuckRatio = 0.5
	}
	if opts.Volume <= 0 || opts.Volume > 100 {
		opts.Volume = 100
	}
	return &MpvPlayer{
		name:      opts.Name,
		binary:    opts.Binary,
		device:    opts.Device,
		duckRatio: opts.DuckRatio,
		volume:    opts.Volume,
	}
}

// Play stops whatever is playing and plays urls in order. done runs exactly
// once when the sequence ends, fails or is superseded; never when urls is empty.
func (p *MpvPlayer) Play(urls []string, done func()) {
	if len(urls) == 0 {
		return
	}
	p.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	pb := &playback{
		cancel: cancel,
		done:   done,
		socket: filepath.Join(os.TempDir(), "mpv-"+uuid.NewString()+".sock"),
	}

	p.mu.Lock()
	p.current = pb
	p.paused = false
	volume := p.effectiveVolume()
	p.mu.Unlock()

	go p.run(ctx, pb, urls, volume)
}

func (p *MpvPlayer) run(ctx context.Context, pb *playback, urls []string, volume int) {
	defer func() {
		os.Remove(pb.socket)
		p.mu.Lock()
		if p.current == pb {
			p.current = nil
			p.paused = false
		}
		p.mu.Unlock()
		pb.finish()
	}()

	for _, url := range urls {
		if ctx.Err() != nil {
			return
		}

		args := []string{
			"--no-video",
			"--no-terminal",
			"--really-quiet",
			"--volume=" + strconv.Itoa(volume),
			"--input-ipc-server=" + pb.socket,
		}
		if p.device != "" {
			args = append(args, "--audio-device="+p.device)
		}
		args = append(args, url)

		cmd := exec.CommandContext(ctx, p.binary, args...)
		if err := cmd.Start(); err != nil {
			log.Errorf("%s player: start %s: %v", p.name, p.binary, err)
			return
		}
		log.Debugf("%s player: playing %s", p.name, url)

		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			log.Warnf("%s player: %s: %v", p.name, url, err)
		}

		// the volume may have changed while the previous item played
		p.mu.Lock()
		volume = p.effectiveVolume()
		p.mu.Unlock()
	}
}

// Stop ends the current sequence; its done callback still runs
func (p *MpvPlayer) Stop() {
	p.mu.Lock()
	pb := p.current
	p.current = nil
	p.paused = false
	p.mu.Unlock()

	if pb != nil {
		pb.cancel()
	}
}

func (p *MpvPlayer) Pause() {
	p.mu.Lock()
	pb := p.current
	if pb != nil {
		p.paused = true
	}
	p.mu.Unlock()

	if pb != nil {
		p.command(pb, "set_property", "pause", true)
	}
}

func (p *MpvPlayer) Resume() {
	p.mu.Lock()
	pb := p.current
	p.paused = false
	p.mu.Unlock()

	if pb != nil {
		p.command(pb, "set_property", "pause", false)
	}
}

// SetVolume sets the volume in percent, clamped to 0-100
func (p *MpvPlayer) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	} else if volume > 100 {
		volume = 100
	}
	p.mu.Lock()
	p.volume = volume
	p.mu.Unlock()
	p.applyVolume()
}

// Volume returns the configured volume, ignoring ducking
func (p *MpvPlayer) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *MpvPlayer) Duck() {
	p.mu.Lock()
	p.ducked = true
	p.mu.Unlock()
	p.applyVolume()
}

func (p *MpvPlayer) Unduck() {
	p.mu.Lock()
	p.ducked = false
	p.mu.Unlock()
	p.applyVolume()
}

// IsPlaying reports whether a sequence is running and not paused
func (p *MpvPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil && !p.paused
}

// effectiveVolume must be called with mu held
func (p *MpvPlayer) effectiveVolume() int {
	if p.ducked {
		return int(float64(p.volume) * p.duckRatio)
	}
	return p.volume
}

func (p *MpvPlayer) applyVolume() {
	p.mu.Lock()
	pb := p.current
	volume := p.effectiveVolume()
	p.mu.Unlock()

	if pb != nil {
		p.command(pb, "set_property", "volume", volume)
	}
}

// command sends one JSON IPC command. The socket only exists once mpv has
// started, so failures are expected and only debug logged.
func (p *MpvPlayer) command(pb *playback, args ...interface{}) {
	conn, err := net.DialTimeout("unix", pb.socket, 200*time.Millisecond)
	if err != nil {
		log.Debugf("%s player: ipc unavailable: %v", p.name, err)
		return
	}
	defer conn.Close()

	payload, err := json.Marshal(map[string]interface{}{"command": args})
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
	if _, err := fmt.Fprintf(conn, "%s\n", payload); err != nil {
		log.Debugf("%s player: ipc write: %v", p.name, err)
	}
}
