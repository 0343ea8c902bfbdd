package audio

import (
	"context"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"voice-satellite/log"
)

// CommandSource reads raw PCM from a capture process such as arecord and
// restarts it when it exits.
type CommandSource struct {
	name      string
	command   string
	args      []string
	chunkSize int
	backoff   time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewARecordSource captures from an ALSA device with arecord
func NewARecordSource(device string, blockSize int) *CommandSource {
	if strings.TrimSpace(device) == "" {
		device = "default"
	}
	args := []string{
		"-q",
		"-D", device,
		"-r", strconv.Itoa(SampleRate),
		"-c", strconv.Itoa(Channels),
		"-f", "S16_LE",
		"-t", "raw",
	}
	return NewCommandSource("arecord:"+device, "arecord", args, blockSize)
}

// NewCommandSource runs command with args and reads blockSize samples per chunk from its stdout
func NewCommandSource(name, command string, args []string, blockSize int) *CommandSource {
	if blockSize <= 0 {
		blockSize = 1024
	}
	return &CommandSource{
		name:      name,
		command:   command,
		args:      args,
		chunkSize: blockSize * SampleWidth,
		backoff:   time.Second,
	}
}

func (s *CommandSource) Name() string { return s.name }

// Start launches the capture loop in the background
func (s *CommandSource) Start(ctx context.Context, push func(chunk []byte)) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx, push)
	}()
	return nil
}

// Close stops the capture process and waits for the loop to exit
func (s *CommandSource) Close() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return nil
}

func (s *CommandSource) loop(ctx context.Context, push func(chunk []byte)) {
	for {
		if err := s.capture(ctx, push); err != nil && ctx.Err() == nil {
			log.Errorf("%s: capture failed: %v", s.name, err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.backoff):
			log.Infof("%s: restarting capture", s.name)
		}
	}
}

func (s *CommandSource) capture(ctx context.Context, push func(chunk []byte)) error {
	cmd := exec.CommandContext(ctx, s.command, s.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	log.Infof("%s: capturing %d byte chunks", s.name, s.chunkSize)

	for {
		chunk := make([]byte, s.chunkSize)
		if _, err := io.ReadFull(stdout, chunk); err != nil {
			waitErr := cmd.Wait()
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				if waitErr != nil {
					return waitErr
				}
				log.Warnf("%s: capture process exited", s.name)
				return nil
			}
			return err
		}
		push(chunk)
	}
}
