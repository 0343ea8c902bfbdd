package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voice-satellite/config"
	"voice-satellite/log"
	"voice-satellite/model"
	"voice-satellite/satellite"
	"voice-satellite/server"
	"voice-satellite/utils"
	"voice-satellite/utils/audio"
	"voice-satellite/utils/mqtt"
	"voice-satellite/utils/player"
	"voice-satellite/utils/wakeword"
)

func main() {
	// path of the YAML configuration, config.yaml in the working directory by default
	configPath := flag.String("config", "config.yaml", "path of the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := log.Init(&cfg.Log); err != nil {
		fmt.Printf("failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	log.Infof("starting voice satellite %q...", cfg.Name)
	log.Infof("loaded configuration: %s", *configPath)

	if err := utils.Init(cfg); err != nil {
		log.Fatalf("runtime check failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MAC == "" {
		if cfg.MAC, err = utils.GetMACAddress(); err != nil {
			log.Warnf("cannot detect MAC address: %v", err)
			cfg.MAC = "00:00:00:00:00:00"
		}
	}
	log.SetDevice(satellite.Slug(cfg.Name, cfg.MAC))

	prefs, err := model.LoadPreferences(cfg.PreferencesFile)
	if err != nil {
		log.Warnf("ignoring preferences: %v", err)
		prefs = &model.Preferences{}
	}

	// the classifier service must be up before models can be loaded
	runtime := wakeword.NewHTTPRuntime(cfg.WakeWord.Inference.URL, time.Duration(cfg.WakeWord.Inference.Timeout)*time.Second)
	if cfg.WakeWord.Inference.WaitReady {
		if err := server.WaitForInference(ctx, runtime, 30, time.Second); err != nil {
			log.Fatalf("wake word inference service: %v", err)
		}
	}

	available := wakeword.ScanDirs(cfg.WakeWord.Dirs)
	stopInfo, ok := available[cfg.WakeWord.StopModel]
	if !ok {
		log.Fatalf("stop model %q not found in %v", cfg.WakeWord.StopModel, cfg.WakeWord.Dirs)
	}
	delete(available, cfg.WakeWord.StopModel)
	stopModel, err := wakeword.Load(stopInfo, runtime)
	if err != nil {
		log.Fatalf("load stop model: %v", err)
	}
	log.Infof("found %d wake word models", len(available))

	music := player.NewMpvPlayer(player.Options{
		Name:      "music",
		Binary:    cfg.Player.Binary,
		Device:    cfg.Player.Device,
		DuckRatio: cfg.Player.DuckRatio,
	})
	tts := player.NewMpvPlayer(player.Options{
		Name:   "tts",
		Binary: cfg.Player.Binary,
		Device: cfg.Player.Device,
	})

	// the event feed is optional; the satellite runs without it
	var events satellite.EventSink
	publisher, err := mqtt.NewPublisher(&cfg.MQTT, satellite.Slug(cfg.Name, cfg.MAC))
	if err != nil {
		log.Warnf("mqtt disabled: %v", err)
	} else if publisher != nil {
		events = publisher
		defer publisher.Close()
	}

	var state *satellite.State
	engine := wakeword.NewEngine(wakeword.EngineConfig{
		QueueSize:  cfg.Audio.QueueSize,
		Refractory: time.Duration(cfg.WakeWord.RefractorySeconds * float64(time.Second)),
		StopModel:  stopModel,
		Target:     func() wakeword.Target { return state.EngineTarget() },
		Muted:      func() bool { return state.Muted() },
	})

	state = satellite.NewState(satellite.Options{
		Name: cfg.Name,
		MAC:  cfg.MAC,
		Sounds: satellite.Sounds{
			Wakeup:        cfg.Sounds.Wakeup,
			TimerFinished: cfg.Sounds.TimerFinished,
			Processing:    cfg.Sounds.Processing,
		},
		MaxActiveWakeWords: cfg.WakeWord.MaxActive,
		PreferencesPath:    cfg.PreferencesFile,
		Preferences:        prefs,
		Available:          available,
		Runtime:            runtime,
		Engine:             engine,
		Music:              music,
		TTS:                tts,
		Events:             events,
	})

	// restore the saved wake words, falling back to the default model
	active := prefs.ActiveWakeWords
	if len(active) == 0 || !state.SetActiveWakeWords(active) {
		if !state.SetActiveWakeWords([]string{cfg.WakeWord.DefaultModel}) {
			log.Fatalf("default wake word %q could not be loaded", cfg.WakeWord.DefaultModel)
		}
	}

	var source audio.Source
	switch cfg.Audio.Source {
	case "websocket":
		ws := cfg.Audio.WebSocket
		source = audio.NewWebSocketSource(ws.Listen, ws.Path, ws.Format, cfg.Audio.BlockSize)
	default:
		source = audio.NewARecordSource(cfg.Audio.Device, cfg.Audio.BlockSize)
	}

	go engine.Run(ctx)
	if err := source.Start(ctx, func(chunk []byte) { engine.Push(chunk) }); err != nil {
		log.Fatalf("start microphone %s: %v", source.Name(), err)
	}
	log.Infof("microphone: %s", source.Name())

	if cfg.Metrics.Enabled {
		go func() {
			if err := server.StartMetricsServer(ctx, cfg.Metrics.Listen); err != nil {
				log.Errorf("metrics server: %v", err)
			}
		}()
	}

	if cfg.Discovery.Enabled {
		shutdown, err := server.StartDiscovery(cfg, state)
		if err != nil {
			log.Warnf("discovery disabled: %v", err)
		} else {
			defer shutdown()
		}
	}

	// blocks until a signal arrives
	if err := server.StartAPIServer(ctx, cfg, state); err != nil {
		log.Errorf("API server error: %v", err)
	}

	log.Infof("shutting down")
	source.Close()
	engine.Close()
	tts.Stop()
	music.Stop()
}
