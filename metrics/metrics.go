package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_satellite"

// Collectors registered with the default Prometheus registry
var (
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_total",
		Help:      "API connections accepted",
	})
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_connections",
		Help:      "API connections currently open",
	})
	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_received_total",
		Help:      "Frames decoded from hub connections, by message type",
	}, []string{"type"})
	FramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_sent_total",
		Help:      "Frames written to hub connections",
	})
	ProtocolErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "protocol_errors_total",
		Help:      "Connections torn down because of framing errors",
	})
	SessionTakeovers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_takeovers_total",
		Help:      "Live sessions evicted by a newer connection",
	})

	WakeActivations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wake_activations_total",
		Help:      "Wake word detections forwarded to the satellite, by model",
	}, []string{"model"})
	SuppressedActivations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wake_activations_suppressed_total",
		Help:      "Wake word detections dropped by mute or refractory gating",
	}, []string{"reason"})
	StopActivations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stop_activations_total",
		Help:      "Stop word detections forwarded to the satellite",
	})
	ChunksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audio_chunks_dropped_total",
		Help:      "Microphone chunks dropped because the engine queue was full",
	})
	ChunkErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audio_chunk_errors_total",
		Help:      "Microphone chunks that failed feature extraction or inference",
	})
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_runs_total",
		Help:      "Pipeline runs requested from the hub, by trigger",
	}, []string{"trigger"})
)
