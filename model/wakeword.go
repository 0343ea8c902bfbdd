package model

// WakeWordFile is the JSON config stored next to every wake word model
type WakeWordFile struct {
	Type             string   `json:"type"` // "micro" or "openWakeWord"
	WakeWord         string   `json:"wake_word"`
	Author           string   `json:"author,omitempty"`
	Model            string   `json:"model,omitempty"` // model file, relative to the config
	TrainedLanguages []string `json:"trained_languages,omitempty"`

	Micro *MicroSettings `json:"micro,omitempty"`
}

// MicroSettings are the detection parameters of a micro model
type MicroSettings struct {
	ProbabilityCutoff float64 `json:"probability_cutoff"`
	SlidingWindowSize int     `json:"sliding_window_size"`
	FeatureStepSize   int     `json:"feature_step_size,omitempty"`
}
