package wakeword

// Activation is the normalized result of feeding one feature frame
type Activation struct {
	Fired       bool
	Probability float32
}

// Detector is a streaming classifier of either family
type Detector interface {
	Feed(features []float32) (Activation, error)
}

// MicroClassifier decides per feature frame
type MicroClassifier interface {
	ProcessStreaming(features []float32) (bool, error)
}

// OpenClassifier scores a feature window, one probability per prediction
type OpenClassifier interface {
	ProcessStreaming(features []float32) ([]float32, error)
}

// Runtime loads classifiers for model files
type Runtime interface {
	LoadMicro(info ModelInfo) (MicroClassifier, error)
	LoadOpen(info ModelInfo) (OpenClassifier, error)
}

type microDetector struct {
	classifier MicroClassifier
}

// NewMicroDetector adapts a boolean classifier
func NewMicroDetector(c MicroClassifier) Detector {
	return &microDetector{classifier: c}
}

func (d *microDetector) Feed(features []float32) (Activation, error) {
	fired, err := d.classifier.ProcessStreaming(features)
	if err != nil {
		return Activation{}, err
	}
	if fired {
		return Activation{Fired: true, Probability: 1}, nil
	}
	return Activation{}, nil
}

// OpenThreshold is the probability an open family model must exceed to fire
const OpenThreshold = 0.5

type openDetector struct {
	classifier OpenClassifier
}

// NewOpenDetector adapts a probability classifier, firing above OpenThreshold
func NewOpenDetector(c OpenClassifier) Detector {
	return &openDetector{classifier: c}
}

func (d *openDetector) Feed(features []float32) (Activation, error) {
	probs, err := d.classifier.ProcessStreaming(features)
	if err != nil {
		return Activation{}, err
	}

	var act Activation
	for _, p := range probs {
		if p > act.Probability {
			act.Probability = p
		}
	}
	act.Fired = act.Probability > OpenThreshold
	return act, nil
}
