package vad

import (
	"sync"

	"github.com/ayushsaha1018/ai-interviewer/internal/audio"
)

// Classifier returns the probability (0..1) that a frame contains speech.
type Classifier interface {
	Probability(frame []byte) (float64, error)
}

// Loader builds a classifier. A failing loader leaves the monitor errored.
type Loader func() (Classifier, error)

const (
	defaultSmoothingAlpha = 0.3
	defaultMinVolume      = 0.01
	defaultMaxVolume      = 0.2
)

// EnergyClassifier maps smoothed RMS energy to a speech probability.
// It needs no model, at the cost of treating any loud noise as speech.
type EnergyClassifier struct {
	MinVolume float64
	MaxVolume float64

	mu       sync.Mutex
	alpha    float64
	smoothed float64
}

func NewEnergyClassifier() *EnergyClassifier {
	return &EnergyClassifier{
		MinVolume: defaultMinVolume,
		MaxVolume: defaultMaxVolume,
		alpha:     defaultSmoothingAlpha,
	}
}

// EnergyLoader returns a Loader for the default energy classifier.
func EnergyLoader() Loader {
	return func() (Classifier, error) { return NewEnergyClassifier(), nil }
}

func (c *EnergyClassifier) Probability(frame []byte) (float64, error) {
	rms := audio.RMS(frame)

	c.mu.Lock()
	c.smoothed = c.alpha*rms + (1-c.alpha)*c.smoothed
	s := c.smoothed
	c.mu.Unlock()

	if s <= c.MinVolume {
		return 0, nil
	}
	p := (s - c.MinVolume) / (c.MaxVolume - c.MinVolume)
	if p > 1 {
		p = 1
	}
	return p, nil
}
