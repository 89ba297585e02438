// Package vad turns a continuous PCM16 stream into speech start/end events.
package vad

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

var ErrErrored = errors.New("speech detection unavailable")

type Status int

const (
	StatusLoading Status = iota
	StatusListening
	StatusPaused
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusListening:
		return "listening"
	case StatusPaused:
		return "paused"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	SpeechStart EventKind = iota
	SpeechEnd
	Errored
)

func (k EventKind) String() string {
	switch k {
	case SpeechStart:
		return "speech_start"
	case SpeechEnd:
		return "speech_end"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Event is delivered to the single consumer of Events(). Audio is only set on
// SpeechEnd and holds the captured PCM16 mono waveform.
type Event struct {
	Kind  EventKind
	At    time.Time
	Audio []byte
	Err   error
}

type Config struct {
	PositiveSpeechThreshold float64
	NegativeSpeechThreshold float64
	MinSpeechFrames         int
	RedemptionFrames        int
	PreSpeechPadFrames      int
	FrameSamples            int
	SampleRate              int
}

func DefaultConfig() Config {
	return Config{
		PositiveSpeechThreshold: 0.6,
		NegativeSpeechThreshold: 0.45,
		MinSpeechFrames:         4,
		RedemptionFrames:        8,
		PreSpeechPadFrames:      1,
		FrameSamples:            512,
		SampleRate:              16000,
	}
}

func (c Config) Validate() error {
	if c.PositiveSpeechThreshold <= 0 || c.PositiveSpeechThreshold > 1 {
		return fmt.Errorf("positive threshold %.2f out of range", c.PositiveSpeechThreshold)
	}
	if c.NegativeSpeechThreshold < 0 || c.NegativeSpeechThreshold > c.PositiveSpeechThreshold {
		return fmt.Errorf("negative threshold %.2f must be within [0, %.2f]", c.NegativeSpeechThreshold, c.PositiveSpeechThreshold)
	}
	if c.MinSpeechFrames < 1 || c.RedemptionFrames < 1 {
		return errors.New("min speech frames and redemption frames must be positive")
	}
	if c.PreSpeechPadFrames < 0 {
		return errors.New("pre speech pad frames must not be negative")
	}
	if c.SampleRate <= 0 || c.FrameSamples <= 0 {
		return errors.New("sample rate and frame size must be positive")
	}
	return nil
}

// Monitor wraps a Classifier. Process is called from the capture thread;
// events reach the core through Events().
type Monitor struct {
	cfg Config
	now func() time.Time

	mu         sync.Mutex
	classifier Classifier
	status     Status
	wantRun    bool

	speaking     bool
	consecSpeech int
	nonSpeech    int
	misfires     int
	pre          [][]byte
	buf          []byte

	events chan Event
}

func New(cfg Config) *Monitor {
	if cfg.NegativeSpeechThreshold == 0 {
		cfg.NegativeSpeechThreshold = cfg.PositiveSpeechThreshold - 0.15
		if cfg.NegativeSpeechThreshold < 0 {
			cfg.NegativeSpeechThreshold = 0
		}
	}
	return &Monitor{
		cfg:     cfg,
		now:     time.Now,
		status:  StatusLoading,
		wantRun: true,
		events:  make(chan Event, 16),
	}
}

// Init loads the classifier. Failure is permanent: the monitor reports
// StatusErrored and emits a single Errored event. There is no retry.
func (m *Monitor) Init(load Loader) error {
	err := m.cfg.Validate()
	var c Classifier
	if err == nil {
		c, err = load()
		if err == nil && c == nil {
			err = errors.New("loader returned no classifier")
		}
	}

	m.mu.Lock()
	if err != nil {
		m.status = StatusErrored
		m.mu.Unlock()
		log.Printf("[vad] classifier init failed: %v", err)
		m.emit(Event{Kind: Errored, At: m.now(), Err: err})
		return fmt.Errorf("%w: %v", ErrErrored, err)
	}
	m.classifier = c
	if m.wantRun {
		m.status = StatusListening
	} else {
		m.status = StatusPaused
	}
	st := m.status
	m.mu.Unlock()
	log.Printf("[vad] ready status=%s threshold=%.2f min_frames=%d", st, m.cfg.PositiveSpeechThreshold, m.cfg.MinSpeechFrames)
	return nil
}

func (m *Monitor) Events() <-chan Event { return m.events }

func (m *Monitor) Config() Config { return m.cfg }

func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// UserSpeaking reports whether an utterance is in progress.
func (m *Monitor) UserSpeaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

// Misfires counts speech bursts that ended before the start count.
func (m *Monitor) Misfires() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.misfires
}

// Start resumes listening. It is a no-op when already listening and fails
// once the monitor has errored.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.status {
	case StatusErrored:
		return ErrErrored
	case StatusLoading:
		m.wantRun = true
	case StatusPaused:
		m.wantRun = true
		m.status = StatusListening
	}
	return nil
}

// Pause suspends listening and discards any utterance in progress.
func (m *Monitor) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.status {
	case StatusLoading:
		m.wantRun = false
	case StatusListening:
		m.wantRun = false
		m.status = StatusPaused
		m.resetLocked()
	}
}

// Process classifies one PCM16 frame.
func (m *Monitor) Process(frame []byte) {
	if len(frame) == 0 {
		return
	}
	m.mu.Lock()
	if m.status != StatusListening {
		m.mu.Unlock()
		return
	}
	metricFrames.Inc()

	p, err := m.classifier.Probability(frame)
	if err != nil {
		metricClassifierErrors.Inc()
		p = 0
	}
	ev, ok := m.stepLocked(frame, p)
	m.mu.Unlock()

	if ok {
		m.emit(ev)
	}
}

func (m *Monitor) stepLocked(frame []byte, p float64) (Event, bool) {
	now := m.now()

	if !m.speaking {
		if p >= m.cfg.PositiveSpeechThreshold {
			if m.consecSpeech == 0 {
				for _, f := range m.pre {
					m.buf = append(m.buf, f...)
				}
				m.pre = m.pre[:0]
			}
			m.consecSpeech++
			m.buf = append(m.buf, frame...)
			if m.consecSpeech >= m.cfg.MinSpeechFrames {
				m.speaking = true
				m.nonSpeech = 0
				metricStarts.Inc()
				return Event{Kind: SpeechStart, At: now}, true
			}
			return Event{}, false
		}
		// Short burst that never reached the start count.
		if m.consecSpeech > 0 {
			m.misfires++
			metricMisfires.Inc()
		}
		m.consecSpeech = 0
		m.buf = m.buf[:0]
		m.pushPre(frame)
		return Event{}, false
	}

	m.buf = append(m.buf, frame...)
	switch {
	case p >= m.cfg.PositiveSpeechThreshold:
		m.nonSpeech = 0
	case p < m.cfg.NegativeSpeechThreshold:
		m.nonSpeech++
		if m.nonSpeech >= m.cfg.RedemptionFrames {
			captured := make([]byte, len(m.buf))
			copy(captured, m.buf)
			metricEnds.Inc()
			metricUtteranceMS.Observe(float64(m.durationMS(len(captured))))
			m.resetLocked()
			return Event{Kind: SpeechEnd, At: now, Audio: captured}, true
		}
	}
	return Event{}, false
}

func (m *Monitor) pushPre(frame []byte) {
	if m.cfg.PreSpeechPadFrames == 0 {
		return
	}
	f := make([]byte, len(frame))
	copy(f, frame)
	m.pre = append(m.pre, f)
	if len(m.pre) > m.cfg.PreSpeechPadFrames {
		m.pre = m.pre[len(m.pre)-m.cfg.PreSpeechPadFrames:]
	}
}

func (m *Monitor) resetLocked() {
	m.speaking = false
	m.consecSpeech = 0
	m.nonSpeech = 0
	m.buf = nil
	m.pre = m.pre[:0]
}

func (m *Monitor) durationMS(n int) int64 {
	return int64(n/2) * 1000 / int64(m.cfg.SampleRate)
}

func (m *Monitor) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		metricEventDrops.Inc()
		log.Printf("[vad] dropped %s event, consumer too slow", ev.Kind)
	}
}
