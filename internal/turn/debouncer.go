// Package turn decides when a finished utterance becomes a submitted turn.
package turn

import (
	"log"
	"time"

	"github.com/benbjohnson/clock"
)

const DefaultWindow = 3000 * time.Millisecond

type Outcome int

const (
	// OutcomeStale means the firing was superseded by a cancel or re-arm.
	OutcomeStale Outcome = iota
	OutcomeSubmit
	// OutcomeDropped means the window elapsed while the assistant was
	// playing. The utterance is discarded, not deferred.
	OutcomeDropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSubmit:
		return "submit"
	case OutcomeDropped:
		return "dropped"
	default:
		return "stale"
	}
}

// Debouncer holds the latest completed utterance until the silence window
// elapses. All methods except the timer callback run on the owner's
// goroutine; the callback only posts its generation to Fired().
type Debouncer struct {
	window time.Duration
	timer  *Timer

	gen     uint64
	pending bool
	audio   []byte

	fired chan uint64
}

func New(window time.Duration, clk clock.Clock) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{
		window: window,
		timer:  NewTimer(clk),
		fired:  make(chan uint64, 1),
	}
}

func (d *Debouncer) Window() time.Duration { return d.window }

// Fired delivers the generation of each elapsed window.
func (d *Debouncer) Fired() <-chan uint64 { return d.fired }

// Pending reports whether a window is armed.
func (d *Debouncer) Pending() bool { return d.pending }

// SpeechStarted cancels a pending window; the user is still talking.
func (d *Debouncer) SpeechStarted() {
	if !d.pending {
		return
	}
	d.timer.Cancel()
	d.gen++
	d.pending = false
	d.audio = nil
	metricWindowsCancelled.Inc()
	log.Printf("[turn] window cancelled by speech start gen=%d", d.gen)
}

// SpeechEnded records audio as the candidate utterance and (re)arms the window.
func (d *Debouncer) SpeechEnded(audio []byte) {
	d.gen++
	gen := d.gen
	d.pending = true
	d.audio = audio
	d.timer.Arm(d.window, func() { d.post(gen) })
	metricWindowsArmed.Inc()
}

// Cancel drops any pending window and audio.
func (d *Debouncer) Cancel() {
	d.timer.Cancel()
	d.gen++
	d.pending = false
	d.audio = nil
}

// Elapsed resolves a firing. playing is the assistant playback flag at the
// moment the window elapsed.
func (d *Debouncer) Elapsed(gen uint64, playing bool) ([]byte, Outcome) {
	if !d.pending || gen != d.gen {
		metricOutcomes.WithLabelValues(OutcomeStale.String()).Inc()
		return nil, OutcomeStale
	}
	audio := d.audio
	d.pending = false
	d.audio = nil

	if playing {
		metricOutcomes.WithLabelValues(OutcomeDropped.String()).Inc()
		log.Printf("[turn] utterance dropped, assistant playing bytes=%d", len(audio))
		return nil, OutcomeDropped
	}
	metricOutcomes.WithLabelValues(OutcomeSubmit.String()).Inc()
	return audio, OutcomeSubmit
}

func (d *Debouncer) post(gen uint64) {
	select {
	case d.fired <- gen:
		return
	default:
	}
	// An older generation is queued; it is stale now, replace it.
	select {
	case <-d.fired:
	default:
	}
	select {
	case d.fired <- gen:
	default:
	}
}
