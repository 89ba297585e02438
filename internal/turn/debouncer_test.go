package turn

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func waitFired(t *testing.T, d *Debouncer) uint64 {
	t.Helper()
	select {
	case gen := <-d.Fired():
		return gen
	case <-time.After(time.Second):
		t.Fatalf("window did not fire")
		return 0
	}
}

func assertNotFired(t *testing.T, d *Debouncer) {
	t.Helper()
	select {
	case gen := <-d.Fired():
		t.Fatalf("unexpected firing gen=%d", gen)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDebouncer_SubmitsAfterWindow(t *testing.T) {
	clk := clock.NewMock()
	d := New(3*time.Second, clk)

	d.SpeechEnded([]byte("utt"))
	clk.Add(2999 * time.Millisecond)
	assertNotFired(t, d)

	clk.Add(time.Millisecond)
	gen := waitFired(t, d)
	audio, out := d.Elapsed(gen, false)
	if out != OutcomeSubmit {
		t.Fatalf("outcome = %s, want submit", out)
	}
	if string(audio) != "utt" {
		t.Fatalf("audio = %q", audio)
	}
	if d.Pending() {
		t.Fatalf("window should be consumed")
	}

	if _, out := d.Elapsed(gen, false); out != OutcomeStale {
		t.Fatalf("second resolve = %s, want stale", out)
	}
}

func TestDebouncer_SpeechStartCancelsWindow(t *testing.T) {
	clk := clock.NewMock()
	d := New(3*time.Second, clk)

	d.SpeechEnded([]byte("fragment"))
	clk.Add(1000 * time.Millisecond)
	d.SpeechStarted()
	clk.Add(3000 * time.Millisecond)

	assertNotFired(t, d)
	if d.Pending() {
		t.Fatalf("window should be cancelled")
	}
}

func TestDebouncer_LatestAudioWins(t *testing.T) {
	clk := clock.NewMock()
	d := New(3*time.Second, clk)

	d.SpeechEnded([]byte("first"))
	clk.Add(time.Second)
	d.SpeechStarted()
	d.SpeechEnded([]byte("second"))
	clk.Add(3 * time.Second)

	gen := waitFired(t, d)
	audio, out := d.Elapsed(gen, false)
	if out != OutcomeSubmit || string(audio) != "second" {
		t.Fatalf("got %q %s, want second/submit", audio, out)
	}
}

// Completing an utterance while the assistant is playing discards it. This
// is intentional: the user is not allowed to talk over the reply, and the
// utterance is not replayed after playback ends.
func TestDebouncer_DropsWhilePlayingIntentionally(t *testing.T) {
	clk := clock.NewMock()
	d := New(3*time.Second, clk)

	d.SpeechEnded([]byte("over the reply"))
	clk.Add(3 * time.Second)
	gen := waitFired(t, d)

	audio, out := d.Elapsed(gen, true)
	if out != OutcomeDropped {
		t.Fatalf("outcome = %s, want dropped", out)
	}
	if audio != nil {
		t.Fatalf("dropped outcome must not return audio")
	}
	if d.Pending() {
		t.Fatalf("dropped utterance must not stay pending")
	}
}

func TestDebouncer_StaleGenerationIgnored(t *testing.T) {
	clk := clock.NewMock()
	d := New(3*time.Second, clk)

	d.SpeechEnded([]byte("a"))
	clk.Add(3 * time.Second)
	gen := waitFired(t, d)

	// Re-armed before the owner got to the firing.
	d.SpeechEnded([]byte("b"))
	if _, out := d.Elapsed(gen, false); out != OutcomeStale {
		t.Fatalf("outcome = %s, want stale", out)
	}
	if !d.Pending() {
		t.Fatalf("newer window must survive a stale firing")
	}
}

func TestDebouncer_DefaultWindow(t *testing.T) {
	d := New(0, clock.NewMock())
	if d.Window() != DefaultWindow {
		t.Fatalf("window = %v, want %v", d.Window(), DefaultWindow)
	}
}

func TestTimer_CancelReportsPending(t *testing.T) {
	clk := clock.NewMock()
	tm := NewTimer(clk)
	if tm.Cancel() {
		t.Fatalf("cancel on idle timer should report false")
	}
	fired := make(chan struct{}, 1)
	tm.Arm(time.Second, func() { fired <- struct{}{} })
	if !tm.Cancel() {
		t.Fatalf("cancel on armed timer should report true")
	}
	clk.Add(2 * time.Second)
	select {
	case <-fired:
		t.Fatalf("cancelled timer fired")
	case <-time.After(50 * time.Millisecond):
	}
}
