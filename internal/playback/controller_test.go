package playback

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ayushsaha1018/ai-interviewer/internal/audio"
)

// gatedSink blocks until release is closed or ctx is cancelled.
type gatedSink struct {
	release chan struct{}
	err     error
	got     chan []byte
}

func newGatedSink() *gatedSink {
	return &gatedSink{release: make(chan struct{}), got: make(chan []byte, 1)}
}

func (s *gatedSink) Play(ctx context.Context, r io.Reader) error {
	select {
	case <-s.release:
		b, _ := io.ReadAll(r)
		s.got <- b
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type closeTracker struct {
	io.Reader
	closed chan struct{}
}

func (c *closeTracker) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	return nil
}

func stream(s string) *closeTracker {
	return &closeTracker{Reader: bytes.NewBufferString(s), closed: make(chan struct{})}
}

func TestController_CompletionRunsCallback(t *testing.T) {
	sink := newGatedSink()
	c := NewController(sink, nil)
	done := make(chan struct{})

	st := stream("reply")
	id, err := c.Play(st, func() { close(done) })
	if err != nil || id == "" {
		t.Fatalf("play: id=%q err=%v", id, err)
	}
	if !c.Active() || c.ActiveID() != id {
		t.Fatalf("expected active playback %s", id)
	}
	close(sink.release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("onComplete not called")
	}
	if b := <-sink.got; string(b) != "reply" {
		t.Fatalf("sink got %q", b)
	}
	select {
	case <-st.closed:
	case <-time.After(time.Second):
		t.Fatalf("stream not closed")
	}
	waitInactive(t, c)
}

func TestController_SecondPlayBusy(t *testing.T) {
	sink := newGatedSink()
	c := NewController(sink, nil)
	if _, err := c.Play(stream("a"), nil); err != nil {
		t.Fatalf("first play: %v", err)
	}
	if _, err := c.Play(stream("b"), nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("second play err = %v, want ErrBusy", err)
	}
	c.Stop()
}

func TestController_StopSkipsCallback(t *testing.T) {
	sink := newGatedSink()
	c := NewController(sink, nil)
	called := make(chan struct{}, 1)

	st := stream("a")
	if _, err := c.Play(st, func() { called <- struct{}{} }); err != nil {
		t.Fatal(err)
	}
	if !c.Stop() {
		t.Fatalf("stop should report an active playback")
	}
	if c.Active() {
		t.Fatalf("still active after stop")
	}
	select {
	case <-called:
		t.Fatalf("onComplete must not run after Stop")
	case <-time.After(50 * time.Millisecond):
	}
	select {
	case <-st.closed:
	default:
		t.Fatalf("stop should close the stream")
	}
	if c.Stop() {
		t.Fatalf("second stop should report nothing playing")
	}

	// A new playback may start once stopped.
	if _, err := c.Play(stream("b"), nil); err != nil {
		t.Fatalf("play after stop: %v", err)
	}
	c.Stop()
}

func TestController_SinkFailureStillCompletes(t *testing.T) {
	sink := newGatedSink()
	sink.err = errors.New("device gone")
	c := NewController(sink, nil)
	done := make(chan struct{})
	if _, err := c.Play(stream("a"), func() { close(done) }); err != nil {
		t.Fatal(err)
	}
	close(sink.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("onComplete must run after sink failure")
	}
}

func waitInactive(t *testing.T, c *Controller) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for c.Active() {
		if time.Now().After(deadline) {
			t.Fatalf("playback still active")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestUserAgentPolicy(t *testing.T) {
	cases := []struct {
		ua, token string
		want      bool
	}{
		{"Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0", "", true},
		{"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36", "", false},
		{"", "", false},
		{"custom-agent/1.0", "custom", true},
	}
	for _, tc := range cases {
		p := UserAgentPolicy{UserAgent: tc.ua, Token: tc.token}
		if got := p.RequiresManualRearm(); got != tc.want {
			t.Errorf("ua=%q token=%q: got %v want %v", tc.ua, tc.token, got, tc.want)
		}
	}
	if !StaticPolicy(true).RequiresManualRearm() {
		t.Errorf("static true")
	}
}

func TestDecode_WAVAndRaw(t *testing.T) {
	want := audio.Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
	wav := audio.EncodeWAV([]byte{1, 2, 3, 4}, 16000)

	f, r, err := Decode(bytes.NewReader(wav), audio.Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16})
	if err != nil {
		t.Fatalf("decode wav: %v", err)
	}
	if f != want {
		t.Fatalf("format = %+v", f)
	}
	pcm, _ := io.ReadAll(r)
	if !bytes.Equal(pcm, []byte{1, 2, 3, 4}) {
		t.Fatalf("pcm = %v", pcm)
	}

	f, r, err = Decode(bytes.NewReader([]byte{9, 9}), want)
	if err != nil || f != want {
		t.Fatalf("raw decode f=%+v err=%v", f, err)
	}
	pcm, _ = io.ReadAll(r)
	if !bytes.Equal(pcm, []byte{9, 9}) {
		t.Fatalf("raw pcm = %v", pcm)
	}

	if err := Compatible(audio.Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16}, want); !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("compatible err = %v", err)
	}
}
