package floor

import "testing"

func TestAdmitRefusedWhilePlaying(t *testing.T) {
    f := New()
    f.OnPlaybackStarted("p1")
    d := f.Admit(SourceText)
    if !d.Refuse || d.Reason != "assistant_speaking" || d.PlaybackID != "p1" {
        t.Fatalf("expected refusal while playing, got %+v", d)
    }
    if f.Refused() != 1 {
        t.Fatalf("refused count = %d", f.Refused())
    }
}

func TestAdmitIdle(t *testing.T) {
    f := New()
    if d := f.Admit(SourceSpeech); d.Refuse {
        t.Fatalf("should admit when idle, got %+v", d)
    }
}

func TestPlaybackStoppedReleasesFloor(t *testing.T) {
    f := New()
    f.OnPlaybackStarted("p1")
    f.OnPlaybackStopped("p1", "completed")
    if f.Speaking() {
        t.Fatalf("floor should be released")
    }
    if d := f.Admit(SourceStart); d.Refuse {
        t.Fatalf("should admit after playback stopped")
    }
    if f.LastStopReason() != "completed" {
        t.Fatalf("reason = %q", f.LastStopReason())
    }
}

func TestStaleStopIgnored(t *testing.T) {
    f := New()
    f.OnPlaybackStarted("p1")
    f.OnPlaybackStopped("p0", "completed")
    if !f.Speaking() || f.ActivePlaybackID() != "p1" {
        t.Fatalf("stop for an older playback must not release the floor")
    }
}

func TestUtteranceDroppedWhileSpeaking(t *testing.T) {
    f := New()
    if d := f.OnUtteranceComplete(); d.Refuse {
        t.Fatalf("idle utterance should pass")
    }
    f.OnPlaybackStarted("p1")
    if d := f.OnUtteranceComplete(); !d.Refuse {
        t.Fatalf("utterance during playback must be dropped")
    }
}
