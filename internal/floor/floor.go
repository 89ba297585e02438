package floor

// Source identifies where a submission came from.
type Source string

const (
    SourceSpeech Source = "speech"
    SourceText   Source = "text"
    SourceStart  Source = "start"
)

// Decision represents what the floor manager wants done with an input.
type Decision struct {
    Refuse     bool
    PlaybackID string
    Reason     string // e.g., "assistant_speaking"
}

// Manager tracks whether the assistant holds the floor. The assistant holds
// it from playback start until playback stops; user input is not admitted
// while it does.
type Manager struct {
    speaking         bool
    activePlaybackID string
    lastStopReason   string
    refusedWhileHeld int
}

func New() *Manager { return &Manager{} }

func (m *Manager) OnPlaybackStarted(playbackID string) Decision {
    m.speaking = true
    m.activePlaybackID = playbackID
    return Decision{}
}

// OnPlaybackStopped releases the floor. A stop for an older playback is ignored.
func (m *Manager) OnPlaybackStopped(playbackID string, reason string) Decision {
    if playbackID != "" && m.activePlaybackID != "" && playbackID != m.activePlaybackID {
        return Decision{}
    }
    m.speaking = false
    m.activePlaybackID = ""
    m.lastStopReason = reason
    return Decision{}
}

// Admit decides whether a submission from src may start now.
func (m *Manager) Admit(src Source) Decision {
    if m.speaking {
        m.refusedWhileHeld++
        return Decision{Refuse: true, PlaybackID: m.activePlaybackID, Reason: "assistant_speaking"}
    }
    return Decision{}
}

// OnUtteranceComplete is consulted when a debounced utterance is final.
// Utterances completed while the assistant speaks are dropped, not deferred.
func (m *Manager) OnUtteranceComplete() Decision {
    if m.speaking {
        return Decision{Refuse: true, PlaybackID: m.activePlaybackID, Reason: "dropped_while_speaking"}
    }
    return Decision{}
}

func (m *Manager) Speaking() bool { return m.speaking }

func (m *Manager) ActivePlaybackID() string { return m.activePlaybackID }

func (m *Manager) LastStopReason() string { return m.lastStopReason }

func (m *Manager) Refused() int { return m.refusedWhileHeld }
