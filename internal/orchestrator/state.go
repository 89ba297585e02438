package orchestrator

import (
	"github.com/ayushsaha1018/ai-interviewer/internal/session"
)

type Mode string

const (
	ModeIdle       Mode = "IDLE"
	ModeSubmitting Mode = "SUBMITTING"
	ModePlaying    Mode = "PLAYING"
)

// Snapshot is a read-only view of the controller for the API.
type Snapshot struct {
	InterviewID     string             `json:"interview_id"`
	Mode            Mode               `json:"mode"`
	DetectorStatus  string             `json:"detector_status"`
	DetectorErrored bool               `json:"detector_errored"`
	UserSpeaking    bool               `json:"user_speaking"`
	AwaitingSilence bool               `json:"awaiting_silence"`
	Started         bool               `json:"started"`
	QueueDepth      int                `json:"queue_depth"`
	LastTranscript  string             `json:"last_transcript"`
	LastLatencyMs   *int64             `json:"last_latency_ms,omitempty"`
	Messages        []session.Message  `json:"messages"`
	Job             session.JobContext `json:"job"`
}

func (c *Controller) setState(to Mode) {
	from := c.mode
	if from == to {
		return
	}
	metricStateTransitions.WithLabelValues(string(from), string(to)).Inc()
	c.mode = to
	c.events.Append("state_changed", map[string]any{"from": string(from), "to": string(to)})
}

// publish refreshes the snapshot read by other goroutines. Loop only.
func (c *Controller) publish() {
	st := c.store.Snapshot()
	snap := Snapshot{
		InterviewID:     c.events.InterviewID(),
		Mode:            c.mode,
		DetectorErrored: c.errored,
		AwaitingSilence: c.debouncer.Pending(),
		Started:         c.started,
		QueueDepth:      len(c.queue),
		LastTranscript:  c.lastTranscript,
		Messages:        st.Messages,
		Job:             st.Job,
	}
	if n := len(st.Messages); n > 0 && st.Messages[n-1].Latency != nil {
		v := *st.Messages[n-1].Latency
		snap.LastLatencyMs = &v
	}
	if snap.Messages == nil {
		snap.Messages = []session.Message{}
	}
	metricQueueDepth.Set(float64(len(c.queue)))

	c.snapMu.Lock()
	c.snap = snap
	c.snapMu.Unlock()
}
