package session

import (
	"strings"
	"sync"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversational turn. Latency is set on assistant turns only.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Latency *int64 `json:"latency,omitempty"`
}

// LatencyMs returns the recorded latency or -1 when absent.
func (m Message) LatencyMs() int64 {
	if m.Latency == nil {
		return -1
	}
	return *m.Latency
}

type JobContext struct {
	JobRole       string `json:"jobRole"`
	JobDesc       string `json:"jobDesc"`
	ResumeContent string `json:"resumeContent"`
}

// Complete reports whether every field needed for a submission is present.
func (j JobContext) Complete() bool {
	return j.JobRole != "" && j.JobDesc != "" && j.ResumeContent != ""
}

// JobPatch is a partial update; nil fields keep their current value.
type JobPatch struct {
	JobRole       *string
	JobDesc       *string
	ResumeContent *string
}

// State is an immutable snapshot. Callers must not mutate Messages.
type State struct {
	Messages []Message
	Job      JobContext
}

// Store owns the interview state. Every write replaces the snapshot as a whole.
type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Messages returns a copy of the history.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.state.Messages))
	copy(out, s.state.Messages)
	return out
}

func (s *Store) Job() JobContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Job
}

// AppendTurn appends a user/assistant pair and returns the new snapshot.
func (s *Store) AppendTurn(transcript, reply string, latencyMs int64) State {
	if latencyMs < 0 {
		latencyMs = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]Message, 0, len(s.state.Messages)+2)
	next = append(next, s.state.Messages...)
	next = append(next,
		Message{Role: RoleUser, Content: transcript},
		Message{Role: RoleAssistant, Content: reply, Latency: &latencyMs},
	)
	s.state = State{Messages: next, Job: s.state.Job}
	return s.state
}

// MergeJob applies a patch to the job context. Values are trimmed.
func (s *Store) MergeJob(p JobPatch) JobContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.state.Job
	if p.JobRole != nil {
		job.JobRole = strings.TrimSpace(*p.JobRole)
	}
	if p.JobDesc != nil {
		job.JobDesc = strings.TrimSpace(*p.JobDesc)
	}
	if p.ResumeContent != nil {
		job.ResumeContent = strings.TrimSpace(*p.ResumeContent)
	}
	s.state = State{Messages: s.state.Messages, Job: job}
	return job
}

// Reset discards the job context and the whole history.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = State{}
	s.mu.Unlock()
}
