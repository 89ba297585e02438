package events

import (
    "sync"
    "time"

    "github.com/google/uuid"
)

const DefaultMaxEvents = 200

type Event struct {
    ID          string         `json:"id"`
    InterviewID string         `json:"interview_id"`
    Type        string         `json:"type"`
    Timestamp   time.Time      `json:"timestamp"`
    Payload     map[string]any `json:"payload,omitempty"`
}

// Store is the event log of the current interview. Starting a new interview
// discards the previous log.
type Store struct {
    mu          sync.RWMutex
    interviewID string
    events      []Event
    max         int
    subs        []func(Event)
    now         func() time.Time
}

func NewStore(max int) *Store {
    if max <= 0 {
        max = DefaultMaxEvents
    }
    return &Store{interviewID: uuid.NewString(), max: max, now: time.Now}
}

// Subscribe registers fn to be called after every append. fn must not block.
func (s *Store) Subscribe(fn func(Event)) {
    s.mu.Lock()
    s.subs = append(s.subs, fn)
    s.mu.Unlock()
}

func (s *Store) Append(typ string, payload map[string]any) Event {
    s.mu.Lock()
    evt := Event{
        ID:          uuid.NewString(),
        InterviewID: s.interviewID,
        Type:        typ,
        Timestamp:   s.now().UTC(),
        Payload:     payload,
    }
    s.events = append(s.events, evt)
    // Cap the log; keep room for one truncation marker so the total stays at max.
    if l := len(s.events); l > s.max {
        keep := s.max - 1
        dropped := l - keep
        s.events = append([]Event(nil), s.events[l-keep:]...)
        s.events = append(s.events, Event{
            ID:          uuid.NewString(),
            InterviewID: s.interviewID,
            Type:        "events_truncated",
            Timestamp:   s.now().UTC(),
            Payload:     map[string]any{"dropped": dropped, "kept": keep},
        })
    }
    subs := s.subs
    s.mu.Unlock()

    for _, fn := range subs {
        fn(evt)
    }
    return evt
}

// List returns a copy of the log.
func (s *Store) List() []Event {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make([]Event, len(s.events))
    copy(out, s.events)
    return out
}

func (s *Store) InterviewID() string {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return s.interviewID
}

// Rotate starts a new interview and returns its id.
func (s *Store) Rotate() string {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.interviewID = uuid.NewString()
    s.events = nil
    return s.interviewID
}
