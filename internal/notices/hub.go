// Package notices pushes user-facing notices and interview events to
// websocket subscribers.
package notices

import (
    "context"
    "log"
    "sync"
    "sync/atomic"
    "time"

    "github.com/google/uuid"
    ws "nhooyr.io/websocket"
    "nhooyr.io/websocket/wsjson"

    "github.com/ayushsaha1018/ai-interviewer/internal/events"
    "github.com/ayushsaha1018/ai-interviewer/internal/orchestrator"
)

const (
    subscriberBuffer = 64
    writeTimeout     = 5 * time.Second
)

type Message struct {
    Type        string               `json:"type"` // notice | event
    TsMs        int64                `json:"ts_ms"`
    InterviewID string               `json:"interview_id,omitempty"`
    Seq         int64                `json:"seq"`
    Notice      *orchestrator.Notice `json:"notice,omitempty"`
    Event       *events.Event        `json:"event,omitempty"`
}

type subscriber struct {
    id   string
    conn *ws.Conn
    out  chan Message
}

// Hub fans messages out to every connected subscriber. A subscriber whose
// buffer is full is disconnected.
type Hub struct {
    mu   sync.Mutex
    subs map[string]*subscriber
    seq  atomic.Int64
    now  func() time.Time
}

func NewHub() *Hub { return &Hub{subs: make(map[string]*subscriber), now: time.Now} }

// Notify implements orchestrator.Notifier.
func (h *Hub) Notify(n orchestrator.Notice) {
    h.broadcast(Message{Type: "notice", Notice: &n})
}

// Follow forwards every event appended to st.
func (h *Hub) Follow(st *events.Store) {
    st.Subscribe(func(e events.Event) {
        h.broadcast(Message{Type: "event", InterviewID: e.InterviewID, Event: &e})
    })
}

func (h *Hub) Count() int {
    h.mu.Lock(); defer h.mu.Unlock()
    return len(h.subs)
}

func (h *Hub) broadcast(m Message) {
    m.Seq = h.seq.Add(1)
    m.TsMs = h.now().UnixMilli()
    h.mu.Lock()
    defer h.mu.Unlock()
    for id, s := range h.subs {
        select {
        case s.out <- m:
        default:
            metricDropped.Inc()
            log.Printf("[notices] subscriber %s too slow, disconnecting", id)
            delete(h.subs, id)
            close(s.out)
        }
    }
}

func (h *Hub) add(c *ws.Conn) *subscriber {
    s := &subscriber{id: uuid.NewString(), conn: c, out: make(chan Message, subscriberBuffer)}
    h.mu.Lock()
    h.subs[s.id] = s
    n := len(h.subs)
    h.mu.Unlock()
    metricSubscribers.Set(float64(n))
    return s
}

// remove is a no-op when broadcast already dropped the subscriber.
func (h *Hub) remove(s *subscriber) {
    h.mu.Lock()
    if cur, ok := h.subs[s.id]; ok && cur == s {
        delete(h.subs, s.id)
        close(s.out)
    }
    n := len(h.subs)
    h.mu.Unlock()
    metricSubscribers.Set(float64(n))
}

// Serve pumps messages to c until the peer goes away or ctx ends.
func (h *Hub) Serve(ctx context.Context, c *ws.Conn) {
    s := h.add(c)
    defer h.remove(s)

    // Subscribers only listen; CloseRead handles control frames and
    // cancels readCtx when the peer closes.
    readCtx := c.CloseRead(ctx)
    for {
        select {
        case m, ok := <-s.out:
            if !ok {
                _ = c.Close(ws.StatusPolicyViolation, "too slow")
                return
            }
            wctx, cancel := context.WithTimeout(readCtx, writeTimeout)
            err := wsjson.Write(wctx, c, m)
            cancel()
            if err != nil {
                log.Printf("[notices] write to %s: %v", s.id, err)
                return
            }
            metricSent.Inc()
        case <-readCtx.Done():
            _ = c.Close(ws.StatusNormalClosure, "done")
            return
        }
    }
}
