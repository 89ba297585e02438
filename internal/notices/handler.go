package notices

import (
    "log"
    "net/http"
    "strings"
    "time"

    ws "nhooyr.io/websocket"

    "github.com/ayushsaha1018/ai-interviewer/internal/auth"
)

// Handler upgrades subscribers onto the hub. With an empty Secret the
// socket is open; otherwise a subscriber token for the current interview is
// required, as ?token= or a bearer header.
type Handler struct {
    Hub         *Hub
    Secret      string
    TTL         time.Duration
    SkewSecs    int
    InterviewID func() string
    Now         func() time.Time
}

func (h *Handler) now() time.Time {
    if h.Now != nil {
        return h.Now()
    }
    return time.Now()
}

// Token issues a subscriber token for the current interview. It returns ""
// when auth is disabled.
func (h *Handler) Token() (token string, exp time.Time) {
    if h.Secret == "" {
        return "", time.Time{}
    }
    ttl := h.TTL
    if ttl <= 0 {
        ttl = time.Hour
    }
    exp = h.now().Add(ttl)
    return auth.IssueSubscriberToken(h.Secret, h.InterviewID(), exp.Unix()), exp
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
    if h.Secret != "" {
        token := r.URL.Query().Get("token")
        if token == "" {
            authz := r.Header.Get("Authorization")
            if !strings.HasPrefix(authz, "Bearer ") {
                metricRejected.WithLabelValues("missing").Inc()
                http.Error(w, "missing token", http.StatusUnauthorized)
                return
            }
            token = strings.TrimPrefix(authz, "Bearer ")
        }
        if _, err := auth.ValidateSubscriberToken(h.Secret, token, h.InterviewID(), h.now(), h.SkewSecs); err != nil {
            metricRejected.WithLabelValues("invalid").Inc()
            http.Error(w, "invalid token", http.StatusUnauthorized)
            return
        }
    }

    c, err := ws.Accept(w, r, nil)
    if err != nil {
        log.Printf("[notices] ws accept: %v", err)
        return
    }
    h.Hub.Serve(r.Context(), c)
}
