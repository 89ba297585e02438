package api

import (
    "context"
    "encoding/json"
    "errors"
    "log"
    "net/http"
    "strings"
    "time"

    "github.com/ayushsaha1018/ai-interviewer/internal/backend"
    "github.com/ayushsaha1018/ai-interviewer/internal/config"
    "github.com/ayushsaha1018/ai-interviewer/internal/events"
    "github.com/ayushsaha1018/ai-interviewer/internal/extract"
    "github.com/ayushsaha1018/ai-interviewer/internal/health"
    "github.com/ayushsaha1018/ai-interviewer/internal/orchestrator"
    "github.com/ayushsaha1018/ai-interviewer/internal/session"
)

const (
    msgInvalidFile = "Invalid request: Missing or invalid file"
    msgParseFailed = "Error parsing PDF file"
)

// Interview is the turn controller as seen by the API.
type Interview interface {
    SubmitText(ctx context.Context, text string) ([]session.Message, error)
    StartInterview(ctx context.Context) ([]session.Message, error)
    Reset(ctx context.Context) error
    MergeJob(ctx context.Context, p session.JobPatch) (session.JobContext, error)
    Snapshot() orchestrator.Snapshot
    Events() *events.Store
}

// TokenIssuer mints notice subscriber tokens; an empty token means the
// socket is open.
type TokenIssuer interface {
    Token() (string, time.Time)
}

type Handlers struct {
    cfg     config.Config
    iv      Interview
    notices http.Handler
    tokens  TokenIssuer
    ready   func(ctx context.Context) health.HealthStatus
}

func NewHandlers(cfg config.Config, iv Interview, notices http.Handler, tokens TokenIssuer, ready func(ctx context.Context) health.HealthStatus) *Handlers {
    return &Handlers{cfg: cfg, iv: iv, notices: notices, tokens: tokens, ready: ready}
}

type turnResponse struct {
    Messages []session.Message `json:"messages"`
    Error    string            `json:"error,omitempty"`
    Redirect string            `json:"redirect,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
    if h.ready == nil {
        writeJSON(w, http.StatusOK, health.HealthStatus{OK: true, CheckedAt: time.Now().UTC()})
        return
    }
    ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
    defer cancel()
    st := h.ready(ctx)
    status := http.StatusOK
    if !st.OK {
        status = http.StatusServiceUnavailable
    }
    writeJSON(w, status, st)
}

// HandleParseHello answers GET /api/parse.
func (h *Handlers) HandleParseHello(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Content-Type", "text/plain; charset=utf-8")
    _, _ = w.Write([]byte("Hello"))
}

func (h *Handlers) HandleParse(w http.ResponseWriter, r *http.Request) {
    max := h.maxUpload()
    r.Body = http.MaxBytesReader(w, r.Body, max+1<<20)
    if err := r.ParseMultipartForm(max); err != nil {
        http.Error(w, msgInvalidFile, http.StatusBadRequest)
        return
    }
    f, _, err := r.FormFile("file")
    if err != nil {
        http.Error(w, msgInvalidFile, http.StatusBadRequest)
        return
    }
    defer f.Close()
    text, err := extract.ReadPDF(f, max)
    if err != nil {
        log.Printf("[api] parse: %v", err)
        http.Error(w, msgParseFailed, http.StatusInternalServerError)
        return
    }
    w.Header().Set("Content-Type", "text/plain; charset=utf-8")
    _, _ = w.Write([]byte(text))
}

func (h *Handlers) maxUpload() int64 {
    if h.cfg.Extract.MaxUploadMB > 0 {
        return int64(h.cfg.Extract.MaxUploadMB) << 20
    }
    return extract.DefaultMaxBytes
}

type jobBody struct {
    JobRole       *string `json:"jobRole"`
    JobDesc       *string `json:"jobDesc"`
    ResumeContent *string `json:"resumeContent"`
}

// HandlePutJob merges the job-entry step. It accepts JSON or a multipart
// form whose optional "resume" file replaces resumeContent.
func (h *Handlers) HandlePutJob(w http.ResponseWriter, r *http.Request) {
    var patch session.JobPatch
    if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
        max := h.maxUpload()
        r.Body = http.MaxBytesReader(w, r.Body, max+1<<20)
        if err := r.ParseMultipartForm(max); err != nil {
            http.Error(w, "invalid form", http.StatusBadRequest)
            return
        }
        form := r.MultipartForm.Value
        if v, ok := form["jobRole"]; ok && len(v) > 0 {
            patch.JobRole = &v[0]
        }
        if v, ok := form["jobDesc"]; ok && len(v) > 0 {
            patch.JobDesc = &v[0]
        }
        if v, ok := form["resumeContent"]; ok && len(v) > 0 {
            patch.ResumeContent = &v[0]
        }
        if f, _, err := r.FormFile("resume"); err == nil {
            text, err := extract.ReadPDF(f, max)
            f.Close()
            if err != nil {
                log.Printf("[api] resume extract: %v", err)
                http.Error(w, msgParseFailed, http.StatusInternalServerError)
                return
            }
            patch.ResumeContent = &text
        }
    } else {
        var body jobBody
        if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
            http.Error(w, "invalid json", http.StatusBadRequest)
            return
        }
        patch = session.JobPatch{JobRole: body.JobRole, JobDesc: body.JobDesc, ResumeContent: body.ResumeContent}
    }
    job, err := h.iv.MergeJob(r.Context(), patch)
    if err != nil {
        log.Printf("[api] job update failed: %v", err)
        http.Error(w, "interview not running", http.StatusServiceUnavailable)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"job": job, "complete": job.Complete()})
}

func (h *Handlers) HandleGetJob(w http.ResponseWriter, r *http.Request) {
    job := h.iv.Snapshot().Job
    writeJSON(w, http.StatusOK, map[string]any{"job": job, "complete": job.Complete()})
}

func (h *Handlers) HandleGetInterview(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, h.iv.Snapshot())
}

func (h *Handlers) HandleStart(w http.ResponseWriter, r *http.Request) {
    msgs, err := h.iv.StartInterview(r.Context())
    h.writeTurn(w, msgs, err)
}

func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
    var body struct {
        Text string `json:"text"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid json", http.StatusBadRequest)
        return
    }
    msgs, err := h.iv.SubmitText(r.Context(), body.Text)
    h.writeTurn(w, msgs, err)
}

func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
    if err := h.iv.Reset(r.Context()); err != nil {
        writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
        return
    }
    writeJSON(w, http.StatusOK, h.iv.Snapshot())
}

func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request) {
    st := h.iv.Events()
    writeJSON(w, http.StatusOK, map[string]any{
        "interview_id": st.InterviewID(),
        "events":       st.List(),
    })
}

func (h *Handlers) HandleNoticeToken(w http.ResponseWriter, r *http.Request) {
    if h.tokens == nil {
        writeJSON(w, http.StatusOK, map[string]any{"token": ""})
        return
    }
    tok, exp := h.tokens.Token()
    resp := map[string]any{"token": tok}
    if !exp.IsZero() {
        resp["expires_at"] = exp.UTC()
    }
    writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) HandleNotices(w http.ResponseWriter, r *http.Request) {
    if h.notices == nil {
        http.NotFound(w, r)
        return
    }
    h.notices.ServeHTTP(w, r)
}

func (h *Handlers) writeTurn(w http.ResponseWriter, msgs []session.Message, err error) {
    if msgs == nil {
        msgs = []session.Message{}
    }
    if err == nil {
        writeJSON(w, http.StatusOK, turnResponse{Messages: msgs})
        return
    }
    status, resp := errorResponse(err)
    resp.Messages = msgs
    writeJSON(w, status, resp)
}

func errorResponse(err error) (int, turnResponse) {
    switch {
    case errors.Is(err, orchestrator.ErrEmptyInput):
        return http.StatusBadRequest, turnResponse{Error: err.Error()}
    case errors.Is(err, backend.ErrMissingJobDetails):
        return http.StatusPreconditionFailed, turnResponse{Error: backend.MessageMissingJob, Redirect: "/job"}
    case errors.Is(err, orchestrator.ErrPlaybackActive),
        errors.Is(err, orchestrator.ErrAlreadyStarted),
        errors.Is(err, orchestrator.ErrReset):
        return http.StatusConflict, turnResponse{Error: err.Error()}
    case errors.Is(err, orchestrator.ErrQueueFull),
        errors.Is(err, orchestrator.ErrNotRunning):
        return http.StatusServiceUnavailable, turnResponse{Error: err.Error()}
    case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
        return http.StatusGatewayTimeout, turnResponse{Error: err.Error()}
    }
    switch backend.KindOf(err) {
    case backend.KindRateLimited:
        return http.StatusTooManyRequests, turnResponse{Error: backend.MessageRateLimited}
    default:
        return http.StatusBadGateway, turnResponse{Error: backend.UserMessage(err)}
    }
}
