package api

import (
    "bytes"
    "context"
    "encoding/json"
    "io"
    "mime/multipart"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/ayushsaha1018/ai-interviewer/internal/backend"
    "github.com/ayushsaha1018/ai-interviewer/internal/config"
    "github.com/ayushsaha1018/ai-interviewer/internal/events"
    "github.com/ayushsaha1018/ai-interviewer/internal/health"
    "github.com/ayushsaha1018/ai-interviewer/internal/orchestrator"
    "github.com/ayushsaha1018/ai-interviewer/internal/session"
)

type mockInterview struct {
    store  *session.Store
    events *events.Store
    err    error
    jobErr error
    texts  []string
    starts int
    resets int
}

func newMockInterview() *mockInterview {
    return &mockInterview{store: session.NewStore(), events: events.NewStore(10)}
}

func (m *mockInterview) SubmitText(ctx context.Context, text string) ([]session.Message, error) {
    m.texts = append(m.texts, text)
    if m.err != nil {
        return m.store.Messages(), m.err
    }
    st := m.store.AppendTurn(text, "reply to "+text, 1200)
    return st.Messages, nil
}

func (m *mockInterview) StartInterview(ctx context.Context) ([]session.Message, error) {
    m.starts++
    return m.store.Messages(), m.err
}

func (m *mockInterview) Reset(ctx context.Context) error {
    m.resets++
    m.store.Reset()
    return nil
}

func (m *mockInterview) MergeJob(ctx context.Context, p session.JobPatch) (session.JobContext, error) {
    if m.jobErr != nil {
        return m.store.Job(), m.jobErr
    }
    return m.store.MergeJob(p), nil
}

func (m *mockInterview) Events() *events.Store { return m.events }

func (m *mockInterview) Snapshot() orchestrator.Snapshot {
    st := m.store.Snapshot()
    return orchestrator.Snapshot{Mode: orchestrator.ModeIdle, Messages: st.Messages, Job: st.Job}
}

type fixedTokens struct{}

func (fixedTokens) Token() (string, time.Time) { return "tok", time.Unix(1_700_000_000, 0) }

func newTestServer(t *testing.T, iv *mockInterview, ready func(context.Context) health.HealthStatus) *httptest.Server {
    t.Helper()
    var cfg config.Config
    h := NewHandlers(cfg, iv, nil, fixedTokens{}, ready)
    srv := httptest.NewServer(NewRouter(h))
    t.Cleanup(srv.Close)
    return srv
}

func decodeTurn(t *testing.T, resp *http.Response) turnResponse {
    t.Helper()
    defer resp.Body.Close()
    var tr turnResponse
    if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
        t.Fatalf("decode: %v", err)
    }
    return tr
}

func TestSubmitMessage(t *testing.T) {
    iv := newMockInterview()
    srv := newTestServer(t, iv, nil)

    resp, err := http.Post(srv.URL+"/interview/messages", "application/json", strings.NewReader(`{"text":"I know Go"}`))
    if err != nil { t.Fatalf("request: %v", err) }
    if resp.StatusCode != http.StatusOK {
        t.Fatalf("expected 200, got %d", resp.StatusCode)
    }
    tr := decodeTurn(t, resp)
    if len(tr.Messages) != 2 || tr.Messages[0].Content != "I know Go" || tr.Messages[1].Content != "reply to I know Go" {
        t.Fatalf("unexpected messages %+v", tr.Messages)
    }
}

func TestSubmitErrorMapping(t *testing.T) {
    cases := []struct {
        name     string
        err      error
        status   int
        message  string
        redirect string
    }{
        {"missing job", backend.ErrMissingJobDetails, http.StatusPreconditionFailed, backend.MessageMissingJob, "/job"},
        {"rate limited", &backend.Error{Kind: backend.KindRateLimited, Status: 429}, http.StatusTooManyRequests, backend.MessageRateLimited, ""},
        {"server text", &backend.Error{Kind: backend.KindServer, Status: 500, Message: "model overloaded"}, http.StatusBadGateway, "model overloaded", ""},
        {"playing", orchestrator.ErrPlaybackActive, http.StatusConflict, orchestrator.ErrPlaybackActive.Error(), ""},
        {"empty", orchestrator.ErrEmptyInput, http.StatusBadRequest, orchestrator.ErrEmptyInput.Error(), ""},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            iv := newMockInterview()
            iv.err = tc.err
            srv := newTestServer(t, iv, nil)

            resp, err := http.Post(srv.URL+"/interview/messages", "application/json", strings.NewReader(`{"text":"hi"}`))
            if err != nil { t.Fatalf("request: %v", err) }
            if resp.StatusCode != tc.status {
                t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
            }
            tr := decodeTurn(t, resp)
            if tr.Error != tc.message || tr.Redirect != tc.redirect {
                t.Fatalf("unexpected body %+v", tr)
            }
            if tr.Messages == nil || len(tr.Messages) != 0 {
                t.Fatalf("history should be empty and present, got %+v", tr.Messages)
            }
        })
    }
}

func TestPutJobJSONAndGet(t *testing.T) {
    iv := newMockInterview()
    srv := newTestServer(t, iv, nil)

    body := `{"jobRole":"  Backend Engineer ","jobDesc":"Go services","resumeContent":"10 years"}`
    req, _ := http.NewRequest(http.MethodPut, srv.URL+"/job", strings.NewReader(body))
    req.Header.Set("Content-Type", "application/json")
    resp, err := http.DefaultClient.Do(req)
    if err != nil { t.Fatalf("request: %v", err) }
    resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        t.Fatalf("expected 200, got %d", resp.StatusCode)
    }

    resp, err = http.Get(srv.URL + "/job")
    if err != nil { t.Fatalf("request: %v", err) }
    defer resp.Body.Close()
    var got struct {
        Job      session.JobContext `json:"job"`
        Complete bool               `json:"complete"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&got); err != nil { t.Fatalf("decode: %v", err) }
    if got.Job.JobRole != "Backend Engineer" || !got.Complete {
        t.Fatalf("unexpected job %+v", got)
    }
}

func TestPutJobMultipartKeepsOtherFields(t *testing.T) {
    iv := newMockInterview()
    role := "SRE"
    iv.store.MergeJob(session.JobPatch{JobRole: &role})
    srv := newTestServer(t, iv, nil)

    var buf bytes.Buffer
    mw := multipart.NewWriter(&buf)
    mw.WriteField("jobDesc", "On-call")
    mw.Close()
    req, _ := http.NewRequest(http.MethodPut, srv.URL+"/job", &buf)
    req.Header.Set("Content-Type", mw.FormDataContentType())
    resp, err := http.DefaultClient.Do(req)
    if err != nil { t.Fatalf("request: %v", err) }
    resp.Body.Close()

    job := iv.store.Job()
    if job.JobRole != "SRE" || job.JobDesc != "On-call" {
        t.Fatalf("unexpected job %+v", job)
    }
}

func TestPutJobLoopStopped(t *testing.T) {
    iv := newMockInterview()
    iv.jobErr = orchestrator.ErrNotRunning
    srv := newTestServer(t, iv, nil)

    req, _ := http.NewRequest(http.MethodPut, srv.URL+"/job", strings.NewReader(`{"jobRole":"SRE"}`))
    req.Header.Set("Content-Type", "application/json")
    resp, err := http.DefaultClient.Do(req)
    if err != nil { t.Fatalf("request: %v", err) }
    resp.Body.Close()
    if resp.StatusCode != http.StatusServiceUnavailable {
        t.Fatalf("expected 503, got %d", resp.StatusCode)
    }
    if iv.store.Job().JobRole != "" {
        t.Fatalf("job should be unchanged, got %+v", iv.store.Job())
    }
}

func TestParseEndpoint(t *testing.T) {
    srv := newTestServer(t, newMockInterview(), nil)

    resp, err := http.Get(srv.URL + "/api/parse")
    if err != nil { t.Fatalf("request: %v", err) }
    b, _ := io.ReadAll(resp.Body)
    resp.Body.Close()
    if string(b) != "Hello" {
        t.Fatalf("unexpected hello body %q", b)
    }

    // missing file
    var buf bytes.Buffer
    mw := multipart.NewWriter(&buf)
    mw.WriteField("other", "x")
    mw.Close()
    resp, err = http.Post(srv.URL+"/api/parse", mw.FormDataContentType(), &buf)
    if err != nil { t.Fatalf("request: %v", err) }
    b, _ = io.ReadAll(resp.Body)
    resp.Body.Close()
    if resp.StatusCode != http.StatusBadRequest || strings.TrimSpace(string(b)) != msgInvalidFile {
        t.Fatalf("expected 400 %q, got %d %q", msgInvalidFile, resp.StatusCode, b)
    }

    // not a pdf
    buf.Reset()
    mw = multipart.NewWriter(&buf)
    fw, _ := mw.CreateFormFile("file", "resume.pdf")
    fw.Write([]byte("plain text, not a pdf"))
    mw.Close()
    resp, err = http.Post(srv.URL+"/api/parse", mw.FormDataContentType(), &buf)
    if err != nil { t.Fatalf("request: %v", err) }
    b, _ = io.ReadAll(resp.Body)
    resp.Body.Close()
    if resp.StatusCode != http.StatusInternalServerError || strings.TrimSpace(string(b)) != msgParseFailed {
        t.Fatalf("expected 500 %q, got %d %q", msgParseFailed, resp.StatusCode, b)
    }
}

func TestStartResetAndReady(t *testing.T) {
    iv := newMockInterview()
    srv := newTestServer(t, iv, func(ctx context.Context) health.HealthStatus {
        return health.HealthStatus{OK: false}
    })

    resp, err := http.Post(srv.URL+"/interview/start", "application/json", nil)
    if err != nil { t.Fatalf("request: %v", err) }
    resp.Body.Close()
    resp, err = http.Post(srv.URL+"/interview/reset", "application/json", nil)
    if err != nil { t.Fatalf("request: %v", err) }
    resp.Body.Close()
    if iv.starts != 1 || iv.resets != 1 {
        t.Fatalf("starts=%d resets=%d", iv.starts, iv.resets)
    }

    resp, err = http.Get(srv.URL + "/readyz")
    if err != nil { t.Fatalf("request: %v", err) }
    resp.Body.Close()
    if resp.StatusCode != http.StatusServiceUnavailable {
        t.Fatalf("expected 503, got %d", resp.StatusCode)
    }

    resp, err = http.Get(srv.URL + "/interview")
    if err != nil { t.Fatalf("request: %v", err) }
    defer resp.Body.Close()
    var snap orchestrator.Snapshot
    if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil { t.Fatalf("decode: %v", err) }
    if snap.Mode != orchestrator.ModeIdle {
        t.Fatalf("unexpected mode %q", snap.Mode)
    }
}

func TestEventsAndNoticeToken(t *testing.T) {
    iv := newMockInterview()
    iv.events.Append("submit_ok", nil)
    srv := newTestServer(t, iv, nil)

    resp, err := http.Get(srv.URL + "/interview/events")
    if err != nil { t.Fatalf("request: %v", err) }
    var ev struct {
        InterviewID string         `json:"interview_id"`
        Events      []events.Event `json:"events"`
    }
    json.NewDecoder(resp.Body).Decode(&ev)
    resp.Body.Close()
    if ev.InterviewID != iv.events.InterviewID() || len(ev.Events) != 1 {
        t.Fatalf("unexpected events %+v", ev)
    }

    resp, err = http.Post(srv.URL+"/interview/notices-token", "application/json", nil)
    if err != nil { t.Fatalf("request: %v", err) }
    defer resp.Body.Close()
    var tok map[string]any
    json.NewDecoder(resp.Body).Decode(&tok)
    if tok["token"] != "tok" {
        t.Fatalf("unexpected token body %+v", tok)
    }

    resp2, err := http.Get(srv.URL + "/ws/notices")
    if err != nil { t.Fatalf("request: %v", err) }
    resp2.Body.Close()
    if resp2.StatusCode != http.StatusNotFound {
        t.Fatalf("expected 404 without notices handler, got %d", resp2.StatusCode)
    }
}
