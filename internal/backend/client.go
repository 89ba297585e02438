// Package backend submits one turn to the interview backend and decodes the
// header-plus-stream reply.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/ayushsaha1018/ai-interviewer/internal/session"
)

const (
	HeaderTranscript = "X-Transcript"
	HeaderResponse   = "X-Response"
	HeaderRequestID  = "X-Request-ID"

	audioFilename = "audio.wav"
	maxErrorBody  = 1024
)

type InputKind string

const (
	InputText  InputKind = "text"
	InputAudio InputKind = "speech"
)

// Input is either typed text or a WAV encoded utterance.
type Input struct {
	Kind  InputKind
	Text  string
	Audio []byte
}

func TextInput(s string) Input    { return Input{Kind: InputText, Text: s} }
func AudioInput(wav []byte) Input { return Input{Kind: InputAudio, Audio: wav} }
func (in Input) IsAudio() bool    { return in.Kind == InputAudio }

// Result is a successful exchange. The caller owns Audio and must close it.
type Result struct {
	RequestID    string
	Transcript   string
	ResponseText string
	Audio        io.ReadCloser
	Latency      time.Duration
}

type Client struct {
	url   string
	http  *http.Client
	clock clock.Clock
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }
func WithClock(clk clock.Clock) Option     { return func(c *Client) { c.clock = clk } }

// New returns a client posting to endpoint. The HTTP client carries no
// overall timeout by default since the reply audio is streamed.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		url:   endpoint,
		http:  &http.Client{},
		clock: clock.New(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) URL() string { return c.url }

// Submit sends in together with the full history and job context. It never
// retries. On any error the history is untouched by the caller.
func (c *Client) Submit(ctx context.Context, in Input, history []session.Message, job session.JobContext) (*Result, error) {
	if !job.Complete() {
		metricRequests.WithLabelValues(string(in.Kind), KindPrecondition.String()).Inc()
		return nil, ErrMissingJobDetails
	}

	body, contentType, err := encodeForm(in, history, job)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("encode form: %w", err)}
	}
	metricRequestBytes.Observe(float64(len(body)))

	reqID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(HeaderRequestID, reqID)

	start := c.clock.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metricRequests.WithLabelValues(string(in.Kind), KindTransport.String()).Inc()
		log.Printf("[backend] submit failed req=%s input=%s err=%v", reqID, in.Kind, err)
		return nil, &Error{Kind: KindTransport, Err: err}
	}

	res, err := decodeResponse(resp)
	if err != nil {
		resp.Body.Close()
		metricRequests.WithLabelValues(string(in.Kind), KindOf(err).String()).Inc()
		log.Printf("[backend] submit rejected req=%s input=%s err=%v", reqID, in.Kind, err)
		return nil, err
	}

	latency := c.clock.Since(start)
	if latency < 0 {
		latency = 0
	}
	res.RequestID = reqID
	res.Latency = latency
	metricRequests.WithLabelValues(string(in.Kind), "ok").Inc()
	metricRoundTripMS.Observe(float64(latency.Milliseconds()))
	log.Printf("[backend] submit ok req=%s input=%s latency=%dms", reqID, in.Kind, latency.Milliseconds())
	return res, nil
}

func encodeForm(in Input, history []session.Message, job session.JobContext) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	switch in.Kind {
	case InputAudio:
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="input"; filename="%s"`, audioFilename))
		h.Set("Content-Type", "audio/wav")
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(in.Audio); err != nil {
			return nil, "", err
		}
	default:
		if err := w.WriteField("input", in.Text); err != nil {
			return nil, "", err
		}
	}

	for _, m := range history {
		b, err := json.Marshal(m)
		if err != nil {
			return nil, "", fmt.Errorf("marshal message: %w", err)
		}
		if err := w.WriteField("message", string(b)); err != nil {
			return nil, "", err
		}
	}

	fields := [][2]string{
		{"jobRole", job.JobRole},
		{"jobDesc", job.JobDesc},
		{"resumeContent", job.ResumeContent},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func decodeResponse(resp *http.Response) (*Result, error) {
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &Error{Kind: KindRateLimited, Status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{Kind: KindServer, Status: resp.StatusCode, Message: strings.TrimSpace(string(b))}
	}

	transcript, err := decodeHeader(resp.Header, HeaderTranscript)
	if err != nil {
		return nil, err
	}
	reply, err := decodeHeader(resp.Header, HeaderResponse)
	if err != nil {
		return nil, err
	}
	if resp.Body == nil || resp.Body == http.NoBody || resp.ContentLength == 0 {
		return nil, &Error{Kind: KindServer, Status: resp.StatusCode, Err: fmt.Errorf("empty audio body")}
	}
	return &Result{Transcript: transcript, ResponseText: reply, Audio: resp.Body}, nil
}

func decodeHeader(h http.Header, name string) (string, error) {
	raw := h.Get(name)
	if raw == "" {
		return "", &Error{Kind: KindServer, Status: http.StatusOK, Err: fmt.Errorf("missing %s header", name)}
	}
	v, err := url.PathUnescape(raw)
	if err != nil {
		return "", &Error{Kind: KindServer, Status: http.StatusOK, Err: fmt.Errorf("decode %s: %w", name, err)}
	}
	if v == "" {
		return "", &Error{Kind: KindServer, Status: http.StatusOK, Err: fmt.Errorf("empty %s header", name)}
	}
	return v, nil
}
