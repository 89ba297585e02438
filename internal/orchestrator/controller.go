// Package orchestrator runs the turn-taking loop: it owns the session state
// and serialises speech, typed input, submissions and playback.
package orchestrator

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ayushsaha1018/ai-interviewer/internal/backend"
	"github.com/ayushsaha1018/ai-interviewer/internal/events"
	"github.com/ayushsaha1018/ai-interviewer/internal/floor"
	"github.com/ayushsaha1018/ai-interviewer/internal/playback"
	"github.com/ayushsaha1018/ai-interviewer/internal/session"
	"github.com/ayushsaha1018/ai-interviewer/internal/turn"
	"github.com/ayushsaha1018/ai-interviewer/internal/vad"
)

var (
	ErrPlaybackActive = errors.New("assistant is speaking")
	ErrQueueFull      = errors.New("submission queue full")
	ErrAlreadyStarted = errors.New("interview already started")
	ErrEmptyInput     = errors.New("empty input")
	ErrReset          = errors.New("interview reset")
	ErrNotRunning     = errors.New("turn controller not running")
)

const (
	DefaultStartPhrase = "start interview"
	DefaultQueueSize   = 4
	DefaultSampleRate  = 16000
)

// Submitter performs one backend exchange.
type Submitter interface {
	Submit(ctx context.Context, in backend.Input, history []session.Message, job session.JobContext) (*backend.Result, error)
}

// Player renders one reply at a time.
type Player interface {
	Play(stream io.ReadCloser, onComplete func()) (string, error)
	Stop() bool
}

// Detector is the speech activity monitor as seen by the controller.
type Detector interface {
	Events() <-chan vad.Event
	Pause()
	Start() error
	Status() vad.Status
	UserSpeaking() bool
}

type Config struct {
	DebounceWindow time.Duration
	QueueSize      int
	StartPhrase    string
	SampleRate     int
	JobEntryPath   string
}

func (c Config) withDefaults() Config {
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = turn.DefaultWindow
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.StartPhrase == "" {
		c.StartPhrase = DefaultStartPhrase
	}
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.JobEntryPath == "" {
		c.JobEntryPath = "/job"
	}
	return c
}

// Deps are the collaborators. Detector, Policy, Notifier and Events may be nil.
type Deps struct {
	Store     *session.Store
	Submitter Submitter
	Player    Player
	Detector  Detector
	Policy    playback.RearmPolicy
	Notifier  Notifier
	Events    *events.Store
	Clock     clock.Clock
}

type reqKind int

const (
	reqSubmit reqKind = iota
	reqStart
	reqMergeJob
	reqReset
)

type reply struct {
	messages []session.Message
	job      session.JobContext
	err      error
}

type request struct {
	kind  reqKind
	input backend.Input
	src   floor.Source
	patch session.JobPatch
	reply chan reply
}

type pending struct {
	input backend.Input
	src   floor.Source
	reply chan reply
}

type submitResult struct {
	epoch uint64
	p     pending
	res   *backend.Result
	err   error
}

type Controller struct {
	cfg       Config
	store     *session.Store
	submitter Submitter
	player    Player
	detector  Detector
	policy    playback.RearmPolicy
	notifier  Notifier
	events    *events.Store
	clock     clock.Clock
	debouncer *turn.Debouncer
	floor     *floor.Manager

	requests     chan request
	results      chan submitResult
	playbackDone chan uint64

	running chan struct{}
	runCtx  context.Context

	// owned by the loop goroutine
	mode           Mode
	errored        bool
	started        bool
	queue          []pending
	lastTranscript string
	epoch          uint64
	playSeq        uint64
	inflight       *pending
	pausedForReply bool

	snapMu sync.RWMutex
	snap   Snapshot
}

func New(cfg Config, d Deps) *Controller {
	cfg = cfg.withDefaults()
	if d.Store == nil {
		d.Store = session.NewStore()
	}
	if d.Policy == nil {
		d.Policy = playback.StaticPolicy(false)
	}
	if d.Notifier == nil {
		d.Notifier = NopNotifier{}
	}
	if d.Events == nil {
		d.Events = events.NewStore(events.DefaultMaxEvents)
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	c := &Controller{
		cfg:          cfg,
		store:        d.Store,
		submitter:    d.Submitter,
		player:       d.Player,
		detector:     d.Detector,
		policy:       d.Policy,
		notifier:     d.Notifier,
		events:       d.Events,
		clock:        d.Clock,
		debouncer:    turn.New(cfg.DebounceWindow, d.Clock),
		floor:        floor.New(),
		requests:     make(chan request),
		results:      make(chan submitResult, 1),
		playbackDone: make(chan uint64, 1),
		running:      make(chan struct{}),
		mode:         ModeIdle,
	}
	c.publish()
	return c
}

func (c *Controller) Store() *session.Store { return c.store }

func (c *Controller) Events() *events.Store { return c.events }

// SubmitText submits typed input and waits for the outcome. The returned
// history is the state after the attempt; it is unchanged on any error.
func (c *Controller) SubmitText(ctx context.Context, text string) ([]session.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return c.store.Messages(), ErrEmptyInput
	}
	return c.do(ctx, request{kind: reqSubmit, input: backend.TextInput(text), src: floor.SourceText})
}

// StartInterview submits the start phrase. It fails with
// backend.ErrMissingJobDetails when the job context is incomplete and with
// ErrAlreadyStarted after the first successful start.
func (c *Controller) StartInterview(ctx context.Context) ([]session.Message, error) {
	return c.do(ctx, request{kind: reqStart})
}

// Reset clears the job context, history and any pending work.
func (c *Controller) Reset(ctx context.Context) error {
	_, err := c.do(ctx, request{kind: reqReset})
	return err
}

// MergeJob updates the job context on the loop goroutine and returns the
// merged result.
func (c *Controller) MergeJob(ctx context.Context, p session.JobPatch) (session.JobContext, error) {
	rep, err := c.roundTrip(ctx, request{kind: reqMergeJob, patch: p})
	if err != nil {
		return c.store.Job(), err
	}
	return rep.job, nil
}

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	s := c.snap
	c.snapMu.RUnlock()
	s.Job = c.store.Job()
	if c.detector != nil {
		s.DetectorStatus = c.detector.Status().String()
		s.UserSpeaking = c.detector.UserSpeaking()
	} else {
		s.DetectorStatus = "disabled"
	}
	return s
}

func (c *Controller) do(ctx context.Context, r request) ([]session.Message, error) {
	rep, err := c.roundTrip(ctx, r)
	if err != nil {
		return c.store.Messages(), err
	}
	return rep.messages, rep.err
}

func (c *Controller) roundTrip(ctx context.Context, r request) (reply, error) {
	select {
	case <-c.running:
	default:
		return reply{}, ErrNotRunning
	}
	r.reply = make(chan reply, 1)
	select {
	case c.requests <- r:
	case <-ctx.Done():
		return reply{}, ctx.Err()
	case <-c.runCtx.Done():
		return reply{}, ErrNotRunning
	}
	select {
	case rep := <-r.reply:
		return rep, nil
	case <-ctx.Done():
		// The submission itself is not cancelled.
		return reply{}, ctx.Err()
	case <-c.runCtx.Done():
		return reply{}, ErrNotRunning
	}
}
