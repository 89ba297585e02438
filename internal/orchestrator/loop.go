package orchestrator

import (
	"context"
	"errors"
	"log"

	"github.com/ayushsaha1018/ai-interviewer/internal/audio"
	"github.com/ayushsaha1018/ai-interviewer/internal/backend"
	"github.com/ayushsaha1018/ai-interviewer/internal/floor"
	"github.com/ayushsaha1018/ai-interviewer/internal/turn"
	"github.com/ayushsaha1018/ai-interviewer/internal/vad"
)

// Run owns every state transition until ctx is done. Call it once.
func (c *Controller) Run(ctx context.Context) error {
	c.runCtx = ctx
	close(c.running)
	log.Printf("[orch] turn loop started window=%s queue=%d", c.cfg.DebounceWindow, c.cfg.QueueSize)

	var detectorEvents <-chan vad.Event
	if c.detector != nil {
		detectorEvents = c.detector.Events()
	}

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()

		case ev := <-detectorEvents:
			c.handleDetector(ev)

		case gen := <-c.debouncer.Fired():
			c.handleWindowElapsed(gen)

		case r := <-c.requests:
			c.handleRequest(r)

		case res := <-c.results:
			c.handleResult(res)

		case seq := <-c.playbackDone:
			c.handlePlaybackDone(seq)
		}
		c.publish()
	}
}

func (c *Controller) handleDetector(ev vad.Event) {
	switch ev.Kind {
	case vad.SpeechStart:
		c.debouncer.SpeechStarted()
		c.events.Append("speech_start", nil)
	case vad.SpeechEnd:
		c.debouncer.SpeechEnded(ev.Audio)
		c.events.Append("speech_end", map[string]any{"bytes": len(ev.Audio)})
	case vad.Errored:
		if c.errored {
			return
		}
		c.errored = true
		metricDetectorErrored.Set(1)
		log.Printf("[orch] speech detection unavailable: %v", ev.Err)
		c.events.Append("detector_errored", map[string]any{"error": errString(ev.Err)})
		c.notifier.Notify(Notice{Level: LevelWarn, Message: MessageDetectorFailed})
	}
}

func (c *Controller) handleWindowElapsed(gen uint64) {
	playing := c.floor.OnUtteranceComplete().Refuse
	pcm, outcome := c.debouncer.Elapsed(gen, playing)
	switch outcome {
	case turn.OutcomeDropped:
		c.events.Append("utterance_dropped", map[string]any{"reason": "assistant_speaking"})
		return
	case turn.OutcomeStale:
		return
	}
	wav := audio.EncodeWAV(pcm, c.cfg.SampleRate)
	c.handleInput(pending{input: backend.AudioInput(wav), src: floor.SourceSpeech})
}

func (c *Controller) handleRequest(r request) {
	switch r.kind {
	case reqSubmit:
		c.handleInput(pending{input: r.input, src: r.src, reply: r.reply})

	case reqStart:
		if c.started {
			r.reply <- reply{messages: c.store.Messages(), err: ErrAlreadyStarted}
			return
		}
		if !c.store.Job().Complete() {
			c.missingJob(pending{input: backend.TextInput(c.cfg.StartPhrase), src: floor.SourceStart, reply: r.reply})
			return
		}
		// Held while the start is pending; finish clears it if the start is refused.
		c.started = true
		c.handleInput(pending{input: backend.TextInput(c.cfg.StartPhrase), src: floor.SourceStart, reply: r.reply})

	case reqMergeJob:
		job := c.store.MergeJob(r.patch)
		c.events.Append("job_updated", map[string]any{"complete": job.Complete()})
		r.reply <- reply{messages: c.store.Messages(), job: job}

	case reqReset:
		c.reset()
		r.reply <- reply{messages: c.store.Messages()}
	}
}

// handleInput applies the guards, then queues or dispatches.
func (c *Controller) handleInput(p pending) {
	if d := c.floor.Admit(p.src); d.Refuse {
		metricRefusedWhilePlaying.Inc()
		metricSubmissions.WithLabelValues(string(p.input.Kind), "refused").Inc()
		c.events.Append("submit_refused", map[string]any{"input": string(p.input.Kind), "reason": d.Reason})
		c.finish(p, reply{messages: c.store.Messages(), err: ErrPlaybackActive})
		return
	}
	if c.mode == ModeSubmitting {
		if len(c.queue) >= c.cfg.QueueSize {
			metricSubmissions.WithLabelValues(string(p.input.Kind), "queue_full").Inc()
			c.finish(p, reply{messages: c.store.Messages(), err: ErrQueueFull})
			return
		}
		c.queue = append(c.queue, p)
		c.events.Append("submit_queued", map[string]any{"input": string(p.input.Kind), "depth": len(c.queue)})
		return
	}
	c.dispatch(p)
}

func (c *Controller) dispatch(p pending) {
	job := c.store.Job()
	if !job.Complete() {
		c.missingJob(p)
		return
	}

	if p.input.IsAudio() {
		// Cut off any residual reply audio before the new turn.
		if c.player.Stop() {
			c.floor.OnPlaybackStopped("", "superseded")
		}
		if c.detector != nil && c.policy.RequiresManualRearm() {
			c.detector.Pause()
			c.pausedForReply = true
		}
	}

	history := c.store.Messages()
	if p.src == floor.SourceStart {
		c.events.Append("interview_started", nil)
	}
	c.setState(ModeSubmitting)
	c.inflight = &p
	c.events.Append("submit_started", map[string]any{"input": string(p.input.Kind), "source": string(p.src), "history": len(history)})
	log.Printf("[orch] submit input=%s source=%s history=%d", p.input.Kind, p.src, len(history))

	epoch := c.epoch
	ctx := c.runCtx
	go func() {
		res, err := c.submitter.Submit(ctx, p.input, history, job)
		select {
		case c.results <- submitResult{epoch: epoch, p: p, res: res, err: err}:
		case <-ctx.Done():
			if res != nil && res.Audio != nil {
				res.Audio.Close()
			}
		}
	}()
}

func (c *Controller) handleResult(r submitResult) {
	if r.epoch != c.epoch {
		// Submitted before a reset; the interview it belonged to is gone.
		if r.res != nil && r.res.Audio != nil {
			r.res.Audio.Close()
		}
		c.finish(r.p, reply{messages: c.store.Messages(), err: ErrReset})
		c.inflight = nil
		c.setState(ModeIdle)
		c.rearm()
		c.drainQueue()
		return
	}
	c.inflight = nil

	if r.err != nil {
		c.onSubmitFailed(r)
		c.drainQueue()
		return
	}

	latencyMs := r.res.Latency.Milliseconds()
	st := c.store.AppendTurn(r.res.Transcript, r.res.ResponseText, latencyMs)
	c.lastTranscript = r.res.Transcript
	metricSubmissions.WithLabelValues(string(r.p.input.Kind), "ok").Inc()
	metricTurnLatencyMS.Observe(float64(latencyMs))
	c.events.Append("submit_ok", map[string]any{
		"input":      string(r.p.input.Kind),
		"request_id": r.res.RequestID,
		"latency_ms": latencyMs,
		"messages":   len(st.Messages),
	})

	c.playSeq++
	seq := c.playSeq
	ctx := c.runCtx
	id, err := c.player.Play(r.res.Audio, func() {
		select {
		case c.playbackDone <- seq:
		case <-ctx.Done():
		}
	})
	if err != nil {
		r.res.Audio.Close()
		log.Printf("[orch] playback failed to start: %v", err)
		c.events.Append("playback_failed", map[string]any{"error": err.Error()})
		c.setState(ModeIdle)
		c.rearm()
	} else {
		c.floor.OnPlaybackStarted(id)
		c.setState(ModePlaying)
		c.events.Append("playback_started", map[string]any{"playback_id": id})
	}
	c.finish(r.p, reply{messages: st.Messages})
	c.drainQueue()
}

func (c *Controller) onSubmitFailed(r submitResult) {
	kind := backend.KindOf(r.err)
	metricSubmissions.WithLabelValues(string(r.p.input.Kind), kind.String()).Inc()
	log.Printf("[orch] submit failed input=%s kind=%s err=%v", r.p.input.Kind, kind, r.err)
	c.events.Append("submit_failed", map[string]any{"input": string(r.p.input.Kind), "kind": kind.String(), "error": r.err.Error()})

	n := Notice{Level: LevelError, Message: backend.UserMessage(r.err)}
	if errors.Is(r.err, backend.ErrMissingJobDetails) {
		n.Redirect = c.cfg.JobEntryPath
	}
	c.notifier.Notify(n)

	c.setState(ModeIdle)
	c.rearm()
	c.finish(r.p, reply{messages: c.store.Messages(), err: r.err})
}

func (c *Controller) handlePlaybackDone(seq uint64) {
	if seq != c.playSeq || c.mode != ModePlaying {
		return
	}
	c.floor.OnPlaybackStopped(c.floor.ActivePlaybackID(), "completed")
	c.events.Append("playback_completed", nil)
	c.setState(ModeIdle)
	c.rearm()
	c.drainQueue()
}

func (c *Controller) drainQueue() {
	for len(c.queue) > 0 && c.mode != ModeSubmitting {
		p := c.queue[0]
		c.queue = c.queue[1:]
		c.handleInput(p)
	}
}

func (c *Controller) missingJob(p pending) {
	metricSubmissions.WithLabelValues(string(p.input.Kind), backend.KindPrecondition.String()).Inc()
	c.events.Append("submit_rejected", map[string]any{"reason": "missing_job_details"})
	c.notifier.Notify(Notice{Level: LevelError, Message: backend.MessageMissingJob, Redirect: c.cfg.JobEntryPath})
	c.finish(p, reply{messages: c.store.Messages(), err: backend.ErrMissingJobDetails})
}

// rearm restarts the detector if it was paused for the reply.
func (c *Controller) rearm() {
	if !c.pausedForReply || c.detector == nil {
		return
	}
	if c.mode == ModeSubmitting || c.mode == ModePlaying {
		return
	}
	c.pausedForReply = false
	if err := c.detector.Start(); err != nil {
		log.Printf("[orch] detector restart failed: %v", err)
	}
}

func (c *Controller) reset() {
	c.epoch++
	c.debouncer.Cancel()
	if c.player.Stop() {
		c.floor.OnPlaybackStopped("", "reset")
	}
	for _, p := range c.queue {
		c.finish(p, reply{err: ErrReset})
	}
	c.queue = nil
	c.started = false
	c.lastTranscript = ""
	c.store.Reset()
	// An in-flight submission keeps the controller SUBMITTING until its
	// result arrives and is discarded.
	if c.inflight == nil {
		c.setState(ModeIdle)
		c.rearm()
	}
	id := c.events.Rotate()
	c.events.Append("interview_reset", nil)
	log.Printf("[orch] interview reset id=%s", id)
}

func (c *Controller) shutdown() {
	c.debouncer.Cancel()
	c.player.Stop()
	for _, p := range c.queue {
		c.finish(p, reply{messages: c.store.Messages(), err: ErrNotRunning})
	}
	c.queue = nil
	log.Printf("[orch] turn loop stopped")
}

func (c *Controller) finish(p pending, r reply) {
	// A start that never reached the backend, or failed there, can be retried.
	// After a reset the flag was already cleared and may belong to a newer start.
	if p.src == floor.SourceStart && r.err != nil && !errors.Is(r.err, ErrReset) {
		c.started = false
	}
	if p.reply == nil {
		return
	}
	if r.messages == nil {
		r.messages = c.store.Messages()
	}
	p.reply <- r
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
