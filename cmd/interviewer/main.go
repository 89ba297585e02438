package main

import (
    "context"
    "errors"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/benbjohnson/clock"
    "github.com/joho/godotenv"

    "github.com/ayushsaha1018/ai-interviewer/internal/api"
    "github.com/ayushsaha1018/ai-interviewer/internal/backend"
    "github.com/ayushsaha1018/ai-interviewer/internal/config"
    "github.com/ayushsaha1018/ai-interviewer/internal/events"
    "github.com/ayushsaha1018/ai-interviewer/internal/health"
    "github.com/ayushsaha1018/ai-interviewer/internal/notices"
    "github.com/ayushsaha1018/ai-interviewer/internal/orchestrator"
    "github.com/ayushsaha1018/ai-interviewer/internal/playback"
    "github.com/ayushsaha1018/ai-interviewer/internal/session"
    "github.com/ayushsaha1018/ai-interviewer/internal/vad"
)

func main() {
    // Load .env file if present (ignored if missing)
    _ = godotenv.Load()

    cfg := config.Load()
    clk := clock.New()

    evs := events.NewStore(cfg.Events.Max)
    hub := notices.NewHub()
    hub.Follow(evs)

    httpClient := &http.Client{}
    if cfg.Backend.TimeoutSec > 0 {
        httpClient.Timeout = time.Duration(cfg.Backend.TimeoutSec) * time.Second
    }
    client := backend.New(cfg.Backend.URL, backend.WithHTTPClient(httpClient), backend.WithClock(clk))

    var sink playback.Sink = discardSink{}
    if !cfg.Playback.Disabled {
        sp, err := newSpeaker(cfg.Playback.SampleRate, cfg.Playback.Channels, cfg.Playback.Format)
        if err != nil {
            log.Fatalf("speaker: %v", err)
        }
        sink = sp
    }
    player := playback.NewController(sink, clk)

    var (
        monitor  *vad.Monitor
        detector orchestrator.Detector
        capture  *mic
    )
    if !cfg.VAD.Disabled {
        vcfg := vad.DefaultConfig()
        vcfg.PositiveSpeechThreshold = cfg.VAD.Threshold
        vcfg.NegativeSpeechThreshold = 0
        vcfg.MinSpeechFrames = cfg.VAD.MinSpeechFrames
        vcfg.RedemptionFrames = cfg.VAD.RedemptionFrames
        vcfg.PreSpeechPadFrames = cfg.VAD.PrePadFrames
        vcfg.FrameSamples = cfg.VAD.FrameSamples
        vcfg.SampleRate = cfg.VAD.SampleRate
        monitor = vad.New(vcfg)
        detector = monitor
        capture = newMic(cfg.VAD.SampleRate, cfg.VAD.FrameSamples, monitor.Process)
    }

    ctrl := orchestrator.New(orchestrator.Config{
        DebounceWindow: time.Duration(cfg.Turn.DebounceMs) * time.Millisecond,
        QueueSize:      cfg.Turn.QueueSize,
        StartPhrase:    cfg.Interview.StartPhrase,
        SampleRate:     cfg.VAD.SampleRate,
    }, orchestrator.Deps{
        Store:     session.NewStore(),
        Submitter: client,
        Player:    player,
        Detector:  detector,
        Policy:    playback.UserAgentPolicy{UserAgent: cfg.Platform.UserAgent, Token: cfg.Platform.RearmToken},
        Notifier:  orchestrator.MultiNotifier{orchestrator.LogNotifier{}, hub},
        Events:    evs,
        Clock:     clk,
    })

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    loopDone := make(chan struct{})
    go func() {
        defer close(loopDone)
        if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
            log.Printf("turn loop stopped: %v", err)
        }
    }()

    if monitor != nil {
        // The microphone is part of loading: without it the monitor is errored
        // and the interview continues with typed input.
        go func() {
            err := monitor.Init(func() (vad.Classifier, error) {
                if err := capture.Start(); err != nil {
                    return nil, err
                }
                return vad.EnergyLoader()()
            })
            if err != nil {
                log.Printf("speech detection unavailable: %v", err)
            }
        }()
        defer capture.Close()
    }

    noticeHandler := &notices.Handler{
        Hub:         hub,
        Secret:      cfg.Notices.TokenSecret,
        TTL:         time.Duration(cfg.Notices.TokenTTLSec) * time.Second,
        SkewSecs:    cfg.Notices.TokenSkewSec,
        InterviewID: evs.InterviewID,
    }
    ready := func(ctx context.Context) health.HealthStatus {
        return health.CheckAll(ctx, health.Target{
            BackendURL:     cfg.Backend.URL,
            DetectorStatus: func() string { return ctrl.Snapshot().DetectorStatus },
            HTTPClient:     httpClient,
        })
    }
    h := api.NewHandlers(cfg, ctrl, noticeHandler, noticeHandler, ready)

    addr := ":" + cfg.Server.Port
    srv := &http.Server{
        Addr:              addr,
        Handler:           api.NewRouter(h),
        ReadHeaderTimeout: 5 * time.Second,
    }

    go func() {
        <-ctx.Done()
        log.Printf("shutdown signal received; stopping server...")
        sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = srv.Shutdown(sctx)
    }()

    log.Printf("server starting on %s", addr)
    if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
        log.Println("server error:", err)
        stop()
        <-loopDone
        os.Exit(1)
    }
    <-loopDone
}
