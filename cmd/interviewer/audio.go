package main

import (
    "context"
    "fmt"
    "io"
    "log"
    "sync"
    "time"

    "github.com/ebitengine/oto/v3"
    "github.com/gen2brain/malgo"

    "github.com/ayushsaha1018/ai-interviewer/internal/audio"
    "github.com/ayushsaha1018/ai-interviewer/internal/playback"
)

const playerPoll = 20 * time.Millisecond

// mic captures PCM16 mono and hands fixed-size frames to onFrame.
type mic struct {
    sampleRate int
    frameBytes int
    onFrame    func([]byte)

    mu     sync.Mutex
    buf    []byte
    ctx    *malgo.AllocatedContext
    device *malgo.Device
}

func newMic(sampleRate, frameSamples int, onFrame func([]byte)) *mic {
    return &mic{sampleRate: sampleRate, frameBytes: frameSamples * 2, onFrame: onFrame}
}

func (m *mic) Start() error {
    mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
    if err != nil {
        return fmt.Errorf("init audio context: %w", err)
    }

    deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
    deviceConfig.Capture.Format = malgo.FormatS16
    deviceConfig.Capture.Channels = 1
    deviceConfig.SampleRate = uint32(m.sampleRate)
    deviceConfig.PeriodSizeInMilliseconds = 20

    callbacks := malgo.DeviceCallbacks{
        Data: func(_, in []byte, _ uint32) { m.feed(in) },
    }
    device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
    if err != nil {
        _ = mctx.Uninit()
        mctx.Free()
        return fmt.Errorf("init microphone: %w", err)
    }
    if err := device.Start(); err != nil {
        device.Uninit()
        _ = mctx.Uninit()
        mctx.Free()
        return fmt.Errorf("start microphone: %w", err)
    }
    m.mu.Lock()
    m.ctx, m.device = mctx, device
    m.mu.Unlock()
    log.Printf("[mic] capturing %dHz mono, %d-byte frames", m.sampleRate, m.frameBytes)
    return nil
}

// feed runs on the audio thread.
func (m *mic) feed(in []byte) {
    m.mu.Lock()
    m.buf = append(m.buf, in...)
    var frames [][]byte
    for len(m.buf) >= m.frameBytes {
        f := make([]byte, m.frameBytes)
        copy(f, m.buf[:m.frameBytes])
        frames = append(frames, f)
        m.buf = m.buf[m.frameBytes:]
    }
    m.mu.Unlock()
    for _, f := range frames {
        m.onFrame(f)
    }
}

func (m *mic) Close() {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.device != nil {
        _ = m.device.Stop()
        m.device.Uninit()
        m.device = nil
    }
    if m.ctx != nil {
        _ = m.ctx.Uninit()
        m.ctx.Free()
        m.ctx = nil
    }
}

// speaker renders reply audio through oto. The oto context is opened once,
// so every reply must match its format.
type speaker struct {
    ctx    *oto.Context
    format audio.Format
}

func otoFormat(name string) (oto.Format, audio.Format, error) {
    switch name {
    case "", "s16le":
        return oto.FormatSignedInt16LE, audio.Format{BitsPerSample: 16}, nil
    case "f32le":
        return oto.FormatFloat32LE, audio.Format{BitsPerSample: 32, Float: true}, nil
    default:
        return 0, audio.Format{}, fmt.Errorf("unknown playback format %q", name)
    }
}

func newSpeaker(sampleRate, channels int, format string) (*speaker, error) {
    of, af, err := otoFormat(format)
    if err != nil {
        return nil, err
    }
    af.SampleRate, af.Channels = sampleRate, channels
    otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
        SampleRate:   sampleRate,
        ChannelCount: channels,
        Format:       of,
        BufferSize:   100 * time.Millisecond,
    })
    if err != nil {
        return nil, fmt.Errorf("init speaker: %w", err)
    }
    <-ready
    log.Printf("[speaker] ready %dHz/%dch/%s", sampleRate, channels, format)
    return &speaker{ctx: otoCtx, format: af}, nil
}

func (s *speaker) Play(ctx context.Context, r io.Reader) error {
    got, data, err := playback.Decode(r, s.format)
    if err != nil {
        return err
    }
    if err := playback.Compatible(got, s.format); err != nil {
        return err
    }
    p := s.ctx.NewPlayer(data)
    defer p.Close()
    p.Play()

    t := time.NewTicker(playerPoll)
    defer t.Stop()
    for p.IsPlaying() {
        select {
        case <-ctx.Done():
            p.Pause()
            return ctx.Err()
        case <-t.C:
        }
    }
    return p.Err()
}

// discardSink drains replies when no output device is configured.
type discardSink struct{}

func (discardSink) Play(ctx context.Context, r io.Reader) error {
    _, err := io.Copy(io.Discard, r)
    return err
}
