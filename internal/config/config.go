package config

import (
    "fmt"
    "log"
    "strings"

    "github.com/spf13/viper"
)

type Config struct {
    Server struct {
        Port     string
        LogLevel string
    }
    Backend struct {
        URL        string
        TimeoutSec int
    }
    VAD struct {
        Threshold        float64
        MinSpeechFrames  int
        RedemptionFrames int
        PrePadFrames     int
        FrameSamples     int
        SampleRate       int
        Disabled         bool
    }
    Turn struct {
        DebounceMs int
        QueueSize  int
    }
    Playback struct {
        SampleRate int
        Channels   int
        Format     string // s16le | f32le
        Disabled   bool
    }
    Platform struct {
        UserAgent  string
        RearmToken string
    }
    Interview struct {
        StartPhrase string
    }
    Extract struct {
        MaxUploadMB int
    }
    Notices struct {
        TokenSecret  string
        TokenTTLSec  int
        TokenSkewSec int
    }
    Events struct {
        Max int
    }
}

func Load() Config {
    v := viper.New()
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
    v.AutomaticEnv()

    // Defaults
    v.SetDefault("server.port", 8080)
    v.SetDefault("server.log_level", "info")

    v.SetDefault("backend.url", "http://localhost:3000/api")
    v.SetDefault("backend.timeout_sec", 0)

    v.SetDefault("vad.threshold", 0.6)
    v.SetDefault("vad.min_speech_frames", 4)
    v.SetDefault("vad.redemption_frames", 8)
    v.SetDefault("vad.pre_pad_frames", 1)
    v.SetDefault("vad.frame_samples", 512)
    v.SetDefault("vad.sample_rate", 16000)
    v.SetDefault("vad.disabled", false)

    v.SetDefault("turn.debounce_ms", 3000)
    v.SetDefault("turn.queue_size", 4)

    v.SetDefault("playback.sample_rate", 24000)
    v.SetDefault("playback.channels", 1)
    v.SetDefault("playback.format", "s16le")
    v.SetDefault("playback.disabled", false)

    v.SetDefault("platform.rearm_token", "Firefox")

    v.SetDefault("interview.start_phrase", "start interview")

    v.SetDefault("extract.max_upload_mb", 10)

    v.SetDefault("notices.token_ttl_sec", 3600)
    v.SetDefault("notices.token_skew_sec", 30)

    v.SetDefault("events.max", 200)

    // Map envs
    v.BindEnv("server.port", "PORT")
    v.BindEnv("server.log_level", "LOG_LEVEL")

    v.BindEnv("backend.url", "BACKEND_URL")
    v.BindEnv("backend.timeout_sec", "BACKEND_TIMEOUT_SEC")

    v.BindEnv("vad.threshold", "VAD_THRESHOLD")
    v.BindEnv("vad.min_speech_frames", "VAD_MIN_SPEECH_FRAMES")
    v.BindEnv("vad.redemption_frames", "VAD_REDEMPTION_FRAMES")
    v.BindEnv("vad.pre_pad_frames", "VAD_PRE_PAD_FRAMES")
    v.BindEnv("vad.frame_samples", "VAD_FRAME_SAMPLES")
    v.BindEnv("vad.sample_rate", "VAD_SAMPLE_RATE")
    v.BindEnv("vad.disabled", "VAD_DISABLED")

    v.BindEnv("turn.debounce_ms", "TURN_DEBOUNCE_MS")
    v.BindEnv("turn.queue_size", "TURN_QUEUE_SIZE")

    v.BindEnv("playback.sample_rate", "PLAYBACK_SAMPLE_RATE")
    v.BindEnv("playback.channels", "PLAYBACK_CHANNELS")
    v.BindEnv("playback.format", "PLAYBACK_FORMAT")
    v.BindEnv("playback.disabled", "PLAYBACK_DISABLED")

    v.BindEnv("platform.user_agent", "PLATFORM_USER_AGENT")
    v.BindEnv("platform.rearm_token", "PLATFORM_REARM_TOKEN")

    v.BindEnv("interview.start_phrase", "INTERVIEW_START_PHRASE")

    v.BindEnv("extract.max_upload_mb", "EXTRACT_MAX_UPLOAD_MB")

    v.BindEnv("notices.token_secret", "NOTICES_TOKEN_SECRET")
    v.BindEnv("notices.token_ttl_sec", "NOTICES_TOKEN_TTL_SEC")
    v.BindEnv("notices.token_skew_sec", "NOTICES_TOKEN_SKEW_SEC")

    v.BindEnv("events.max", "EVENTS_MAX")

    var c Config
    c.Server.Port = toString(v.Get("server.port"))
    c.Server.LogLevel = v.GetString("server.log_level")

    c.Backend.URL = v.GetString("backend.url")
    c.Backend.TimeoutSec = v.GetInt("backend.timeout_sec")

    c.VAD.Threshold = v.GetFloat64("vad.threshold")
    c.VAD.MinSpeechFrames = v.GetInt("vad.min_speech_frames")
    c.VAD.RedemptionFrames = v.GetInt("vad.redemption_frames")
    c.VAD.PrePadFrames = v.GetInt("vad.pre_pad_frames")
    c.VAD.FrameSamples = v.GetInt("vad.frame_samples")
    c.VAD.SampleRate = v.GetInt("vad.sample_rate")
    c.VAD.Disabled = v.GetBool("vad.disabled")

    c.Turn.DebounceMs = v.GetInt("turn.debounce_ms")
    c.Turn.QueueSize = v.GetInt("turn.queue_size")

    c.Playback.SampleRate = v.GetInt("playback.sample_rate")
    c.Playback.Channels = v.GetInt("playback.channels")
    c.Playback.Format = strings.ToLower(v.GetString("playback.format"))
    c.Playback.Disabled = v.GetBool("playback.disabled")

    c.Platform.UserAgent = v.GetString("platform.user_agent")
    c.Platform.RearmToken = v.GetString("platform.rearm_token")

    c.Interview.StartPhrase = v.GetString("interview.start_phrase")

    c.Extract.MaxUploadMB = v.GetInt("extract.max_upload_mb")

    c.Notices.TokenSecret = v.GetString("notices.token_secret")
    c.Notices.TokenTTLSec = v.GetInt("notices.token_ttl_sec")
    c.Notices.TokenSkewSec = v.GetInt("notices.token_skew_sec")

    c.Events.Max = v.GetInt("events.max")

    log.Printf("config loaded: port=%s backend=%s vad_threshold=%.2f debounce_ms=%d", c.Server.Port, c.Backend.URL, c.VAD.Threshold, c.Turn.DebounceMs)
    return c
}

func toString(v any) string { return fmt.Sprint(v) }
