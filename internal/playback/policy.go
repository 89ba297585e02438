package playback

import "strings"

const DefaultRearmToken = "Firefox"

// RearmPolicy reports whether the platform needs the speech monitor paused
// during playback and restarted explicitly afterwards.
type RearmPolicy interface {
	RequiresManualRearm() bool
}

// UserAgentPolicy matches Token against the configured user agent.
type UserAgentPolicy struct {
	UserAgent string
	Token     string
}

func (p UserAgentPolicy) RequiresManualRearm() bool {
	token := p.Token
	if token == "" {
		token = DefaultRearmToken
	}
	return p.UserAgent != "" && strings.Contains(p.UserAgent, token)
}

// StaticPolicy always answers the same.
type StaticPolicy bool

func (p StaticPolicy) RequiresManualRearm() bool { return bool(p) }
