package auth

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/base64"
    "encoding/hex"
    "errors"
    "strconv"
    "strings"
    "time"
)

var (
    ErrTokenFormat    = errors.New("invalid token format")
    ErrTokenSig       = errors.New("invalid token signature")
    ErrTokenExp       = errors.New("token expired")
    ErrTokenInterview = errors.New("interview id mismatch")
)

// Claims is what a subscriber token carries.
type Claims struct {
    InterviewID string
    Exp         int64
}

// IssueSubscriberToken signs a token that lets a client follow one interview's
// notices until expUnix.
// Format: base64url(interview_id + "." + exp_unix + "." + hex(hmac_sha256(secret, interview_id+"."+exp)))
func IssueSubscriberToken(secret, interviewID string, expUnix int64) string {
    msg := interviewID + "." + strconv.FormatInt(expUnix, 10)
    raw := msg + "." + sign(secret, msg)
    return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ValidateSubscriberToken checks signature and expiry. An empty
// expectInterviewID accepts any interview.
func ValidateSubscriberToken(secret, token, expectInterviewID string, now time.Time, skewSeconds int) (Claims, error) {
    b, err := base64.RawURLEncoding.DecodeString(token)
    if err != nil {
        return Claims{}, ErrTokenFormat
    }
    // Interview ids are uuids and contain no dots.
    parts := strings.Split(string(b), ".")
    if len(parts) != 3 || parts[0] == "" {
        return Claims{}, ErrTokenFormat
    }
    iid, expStr, sigHex := parts[0], parts[1], parts[2]
    exp, err := strconv.ParseInt(expStr, 10, 64)
    if err != nil {
        return Claims{}, ErrTokenFormat
    }
    got, err := hex.DecodeString(sigHex)
    if err != nil {
        return Claims{}, ErrTokenFormat
    }
    want, _ := hex.DecodeString(sign(secret, iid+"."+expStr))
    if !hmac.Equal(want, got) {
        return Claims{}, ErrTokenSig
    }
    if expectInterviewID != "" && iid != expectInterviewID {
        return Claims{}, ErrTokenInterview
    }
    if now.Unix() > exp+int64(skewSeconds) {
        return Claims{}, ErrTokenExp
    }
    return Claims{InterviewID: iid, Exp: exp}, nil
}

func sign(secret, msg string) string {
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write([]byte(msg))
    return hex.EncodeToString(mac.Sum(nil))
}
