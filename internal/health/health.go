package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

type CheckResult struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type HealthStatus struct {
	OK        bool          `json:"ok"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

func (h HealthStatus) String() string {
	status := "OK"
	if !h.OK {
		status = "FAIL"
	}
	s := fmt.Sprintf("Health: %s\n", status)
	for _, c := range h.Checks {
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		s += fmt.Sprintf("  %s %s (%dms)", mark, c.Name, c.LatencyMs)
		if c.Error != "" {
			s += fmt.Sprintf(" - %s", c.Error)
		}
		s += "\n"
	}
	return s
}

// Target describes what readiness depends on.
type Target struct {
	BackendURL string
	// DetectorStatus reports the speech detector state; nil skips the check.
	DetectorStatus func() string
	HTTPClient     *http.Client
}

// CheckAll runs all health checks and returns combined status
func CheckAll(ctx context.Context, t Target) HealthStatus {
	checks := []CheckResult{checkBackend(ctx, t)}
	if t.DetectorStatus != nil {
		checks = append(checks, checkDetector(t.DetectorStatus))
	}

	allOK := true
	for _, c := range checks {
		if !c.OK {
			allOK = false
		}
	}

	return HealthStatus{
		OK:        allOK,
		Checks:    checks,
		CheckedAt: time.Now().UTC(),
	}
}

// checkBackend only verifies the endpoint answers. Any status below 500
// counts as reachable; the route itself only accepts POST.
func checkBackend(ctx context.Context, t Target) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "backend"}

	if t.BackendURL == "" {
		result.Error = "BACKEND_URL not set"
		result.LatencyMs = time.Since(start).Milliseconds()
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, t.BackendURL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("request build failed: %v", err)
		result.LatencyMs = time.Since(start).Milliseconds()
		return result
	}

	hc := t.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.LatencyMs = time.Since(start).Milliseconds()
		return result
	}
	defer resp.Body.Close()

	result.LatencyMs = time.Since(start).Milliseconds()

	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		result.Error = fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body))
		return result
	}

	result.OK = true
	return result
}

func checkDetector(status func() string) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "speech_detector"}
	s := status()
	result.LatencyMs = time.Since(start).Milliseconds()
	if s == "errored" {
		result.Error = "speech detector failed to load"
		return result
	}
	result.OK = true
	return result
}
