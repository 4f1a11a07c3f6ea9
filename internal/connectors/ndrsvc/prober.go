package ndrsvc

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Status is a single connectivity probe of the remote NDR reporting service.
type Status struct {
	Target     string    `json:"target"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	PingMS     int64     `json:"ping_ms"`
	CheckedAt  time.Time `json:"checked_at"`
}

// Prober checks reachability of the remote reporting service's ping endpoint.
type Prober struct {
	client *http.Client
	target string
}

func NewProber(target string, timeout time.Duration) *Prober {
	return &Prober{
		client: &http.Client{Timeout: timeout},
		target: strings.TrimSpace(target),
	}
}

func (p *Prober) Enabled() bool {
	return p != nil && p.target != ""
}

// Probe pings the target once. Any 2xx counts as reachable.
func (p *Prober) Probe(ctx context.Context) Status {
	out := Status{
		Target:    p.target,
		CheckedAt: time.Now().UTC(),
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.target, nil)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	resp, err := p.client.Do(req)
	out.PingMS = time.Since(start).Milliseconds()
	if err != nil {
		out.Error = err.Error()
		return out
	}
	_ = resp.Body.Close()

	out.StatusCode = resp.StatusCode
	out.OK = resp.StatusCode >= 200 && resp.StatusCode < 300
	if !out.OK {
		out.Error = "unexpected status " + resp.Status
	}
	return out
}
