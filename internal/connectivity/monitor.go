// Package connectivity tracks whether the online services can be reached.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/blockedby/interview-os/internal/logger"
)

// Monitor holds the shared online/offline flag and notifies subscribers on every change.
type Monitor struct {
	online atomic.Bool

	mu     sync.Mutex
	subs   map[int]func(online bool)
	nextID int

	client *http.Client
	log    *zerolog.Logger
}

// NewMonitor creates a monitor with the given initial state.
func NewMonitor(online bool) *Monitor {
	m := &Monitor{
		subs:   make(map[int]func(bool)),
		client: &http.Client{Timeout: 5 * time.Second},
		log:    logger.Component("connectivity"),
	}
	m.online.Store(online)
	return m
}

// SetLogger replaces the component logger.
func (m *Monitor) SetLogger(l *zerolog.Logger) {
	m.log = l
}

// SetHTTPClient replaces the client used by Probe.
func (m *Monitor) SetHTTPClient(c *http.Client) {
	m.client = c
}

// Online reports the current state.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Set updates the state and reports whether it changed.
// Subscribers are called synchronously, outside the monitor's lock, only on change.
func (m *Monitor) Set(online bool) bool {
	if m.online.Swap(online) == online {
		return false
	}

	m.mu.Lock()
	subs := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	m.log.Info().Bool("online", online).Msg("connectivity changed")
	for _, fn := range subs {
		fn(online)
	}
	return true
}

// Subscribe registers fn for state changes. The returned function removes it.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Probe requests url once and updates the state from the outcome.
// Any HTTP response counts as online; only transport failures count as offline.
func (m *Monitor) Probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		m.log.Warn().Err(err).Str("url", url).Msg("invalid probe url")
		return m.Online()
	}

	resp, err := m.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return m.Online()
		}
		m.log.Debug().Err(err).Str("url", url).Msg("probe failed")
		m.Set(false)
		return false
	}
	resp.Body.Close()

	m.Set(true)
	return true
}

// Run probes url every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, url string, interval time.Duration) {
	if url == "" {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}

	m.Probe(ctx, url)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx, url)
		}
	}
}
