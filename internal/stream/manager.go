package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/vpntools/vpnconsole/internal/model"
)

// ErrReconnecting is the user-facing failure text shown while the
// manager waits out the retry delay.
var ErrReconnecting = errors.New("Connection to log stream failed. Reconnecting...")

// State describes the connection lifecycle.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is a single notification from the manager: either a decoded
// stream message or a state transition.
type Event struct {
	Message *model.StreamMessage
	State   State
	Err     error
}

// Manager owns the SSE connection to the log stream endpoint. It retries
// forever on failure with a fixed delay and reconnects from scratch when
// the filter changes, since filtering is the server's job.
type Manager struct {
	baseURL string
	client  *http.Client

	// ReconnectDelay is fixed, with no backoff. Tests shorten it.
	ReconnectDelay time.Duration

	events chan Event
	params chan model.Filter
}

// NewManager creates a Manager for the stream endpoint at baseURL. A nil
// client falls back to http.DefaultClient.
func NewManager(baseURL string, client *http.Client) *Manager {
	if client == nil {
		client = http.DefaultClient
	}
	return &Manager{
		baseURL:        baseURL,
		client:         client,
		ReconnectDelay: model.DefaultReconnectDelay,
		events:         make(chan Event, 64),
		params:         make(chan model.Filter, 1),
	}
}

// Events returns the notification channel. It is closed when Run
// returns.
func (m *Manager) Events() <-chan Event { return m.events }

// SetParams replaces the active filter. The current connection is torn
// down and a new one is opened with the updated query string. Calling
// this repeatedly keeps only the latest filter.
func (m *Manager) SetParams(filter model.Filter) {
	for {
		select {
		case m.params <- filter:
			return
		case <-m.params:
			// Drop the stale pending filter.
		}
	}
}

// Run connects and keeps the stream alive until ctx is cancelled. Every
// failure, including a refused initial connection, leads to a retry
// after the fixed delay. Run never gives up on its own.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.events)

	var filter model.Filter
	select {
	case filter = <-m.params:
	default:
	}

	for {
		newFilter, err := m.connectOnce(ctx, filter)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			// Filter change requested; reconnect immediately.
			filter = newFilter
			continue
		}

		m.emit(ctx, Event{State: StateDisconnected, Err: ErrReconnecting})

		select {
		case <-ctx.Done():
			return
		case filter = <-m.params:
			// A filter change during the wait restarts right away.
		case <-time.After(m.ReconnectDelay):
		}
	}
}

// connectOnce opens the stream and pumps events until the connection
// drops (returned as an error), the filter changes (returned with a nil
// error), or ctx is cancelled.
func (m *Manager) connectOnce(ctx context.Context, filter model.Filter) (model.Filter, error) {
	m.emit(ctx, Event{State: StateConnecting})

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(connCtx, http.MethodGet, m.streamURL(filter), nil)
	if err != nil {
		return filter, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := m.client.Do(req)
	if err != nil {
		return filter, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return filter, fmt.Errorf("log stream returned %s", resp.Status)
	}

	m.emit(ctx, Event{State: StateConnected})

	readDone := make(chan error, 1)
	go func() {
		readDone <- readEvents(resp.Body, func(msg model.StreamMessage) {
			m.emit(ctx, Event{Message: &msg})
		})
	}()

	select {
	case <-ctx.Done():
		cancel()
		<-readDone
		return filter, ctx.Err()
	case newFilter := <-m.params:
		cancel()
		<-readDone
		return newFilter, nil
	case err := <-readDone:
		return filter, err
	}
}

func (m *Manager) streamURL(filter model.Filter) string {
	q := url.Values{}
	if list := filter.TypeList(); list != "" {
		q.Set("type", list)
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	u := m.baseURL + model.DefaultStreamPath
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

func (m *Manager) emit(ctx context.Context, ev Event) {
	select {
	case m.events <- ev:
	case <-ctx.Done():
	}
}
