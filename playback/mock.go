package playback

import (
	"context"
	"sync"
)

// MockResource is a test double for Resource. Play returns the configured
// error, optionally after waiting on a gate so tests can hold a play
// instruction in flight.
type MockResource struct {
	mu        sync.Mutex
	loaded    string
	playing   bool
	volume    float64
	calls     []string
	loadCalls []string
	seekCalls []float64
	playErr   error
	playErrs  map[string]error
	gate      chan struct{}
	listeners map[int]func(Event)
	nextID    int
	playsSeen chan struct{}
}

// NewMockResource creates an idle mock.
func NewMockResource() *MockResource {
	return &MockResource{
		volume:    1,
		listeners: make(map[int]func(Event)),
		playErrs:  make(map[string]error),
		playsSeen: make(chan struct{}, 64),
	}
}

var _ Resource = (*MockResource)(nil)

func (m *MockResource) Load(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = url
	m.playing = false
	m.calls = append(m.calls, "load:"+url)
	m.loadCalls = append(m.loadCalls, url)
}

func (m *MockResource) Play(ctx context.Context) error {
	m.mu.Lock()
	url := m.loaded
	m.calls = append(m.calls, "play:"+url)
	gate := m.gate
	m.mu.Unlock()

	select {
	case m.playsSeen <- struct{}{}:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.playErrs[url]; ok {
		return err
	}
	if m.playErr != nil {
		return m.playErr
	}
	if m.loaded == url {
		m.playing = true
	}
	return nil
}

func (m *MockResource) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.calls = append(m.calls, "pause")
}

func (m *MockResource) Seek(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, seconds)
}

func (m *MockResource) SetVolume(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = v
}

func (m *MockResource) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Test helpers

// SetPlayError makes later Play calls fail with err.
func (m *MockResource) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

// SetPlayErrorFor makes Play fail with err while url is loaded.
func (m *MockResource) SetPlayErrorFor(url string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErrs[url] = err
}

// HoldPlay makes Play block until ReleasePlay is called.
func (m *MockResource) HoldPlay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = make(chan struct{})
}

// ReleasePlay unblocks every held Play call.
func (m *MockResource) ReleasePlay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

// PlayStarted receives once per Play call.
func (m *MockResource) PlayStarted() <-chan struct{} {
	return m.playsSeen
}

// Emit delivers ev to every subscriber.
func (m *MockResource) Emit(ev Event) {
	m.mu.Lock()
	fns := make([]func(Event), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Loaded returns the last loaded URL.
func (m *MockResource) Loaded() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Playing reports whether the last Play succeeded and was not paused since.
func (m *MockResource) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Volume returns the last applied volume.
func (m *MockResource) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// Calls returns the load/play/pause instructions in order.
func (m *MockResource) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// LoadCalls returns every loaded URL in order.
func (m *MockResource) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loadCalls...)
}

// SeekCalls returns every seek target in order.
func (m *MockResource) SeekCalls() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.seekCalls...)
}

// Subscribers returns how many listeners are registered.
func (m *MockResource) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}
