package audio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Melodix/playback"
)

type fakeOutput struct {
	mu      sync.Mutex
	state   sync.Mutex
	inits   int
	streams []beep.Streamer
}

func (o *fakeOutput) Init(beep.SampleRate) error {
	o.state.Lock()
	defer o.state.Unlock()
	o.inits++
	return nil
}

func (o *fakeOutput) Play(s beep.Streamer) {
	o.state.Lock()
	defer o.state.Unlock()
	o.streams = append(o.streams, s)
}

func (o *fakeOutput) Clear() {
	o.state.Lock()
	defer o.state.Unlock()
	o.streams = nil
}

func (o *fakeOutput) Lock()   { o.mu.Lock() }
func (o *fakeOutput) Unlock() { o.mu.Unlock() }

func (o *fakeOutput) playing() int {
	o.state.Lock()
	defer o.state.Unlock()
	return len(o.streams)
}

// drain pulls every queued stream to completion the way a device would.
func (o *fakeOutput) drain() {
	o.state.Lock()
	streams := o.streams
	o.streams = nil
	o.state.Unlock()

	buf := make([][2]float64, 512)
	for _, s := range streams {
		for {
			o.Lock()
			n, ok := s.Stream(buf)
			o.Unlock()
			if !ok || n == 0 {
				break
			}
		}
	}
}

type eventLog struct {
	ch chan playback.Event
}

func listen(p *Player) *eventLog {
	l := &eventLog{ch: make(chan playback.Event, 64)}
	p.Subscribe(func(ev playback.Event) { l.ch <- ev })
	return l
}

func (l *eventLog) next(t *testing.T, match func(playback.Event) bool) playback.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-l.ch:
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("expected event not received")
			return nil
		}
	}
}

func isMetadata(ev playback.Event) bool { _, ok := ev.(playback.LoadedMetadata); return ok }
func isEnded(ev playback.Event) bool    { _, ok := ev.(playback.Ended); return ok }
func isError(ev playback.Event) bool    { _, ok := ev.(playback.Error); return ok }

func serveWAV(t *testing.T, sampleRate, samples int) *httptest.Server {
	t.Helper()
	data, err := os.ReadFile(writeWAV(t, sampleRate, samples))
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/media/tone.wav", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(data)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestPlayer(t *testing.T) (*Player, *fakeOutput) {
	t.Helper()
	out := &fakeOutput{}
	p := NewPlayer(out, WithTickInterval(10*time.Millisecond))
	t.Cleanup(p.Close)
	return p, out
}

func TestPlayer_LoadEmitsDuration(t *testing.T) {
	srv := serveWAV(t, 8000, 4000)
	p, _ := newTestPlayer(t)
	events := listen(p)

	src := srv.URL + "/media/tone.wav"
	p.Load(src)

	ev := events.next(t, isMetadata).(playback.LoadedMetadata)
	assert.Equal(t, src, ev.Source)
	assert.InDelta(t, 0.5, ev.Duration, 0.01)
}

func TestPlayer_PlayRunsToEnd(t *testing.T) {
	srv := serveWAV(t, 8000, 800)
	p, out := newTestPlayer(t)
	events := listen(p)

	src := srv.URL + "/media/tone.wav"
	p.Load(src)
	require.NoError(t, p.Play(context.Background()))
	assert.Equal(t, 1, out.playing())

	// A second Play resumes rather than queueing the track twice.
	p.Pause()
	require.NoError(t, p.Play(context.Background()))
	assert.Equal(t, 1, out.playing())

	out.drain()
	ev := events.next(t, isEnded)
	assert.Equal(t, src, ev.SourceURL())
}

func TestPlayer_EmitsTimeUpdatesWhilePlaying(t *testing.T) {
	srv := serveWAV(t, 8000, 8000)
	p, _ := newTestPlayer(t)
	events := listen(p)

	p.Load(srv.URL + "/media/tone.wav")
	require.NoError(t, p.Play(context.Background()))

	ev := events.next(t, func(ev playback.Event) bool {
		_, ok := ev.(playback.TimeUpdate)
		return ok
	})
	assert.GreaterOrEqual(t, ev.(playback.TimeUpdate).Position, 0.0)
}

func TestPlayer_LoadFailureReportsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	p, _ := newTestPlayer(t)
	events := listen(p)

	src := srv.URL + "/media/missing.mp3"
	p.Load(src)

	ev := events.next(t, isError).(playback.Error)
	assert.Equal(t, src, ev.Source)
	assert.ErrorContains(t, ev.Err, "404")
	assert.Error(t, p.Play(context.Background()))
}

func TestPlayer_PlayBeforeLoad(t *testing.T) {
	p, _ := newTestPlayer(t)
	assert.ErrorIs(t, p.Play(context.Background()), ErrNotLoaded)
}

func TestPlayer_PlayHonoursContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	p, _ := newTestPlayer(t)
	p.Load(srv.URL + "/slow.wav")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Play(ctx), context.DeadlineExceeded)
}

func TestPlayer_PauseWinsOverPendingPlay(t *testing.T) {
	data, err := os.ReadFile(writeWAV(t, 8000, 800))
	require.NoError(t, err)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	p, out := newTestPlayer(t)
	events := listen(p)
	p.Load(srv.URL + "/media/tone.wav")

	played := make(chan error, 1)
	go func() { played <- p.Play(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	p.Pause()
	close(release)

	events.next(t, isMetadata)
	select {
	case err := <-played:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Play did not return")
	}
	assert.Zero(t, out.playing(), "nothing is queued after the pause")

	p.mu.Lock()
	paused := p.ctrl.Paused
	p.mu.Unlock()
	assert.True(t, paused)

	// A fresh Play after the pause starts normally.
	require.NoError(t, p.Play(context.Background()))
	assert.Equal(t, 1, out.playing())
}

func TestPlayer_PlayAgainAfterEnd(t *testing.T) {
	srv := serveWAV(t, 8000, 800)
	p, out := newTestPlayer(t)
	events := listen(p)

	p.Load(srv.URL + "/media/tone.wav")
	require.NoError(t, p.Play(context.Background()))
	out.drain()
	events.next(t, isEnded)
	assert.Zero(t, p.Position())

	require.NoError(t, p.Play(context.Background()))
	assert.Equal(t, 1, out.playing(), "the drained track is queued again")

	out.drain()
	events.next(t, isEnded)
}

func TestPlayer_OversizedMediaIsRejected(t *testing.T) {
	srv := serveWAV(t, 8000, 800)
	out := &fakeOutput{}
	p := NewPlayer(out, WithTickInterval(10*time.Millisecond), WithMaxMediaSize(256))
	t.Cleanup(p.Close)
	events := listen(p)

	p.Load(srv.URL + "/media/tone.wav")

	ev := events.next(t, isError).(playback.Error)
	assert.ErrorContains(t, ev.Err, "larger than 256 B")
	assert.Error(t, p.Play(context.Background()))
}

func TestPlayer_PendingSeekAppliedAfterLoad(t *testing.T) {
	srv := serveWAV(t, 8000, 16000)
	p, _ := newTestPlayer(t)
	events := listen(p)

	p.Load(srv.URL + "/media/tone.wav")
	p.Seek(1.5)
	events.next(t, isMetadata)

	assert.InDelta(t, 1.5, p.Position(), 0.01)

	p.Seek(99)
	assert.InDelta(t, 2.0, p.Position(), 0.01)
}

func TestApplyLevel(t *testing.T) {
	v := &effects.Volume{Base: 2}

	applyLevel(v, 1)
	assert.False(t, v.Silent)
	assert.Zero(t, v.Volume)

	applyLevel(v, 0.5)
	assert.InDelta(t, -1.0, v.Volume, 1e-9)

	applyLevel(v, 0.25)
	assert.InDelta(t, -2.0, v.Volume, 1e-9)

	applyLevel(v, 0)
	assert.True(t, v.Silent)
}

func TestNameOf(t *testing.T) {
	assert.Equal(t, "song.mp3", nameOf("http://host/media/audio/song.mp3?x=1"))
	assert.Equal(t, "local.flac", nameOf("/music/local.flac"))
}
