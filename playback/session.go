// Package playback owns the playing track, transport state, position and
// volume, and mediates between console commands and the media resource.
package playback

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"Melodix/logger"
)

// ErrAlreadyRunning is returned by a second concurrent Run.
var ErrAlreadyRunning = errors.New("session already running")

// ErrStopped is returned by Flush once Run has returned.
var ErrStopped = errors.New("session stopped")

const defaultPlayTimeout = 15 * time.Second

// Session is the playback controller. Commands are queued and applied in
// order by Run; none of them blocks on the resource.
type Session struct {
	res         Resource
	playTimeout time.Duration

	// Command queue. Unbounded so enqueueing never blocks.
	qmu   sync.Mutex
	queue []func()
	wake  chan struct{}

	// Loop-owned state, touched only from Run.
	current   *Track
	isPlaying bool
	position  float64
	duration  float64
	volume    float64
	playlist  []Track
	gen       uint64 // bumps on every track switch, pause and resource error
	runCtx    context.Context
	listDirty bool

	// Published copies for readers on other goroutines.
	smu          sync.RWMutex
	snap         Snapshot
	playlistCopy []Track
	subs         []*Subscription
	closed       bool

	runMu   sync.Mutex
	running bool
	done    chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithVolume sets the initial volume.
func WithVolume(v float64) Option {
	return func(s *Session) { s.volume = clampVolume(v) }
}

// WithPlayTimeout bounds how long a play instruction may take.
func WithPlayTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.playTimeout = d
		}
	}
}

// New creates an idle session bound to res. Call Run to start applying
// commands.
func New(res Resource, opts ...Option) *Session {
	s := &Session{
		res:         res,
		playTimeout: defaultPlayTimeout,
		volume:      1,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snap = s.snapshotLocked()
	return s
}

// Run subscribes to the resource and applies queued commands and resource
// events until ctx is done. The resource subscription is always released
// before Run returns.
func (s *Session) Run(ctx context.Context) error {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return ErrAlreadyRunning
	}
	select {
	case <-s.done:
		s.runMu.Unlock()
		return ErrStopped
	default:
	}
	s.running = true
	s.runMu.Unlock()

	unsubscribe := s.res.Subscribe(s.onResourceEvent)
	defer unsubscribe()
	defer s.shutdown()

	s.runCtx = ctx
	s.res.SetVolume(s.volume)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
			s.drain()
		}
	}
}

func (s *Session) shutdown() {
	s.smu.Lock()
	subs := s.subs
	s.subs = nil
	s.closed = true
	s.smu.Unlock()
	for _, sub := range subs {
		sub.close()
	}

	s.runMu.Lock()
	s.running = false
	close(s.done)
	s.runMu.Unlock()
}

func (s *Session) enqueue(fn func()) {
	s.qmu.Lock()
	s.queue = append(s.queue, fn)
	s.qmu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) drain() {
	for {
		s.qmu.Lock()
		batch := s.queue
		s.queue = nil
		s.qmu.Unlock()
		if len(batch) == 0 {
			return
		}

		for _, fn := range batch {
			fn()
		}
		s.publish()
	}
}

// onResourceEvent runs on the resource's goroutine.
func (s *Session) onResourceEvent(ev Event) {
	s.enqueue(func() { s.handleEvent(ev) })
}

// ---- commands ----

// LoadPlaylist replaces the playlist. If no track is current yet, the first
// track is loaded (not played). Loading the same list again changes nothing.
func (s *Session) LoadPlaylist(tracks []Track) {
	list := append([]Track(nil), tracks...)
	s.enqueue(func() {
		s.playlist = list
		s.listDirty = true
		if s.current == nil && len(list) > 0 {
			s.switchTo(list[0])
		}
	})
}

// SelectTrack makes track current from position zero. Playback continues
// on the new track if the session was playing.
func (s *Session) SelectTrack(track Track) {
	s.enqueue(func() { s.selectTrack(track) })
}

// TogglePlayPause pauses a playing session or starts a paused one. Without
// a current track it does nothing.
func (s *Session) TogglePlayPause() {
	s.enqueue(s.togglePlayPause)
}

// Seek moves to seconds, clamped to [0, duration]. NaN seeks to 0.
func (s *Session) Seek(seconds float64) {
	s.enqueue(func() {
		s.position = clamp(seconds, 0, s.duration)
		if s.current != nil {
			s.res.Seek(s.position)
		}
	})
}

// SetVolume sets v clamped to [0, 1]. NaN mutes.
func (s *Session) SetVolume(v float64) {
	s.enqueue(func() {
		s.volume = clampVolume(v)
		s.res.SetVolume(s.volume)
	})
}

// Advance selects the neighbouring playlist track, wrapping around. It does
// nothing when the playlist is empty or the current track is not in it.
func (s *Session) Advance(dir Direction) {
	s.enqueue(func() { s.advance(dir) })
}

// Flush waits until every command queued before it has been applied.
func (s *Session) Flush(ctx context.Context) error {
	applied := make(chan struct{})
	s.enqueue(func() { close(applied) })

	select {
	case <-applied:
		return nil
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ---- readers ----

// Snapshot returns the state as of the last applied command or event.
func (s *Session) Snapshot() Snapshot {
	s.smu.RLock()
	defer s.smu.RUnlock()
	snap := s.snap
	if snap.CurrentTrack != nil {
		t := *snap.CurrentTrack
		snap.CurrentTrack = &t
	}
	return snap
}

// Playlist returns a copy of the loaded playlist.
func (s *Session) Playlist() []Track {
	s.smu.RLock()
	defer s.smu.RUnlock()
	return append([]Track(nil), s.playlistCopy...)
}

// Subscribe returns a subscription to state changes and notices. Its Done
// channel closes when Run returns.
func (s *Session) Subscribe() *Subscription {
	sub := newSubscription()

	s.smu.Lock()
	defer s.smu.Unlock()
	if s.closed {
		sub.close()
		return sub
	}
	s.subs = append(s.subs, sub)
	return sub
}

// Unsubscribe detaches sub and closes its Done channel.
func (s *Session) Unsubscribe(sub *Subscription) {
	s.smu.Lock()
	defer s.smu.Unlock()
	for i, x := range s.subs {
		if x == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			sub.close()
			return
		}
	}
}

// ---- loop internals ----

// switchTo makes track current and loads it without touching play intent.
func (s *Session) switchTo(track Track) {
	s.gen++
	t := track
	s.current = &t
	s.position = 0
	s.duration = 0
	s.res.Load(t.URL)
}

func (s *Session) selectTrack(track Track) {
	s.switchTo(track)
	if s.isPlaying {
		s.startPlay()
	}
}

func (s *Session) togglePlayPause() {
	if s.current == nil {
		return
	}
	if s.isPlaying {
		s.gen++
		s.res.Pause()
		s.isPlaying = false
		return
	}
	s.startPlay()
}

// startPlay records the play intent and resolves the instruction off the
// loop. The result is applied only if nothing has superseded it.
func (s *Session) startPlay() {
	s.isPlaying = true
	gen := s.gen
	track := *s.current

	parent := s.runCtx
	if parent == nil {
		parent = context.Background()
	}

	go func() {
		ctx, cancel := context.WithTimeout(parent, s.playTimeout)
		defer cancel()
		err := s.res.Play(ctx)
		s.enqueue(func() { s.applyPlayResult(gen, track, err) })
	}()
}

func (s *Session) applyPlayResult(gen uint64, track Track, err error) {
	if gen != s.gen {
		logger.Debug("discarding stale play result",
			logger.String("track", track.Name),
			logger.Bool("failed", err != nil))
		// A late success may have started the resource after it was paused.
		if err == nil && !s.isPlaying && s.current != nil && sameTrack(*s.current, track) {
			s.res.Pause()
		}
		return
	}
	if err == nil {
		return
	}

	s.isPlaying = false
	logger.Warn("playback failed to start", logger.String("track", track.Name), logger.ErrorField(err))
	s.notify(newNotice(NoticePlaybackStart, track, err))
}

func (s *Session) advance(dir Direction) {
	n := len(s.playlist)
	if n == 0 || s.current == nil {
		return
	}

	idx := s.indexOfCurrent()
	if idx < 0 {
		return
	}
	s.selectTrack(s.playlist[nextIndex(idx, n, dir)])
}

func (s *Session) indexOfCurrent() int {
	for i, t := range s.playlist {
		if sameTrack(t, *s.current) {
			return i
		}
	}
	return -1
}

func (s *Session) handleEvent(ev Event) {
	if s.current == nil || ev.SourceURL() != s.current.URL {
		return
	}

	switch e := ev.(type) {
	case TimeUpdate:
		s.position = clamp(e.Position, 0, math.Inf(1))
		if s.duration > 0 && s.position > s.duration {
			s.position = s.duration
		}

	case LoadedMetadata:
		s.duration = clamp(e.Duration, 0, math.Inf(1))
		if math.IsInf(s.duration, 1) {
			s.duration = 0
		}

	case Ended:
		if s.indexOfCurrent() < 0 {
			// Nothing to advance to; the resource has stopped on its own.
			s.gen++
			s.isPlaying = false
			return
		}
		s.advance(Next)

	case Error:
		s.gen++
		s.isPlaying = false
		logger.Warn("media resource error", logger.String("track", s.current.Name), logger.ErrorField(e.Err))
		s.notify(newNotice(NoticeResource, *s.current, e.Err))
	}
}

func (s *Session) notify(n Notice) {
	s.smu.RLock()
	defer s.smu.RUnlock()
	for _, sub := range s.subs {
		sub.sendNotice(n)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		IsPlaying:   s.isPlaying,
		Position:    s.position,
		Duration:    s.duration,
		Volume:      s.volume,
		PlaylistLen: len(s.playlist),
		State:       StateIdle,
	}
	if s.current != nil {
		t := *s.current
		snap.CurrentTrack = &t
		snap.State = StatePaused
		if s.isPlaying {
			snap.State = StatePlaying
		}
	}
	return snap
}

// publish copies loop state for readers and notifies subscribers when it
// changed.
func (s *Session) publish() {
	snap := s.snapshotLocked()

	s.smu.Lock()
	changed := !snap.equal(s.snap)
	s.snap = snap
	if s.listDirty {
		s.playlistCopy = append([]Track(nil), s.playlist...)
		s.listDirty = false
	}
	subs := append([]*Subscription(nil), s.subs...)
	s.smu.Unlock()

	if !changed {
		return
	}
	for _, sub := range subs {
		sub.sendChanged(snap)
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func clampVolume(v float64) float64 {
	return clamp(v, 0, 1)
}
