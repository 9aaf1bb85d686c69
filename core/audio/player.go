package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"

	"Melodix/logger"
	"Melodix/playback"
)

const (
	// OutputSampleRate is the rate the output device is opened at. Tracks at
	// other rates are resampled.
	OutputSampleRate beep.SampleRate = 44100

	defaultTickInterval = 250 * time.Millisecond
	maxMediaSize        = 200 << 20
)

// ErrNotLoaded is returned by Play before any track was loaded.
var ErrNotLoaded = errors.New("no media loaded")

// Output is the sound device the player mixes into.
type Output interface {
	Init(sr beep.SampleRate) error
	Play(s beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

type speakerOutput struct {
	once sync.Once
	err  error
}

// SpeakerOutput plays through the system audio device.
func SpeakerOutput() Output {
	return &speakerOutput{}
}

func (o *speakerOutput) Init(sr beep.SampleRate) error {
	o.once.Do(func() {
		o.err = speaker.Init(sr, sr.N(time.Second/10))
	})
	return o.err
}

func (o *speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (o *speakerOutput) Clear()               { speaker.Clear() }
func (o *speakerOutput) Lock()                { speaker.Lock() }
func (o *speakerOutput) Unlock()              { speaker.Unlock() }

// Player is a playback.Resource that fetches a track over HTTP (or from
// disk), decodes it with beep and plays it on an Output.
type Player struct {
	out    Output
	client  *http.Client
	tick    time.Duration
	maxSize int64

	mu          sync.Mutex
	source      string
	loadGen     uint64
	ready       chan struct{}
	loadErr     error
	cancelLoad  context.CancelFunc
	streamer    beep.StreamSeekCloser
	format      beep.Format
	ctrl        *beep.Ctrl
	vol         *effects.Volume
	volume      float64
	started     bool // queued on the output
	pendingSeek float64
	playToken   uint64 // bumped by Pause

	lmu       sync.Mutex
	listeners map[int]func(playback.Event)
	nextID    int

	stop     chan struct{}
	stopOnce sync.Once
}

var _ playback.Resource = (*Player)(nil)

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithHTTPClient sets the client used to fetch tracks.
func WithHTTPClient(c *http.Client) PlayerOption {
	return func(p *Player) { p.client = c }
}

// WithTickInterval sets how often position updates are emitted.
func WithTickInterval(d time.Duration) PlayerOption {
	return func(p *Player) {
		if d > 0 {
			p.tick = d
		}
	}
}

// WithMaxMediaSize caps how many bytes of a track are fetched.
func WithMaxMediaSize(n int64) PlayerOption {
	return func(p *Player) {
		if n > 0 {
			p.maxSize = n
		}
	}
}

// NewPlayer creates a player on out. Close releases it.
func NewPlayer(out Output, opts ...PlayerOption) *Player {
	p := &Player{
		out:       out,
		client:    &http.Client{Timeout: 60 * time.Second},
		tick:      defaultTickInterval,
		maxSize:   maxMediaSize,
		volume:    1,
		listeners: make(map[int]func(playback.Event)),
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.ticker()
	return p
}

// Close stops output and the position ticker.
func (p *Player) Close() {
	p.stopOnce.Do(func() {
		close(p.stop)
		p.mu.Lock()
		p.unloadLocked()
		p.mu.Unlock()
	})
}

// Load starts fetching and decoding src in the background. Whatever was
// loaded before is stopped immediately.
func (p *Player) Load(src string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.unloadLocked()
	p.loadGen++
	p.source = src
	p.started = false
	p.pendingSeek = 0
	p.loadErr = nil
	p.ready = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	p.cancelLoad = cancel
	go p.load(ctx, p.loadGen, src, p.ready)
}

func (p *Player) unloadLocked() {
	if p.cancelLoad != nil {
		p.cancelLoad()
		p.cancelLoad = nil
	}
	if p.streamer == nil {
		return
	}
	p.out.Clear()
	p.streamer.Close()
	p.streamer = nil
	p.ctrl = nil
	p.vol = nil
}

func (p *Player) load(ctx context.Context, gen uint64, src string, ready chan struct{}) {
	defer close(ready)
	streamer, format, err := p.open(ctx, src)

	p.mu.Lock()
	if gen != p.loadGen {
		p.mu.Unlock()
		if streamer != nil {
			streamer.Close()
		}
		return
	}

	if err != nil {
		p.loadErr = err
		p.mu.Unlock()
		logger.Warn("failed to load track", logger.String("source", src), logger.ErrorField(err))
		p.emit(playback.Error{Source: src, Err: err})
		return
	}

	p.streamer = streamer
	p.format = format
	p.buildChainLocked()

	if p.pendingSeek > 0 {
		p.seekLocked(p.pendingSeek)
	}
	duration := format.SampleRate.D(streamer.Len()).Seconds()
	p.mu.Unlock()

	p.emit(playback.LoadedMetadata{Source: src, Duration: duration})
}

// buildChainLocked wraps the decoded streamer in a paused control, a
// resampler when needed, and the volume stage.
func (p *Player) buildChainLocked() {
	p.ctrl = &beep.Ctrl{Streamer: p.streamer, Paused: true}

	var s beep.Streamer = p.ctrl
	if p.format.SampleRate != OutputSampleRate {
		s = beep.Resample(4, p.format.SampleRate, OutputSampleRate, s)
	}
	p.vol = &effects.Volume{Streamer: s, Base: 2}
	applyLevel(p.vol, p.volume)
}

// open reads the whole track into memory so the decoder can seek.
func (p *Player) open(ctx context.Context, src string) (beep.StreamSeekCloser, beep.Format, error) {
	data, contentType, err := p.fetch(ctx, src)
	if err != nil {
		return nil, beep.Format{}, err
	}

	format, err := DetectFormat(nameOf(src), contentType)
	if err != nil {
		return nil, beep.Format{}, err
	}
	return Decode(keepOpen{bytes.NewReader(data)}, format)
}

func (p *Player) fetch(ctx context.Context, src string) ([]byte, string, error) {
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", src, err)
		}
		return data, "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: unexpected status %s", src, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", src, err)
	}
	if int64(len(data)) > p.maxSize {
		return nil, "", fmt.Errorf("fetch %s: larger than %s", src, humanize.IBytes(uint64(p.maxSize)))
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func nameOf(src string) string {
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(src)
}

// Play waits for the current load to finish and starts output. It fails if
// the load failed or ctx ends first. A Pause while it waits wins.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	ready := p.ready
	gen := p.loadGen
	token := p.playToken
	p.mu.Unlock()

	if ready == nil {
		return ErrNotLoaded
	}
	select {
	case <-ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.loadGen {
		// Superseded by another Load; that track gets its own Play.
		return nil
	}
	if token != p.playToken {
		return nil
	}
	if p.loadErr != nil {
		return p.loadErr
	}
	if err := p.out.Init(OutputSampleRate); err != nil {
		return fmt.Errorf("open audio output: %w", err)
	}

	if !p.started {
		p.started = true
		src := p.source
		p.out.Play(beep.Seq(p.vol, beep.Callback(func() {
			// Runs under the output lock.
			go p.finished(gen, src)
		})))
	}
	p.out.Lock()
	p.ctrl.Paused = false
	p.out.Unlock()
	return nil
}

// finished rewinds a track the output has drained so the next Play queues
// it again, then reports the end.
func (p *Player) finished(gen uint64, src string) {
	p.mu.Lock()
	if gen == p.loadGen && p.streamer != nil {
		p.started = false
		p.out.Lock()
		err := p.streamer.Seek(0)
		p.out.Unlock()
		if err != nil {
			logger.Warn("rewind failed", logger.String("source", src), logger.ErrorField(err))
		}
		p.buildChainLocked()
	}
	p.mu.Unlock()

	p.emit(playback.Ended{Source: src})
}

// Pause holds output at the current position. A Play still waiting for the
// load returns without starting.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playToken++
	if p.ctrl == nil {
		return
	}
	p.out.Lock()
	p.ctrl.Paused = true
	p.out.Unlock()
}

// Seek moves to seconds. Before the track is decoded the target is kept
// and applied once it is.
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		p.pendingSeek = seconds
		return
	}
	p.seekLocked(seconds)
}

func (p *Player) seekLocked(seconds float64) {
	n := p.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if last := p.streamer.Len() - 1; n > last {
		n = last
	}
	if n < 0 {
		n = 0
	}
	p.out.Lock()
	err := p.streamer.Seek(n)
	p.out.Unlock()
	if err != nil {
		logger.Warn("seek failed", logger.String("source", p.source), logger.ErrorField(err))
	}
}

// SetVolume sets the level in [0, 1].
func (p *Player) SetVolume(level float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = level
	if p.vol == nil {
		return
	}
	p.out.Lock()
	applyLevel(p.vol, level)
	p.out.Unlock()
}

// Subscribe registers fn for resource events. The returned func removes it.
func (p *Player) Subscribe(fn func(playback.Event)) func() {
	p.lmu.Lock()
	defer p.lmu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.lmu.Lock()
		defer p.lmu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Player) emit(ev playback.Event) {
	p.lmu.Lock()
	fns := make([]func(playback.Event), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.lmu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Position returns the play position of the loaded track in seconds.
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *Player) positionLocked() float64 {
	if p.streamer == nil {
		return 0
	}
	p.out.Lock()
	pos := p.format.SampleRate.D(p.streamer.Position())
	p.out.Unlock()
	return pos.Seconds()
}

func (p *Player) ticker() {
	t := time.NewTicker(p.tick)
	defer t.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-t.C:
		}

		p.mu.Lock()
		if p.ctrl == nil || !p.started {
			p.mu.Unlock()
			continue
		}
		p.out.Lock()
		paused := p.ctrl.Paused
		p.out.Unlock()
		if paused {
			p.mu.Unlock()
			continue
		}
		ev := playback.TimeUpdate{Source: p.source, Position: p.positionLocked()}
		p.mu.Unlock()

		p.emit(ev)
	}
}

// applyLevel maps a linear level to beep's base-2 volume: 1 is unchanged,
// 0.5 is -1, and 0 is silent.
func applyLevel(v *effects.Volume, level float64) {
	switch {
	case level <= 0 || math.IsNaN(level):
		v.Silent = true
		v.Volume = -10
	case level >= 1:
		v.Silent = false
		v.Volume = 0
	default:
		v.Silent = false
		v.Volume = math.Log2(level)
	}
}
