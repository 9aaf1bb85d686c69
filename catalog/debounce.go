package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"Melodix/model"
)

// DefaultDebounce is the quiet period before a search is sent.
const DefaultDebounce = 300 * time.Millisecond

// SearchFunc runs one search.
type SearchFunc func(ctx context.Context, query string) ([]*model.Song, error)

// SearchResult is what a debounced search delivers.
type SearchResult struct {
	Query string
	Songs []*model.Song
	Err   error
}

// Debouncer delays searches until input settles. New input cancels the
// pending dispatch and any request still in flight, so only the result for
// the latest query is ever delivered.
type Debouncer struct {
	delay   time.Duration
	search  SearchFunc
	deliver func(SearchResult)

	mu       sync.Mutex
	timer    *time.Timer
	cancel   context.CancelFunc
	seq      uint64
	stopped  bool
	inFlight sync.WaitGroup
}

// NewDebouncer creates a debouncer. deliver is called from a background
// goroutine.
func NewDebouncer(delay time.Duration, search SearchFunc, deliver func(SearchResult)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay, search: search, deliver: deliver}
}

// Input records a new query. A blank query only cancels outstanding work.
func (d *Debouncer) Input(query string) {
	query = strings.TrimSpace(query)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.resetLocked()
	if query == "" {
		return
	}

	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() { d.dispatch(seq, query) })
}

// resetLocked drops the pending timer and in-flight request.
func (d *Debouncer) resetLocked() {
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *Debouncer) dispatch(seq uint64, query string) {
	d.mu.Lock()
	if d.stopped || seq != d.seq {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.inFlight.Add(1)
	d.mu.Unlock()

	defer d.inFlight.Done()
	defer cancel()

	songs, err := d.search(ctx, query)

	d.mu.Lock()
	current := !d.stopped && seq == d.seq
	d.mu.Unlock()
	if !current || errors.Is(err, context.Canceled) {
		return
	}
	d.deliver(SearchResult{Query: query, Songs: songs, Err: err})
}

// Stop cancels outstanding work and waits for an in-flight search to
// return. Later input is ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.resetLocked()
	d.mu.Unlock()

	d.inFlight.Wait()
}
