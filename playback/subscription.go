package playback

const eventBufferSize = 16

// Subscription provides event channels for a subscriber.
type Subscription struct {
	Changed <-chan Snapshot
	Notices <-chan Notice
	Done    <-chan struct{}

	// Internal write channels
	changedCh chan Snapshot
	noticeCh  chan Notice
	doneCh    chan struct{}
}

// newSubscription creates a new subscription with buffered channels.
func newSubscription() *Subscription {
	s := &Subscription{
		changedCh: make(chan Snapshot, eventBufferSize),
		noticeCh:  make(chan Notice, eventBufferSize),
		doneCh:    make(chan struct{}),
	}
	s.Changed = s.changedCh
	s.Notices = s.noticeCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

// sendChanged sends a snapshot (non-blocking).
func (s *Subscription) sendChanged(snap Snapshot) {
	select {
	case s.changedCh <- snap:
	default:
		// Drop if buffer full
	}
}

// sendNotice sends a notice (non-blocking).
func (s *Subscription) sendNotice(n Notice) {
	select {
	case s.noticeCh <- n:
	default:
	}
}
