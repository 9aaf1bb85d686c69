package playback

import "context"

// Resource is the audio primitive a Session drives. The Session is its only
// writer. Implementations report progress through the subscribed callback,
// tagging every event with the URL of the media it belongs to.
type Resource interface {
	// Load replaces the media source. It does not start playback.
	Load(url string)
	// Play starts playback of the loaded media and returns once it has
	// started or failed. It may block; the Session never calls it on its
	// own loop.
	Play(ctx context.Context) error
	// Pause stops playback synchronously.
	Pause()
	// Seek moves the play head to seconds.
	Seek(seconds float64)
	// SetVolume applies v in [0,1].
	SetVolume(v float64)
	// Subscribe registers fn for resource events and returns a function
	// that removes it.
	Subscribe(fn func(Event)) (unsubscribe func())
}

// Event is something the resource reports about the media identified by
// SourceURL.
type Event interface {
	SourceURL() string
}

// TimeUpdate reports the current play head.
type TimeUpdate struct {
	Source   string
	Position float64
}

// LoadedMetadata reports the media duration once known.
type LoadedMetadata struct {
	Source   string
	Duration float64
}

// Ended reports that playback reached the end of the media.
type Ended struct {
	Source string
}

// Error reports a decode or network failure.
type Error struct {
	Source string
	Err    error
}

func (e TimeUpdate) SourceURL() string     { return e.Source }
func (e LoadedMetadata) SourceURL() string { return e.Source }
func (e Ended) SourceURL() string          { return e.Source }
func (e Error) SourceURL() string          { return e.Source }
