package playback

import (
	"errors"
	"fmt"
)

var (
	// ErrPlaybackStart wraps failures of a play instruction.
	ErrPlaybackStart = errors.New("playback failed to start")
	// ErrResource wraps errors reported by the media resource.
	ErrResource = errors.New("media resource error")
)

// NoticeKind classifies a Notice.
type NoticeKind int

const (
	NoticePlaybackStart NoticeKind = iota
	NoticeResource
)

// String returns the kind name.
func (k NoticeKind) String() string {
	switch k {
	case NoticePlaybackStart:
		return "PlaybackStartFailure"
	case NoticeResource:
		return "ResourceError"
	default:
		return "Unknown"
	}
}

// Notice is a recovered, non-fatal failure for the UI to show. Err wraps
// ErrPlaybackStart or ErrResource together with the cause.
type Notice struct {
	Kind  NoticeKind
	Track Track
	Err   error
}

func newNotice(kind NoticeKind, track Track, cause error) Notice {
	sentinel := ErrPlaybackStart
	if kind == NoticeResource {
		sentinel = ErrResource
	}
	if cause == nil {
		return Notice{Kind: kind, Track: track, Err: sentinel}
	}
	return Notice{Kind: kind, Track: track, Err: fmt.Errorf("%w: %w", sentinel, cause)}
}

func (n Notice) Error() string {
	if n.Track.Name == "" {
		return n.Err.Error()
	}
	return fmt.Sprintf("%s: %v", n.Track.Name, n.Err)
}

func (n Notice) Unwrap() error {
	return n.Err
}
