package playback

// State is the session state machine position.
type State int

const (
	// StateIdle holds until the first track is loaded and is never
	// re-entered.
	StateIdle State = iota
	StatePaused
	StatePlaying
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePaused:
		return "Loaded-Paused"
	case StatePlaying:
		return "Loaded-Playing"
	default:
		return "Unknown"
	}
}

// Direction selects the neighbour for Advance.
type Direction int

const (
	Next Direction = iota
	Prev
)

// String returns the direction name.
func (d Direction) String() string {
	if d == Prev {
		return "prev"
	}
	return "next"
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	CurrentTrack *Track
	IsPlaying    bool
	Position     float64 // seconds
	Duration     float64 // seconds, 0 while unknown
	Volume       float64 // 0..1
	PlaylistLen  int
	State        State
}

func (s Snapshot) equal(o Snapshot) bool {
	if (s.CurrentTrack == nil) != (o.CurrentTrack == nil) {
		return false
	}
	if s.CurrentTrack != nil && *s.CurrentTrack != *o.CurrentTrack {
		return false
	}
	return s.IsPlaying == o.IsPlaying &&
		s.Position == o.Position &&
		s.Duration == o.Duration &&
		s.Volume == o.Volume &&
		s.PlaylistLen == o.PlaylistLen &&
		s.State == o.State
}

// nextIndex is the wrap-around neighbour of i in a list of n items.
func nextIndex(i, n int, dir Direction) int {
	if dir == Prev {
		return (i - 1 + n) % n
	}
	return (i + 1) % n
}
