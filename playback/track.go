package playback

import "Melodix/model"

// Track is the session's copy of a catalog song. It is never mutated after
// it is loaded; selecting another track replaces it wholesale.
type Track struct {
	ID       string
	Name     string
	Desc     string
	Image    string // artwork URL
	URL      string // media resource URL
	Duration string // "m:ss" as stored in the catalog
}

// TrackFromSong copies the fields the session needs out of a catalog row.
func TrackFromSong(s *model.Song) Track {
	url := s.URL
	if url == "" {
		url = s.File
	}
	return Track{
		ID:       s.ID,
		Name:     s.Name,
		Desc:     s.Desc,
		Image:    s.Image,
		URL:      url,
		Duration: s.Duration,
	}
}

// TracksFromSongs converts a catalog listing, keeping its order.
func TracksFromSongs(songs []*model.Song) []Track {
	tracks := make([]Track, 0, len(songs))
	for _, s := range songs {
		if s == nil {
			continue
		}
		tracks = append(tracks, TrackFromSong(s))
	}
	return tracks
}

// sameTrack compares by id, or by URL when neither side has one.
func sameTrack(a, b Track) bool {
	if a.ID != "" || b.ID != "" {
		return a.ID == b.ID
	}
	return a.URL == b.URL
}
