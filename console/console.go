// Package console is the interactive front end of the terminal player. It
// turns typed commands into playback session commands and prints what the
// session reports back.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"Melodix/catalog"
	"Melodix/logger"
	"Melodix/model"
	"Melodix/playback"
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("quit")

// Catalog is the part of the catalog API the console reads.
type Catalog interface {
	ListSongs(ctx context.Context) ([]*model.Song, error)
	Search(ctx context.Context, query string) ([]*model.Song, error)
	ListAlbums(ctx context.Context) ([]*model.Album, error)
	AlbumSongs(ctx context.Context, id string) ([]*model.Song, error)
}

type command struct {
	usage string
	help  string
	run   func(c *Console, ctx context.Context, args []string) error
}

// commands is filled in init because help refers back to it.
var commands map[string]command

func init() {
	commands = map[string]command{
		"toggle": {"toggle", "play or pause", (*Console).toggle},
		"next":   {"next", "next track in the playlist", (*Console).next},
		"prev":   {"prev", "previous track in the playlist", (*Console).prev},
		"seek":   {"seek <s|m:ss|+s|-s>", "jump within the track", (*Console).seek},
		"vol":    {"vol <0-100|+n|-n>", "set the volume", (*Console).volume},
		"list":   {"list", "show the playlist", (*Console).list},
		"select": {"select <n>", "play playlist entry n", (*Console).selectTrack},
		"search": {"search <text>", "search the catalog (or type /text)", (*Console).search},
		"pick":   {"pick <n>", "play search result n", (*Console).pick},
		"albums": {"albums", "list albums", (*Console).albums},
		"album":  {"album <n>", "make album n the playlist", (*Console).album},
		"reload": {"reload", "refetch the catalog", (*Console).reload},
		"status": {"status", "show what is playing", (*Console).status},
		"help":   {"help", "show this help", (*Console).help},
		"quit":   {"quit", "leave the player", (*Console).quit},
	}
}

var aliases = map[string]string{
	"p":     "toggle",
	"play":  "toggle",
	"pause": "toggle",
	"n":     "next",
	"b":     "prev",
	"ls":    "list",
	"s":     "status",
	"q":     "quit",
	"exit":  "quit",
}

// Console holds the state behind the prompt.
type Console struct {
	cat  Catalog
	sess *playback.Session
	deb  *catalog.Debouncer

	outMu sync.Mutex
	out   io.Writer

	mu        sync.Mutex
	results   []playback.Track
	albumList []*model.Album
}

// New creates a console printing to out. Searches are debounced by delay.
func New(out io.Writer, cat Catalog, sess *playback.Session, delay time.Duration) *Console {
	c := &Console{cat: cat, sess: sess, out: out}
	c.deb = catalog.NewDebouncer(delay, cat.Search, c.onSearchResult)
	return c
}

// Close stops pending searches.
func (c *Console) Close() {
	c.deb.Stop()
}

// SetOutput redirects printing, e.g. to the readline writer that redraws the
// prompt.
func (c *Console) SetOutput(w io.Writer) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	c.out = w
}

func (c *Console) printf(format string, args ...interface{}) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Commands returns every command name, for completion.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Exec runs one input line. It returns ErrQuit for the quit command.
func (c *Console) Exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if strings.HasPrefix(line, "/") {
		return c.search(ctx, []string{line[1:]})
	}

	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q, try help", fields[0])
	}
	return cmd.run(c, ctx, fields[1:])
}

// Typing feeds a partially typed line. A line starting with "/" is a live
// search.
func (c *Console) Typing(line string) {
	if strings.HasPrefix(line, "/") {
		c.deb.Input(line[1:])
	}
}

// Reload fetches the catalog and makes it the playlist.
func (c *Console) Reload(ctx context.Context) error {
	songs, err := c.cat.ListSongs(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	tracks := playback.TracksFromSongs(songs)
	c.sess.LoadPlaylist(tracks)
	logger.Info("catalog loaded", logger.Int("songs", len(tracks)))
	return nil
}

// Watch prints track changes and notices until sub is done.
func (c *Console) Watch(sub *playback.Subscription) {
	var lastID string
	for {
		select {
		case <-sub.Done:
			return
		case snap := <-sub.Changed:
			if snap.CurrentTrack == nil || snap.CurrentTrack.ID == lastID {
				continue
			}
			lastID = snap.CurrentTrack.ID
			c.printf("♪ %s (%s)\n", snap.CurrentTrack.Name, snap.CurrentTrack.Duration)
		case n := <-sub.Notices:
			c.printf("! %v\n", n)
		}
	}
}

func (c *Console) onSearchResult(res catalog.SearchResult) {
	if res.Err != nil {
		c.printf("search %q failed: %v\n", res.Query, res.Err)
		return
	}

	tracks := playback.TracksFromSongs(res.Songs)
	c.mu.Lock()
	c.results = tracks
	c.mu.Unlock()

	if len(tracks) == 0 {
		c.printf("no songs match %q\n", res.Query)
		return
	}
	c.printf("results for %q:\n", res.Query)
	for i, t := range tracks {
		c.printf("  %2d. %s  %s\n", i+1, t.Name, t.Duration)
	}
}

// ---- commands ----

func (c *Console) toggle(ctx context.Context, args []string) error {
	if c.sess.Snapshot().CurrentTrack == nil {
		return errors.New("nothing loaded")
	}
	c.sess.TogglePlayPause()
	return nil
}

func (c *Console) next(ctx context.Context, args []string) error {
	c.sess.Advance(playback.Next)
	return nil
}

func (c *Console) prev(ctx context.Context, args []string) error {
	c.sess.Advance(playback.Prev)
	return nil
}

func (c *Console) seek(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: " + commands["seek"].usage)
	}
	target, err := ParseSeek(args[0], c.sess.Snapshot().Position)
	if err != nil {
		return err
	}
	c.sess.Seek(target)
	return nil
}

func (c *Console) volume(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.printf("volume %d%%\n", percent(c.sess.Snapshot().Volume))
		return nil
	}
	v, err := ParseVolume(args[0], c.sess.Snapshot().Volume)
	if err != nil {
		return err
	}
	c.sess.SetVolume(v)
	return nil
}

func (c *Console) list(ctx context.Context, args []string) error {
	tracks := c.sess.Playlist()
	if len(tracks) == 0 {
		c.printf("the playlist is empty\n")
		return nil
	}

	var currentID string
	if cur := c.sess.Snapshot().CurrentTrack; cur != nil {
		currentID = cur.ID
	}
	for i, t := range tracks {
		marker := " "
		if t.ID == currentID {
			marker = ">"
		}
		c.printf("%s %2d. %s  %s\n", marker, i+1, t.Name, t.Duration)
	}
	return nil
}

func (c *Console) selectTrack(ctx context.Context, args []string) error {
	t, err := pickIndex(args, c.sess.Playlist(), "playlist")
	if err != nil {
		return err
	}
	c.sess.SelectTrack(t)
	return nil
}

func (c *Console) search(ctx context.Context, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return errors.New("usage: " + commands["search"].usage)
	}
	c.deb.Input(query)
	return nil
}

func (c *Console) pick(ctx context.Context, args []string) error {
	c.mu.Lock()
	results := c.results
	c.mu.Unlock()

	t, err := pickIndex(args, results, "search results")
	if err != nil {
		return err
	}
	c.sess.SelectTrack(t)
	return nil
}

func (c *Console) albums(ctx context.Context, args []string) error {
	albums, err := c.cat.ListAlbums(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.albumList = albums
	c.mu.Unlock()

	if len(albums) == 0 {
		c.printf("no albums\n")
		return nil
	}
	for i, a := range albums {
		c.printf("  %2d. %s  %s\n", i+1, a.Name, a.Desc)
	}
	return nil
}

func (c *Console) album(ctx context.Context, args []string) error {
	c.mu.Lock()
	albums := c.albumList
	c.mu.Unlock()

	a, err := pickIndex(args, albums, "albums (run albums first)")
	if err != nil {
		return err
	}
	songs, err := c.cat.AlbumSongs(ctx, a.ID)
	if err != nil {
		return err
	}
	tracks := playback.TracksFromSongs(songs)
	if len(tracks) == 0 {
		return fmt.Errorf("album %s has no songs", a.Name)
	}

	c.sess.LoadPlaylist(tracks)
	c.sess.SelectTrack(tracks[0])
	c.printf("playlist: %s (%d songs)\n", a.Name, len(tracks))
	return nil
}

func (c *Console) reload(ctx context.Context, args []string) error {
	return c.Reload(ctx)
}

func (c *Console) status(ctx context.Context, args []string) error {
	c.printf("%s\n", FormatStatus(c.sess.Snapshot()))
	return nil
}

func (c *Console) help(ctx context.Context, args []string) error {
	for _, name := range Commands() {
		cmd := commands[name]
		c.printf("  %-22s %s\n", cmd.usage, cmd.help)
	}
	return nil
}

func (c *Console) quit(ctx context.Context, args []string) error {
	return ErrQuit
}

// ---- parsing and formatting ----

// ParseSeek reads an absolute ("90", "1:30") or relative ("+10", "-5")
// target in seconds.
func ParseSeek(arg string, position float64) (float64, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 0, errors.New("empty seek target")
	}

	sign := 0.0
	switch arg[0] {
	case '+':
		sign = 1
		arg = arg[1:]
	case '-':
		sign = -1
		arg = arg[1:]
	}

	secs, err := parseClock(arg)
	if err != nil {
		return 0, err
	}
	if sign != 0 {
		return position + sign*secs, nil
	}
	return secs, nil
}

func parseClock(s string) (float64, error) {
	mm, sec, found := strings.Cut(s, ":")
	if !found {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("bad time %q", s)
		}
		return v, nil
	}

	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 {
		return 0, fmt.Errorf("bad time %q", s)
	}
	ss, err := strconv.ParseFloat(sec, 64)
	if err != nil || ss < 0 || ss >= 60 {
		return 0, fmt.Errorf("bad time %q", s)
	}
	return float64(m)*60 + ss, nil
}

// ParseVolume reads a percentage, absolute ("80") or relative ("+10").
func ParseVolume(arg string, current float64) (float64, error) {
	arg = strings.TrimSuffix(strings.TrimSpace(arg), "%")
	relative := strings.HasPrefix(arg, "+") || strings.HasPrefix(arg, "-")

	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("bad volume %q", arg)
	}
	if relative {
		return current + v/100, nil
	}
	return v / 100, nil
}

// FormatStatus renders a one-line summary of snap.
func FormatStatus(snap playback.Snapshot) string {
	if snap.CurrentTrack == nil {
		return fmt.Sprintf("[%s] nothing loaded, %d in playlist", snap.State, snap.PlaylistLen)
	}

	icon := "❚❚"
	if snap.IsPlaying {
		icon = "▶"
	}
	total := snap.CurrentTrack.Duration
	if snap.Duration > 0 {
		total = model.FormatDuration(snap.Duration)
	}
	return fmt.Sprintf("%s %s  %s / %s  vol %d%%  [%s]",
		icon, snap.CurrentTrack.Name,
		model.FormatDuration(snap.Position), total,
		percent(snap.Volume), snap.State)
}

func percent(v float64) int {
	return int(v*100 + 0.5)
}

func pickIndex[T any](args []string, items []T, what string) (T, error) {
	var zero T
	if len(args) != 1 {
		return zero, errors.New("expected one number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return zero, fmt.Errorf("bad number %q", args[0])
	}
	if n < 1 || n > len(items) {
		return zero, fmt.Errorf("no entry %d in %s", n, what)
	}
	return items[n-1], nil
}
