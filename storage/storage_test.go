package storage

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewObjectKey(t *testing.T) {
	key := NewObjectKey("/audio/", "My Song.MP3")
	assert.Regexp(t, regexp.MustCompile(`^audio/[0-9a-f-]{36}\.mp3$`), key)

	other := NewObjectKey("audio", "My Song.MP3")
	assert.NotEqual(t, key, other)

	assert.Regexp(t, regexp.MustCompile(`^images/[0-9a-f-]{36}$`), NewObjectKey("images", "noext"))
}

func TestJoinURL_EscapesSegments(t *testing.T) {
	assert.Equal(t, "http://h/media/audio/a%20b.mp3", joinURL("http://h/media/", "audio/a b.mp3"))
}

func TestSummarize(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	stats := Summarize([]ObjectInfo{
		{Key: "audio/a.mp3", Size: 100, LastModified: t1},
		{Key: "audio/b.MP3", Size: 50, LastModified: t2},
		{Key: "images/c.png", Size: 10, LastModified: t1},
		{Key: "README", Size: 1, LastModified: t1},
	})

	assert.Equal(t, int64(4), stats.TotalObjects)
	assert.Equal(t, int64(161), stats.TotalSize)
	assert.Equal(t, t2, stats.LastModified)
	assert.Equal(t, int64(2), stats.ByExtension["mp3"])
	assert.Equal(t, int64(1), stats.ByExtension["png"])
	assert.Equal(t, int64(1), stats.ByExtension["unknown"])
}

func TestPrintTree(t *testing.T) {
	var buf bytes.Buffer
	PrintTree(&buf, "", []ObjectInfo{
		{Key: "audio/a.mp3", Size: 2048},
		{Key: "images/albums/c.png", Size: 10},
		{Key: "root.txt", Size: 1},
	})

	out := buf.String()
	assert.Contains(t, out, "audio/\n")
	assert.Contains(t, out, "  a.mp3 (2.0 kB)")
	assert.Contains(t, out, "images/\n")
	assert.Contains(t, out, "  albums/\n")
	assert.Contains(t, out, "    c.png (10 B)")
	assert.True(t, strings.HasSuffix(out, "root.txt (1 B)\n"))
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	PrintStats(&buf, &BucketStats{Bucket: "melodix", TotalObjects: 2, TotalSize: 3000, ByExtension: map[string]int64{"mp3": 2}})

	out := buf.String()
	assert.Contains(t, out, "melodix")
	assert.Contains(t, out, "3.0 kB")
	assert.Contains(t, out, "mp3")
}
