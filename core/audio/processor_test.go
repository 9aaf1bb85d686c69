package audio

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV writes a silent mono 16-bit PCM file of the given length.
func writeWAV(t *testing.T, sampleRate, samples int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := gowav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, samples),
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	return path
}

func TestBeepProcessor_DurationOfWAV(t *testing.T) {
	path := writeWAV(t, 8000, 16000)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	secs, err := NewBeepProcessor().Duration(f, "upload.wav", "audio/wav")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, secs, 0.01)

	pos, err := f.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos, "reader is rewound for the upload that follows")
}

func TestBeepProcessor_UsesContentTypeWithoutExtension(t *testing.T) {
	path := writeWAV(t, 8000, 4000)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	secs, err := NewBeepProcessor().Duration(f, "blob", "audio/x-wav")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, secs, 0.01)
}

func TestBeepProcessor_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not audio"), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = NewBeepProcessor().Duration(f, "bad.wav", "audio/wav")
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        Format
		wantErr     bool
	}{
		{"a.mp3", "", FormatMP3, false},
		{"A.FLAC", "", FormatFLAC, false},
		{"a.wav", "", FormatWAV, false},
		{"a.ogg", "", FormatVorbis, false},
		{"blob", "audio/mpeg", FormatMP3, false},
		{"blob", "audio/ogg; codecs=vorbis", FormatVorbis, false},
		{"a.m4a", "audio/mp4", "", true},
		{"blob", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename+"|"+tt.contentType, func(t *testing.T) {
			got, err := DetectFormat(tt.filename, tt.contentType)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
