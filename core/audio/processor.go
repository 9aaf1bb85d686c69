package audio

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned for containers no decoder handles.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format is a decodable container.
type Format string

const (
	FormatMP3    Format = "mp3"
	FormatFLAC   Format = "flac"
	FormatWAV    Format = "wav"
	FormatVorbis Format = "ogg"
)

// Processor inspects uploaded audio.
type Processor interface {
	// Duration returns the playing time of r in seconds.
	Duration(r io.ReadSeeker, filename, contentType string) (float64, error)
}

// BeepProcessor decodes audio with beep to measure it.
type BeepProcessor struct{}

var _ Processor = BeepProcessor{}

// NewBeepProcessor returns the default Processor.
func NewBeepProcessor() BeepProcessor {
	return BeepProcessor{}
}

// Duration decodes just enough of r to know its sample count. r is rewound
// to the start before returning so the caller can store it afterwards.
func (BeepProcessor) Duration(r io.ReadSeeker, filename, contentType string) (float64, error) {
	format, err := DetectFormat(filename, contentType)
	if err != nil {
		return 0, err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind audio: %w", err)
	}

	streamer, fmtInfo, err := Decode(keepOpen{r}, format)
	if err != nil {
		return 0, err
	}
	n := streamer.Len()
	streamer.Close()

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind audio: %w", err)
	}

	if n <= 0 || fmtInfo.SampleRate <= 0 {
		return 0, fmt.Errorf("could not determine length of %s", filename)
	}
	return fmtInfo.SampleRate.D(n).Seconds(), nil
}

// DetectFormat picks a decoder from the file extension, falling back to the
// declared content type.
func DetectFormat(filename, contentType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return FormatMP3, nil
	case ".flac":
		return FormatFLAC, nil
	case ".wav", ".wave":
		return FormatWAV, nil
	case ".ogg", ".oga":
		return FormatVorbis, nil
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mediaType {
	case "audio/mpeg", "audio/mp3", "audio/mpeg3":
		return FormatMP3, nil
	case "audio/flac", "audio/x-flac":
		return FormatFLAC, nil
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return FormatWAV, nil
	case "audio/ogg", "audio/vorbis", "application/ogg":
		return FormatVorbis, nil
	}

	return "", fmt.Errorf("%w: %q (%s)", ErrUnsupportedFormat, filename, contentType)
}

// Decode opens a beep streamer over rc. Closing the streamer closes rc.
// Seeking and Len require rc to also implement io.Seeker.
func Decode(rc io.ReadCloser, format Format) (beep.StreamSeekCloser, beep.Format, error) {
	var (
		streamer beep.StreamSeekCloser
		f        beep.Format
		err      error
	)
	switch format {
	case FormatMP3:
		streamer, f, err = mp3.Decode(rc)
	case FormatFLAC:
		streamer, f, err = flac.Decode(rc)
	case FormatWAV:
		streamer, f, err = wav.Decode(rc)
	case FormatVorbis:
		streamer, f, err = vorbis.Decode(rc)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", format, err)
	}
	return streamer, f, nil
}

// keepOpen lets a decoder close its source without closing the caller's
// reader, while keeping it seekable.
type keepOpen struct {
	io.ReadSeeker
}

func (keepOpen) Close() error { return nil }
