// Package audio decodes recordings into float samples for engraving.
//
// Supported containers are WAV, AIFF, MP3, Ogg Vorbis and FLAC. Every
// decoder returns interleaved samples scaled to [-1, 1].
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/wav"
	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

var (
	// ErrUnsupportedFormat is returned for file extensions no decoder handles.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrInvalidAudio is returned when the data does not parse as the
	// format its extension names.
	ErrInvalidAudio = errors.New("invalid audio data")
)

// Clip is a decoded recording.
type Clip struct {
	SampleRate int
	Channels   int
	// Samples are interleaved by channel.
	Samples []float32
}

// Frames returns the number of samples per channel.
func (c Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Mono averages the channels of c into one.
func (c Clip) Mono() []float32 {
	if c.Channels <= 1 {
		out := make([]float32, len(c.Samples))
		copy(out, c.Samples)
		return out
	}

	out := make([]float32, c.Frames())
	for i := range out {
		var sum float32
		for ch := range c.Channels {
			sum += c.Samples[i*c.Channels+ch]
		}
		out[i] = sum / float32(c.Channels)
	}
	return out
}

// Format names a supported container.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatAIFF Format = "aiff"
	FormatMP3  Format = "mp3"
	FormatOgg  Format = "ogg"
	FormatFLAC Format = "flac"
)

var extensions = map[string]Format{
	".wav":  FormatWAV,
	".wave": FormatWAV,
	".aif":  FormatAIFF,
	".aiff": FormatAIFF,
	".aifc": FormatAIFF,
	".mp3":  FormatMP3,
	".ogg":  FormatOgg,
	".oga":  FormatOgg,
	".flac": FormatFLAC,
}

// FormatOf returns the container implied by path's extension.
func FormatOf(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := extensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return f, nil
}

// IsAudioFile reports whether path has an extension Decode understands.
func IsAudioFile(path string) bool {
	_, err := FormatOf(path)
	return err == nil
}

// Decode reads the audio file at path, choosing the decoder by extension.
func Decode(path string) (Clip, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Clip{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Clip{}, err
	}

	clip, err := DecodeBytes(format, data)
	if err != nil {
		return Clip{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return clip, nil
}

// DecodeBytes decodes data as the given format.
func DecodeBytes(format Format, data []byte) (Clip, error) {
	if len(data) == 0 {
		return Clip{}, fmt.Errorf("%w: empty input", ErrInvalidAudio)
	}

	switch format {
	case FormatWAV:
		return decodeWAV(bytes.NewReader(data))
	case FormatAIFF:
		return decodeAIFF(bytes.NewReader(data))
	case FormatMP3:
		return decodeMP3(bytes.NewReader(data))
	case FormatOgg:
		return decodeOgg(bytes.NewReader(data))
	case FormatFLAC:
		return decodeFLAC(bytes.NewReader(data))
	default:
		return Clip{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func decodeWAV(r io.ReadSeeker) (Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Clip{}, fmt.Errorf("%w: not a WAV file", ErrInvalidAudio)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("reading PCM data: %w", err)
	}

	return Clip{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		Samples:    buf.Data,
	}, nil
}

func decodeAIFF(r io.ReadSeeker) (Clip, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return Clip{}, fmt.Errorf("%w: not an AIFF file", ErrInvalidAudio)
	}
	dec.ReadInfo()

	format := dec.Format()
	if format == nil || format.NumChannels == 0 {
		return Clip{}, fmt.Errorf("%w: AIFF without a usable COMM chunk", ErrInvalidAudio)
	}
	full := intScale(int(dec.BitDepth))
	if full == 0 {
		return Clip{}, fmt.Errorf("%w: %d-bit AIFF", ErrUnsupportedFormat, dec.BitDepth)
	}

	buf := &goaudio.IntBuffer{Data: make([]int, 4096*format.NumChannels), Format: format}
	var out []float32
	for {
		n, err := dec.PCMBuffer(buf)
		for _, s := range buf.Data[:n] {
			out = append(out, float32(s)/full)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return Clip{}, fmt.Errorf("reading PCM data: %w", err)
		}
		if n == 0 || err != nil {
			break
		}
	}

	return Clip{SampleRate: format.SampleRate, Channels: format.NumChannels, Samples: out}, nil
}

func decodeMP3(r io.Reader) (Clip, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return Clip{}, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}

	// go-mp3 always yields 16-bit little-endian stereo.
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return Clip{}, fmt.Errorf("reading MP3 frames: %w", err)
	}

	out := make([]float32, len(pcm)/2)
	for i := range out {
		v := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		out[i] = float32(v) / 32768
	}

	return Clip{SampleRate: dec.SampleRate(), Channels: 2, Samples: out}, nil
}

func decodeOgg(r io.Reader) (Clip, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return Clip{}, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}

	return Clip{SampleRate: format.SampleRate, Channels: format.Channels, Samples: data}, nil
}

func decodeFLAC(r io.Reader) (Clip, error) {
	stream, err := flac.New(r)
	if err != nil {
		return Clip{}, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	full := intScale(int(stream.Info.BitsPerSample))
	if channels == 0 || full == 0 {
		return Clip{}, fmt.Errorf("%w: %d channels at %d bits", ErrUnsupportedFormat, channels, stream.Info.BitsPerSample)
	}

	out := make([]float32, 0, int(stream.Info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Clip{}, fmt.Errorf("reading FLAC frame: %w", err)
		}
		for i := range int(frame.BlockSize) {
			for ch := range channels {
				out = append(out, float32(frame.Subframes[ch].Samples[i])/full)
			}
		}
	}

	return Clip{SampleRate: int(stream.Info.SampleRate), Channels: channels, Samples: out}, nil
}

// intScale is the magnitude of full scale for signed integer PCM of the
// given depth, or 0 for depths the decoders do not handle.
func intScale(bits int) float32 {
	switch bits {
	case 8:
		return 1 << 7
	case 16:
		return 1 << 15
	case 24:
		return 1 << 23
	case 32:
		return 1 << 31
	default:
		return 0
	}
}
