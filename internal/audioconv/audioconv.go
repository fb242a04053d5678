// Package audioconv decodes uploaded audio files into the mono 16 kHz
// float32 PCM that the speech model consumes.
package audioconv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

// SampleRate is the rate the speech model expects.
const SampleRate = 16000

// ErrUnsupportedFormat is returned when the file is neither WAV, MP3 nor
// Ogg (Vorbis or Opus).
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// DecodeFile reads the file at path and returns mono PCM at SampleRate.
// The container is picked by extension first, then by magic-byte sniff so a
// misnamed upload still decodes.
func DecodeFile(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	case ".ogg", ".oga", ".opus":
		return decodeOgg(f)
	}

	br := bufio.NewReader(f)
	magic, _ := br.Peek(4)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind audio file: %w", err)
	}
	switch string(magic) {
	case "RIFF":
		return decodeWAV(f)
	case "OggS":
		return decodeOgg(f)
	}
	if bytes.HasPrefix(magic, []byte{0xFF, 0xFB}) || bytes.HasPrefix(magic, []byte{0xFF, 0xF3}) || bytes.HasPrefix(magic, []byte("ID3")) {
		return decodeMP3(f)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
}

func decodeWAV(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("decode wav: invalid file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("decode wav: empty stream")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	pcm := intsToFloat32(buf.Data, depth)

	channels, rate := 1, 44100
	if buf.Format != nil {
		if buf.Format.NumChannels > 0 {
			channels = buf.Format.NumChannels
		}
		if buf.Format.SampleRate > 0 {
			rate = buf.Format.SampleRate
		}
	}
	return normalize(pcm, channels, rate), nil
}

func decodeMP3(r io.Reader) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}
	// go-mp3 always emits interleaved stereo
	return normalize(int16sToFloat32(ints), 2, rate), nil
}

func decodeOgg(r io.ReadSeeker) ([]float32, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err == nil {
		if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
			return nil, fmt.Errorf("decode ogg: invalid vorbis stream")
		}
		return normalize(pcm, format.Channels, format.SampleRate), nil
	}
	if _, serr := r.Seek(0, io.SeekStart); serr != nil {
		return nil, fmt.Errorf("rewind ogg stream: %w", serr)
	}
	out, oerr := decodeOpus(r)
	if oerr != nil {
		return nil, fmt.Errorf("decode ogg: not vorbis (%v), not opus: %w", err, oerr)
	}
	return out, nil
}

func decodeOpus(r io.ReadSeeker) ([]float32, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	channels := dec.ChannelCount()
	if channels <= 0 {
		channels = 1
	}

	// Opus always decodes at 48 kHz.
	var pcm []float32
	buf := make([]int16, 48000*channels/2)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, int16sToFloat32(buf[:n*channels])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return normalize(pcm, channels, 48000), nil
}

// normalize downmixes interleaved PCM to mono and resamples to SampleRate.
func normalize(pcm []float32, channels, rate int) []float32 {
	if channels > 1 {
		pcm = downmix(pcm, channels)
	}
	if rate != SampleRate {
		pcm = resample(pcm, rate, SampleRate)
	}
	return pcm
}

func intsToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		f := float64(v) * scale
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		out[i] = float32(f)
	}
	return out
}

func int16sToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v) / 32768.0
	}
	return out
}

func downmix(in []float32, channels int) []float32 {
	frames := len(in) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		sum := float64(0)
		for c := 0; c < channels; c++ {
			sum += float64(in[i*channels+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func resample(in []float32, from, to int) []float32 {
	if from == to || len(in) == 0 {
		return in
	}
	ratio := float64(to) / float64(from)
	n := int(float64(len(in)) * ratio)
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		src := float64(i) / ratio
		lo := int(src)
		if lo >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(src - float64(lo))
		out[i] = in[lo]*(1-frac) + in[lo+1]*frac
	}
	return out
}
