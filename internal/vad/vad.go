// Package vad trims non-speech audio before transcription.
package vad

import (
	"encoding/binary"
	"log/slog"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"github.com/josh0272/lylov2/internal/audioconv"
)

const (
	frameSamples = audioconv.SampleRate * 30 / 1000 // 30 ms frames
	// aggressiveness 0..3; 2 trims silence without clipping soft speech
	mode = 2
	// voiced padding, in frames, kept on each side of detected speech
	hangover = 10
)

// Filter returns pcm with non-speech frames removed, keeping a padding
// window around detected speech so words are not clipped. Filtering is
// best-effort preprocessing: on any detector error the input is returned
// unchanged.
func Filter(pcm []float32) []float32 {
	if len(pcm) < frameSamples {
		return pcm
	}
	detector, err := webrtcvad.New()
	if err != nil {
		slog.Warn("vad init failed, skipping silence filter", "err", err)
		return pcm
	}
	if err := detector.SetMode(mode); err != nil {
		slog.Warn("vad mode rejected, skipping silence filter", "err", err)
		return pcm
	}

	frames := len(pcm) / frameSamples
	voiced := make([]bool, frames)
	buf := make([]byte, frameSamples*2)
	for i := 0; i < frames; i++ {
		frameToBytes(pcm[i*frameSamples:(i+1)*frameSamples], buf)
		active, err := detector.Process(audioconv.SampleRate, buf)
		if err != nil {
			slog.Warn("vad process failed, skipping silence filter", "err", err)
			return pcm
		}
		voiced[i] = active
	}

	keep := expand(voiced, hangover)
	out := make([]float32, 0, len(pcm))
	for i := 0; i < frames; i++ {
		if keep[i] {
			out = append(out, pcm[i*frameSamples:(i+1)*frameSamples]...)
		}
	}
	// trailing partial frame rides along with the last kept frame
	if frames > 0 && keep[frames-1] {
		out = append(out, pcm[frames*frameSamples:]...)
	}
	return out
}

// expand widens each voiced run by pad frames on both sides.
func expand(voiced []bool, pad int) []bool {
	keep := make([]bool, len(voiced))
	for i, v := range voiced {
		if !v {
			continue
		}
		lo := i - pad
		if lo < 0 {
			lo = 0
		}
		hi := i + pad
		if hi >= len(voiced) {
			hi = len(voiced) - 1
		}
		for j := lo; j <= hi; j++ {
			keep[j] = true
		}
	}
	return keep
}

func frameToBytes(frame []float32, out []byte) {
	for i, s := range frame {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s*32767)))
	}
}
