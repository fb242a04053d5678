// Package transcribe wraps the whisper.cpp speech model behind a
// file-path-in, text-out interface.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/josh0272/lylov2/internal/audioconv"
	"github.com/josh0272/lylov2/internal/vad"
)

// Options configures decoding for all invocations.
type Options struct {
	Language    string // e.g. "en"
	BeamSize    int    // 0 = greedy; >0 enables beam search
	Concurrency int    // concurrent model invocations, min 1
}

// Transcriber owns the loaded model. It is created once at startup and
// shared by all requests; the internal gate serializes access when
// Concurrency is 1.
type Transcriber struct {
	model whisper.Model
	opts  Options
	gate  *gate
}

// New loads the ggml model at modelPath. Loading is the expensive step and
// happens exactly once per process.
func New(modelPath string, opts Options) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelPath, err)
	}
	return &Transcriber{
		model: model,
		opts:  opts,
		gate:  newGate(opts.Concurrency),
	}, nil
}

// Close releases the model. Only called at process shutdown.
func (t *Transcriber) Close() error {
	if t.model == nil {
		return nil
	}
	return t.model.Close()
}

// Transcribe decodes the audio file at path, trims silence and runs the
// model, returning all segment texts joined with single spaces and trimmed.
// Every failure is returned as an error; nothing escapes as a fault.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	if err := t.gate.acquire(ctx); err != nil {
		return "", err
	}
	defer t.gate.release()

	pcm, err := audioconv.DecodeFile(path)
	if err != nil {
		return "", err
	}
	trimmed := vad.Filter(pcm)
	slog.Debug("silence filter", "samples_in", len(pcm), "samples_out", len(trimmed))
	if len(trimmed) == 0 {
		return "", nil
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("new whisper context: %w", err)
	}
	if err := wctx.SetLanguage(t.opts.Language); err != nil {
		return "", fmt.Errorf("set language %q: %w", t.opts.Language, err)
	}
	wctx.SetThreads(uint(runtime.NumCPU()))
	if t.opts.BeamSize > 0 {
		wctx.SetBeamSize(t.opts.BeamSize)
	}

	if err := wctx.Process(trimmed, nil, nil, nil); err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	var texts []string
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read segment: %w", err)
		}
		texts = append(texts, seg.Text)
	}
	return joinSegments(texts), nil
}

// joinSegments concatenates trimmed segment texts with single spaces,
// dropping empty segments so no double spaces appear.
func joinSegments(texts []string) string {
	var b strings.Builder
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t)
	}
	return b.String()
}
