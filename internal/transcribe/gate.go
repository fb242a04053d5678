package transcribe

import "context"

// gate bounds the number of in-flight model invocations. whisper contexts
// share model weights; one slot is always safe, more is a tuning choice.
type gate struct {
	slots chan struct{}
}

func newGate(n int) *gate {
	if n < 1 {
		n = 1
	}
	return &gate{slots: make(chan struct{}, n)}
}

func (g *gate) acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gate) release() {
	<-g.slots
}
