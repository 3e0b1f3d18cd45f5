package bridge

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Writer delivers envelopes over a byte stream, one JSON envelope per
// line. Concurrent senders are serialized so envelopes never interleave.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	backoff func(int) time.Duration
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, backoff: Backoff}
}

// Send encodes and delivers one envelope, retrying transient write
// errors up to MaxRetries with backoff between attempts.
func (bw *Writer) Send(m *Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(bw.backoff(attempt - 1))
		}
		bw.mu.Lock()
		_, lastErr = bw.w.Write(data)
		bw.mu.Unlock()
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("send envelope: %w", lastErr)
}

// EnvelopeSink forwards console lines as console envelopes on a Writer.
// Delivery failures are dropped: diagnostics must never take down the
// operation that produced them.
type EnvelopeSink struct {
	W *Writer
}

func (s EnvelopeSink) Console(level, message string) {
	_ = s.W.Send(NewConsole(level, message))
}
