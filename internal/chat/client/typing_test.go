package client

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type typingRecorder struct {
	mu     sync.Mutex
	events []bool
}

func (r *typingRecorder) emit(v bool) {
	r.mu.Lock()
	r.events = append(r.events, v)
	r.mu.Unlock()
}

func (r *typingRecorder) get() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.events...)
}

func TestTypingDebounceResetsOnKeystroke(t *testing.T) {
	rec := &typingRecorder{}
	d := NewTypingDebouncer(60*time.Millisecond, rec.emit)

	for i := 0; i < 5; i++ {
		d.Keystroke()
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, []bool{true}, rec.get(), "stop must wait for a quiet period")

	assert.Eventually(t, func() bool {
		return len(rec.get()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []bool{true, false}, rec.get())
}

func TestTypingStopIsImmediate(t *testing.T) {
	rec := &typingRecorder{}
	d := NewTypingDebouncer(time.Hour, rec.emit)

	d.Stop()
	assert.Empty(t, rec.get())

	d.Keystroke()
	d.Stop()
	d.Stop()
	assert.Equal(t, []bool{true, false}, rec.get())
}

func TestTypingDefaultQuiet(t *testing.T) {
	d := NewTypingDebouncer(0, func(bool) {})
	assert.Equal(t, DefaultTypingQuiet, d.quiet)
}
