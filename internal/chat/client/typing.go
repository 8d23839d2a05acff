package client

import (
	"sync"
	"time"
)

// DefaultTypingQuiet quiet period before a stop signal is sent
const DefaultTypingQuiet = 700 * time.Millisecond

// TypingDebouncer emits start on the first keystroke and stop once
// keystrokes have been quiet for the period. Every keystroke resets the timer.
type TypingDebouncer struct {
	quiet  time.Duration
	emit   func(isTyping bool)
	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
	active bool
}

// NewTypingDebouncer emit is called outside the lock
func NewTypingDebouncer(quiet time.Duration, emit func(isTyping bool)) *TypingDebouncer {
	if quiet <= 0 {
		quiet = DefaultTypingQuiet
	}
	return &TypingDebouncer{quiet: quiet, emit: emit}
}

// Keystroke note user input
func (d *TypingDebouncer) Keystroke() {
	d.mu.Lock()
	start := !d.active
	d.active = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.quiet, func() { d.expire(gen) })
	d.mu.Unlock()

	if start {
		d.emit(true)
	}
}

// Stop end typing now, e.g. after a send
func (d *TypingDebouncer) Stop() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	was := d.active
	d.active = false
	d.mu.Unlock()

	if was {
		d.emit(false)
	}
}

func (d *TypingDebouncer) expire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		// 已被新的按鍵重設
		d.mu.Unlock()
		return
	}
	was := d.active
	d.active = false
	d.timer = nil
	d.mu.Unlock()

	if was {
		d.emit(false)
	}
}
