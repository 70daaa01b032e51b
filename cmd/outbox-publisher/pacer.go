package main

import (
	"math/rand/v2"
	"time"
)

const (
	maxBackoff   = 10 * time.Second
	jitterWindow = 250 * time.Millisecond
)

// pacer decides how long the publish loop sleeps before the next batch.
// Busy batches loop straight away, idle ones wait one poll interval and
// failures double the wait up to the ceiling.
type pacer struct {
	idle    time.Duration
	ceiling time.Duration
	current time.Duration
	jitter  func(time.Duration) time.Duration
}

func newPacer(idle, ceiling time.Duration) *pacer {
	return &pacer{idle: idle, ceiling: ceiling, jitter: withJitter}
}

func (p *pacer) busy() time.Duration {
	p.current = 0
	return 0
}

func (p *pacer) rested() time.Duration {
	p.current = 0
	return p.jitter(p.idle)
}

func (p *pacer) failed() time.Duration {
	p.current = max(p.current, p.idle) * 2
	if p.current > p.ceiling {
		p.current = p.ceiling
	}
	return p.jitter(p.current)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
