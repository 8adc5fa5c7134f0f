// Package hw provides primitives shared by the hardware-facing packages:
// bounded busy polling and the status indicator.
package hw

import (
	"errors"
	"time"
)

// ErrPollExhausted indicates a polled condition never became true within
// the configured number of spins.
var ErrPollExhausted = errors.New("poll exhausted")

// Poller polls a hardware condition.
//
// With a zero Interval the poll never yields, which is required where a
// fixed hardware clock dictates the timing window (FIFO status, stream
// buffers). MaxSpins bounds the number of polls, 0 means unbounded.
type Poller struct {
	MaxSpins int
	Interval time.Duration
}

// Until polls cond until it returns true. It returns the number of polls
// which returned false.
func (p Poller) Until(cond func() bool) (spins int, err error) {
	for !cond() {
		spins++
		if p.MaxSpins > 0 && spins >= p.MaxSpins {
			return spins, ErrPollExhausted
		}
		if p.Interval > 0 {
			time.Sleep(p.Interval)
		}
	}
	return spins, nil
}
