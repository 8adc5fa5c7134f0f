// Package node sequences the sensing pipeline: capture, inference, decoding
// and transmission, one cycle after another.
package node

import (
	"errors"
	"fmt"
)

// State is the phase of a cycle.
type State int32

// Cycle states.
const (
	StateIdle State = iota
	StateCapturing
	StateFeeding
	StateWaiting
	StateDecoding
	StateTransmitting
	StateCooldown
	StateHalted
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateCapturing:    "capturing",
	StateFeeding:      "feeding",
	StateWaiting:      "waiting",
	StateDecoding:     "decoding",
	StateTransmitting: "transmitting",
	StateCooldown:     "cooldown",
	StateHalted:       "halted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// ErrHalted matches any *HaltError.
var ErrHalted = errors.New("node halted")

// HaltError is returned once the node stopped cycling because the hardware
// is considered wedged.
type HaltError struct {
	State State
	Err   error
}

// Error implements error.
func (e *HaltError) Error() string {
	return fmt.Sprintf("halted in %s: %v", e.State, e.Err)
}

// Unwrap returns the error which caused the halt.
func (e *HaltError) Unwrap() error { return e.Err }

// Is matches ErrHalted.
func (e *HaltError) Is(target error) bool { return target == ErrHalted }
