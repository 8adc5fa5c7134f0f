package hw

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoller(t *testing.T) {
	testCases := []struct {
		name      string
		maxSpins  int
		readyAt   int
		expect    int
		exhausted bool
	}{
		{"ready immediately", 0, 0, 0, false},
		{"unbounded", 0, 1000, 1000, false},
		{"within bound", 10, 9, 9, false},
		{"exhausted", 10, 20, 10, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			spins, err := Poller{MaxSpins: tc.maxSpins}.Until(func() bool {
				calls++
				return calls > tc.readyAt
			})
			require.Equal(t, tc.expect, spins)
			if tc.exhausted {
				require.Equal(t, ErrPollExhausted, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLogIndicator(t *testing.T) {
	var ind LogIndicator
	require.False(t, ind.Get(ChannelFault))
	ind.Set(ChannelFault, true)
	require.True(t, ind.Get(ChannelFault))
	require.False(t, ind.Get(ChannelActive))
	ind.Set(ChannelFault, false)
	require.False(t, ind.Get(ChannelFault))
	require.Equal(t, "fault", ChannelFault.String())
}
