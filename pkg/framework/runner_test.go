package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunnerStop(t *testing.T) {
	r := NewRunner()
	blocker := RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	r.Go(NamedRun("a", blocker), blocker, nil)
	require.Len(t, r.Runners, 2)
	r.Stop()
	require.NoError(t, r.Wait())
}

func TestRunnerFailureStopsOthers(t *testing.T) {
	errBoom := errors.New("boom")
	r := NewRunner()
	r.Go(
		NamedRun("waiter", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		NamedRun("failer", RunFunc(func(ctx context.Context) error {
			return errBoom
		})),
	)
	err := r.Wait()
	require.Error(t, err)
	require.True(t, errors.Is(err, errBoom))
	require.Equal(t, "failer: boom", err.Error())
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	e1, e2 := errors.New("e1"), errors.New("e2")
	err := errs.Add(e1, nil, e2).Aggregate()
	require.Equal(t, "Multiple errors:\ne1\ne2", err.Error())
	require.True(t, errors.Is(err, e2))
}

type closeCounter struct{ n int }

func (c *closeCounter) Close() error {
	c.n++
	return nil
}

func TestRunWithContextCloser(t *testing.T) {
	c := &closeCounter{}
	require.NoError(t, RunWithContextCloser(context.Background(), c, func() error { return nil }))
	require.Equal(t, 1, c.n)

	ctx, cancel := context.WithCancel(context.Background())
	unblock := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := RunWithContextCloser(ctx, closerFunc(func() error {
		close(unblock)
		return nil
	}), func() error {
		<-unblock
		return errors.New("closed")
	})
	require.Equal(t, context.Canceled, err)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
