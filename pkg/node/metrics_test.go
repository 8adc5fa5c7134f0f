package node

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/cloudsense/pkg/classify"
	"github.com/robotalks/cloudsense/pkg/sensor"
)

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics()
	dec := classify.NewDecoder(classify.DefaultLabels, nil)
	res, err := dec.Decode([]int32{100, 400, 50, 50})
	require.NoError(t, err)
	ctx := context.Background()

	m.Observe(ctx, &Report{
		State:        StateTransmitting,
		Duration:     20 * time.Millisecond,
		Inference:    time.Millisecond,
		Result:       res.Clone(),
		PayloadBytes: 65536,
	})
	m.Observe(ctx, &Report{State: StateCapturing, Err: &sensor.OverflowError{Count: 1}})
	m.Observe(ctx, &Report{State: StateIdle, Err: context.Canceled})

	require.Equal(t, float64(1), testutil.ToFloat64(m.Cycles.WithLabelValues(OutcomeOK)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Cycles.WithLabelValues(OutcomeSkipped)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Cycles.WithLabelValues(OutcomeCanceled)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Failures.WithLabelValues("capturing")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Classes.WithLabelValues("cumulus")))
	require.Equal(t, float64(65536), testutil.ToFloat64(m.PayloadBytes))
	require.Equal(t, float64(0), testutil.ToFloat64(m.Halted))
	require.InDelta(t, float64(res.Confidence())/classify.One, testutil.ToFloat64(m.Confidence), 1e-9)

	m.Observe(ctx, &Report{State: StateCapturing, Halted: true, Err: &HaltError{State: StateCapturing, Err: errors.New("wedged")}})
	require.Equal(t, float64(1), testutil.ToFloat64(m.Halted))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Cycles.WithLabelValues(OutcomeHalted)))
	require.Equal(t, float64(2), testutil.ToFloat64(m.Failures.WithLabelValues("capturing")))
}

func TestMetricsServer(t *testing.T) {
	m := NewMetrics()
	m.Cycles.WithLabelValues(OutcomeOK).Inc()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	srv := &Server{Metrics: m}
	go func() { errCh <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(string(body), `cloudsense_cycles_total{outcome="ok"} 1`))

	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
