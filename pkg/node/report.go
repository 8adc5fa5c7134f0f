package node

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/robotalks/cloudsense/pkg/classify"
)

// Report summarizes one cycle.
type Report struct {
	ID      uuid.UUID
	Seq     uint64
	Started time.Time
	// Duration covers the cycle from Idle to the end of transmission.
	Duration time.Duration
	// Inference is the accelerator's own stopwatch reading.
	Inference time.Duration
	// Result is nil when the cycle failed before decoding.
	Result       *classify.Result
	PayloadBytes int
	// State is the last state entered, where the cycle failed if Err is set.
	State State
	Err   error
	// Halted is set on the cycle which escalated to a halt.
	Halted bool
}

// OK reports whether the cycle completed.
func (r *Report) OK() bool {
	return r.Err == nil
}

// Struct encodes the report as a protobuf Struct for event consumers.
func (r *Report) Struct() (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"id":            r.ID.String(),
		"seq":           float64(r.Seq),
		"started":       r.Started.UTC().Format(time.RFC3339Nano),
		"duration_ms":   float64(r.Duration) / float64(time.Millisecond),
		"inference_us":  float64(r.Inference) / float64(time.Microsecond),
		"payload_bytes": r.PayloadBytes,
		"state":         r.State.String(),
		"halted":        r.Halted,
	}
	if r.Err != nil {
		fields["error"] = r.Err.Error()
	}
	if res := r.Result; res != nil {
		scores := make([]interface{}, len(res.Scores))
		for i, v := range res.Scores {
			scores[i] = float64(v)
		}
		probs := make([]interface{}, len(res.Probs))
		for i, v := range res.Probs {
			probs[i] = float64(v) / classify.One
		}
		fields["result"] = map[string]interface{}{
			"top":        res.Top,
			"label":      res.Label,
			"confidence": float64(classify.PercentThousandths(res.Confidence())) / 10,
			"scores":     scores,
			"probs":      probs,
		}
	}
	return structpb.NewStruct(fields)
}

// Observer is notified with the report of every cycle.
type Observer interface {
	Observe(context.Context, *Report)
}

// ObserveFunc is the func form of Observer.
type ObserveFunc func(context.Context, *Report)

// Observe implements Observer.
func (f ObserveFunc) Observe(ctx context.Context, r *Report) {
	f(ctx, r)
}
