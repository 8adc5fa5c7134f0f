package classify

import (
	"fmt"
	"strings"
)

// DefaultLabels are the cloud classes of the reference network.
var DefaultLabels = []string{"cirrus", "cumulus", "nimbostratus", "stratus"}

// Argmax returns the first index holding the maximum probability.
func Argmax(probs []int16) (int, int16) {
	if len(probs) == 0 {
		return -1, 0
	}
	idx := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[idx] {
			idx = i
		}
	}
	return idx, probs[idx]
}

// PercentThousandths converts a Q1.15 probability to tenths of a percent,
// rounded.
func PercentThousandths(p int16) int {
	return (1000*int(p) + 0x4000) >> 15
}

// FormatPercent formats a Q1.15 probability as "dd.d".
func FormatPercent(p int16) string {
	digs := PercentThousandths(p)
	return fmt.Sprintf("%d.%d", digs/10, digs%10)
}

// Result is a decoded classification.
type Result struct {
	Scores []int32
	Probs  []int16
	Top    int
	Label  string
}

// Confidence is the probability of the top class.
func (r *Result) Confidence() int16 {
	if r.Top < 0 || r.Top >= len(r.Probs) {
		return 0
	}
	return r.Probs[r.Top]
}

// Clone returns a deep copy.
func (r *Result) Clone() *Result {
	c := *r
	c.Scores = append([]int32(nil), r.Scores...)
	c.Probs = append([]int16(nil), r.Probs...)
	return &c
}

// Lines formats the per-class table and the highest class line.
func (r *Result) Lines(labels []string) []string {
	lines := make([]string, 0, len(r.Probs)+1)
	for i, p := range r.Probs {
		lines = append(lines, fmt.Sprintf("[%7d] -> Class %d %12s: %s%%", r.Scores[i], i, labelOf(labels, i), FormatPercent(p)))
	}
	lines = append(lines, fmt.Sprintf("Highest class: %d %s with %s%%", r.Top, r.Label, FormatPercent(r.Confidence())))
	return lines
}

func (r *Result) String() string {
	return fmt.Sprintf("%s (%s%%)", r.Label, FormatPercent(r.Confidence()))
}

// Decoder turns raw scores into a Result. Its buffers are reused.
type Decoder struct {
	Labels  []string
	Softmax Softmax

	result Result
}

// NewDecoder creates a Decoder for the given labels; the number of labels
// is the number of classes.
func NewDecoder(labels []string, softmax Softmax) *Decoder {
	if softmax == nil {
		softmax = SoftmaxPrecise
	}
	return &Decoder{
		Labels:  labels,
		Softmax: softmax,
		result: Result{
			Probs: make([]int16, len(labels)),
		},
	}
}

// Classes is the number of classes.
func (d *Decoder) Classes() int { return len(d.Labels) }

// Decode runs softmax and argmax over scores. The returned Result is owned
// by the decoder and overwritten by the next call.
func (d *Decoder) Decode(scores []int32) (*Result, error) {
	if len(scores) != len(d.Labels) {
		return nil, fmt.Errorf("got %d scores for %d classes", len(scores), len(d.Labels))
	}
	d.Softmax(scores, d.result.Probs)
	d.result.Scores = scores
	d.result.Top, _ = Argmax(d.result.Probs)
	d.result.Label = labelOf(d.Labels, d.result.Top)
	return &d.result, nil
}

func labelOf(labels []string, i int) string {
	if i >= 0 && i < len(labels) {
		return labels[i]
	}
	return fmt.Sprintf("class%d", i)
}

// ParseLabels splits a comma separated label list.
func ParseLabels(s string) []string {
	var labels []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}
