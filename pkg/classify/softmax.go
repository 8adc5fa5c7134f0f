// Package classify decodes raw accelerator scores into class probabilities.
//
// Scores are Q17.14 signed fixed point. Probabilities are Q1.15, 0 to 32767
// meaning 0.0 to 1.0.
package classify

import (
	"fmt"
	"math"
)

// One is 1.0 in Q1.15; representable probabilities stop at One-1.
const One = 1 << 15

// MaxProbability is the largest representable probability.
const MaxProbability = One - 1

// Softmax normalizes Q17.14 scores into Q1.15 probabilities. len(out) must
// be at least len(in).
type Softmax func(in []int32, out []int16)

// log2(e) in Q30.
const log2eQ30 = 1549082005

// exp2Frac[i] is 2^(i/256) in Q30.
var exp2Frac [257]int64

func init() {
	for i := range exp2Frac {
		exp2Frac[i] = int64(math.Round(math.Exp2(float64(i)/256) * (1 << 30)))
	}
}

// exp2Q30 returns 2^(y/65536) in Q30 for y <= 0.
func exp2Q30(y int64) int64 {
	ip := y >> 16
	if ip < -30 {
		return 0
	}
	frac := y - ip<<16
	idx, rem := frac>>8, frac&0xff
	v := exp2Frac[idx] + ((exp2Frac[idx+1]-exp2Frac[idx])*rem)>>8
	return v >> uint(-ip)
}

// SoftmaxPrecise computes a natural-base softmax with integer arithmetic.
// Equal scores produce exactly floor(32768/N) each.
func SoftmaxPrecise(in []int32, out []int16) {
	if len(in) == 0 {
		return
	}
	top := in[0]
	for _, v := range in[1:] {
		if v > top {
			top = v
		}
	}
	var sum int64
	var scratch [16]int64
	exps := scratch[:0]
	if len(in) > len(scratch) {
		exps = make([]int64, 0, len(in))
	}
	exps = exps[:len(in)]
	for i, v := range in {
		d := int64(v) - int64(top)
		// Q14 * Q30 >> 28 = log2 exponent in Q16
		exps[i] = exp2Q30((d * log2eQ30) >> 28)
		sum += exps[i]
	}
	for i, e := range exps {
		p := (e << 15) / sum
		if p > MaxProbability {
			p = MaxProbability
		}
		out[i] = int16(p)
	}
}

// SoftmaxVendor reproduces the accelerator SDK's base-2 approximation
// bit for bit. Scores more than 16.0 below the maximum map to 0.
func SoftmaxVendor(in []int32, out []int16) {
	if len(in) == 0 {
		return
	}
	base := int64(math.MinInt32)
	for _, v := range in {
		if int64(v) > base {
			base = int64(v)
		}
	}
	base -= 16 << 14

	var sum int64
	for _, v := range in {
		if int64(v) > base {
			shift := uint((8192 + int64(v) - base) >> 14)
			sum += 1 << shift
		}
	}
	outputBase := int32((int64(1) << 32) / sum)
	for i, v := range in {
		if int64(v) > base {
			shift := uint(17 + ((8191 + base - int64(v)) >> 14))
			out[i] = saturate16(outputBase >> shift)
		} else {
			out[i] = 0
		}
	}
}

func saturate16(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// SoftmaxByName returns "precise" or "vendor".
func SoftmaxByName(name string) (Softmax, error) {
	switch name {
	case "precise", "":
		return SoftmaxPrecise, nil
	case "vendor":
		return SoftmaxVendor, nil
	}
	return nil, fmt.Errorf("unknown softmax %q", name)
}
