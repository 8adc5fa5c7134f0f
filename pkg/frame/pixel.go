package frame

// Sample is one packed accelerator input value: three signed 8-bit channels
// in a 24-bit field, blue in the high byte and red in the low byte.
type Sample uint32

// signFlip converts every [0,255] channel into [-128,127] two's complement.
const signFlip Sample = 0x00808080

// EncodePixel packs an unsigned RGB triple into a zero-centered Sample.
func EncodePixel(r, g, b uint8) Sample {
	return (Sample(b)<<16 | Sample(g)<<8 | Sample(r)) ^ signFlip
}

// Decode returns the signed channel values (r-128, g-128, b-128).
func (s Sample) Decode() (r, g, b int8) {
	return int8(uint8(s)), int8(uint8(s >> 8)), int8(uint8(s >> 16))
}

// RGB returns the original unsigned channel values.
func (s Sample) RGB() (r, g, b uint8) {
	u := s ^ signFlip
	return uint8(u), uint8(u >> 8), uint8(u >> 16)
}

// Gray returns the luma of the sample using ITU-R BT.601 weights.
func (s Sample) Gray() uint8 {
	r, g, b := s.RGB()
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000)
}
