package common

// HaltonCycle is the period after which temporal jitter sample indices wrap.
// Wrapping keeps the index bounded over arbitrarily long sessions without
// visibly repeating the sample pattern.
const HaltonCycle = 8192

// Halton returns element index of the Halton low-discrepancy sequence for the
// given base. The sequence covers (0, 1) progressively more densely as the
// index grows; bases 2 and 3 together produce a well-distributed 2D sample
// pattern used for sub-pixel projection jitter.
//
// Parameters:
//   - index: 1-based sample index (index 0 returns 0)
//   - base: the sequence base (2 or 3 for jitter)
//
// Returns:
//   - float32: the sequence value in [0, 1)
func Halton(index uint32, base uint32) float32 {
	f := float32(1)
	r := float32(0)
	for i := index; i > 0; i /= base {
		f /= float32(base)
		r += f * float32(i%base)
	}
	return r
}

// HaltonJitter returns a centered 2D jitter offset in [-0.5, 0.5) for the
// given sample index, using Halton bases 2 and 3.
//
// Parameters:
//   - index: 1-based sample index
//
// Returns:
//   - x, y: centered jitter offsets
func HaltonJitter(index uint32) (x, y float32) {
	return Halton(index, 2) - 0.5, Halton(index, 3) - 0.5
}
