package words

// Seed is the four-lane state for sfc32. The same seed yields the same word
// sequence on every host, which is what lets a race text be described by a
// seed instead of shipping the words themselves.
type Seed [4]uint32

// sfc32 is the "Small Fast Counter" generator; uint32 wrap-around matches the
// |0 coercions of the reference implementation bit for bit.
func sfc32(seed Seed) func() uint32 {
	a, b, c, d := seed[0], seed[1], seed[2], seed[3]
	return func() uint32 {
		t := a + b + d
		d++
		a = b ^ (b >> 9)
		b = c + (c << 3)
		c = (c << 21) | (c >> 11)
		c += t
		return t
	}
}
