package ggm

import "strings"

// prefix is an immutable bitstring naming a tree node by its path from the
// root. Methods never modify the receiver.
type prefix struct {
	bits []bool
}

// prefixFromBytes returns the full-length path of a tree input. Within each
// byte the least significant bit comes first.
func prefixFromBytes(input []byte) prefix {
	bits := make([]bool, 0, 8*len(input))
	for _, b := range input {
		for j := 0; j < 8; j++ {
			bits = append(bits, b>>j&1 == 1)
		}
	}
	return prefix{bits: bits}
}

func newPrefix(bits ...bool) prefix {
	return prefix{bits: append([]bool(nil), bits...)}
}

func (p prefix) len() int {
	return len(p.bits)
}

// hasPrefix reports whether q is a prefix of (or equal to) p.
func (p prefix) hasPrefix(q prefix) bool {
	if len(q.bits) > len(p.bits) {
		return false
	}
	for i, b := range q.bits {
		if p.bits[i] != b {
			return false
		}
	}
	return true
}

func (p prefix) equal(q prefix) bool {
	return len(p.bits) == len(q.bits) && p.hasPrefix(q)
}

// truncate returns the first n bits of p.
func (p prefix) truncate(n int) prefix {
	return newPrefix(p.bits[:n]...)
}

// flip returns a copy of p with bit i inverted.
func (p prefix) flip(i int) prefix {
	q := newPrefix(p.bits...)
	q.bits[i] = !q.bits[i]
	return q
}

// suffix returns the bits of p following its first n bits.
func (p prefix) suffix(n int) []bool {
	return p.bits[n:]
}

func (p prefix) String() string {
	var sb strings.Builder
	sb.Grow(len(p.bits))
	for _, b := range p.bits {
		if b {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
