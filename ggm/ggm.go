/*
Package ggm implements the Goldreich-Goldwasser-Micali pseudorandom function
(https://crypto.stanford.edu/pbc/notes/crypto/ggm.html), extended so that
individual inputs can be punctured from the key.

An input of n bits names a leaf of a binary tree of depth n. The value of a
node is obtained from the value of its parent by applying one of two keyed
generators, chosen by the next bit of the path. Instead of the root secret the
key stores a frontier: a set of nodes whose subtrees together cover exactly the
leaves that can still be evaluated. Puncturing a leaf removes the frontier node
covering it and replaces it by the siblings of every node on the path from that
node down to the leaf, so that all other leaves stay reachable with unchanged
outputs, while the punctured leaf can no longer be computed from anything the
key holds.

A GGM value is not safe for concurrent use; callers that share one must
serialize Puncture against all other calls.
*/
package ggm

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/go-errors/errors"
)

// DefaultInputLen is the input width in bytes used by Setup.
const DefaultInputLen = 1

var (
	// ErrLengthMismatch is returned when an input does not have the width the
	// tree was set up with.
	ErrLengthMismatch = errors.New("input length does not match the input width of the key")

	// ErrNoPrefixFound is returned when no frontier node covers an input, i.e.
	// the input has been punctured.
	ErrNoPrefixFound = errors.New("no prefix found for input")

	// ErrAlreadyPunctured is returned when puncturing an input that has already
	// been punctured.
	ErrAlreadyPunctured = errors.New("input already punctured")
)

// PPRF is a puncturable pseudorandom function.
type PPRF interface {
	// Eval returns the PRF output for input.
	Eval(input []byte) ([]byte, error)
	// Puncture removes the ability to evaluate input.
	Puncture(input []byte) error
}

// GGM is a puncturable PRF over inputs of a fixed byte width.
type GGM struct {
	inputLen int
	key      *puncturableKey
}

var _ PPRF = (*GGM)(nil)

// Setup returns a fresh GGM over one-byte inputs, keyed from crypto/rand.
func Setup() (*GGM, error) {
	return SetupWithRand(rand.Reader, DefaultInputLen)
}

// SetupWithRand returns a fresh GGM over inputs of inputLen bytes, sampling its
// secrets from rand.
func SetupWithRand(rand io.Reader, inputLen int) (*GGM, error) {
	if inputLen <= 0 {
		return nil, errors.Errorf("invalid input width %d", inputLen)
	}
	key, err := newPuncturableKey(rand)
	if err != nil {
		return nil, err
	}
	return &GGM{inputLen: inputLen, key: key}, nil
}

// InputLen returns the input width in bytes.
func (g *GGM) InputLen() int {
	return g.inputLen
}

// Eval returns the OutputSize byte PRF output for input. It returns
// ErrNoPrefixFound if input has been punctured.
func (g *GGM) Eval(input []byte) ([]byte, error) {
	if err := g.checkLen(input); err != nil {
		return nil, err
	}
	bits := prefixFromBytes(input)
	n, err := g.key.findPrefix(bits)
	if err != nil {
		return nil, err
	}
	out := g.expand(n.value, bits.suffix(n.prefix.len()))
	return out[:], nil
}

// Puncture removes input from the domain of the key. Outputs for all other
// inputs are unaffected. Puncturing an input twice returns ErrAlreadyPunctured.
func (g *GGM) Puncture(input []byte) error {
	if err := g.checkLen(input); err != nil {
		return err
	}
	bits := prefixFromBytes(input)
	if g.key.isPunctured(bits) {
		return ErrAlreadyPunctured
	}
	n, err := g.key.findPrefix(bits)
	if err != nil {
		return err
	}

	// Walk up from the leaf to the covering node, registering the sibling of
	// every node on the way. Together they cover n's subtree minus the leaf.
	depth := n.prefix.len()
	var siblings []node
	for i := bits.len() - 1; i >= depth; i-- {
		sibling := bits.truncate(i + 1).flip(i)
		siblings = append(siblings, node{
			prefix: sibling,
			value:  g.expand(n.value, sibling.suffix(depth)),
		})
	}

	return g.key.puncture(n.prefix, bits, siblings)
}

// expand walks down the tree from a node with value v along path.
func (g *GGM) expand(v [OutputSize]byte, path []bool) [OutputSize]byte {
	for _, b := range path {
		v = g.key.generator(b).eval(v[:])
	}
	return v
}

func (g *GGM) checkLen(input []byte) error {
	if len(input) != g.inputLen {
		return errors.WrapPrefix(ErrLengthMismatch, fmt.Sprintf("got %d bytes, want %d", len(input), g.inputLen), 0)
	}
	return nil
}
