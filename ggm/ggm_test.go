package ggm

import (
	"crypto/rand"
	"testing"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/ppoprf/internal/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func init() {
	Logger.SetLevel(logrus.FatalLevel)
}

func setup(t *testing.T) *GGM {
	g, err := Setup()
	require.NoError(t, err)
	return g
}

func evalAll(t *testing.T, g *GGM, inputs [][]byte) [][]byte {
	outputs := make([][]byte, len(inputs))
	for i, x := range inputs {
		out, err := g.Eval(x)
		require.NoError(t, err, "eval %v", x)
		outputs[i] = out
	}
	return outputs
}

var powersOfTwo = [][]byte{{2}, {4}, {8}, {16}, {32}, {64}, {128}}

func TestEval(t *testing.T) {
	g := setup(t)

	a, err := g.Eval([]byte{8})
	require.NoError(t, err)
	require.Len(t, a, OutputSize)
	b, err := g.Eval([]byte{7})
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	again, err := g.Eval([]byte{8})
	require.NoError(t, err)
	require.Equal(t, a, again)
}

func TestEvalDeterministicFromSeed(t *testing.T) {
	var seed [32]byte
	seed[0] = 42
	newTree := func() *GGM {
		rng, err := common.NewCPRNG(&seed)
		require.NoError(t, err)
		g, err := SetupWithRand(rng, 2)
		require.NoError(t, err)
		return g
	}

	g1, g2 := newTree(), newTree()
	for _, x := range [][]byte{{0, 0}, {1, 2}, {255, 255}} {
		o1, err := g1.Eval(x)
		require.NoError(t, err)
		o2, err := g2.Eval(x)
		require.NoError(t, err)
		require.Equal(t, o1, o2)
	}
}

func TestPunctureFailEval(t *testing.T) {
	g := setup(t)
	x0 := []byte{8}
	x1 := []byte{7}

	_, err := g.Eval(x0)
	require.NoError(t, err)
	b, err := g.Eval(x1)
	require.NoError(t, err)

	require.NoError(t, g.Puncture(x0))

	_, err = g.Eval(x0)
	require.True(t, errors.Is(err, ErrNoPrefixFound), "unexpected error %v", err)

	after, err := g.Eval(x1)
	require.NoError(t, err)
	require.Equal(t, b, after)
}

func TestMultiplePunctureFailEval(t *testing.T) {
	g := setup(t)
	require.NoError(t, g.Puncture([]byte{0}))
	require.NoError(t, g.Puncture([]byte{1}))

	for _, x := range [][]byte{{0}, {1}} {
		_, err := g.Eval(x)
		require.True(t, errors.Is(err, ErrNoPrefixFound))
	}
}

func TestPunctureEvalConsistent(t *testing.T) {
	g := setup(t)
	before := evalAll(t, g, powersOfTwo)

	require.NoError(t, g.Puncture([]byte{0}))
	require.Equal(t, before, evalAll(t, g, powersOfTwo))
}

func TestMultiplePuncture(t *testing.T) {
	g := setup(t)
	before := evalAll(t, g, powersOfTwo)

	require.NoError(t, g.Puncture([]byte{0}))
	require.Equal(t, before, evalAll(t, g, powersOfTwo))

	require.NoError(t, g.Puncture([]byte{1}))
	require.Equal(t, before, evalAll(t, g, powersOfTwo))
}

func TestPunctureLocality(t *testing.T) {
	g := setup(t)
	all := make([][]byte, 256)
	for i := range all {
		all[i] = []byte{byte(i)}
	}
	before := evalAll(t, g, all)

	punctured := map[int]bool{}
	for _, x := range []int{77, 3, 200, 78, 0, 255} {
		require.NoError(t, g.Puncture([]byte{byte(x)}))
		punctured[x] = true

		for i, in := range all {
			out, err := g.Eval(in)
			if punctured[i] {
				require.True(t, errors.Is(err, ErrNoPrefixFound), "input %d", i)
				continue
			}
			require.NoError(t, err)
			require.Equal(t, before[i], out, "input %d changed after puncturing %d", i, x)
		}
	}
}

func TestPunctureTwice(t *testing.T) {
	g := setup(t)

	// The first puncture splits a depth-1 node.
	require.NoError(t, g.Puncture([]byte{5}))
	err := g.Puncture([]byte{5})
	require.True(t, errors.Is(err, ErrAlreadyPunctured), "unexpected error %v", err)

	// Its sibling leaf is now covered by an exact-length node.
	require.NoError(t, g.Puncture([]byte{5 ^ 128}))
	err = g.Puncture([]byte{5 ^ 128})
	require.True(t, errors.Is(err, ErrAlreadyPunctured), "unexpected error %v", err)
}

func TestPunctureAll(t *testing.T) {
	g := setup(t)
	for i := 0; i < 256; i++ {
		require.NoError(t, g.Puncture([]byte{byte(i)}), "puncture %d", i)
	}
	require.Empty(t, g.key.frontier)
	require.Len(t, g.key.punctured, 256)

	for i := 0; i < 256; i++ {
		_, err := g.Eval([]byte{byte(i)})
		require.True(t, errors.Is(err, ErrNoPrefixFound))
	}
}

func TestFrontierAntichain(t *testing.T) {
	g := setup(t)
	for _, x := range []byte{9, 200, 13, 14, 15, 1} {
		require.NoError(t, g.Puncture([]byte{x}))

		covered := 0
		for i, a := range g.key.frontier {
			covered += 1 << (8 - a.prefix.len())
			for j, b := range g.key.frontier {
				if i != j {
					require.False(t, a.prefix.hasPrefix(b.prefix), "%v covers %v", b.prefix, a.prefix)
				}
			}
		}
		require.Equal(t, 256-len(g.key.punctured), covered)
	}
}

func TestLengthMismatch(t *testing.T) {
	g := setup(t)
	before := evalAll(t, g, powersOfTwo)
	frontier := len(g.key.frontier)

	for _, x := range [][]byte{nil, {}, {1, 2}, {1, 2, 3, 4}} {
		_, err := g.Eval(x)
		require.True(t, errors.Is(err, ErrLengthMismatch), "eval %v: %v", x, err)
		err = g.Puncture(x)
		require.True(t, errors.Is(err, ErrLengthMismatch), "puncture %v: %v", x, err)
	}

	require.Len(t, g.key.frontier, frontier)
	require.Empty(t, g.key.punctured)
	require.Equal(t, before, evalAll(t, g, powersOfTwo))
}

func TestWideInputs(t *testing.T) {
	g, err := SetupWithRand(rand.Reader, 2)
	require.NoError(t, err)
	require.Equal(t, 2, g.InputLen())

	inputs := [][]byte{{0, 0}, {1, 0}, {0, 1}, {255, 255}, {17, 34}}
	before := evalAll(t, g, inputs)

	require.NoError(t, g.Puncture([]byte{0, 0}))
	_, err = g.Eval([]byte{0, 0})
	require.True(t, errors.Is(err, ErrNoPrefixFound))
	require.Equal(t, before[1:], evalAll(t, g, inputs[1:]))

	// Puncturing a 16-bit leaf under a depth-1 node adds 15 siblings.
	require.Len(t, g.key.frontier, 1+15)
}

func TestSetupInvalidWidth(t *testing.T) {
	_, err := SetupWithRand(rand.Reader, 0)
	require.Error(t, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy source exhausted")
}

func TestSetupRandFailure(t *testing.T) {
	_, err := SetupWithRand(failingReader{}, 1)
	require.Error(t, err)
}
