package ppoprf

import (
	"crypto/rand"
	"sync"
	"testing"

	"github.com/go-errors/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/gtank/ristretto255"
	"github.com/privacybydesign/ppoprf/ggm"
	"github.com/privacybydesign/ppoprf/internal/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func init() {
	Logger.SetLevel(logrus.FatalLevel)
}

func allTags() []uint8 {
	tags := make([]uint8, MaxTag+1)
	for i := range tags {
		tags[i] = uint8(i)
	}
	return tags
}

func newTestServer(t *testing.T, tags ...uint8) *Server {
	if len(tags) == 0 {
		tags = allTags()
	}
	s, err := NewServer(tags)
	require.NoError(t, err)
	return s
}

// evaluate runs the full client flow for input under tag.
func evaluate(t *testing.T, s *Server, input []byte, tag uint8) []byte {
	blinded, r, err := Blind(rand.Reader, input)
	require.NoError(t, err)
	eval, err := s.Eval(blinded, tag, true)
	require.NoError(t, err)
	require.NoError(t, Verify(s.PublicKey(), blinded, eval, tag))
	return Finalize(input, tag, Unblind(eval.Output, r))
}

func TestObliviousEvaluation(t *testing.T) {
	s := newTestServer(t, 1, 2, 3)
	input := []byte("some client measurement")

	a := evaluate(t, s, input, 1)
	require.Len(t, a, OutputLen)

	// Blinding is randomized, the output is not.
	require.Equal(t, a, evaluate(t, s, input, 1))

	require.NotEqual(t, a, evaluate(t, s, input, 2))
	require.NotEqual(t, a, evaluate(t, s, []byte("other measurement"), 1))
}

func TestUnblindMatchesDirectEvaluation(t *testing.T) {
	s := newTestServer(t, 7)
	input := []byte("input")

	blinded, r, err := Blind(rand.Reader, input)
	require.NoError(t, err)
	eval, err := s.Eval(blinded, 7, false)
	require.NoError(t, err)
	require.Nil(t, eval.Proof)

	direct, err := s.Eval(HashToGroup(input), 7, false)
	require.NoError(t, err)
	require.Equal(t, 1, Unblind(eval.Output, r).Equal(direct.Output))
}

func TestVerifyRejects(t *testing.T) {
	s := newTestServer(t, 1, 2)
	blinded, _, err := Blind(rand.Reader, []byte("input"))
	require.NoError(t, err)
	eval, err := s.Eval(blinded, 1, true)
	require.NoError(t, err)
	pk := s.PublicKey()

	require.NoError(t, Verify(pk, blinded, eval, 1))

	err = Verify(pk, blinded, eval, 2)
	require.True(t, errors.Is(err, ErrInvalidProof), "wrong tag: %v", err)

	err = Verify(pk, blinded, eval, 3)
	require.True(t, errors.Is(err, ErrUnknownTag), "unknown tag: %v", err)

	other, _, err := Blind(rand.Reader, []byte("input"))
	require.NoError(t, err)
	err = Verify(pk, other, eval, 1)
	require.True(t, errors.Is(err, ErrInvalidProof), "wrong point: %v", err)

	tampered := &Evaluation{Output: eval.Output, Proof: &Proof{C: eval.Proof.C, S: ristretto255.NewScalar().Add(eval.Proof.S, eval.Proof.C)}}
	err = Verify(pk, blinded, tampered, 1)
	require.True(t, errors.Is(err, ErrInvalidProof), "tampered proof: %v", err)

	err = Verify(pk, blinded, &Evaluation{Output: eval.Output}, 1)
	require.True(t, errors.Is(err, ErrInvalidProof), "missing proof: %v", err)
}

func TestPuncture(t *testing.T) {
	s := newTestServer(t)
	input := []byte("input")
	before := evaluate(t, s, input, 8)
	other := evaluate(t, s, input, 7)

	require.NoError(t, s.Puncture(8))

	_, err := s.Eval(HashToGroup(input), 8, false)
	require.True(t, errors.Is(err, ggm.ErrNoPrefixFound), "unexpected error %v", err)
	require.NotContains(t, s.PublicKey().Tags, uint8(8))
	require.NotContains(t, s.Tags(), uint8(8))

	require.Equal(t, other, evaluate(t, s, input, 7))
	require.NotEqual(t, before, other)

	err = s.Puncture(8)
	require.True(t, errors.Is(err, ggm.ErrAlreadyPunctured), "unexpected error %v", err)
}

func TestPunctureKeepsOtherTags(t *testing.T) {
	s := newTestServer(t)
	pk := s.PublicKey()
	input := []byte("input")
	tags := []uint8{2, 4, 8, 16, 32, 64, 128}

	before := make([][]byte, len(tags))
	for i, tag := range tags {
		before[i] = evaluate(t, s, input, tag)
	}

	require.NoError(t, s.Puncture(0))
	require.NoError(t, s.Puncture(1))

	for i, tag := range tags {
		require.Equal(t, before[i], evaluate(t, s, input, tag))
		require.Equal(t, 1, pk.Tags[tag].Equal(s.PublicKey().Tags[tag]))
	}
}

func TestUnknownTag(t *testing.T) {
	s := newTestServer(t, 5)
	_, err := s.Eval(HashToGroup([]byte("x")), 6, false)
	require.True(t, errors.Is(err, ErrUnknownTag))
	require.True(t, errors.Is(s.Puncture(6), ErrUnknownTag))

	_, err = NewServer(nil)
	require.True(t, errors.Is(err, ErrNoTags))
}

func TestEvalBytes(t *testing.T) {
	s := newTestServer(t, 0, 1)
	p := HashToGroup([]byte("x"))

	out, eval, err := s.EvalBytes(p.Bytes(), 1, true)
	require.NoError(t, err)
	require.Len(t, out, CompressedPointLen)
	require.Equal(t, eval.Output.Bytes(), out)
	require.NoError(t, Verify(s.PublicKey(), p, eval, 1))

	_, _, err = s.EvalBytes(p.Bytes(), 256, false)
	require.True(t, errors.Is(err, ErrTagOutOfRange))
	_, _, err = s.EvalBytes(p.Bytes(), -1, false)
	require.True(t, errors.Is(err, ErrTagOutOfRange))

	bad := make([]byte, CompressedPointLen)
	for i := range bad {
		bad[i] = 0xff
	}
	_, _, err = s.EvalBytes(bad, 0, false)
	require.True(t, errors.Is(err, ErrInvalidPoint))

	// The identity encodes as all zeroes and is refused.
	_, _, err = s.EvalBytes(make([]byte, CompressedPointLen), 0, false)
	require.True(t, errors.Is(err, ErrInvalidPoint))
}

func TestDeterministicServer(t *testing.T) {
	newServer := func() *Server {
		var seed [32]byte
		seed[31] = 1
		rng, err := common.NewCPRNG(&seed)
		require.NoError(t, err)
		s, err := NewServerWithRand(rng, []uint8{1, 2})
		require.NoError(t, err)
		return s
	}
	a, b := newServer(), newServer()

	encA, err := a.PublicKey().MarshalBinary()
	require.NoError(t, err)
	encB, err := b.PublicKey().MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, encA, encB)
}

func TestPublicKeyEncoding(t *testing.T) {
	s := newTestServer(t, 3, 1, 2)
	require.NoError(t, s.Puncture(2))
	pk := s.PublicKey()

	bts, err := pk.MarshalBinary()
	require.NoError(t, err)

	var decoded ServerPublicKey
	require.NoError(t, decoded.UnmarshalBinary(bts))
	require.Equal(t, 1, pk.Base.Equal(decoded.Base))

	tagsOf := func(pk *ServerPublicKey) map[uint8][]byte {
		m := map[uint8][]byte{}
		for tag, e := range pk.Tags {
			m[tag] = e.Bytes()
		}
		return m
	}
	if diff := cmp.Diff(tagsOf(pk), tagsOf(&decoded)); diff != "" {
		t.Errorf("decoded public key differs (-want +got):\n%s", diff)
	}

	id, err := pk.ID()
	require.NoError(t, err)
	decodedID, err := decoded.ID()
	require.NoError(t, err)
	require.Equal(t, id, decodedID)

	require.Error(t, decoded.UnmarshalBinary([]byte{0xff}))
}

func TestPublicKeyCopy(t *testing.T) {
	s := newTestServer(t, 1, 2)
	pk := s.PublicKey()
	delete(pk.Tags, 1)
	require.Equal(t, []uint8{1, 2}, s.Tags())
}

func TestProofEncoding(t *testing.T) {
	s := newTestServer(t, 1)
	p := HashToGroup([]byte("x"))
	eval, err := s.Eval(p, 1, true)
	require.NoError(t, err)

	bts, err := eval.Proof.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, bts, ProofSize)

	var proof Proof
	require.NoError(t, proof.UnmarshalBinary(bts))
	require.NoError(t, Verify(s.PublicKey(), p, &Evaluation{Output: eval.Output, Proof: &proof}, 1))

	require.True(t, errors.Is(proof.UnmarshalBinary(bts[1:]), ErrInvalidProof))
}

func TestConcurrentEvalAndPuncture(t *testing.T) {
	s := newTestServer(t)
	input := []byte("input")
	want := evaluate(t, s, input, 200)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				blinded, r, err := Blind(rand.Reader, input)
				if err != nil {
					t.Error(err)
					return
				}
				eval, err := s.Eval(blinded, 200, false)
				if err != nil {
					t.Error(err)
					return
				}
				if got := Finalize(input, 200, Unblind(eval.Output, r)); !cmp.Equal(got, want) {
					t.Errorf("evaluation changed during concurrent punctures")
					return
				}
			}
		}()
	}
	for tag := 0; tag < 100; tag++ {
		require.NoError(t, s.Puncture(uint8(tag)))
	}
	wg.Wait()
}

func TestConcurrentVerifiableEvalSharedRand(t *testing.T) {
	var seed [32]byte
	rng, err := common.NewCPRNG(&seed)
	require.NoError(t, err)
	s, err := NewServerWithRand(rng, []uint8{4})
	require.NoError(t, err)
	pk := s.PublicKey()
	p := HashToGroup([]byte("input"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				eval, err := s.Eval(p, 4, true)
				if err != nil {
					t.Error(err)
					return
				}
				if err = Verify(pk, p, eval, 4); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
