package ppoprf

import (
	"io"

	"github.com/go-errors/errors"
	"github.com/gtank/merlin"
	"github.com/gtank/ristretto255"
	"github.com/privacybydesign/ppoprf/internal/common"
)

// ProofSize is the size in bytes of an encoded Proof.
const ProofSize = 2 * ScalarLen

// Proof is a Chaum-Pedersen proof that two pairs of elements share the same
// discrete logarithm: Y = k*G and P = k*Q for the generator G, where Y is the
// public key of a metadata tag, Q the evaluated element and P the input point.
type Proof struct {
	C *ristretto255.Scalar
	S *ristretto255.Scalar
}

func newProof(rand io.Reader, k *ristretto255.Scalar, y, q, p *ristretto255.Element) (*Proof, error) {
	r, err := common.RandomScalar(rand)
	if err != nil {
		return nil, errors.WrapPrefix(err, "failed to sample proof nonce", 0)
	}
	a := ristretto255.NewIdentityElement().ScalarBaseMult(r)
	b := ristretto255.NewIdentityElement().ScalarMult(r, q)

	c := challenge(y, q, p, a, b)
	s := ristretto255.NewScalar().Multiply(c, k)
	s.Subtract(r, s)
	return &Proof{C: c, S: s}, nil
}

// verify checks the proof for the statement Y = k*G, P = k*Q.
func (pr *Proof) verify(y, q, p *ristretto255.Element) bool {
	if pr == nil || pr.C == nil || pr.S == nil {
		return false
	}
	// A = s*G + c*Y, B = s*Q + c*P
	a := ristretto255.NewIdentityElement().VarTimeDoubleScalarBaseMult(pr.C, y, pr.S)
	b := ristretto255.NewIdentityElement().VarTimeMultiScalarMult(
		[]*ristretto255.Scalar{pr.S, pr.C},
		[]*ristretto255.Element{q, p},
	)
	return challenge(y, q, p, a, b).Equal(pr.C) == 1
}

func challenge(y, q, p, a, b *ristretto255.Element) *ristretto255.Scalar {
	t := merlin.NewTranscript(dleqLabel)
	t.AppendMessage([]byte("G"), ristretto255.NewGeneratorElement().Bytes())
	t.AppendMessage([]byte("Y"), y.Bytes())
	t.AppendMessage([]byte("Q"), q.Bytes())
	t.AppendMessage([]byte("P"), p.Bytes())
	t.AppendMessage([]byte("A"), a.Bytes())
	t.AppendMessage([]byte("B"), b.Bytes())
	c, err := ristretto255.NewScalar().SetUniformBytes(t.ExtractBytes([]byte("challenge"), common.UniformBytes))
	if err != nil {
		panic(err) // ExtractBytes returns exactly the requested length
	}
	return c
}

// MarshalBinary encodes the proof as C || S.
func (pr *Proof) MarshalBinary() ([]byte, error) {
	if pr.C == nil || pr.S == nil {
		return nil, ErrInvalidProof
	}
	return append(pr.C.Bytes(), pr.S.Bytes()...), nil
}

// UnmarshalBinary decodes a proof encoded by MarshalBinary.
func (pr *Proof) UnmarshalBinary(data []byte) error {
	if len(data) != ProofSize {
		return errors.WrapPrefix(ErrInvalidProof, "wrong proof length", 0)
	}
	c, err := ristretto255.NewScalar().SetCanonicalBytes(data[:ScalarLen])
	if err != nil {
		return errors.WrapPrefix(ErrInvalidProof, err.Error(), 0)
	}
	s, err := ristretto255.NewScalar().SetCanonicalBytes(data[ScalarLen:])
	if err != nil {
		return errors.WrapPrefix(ErrInvalidProof, err.Error(), 0)
	}
	pr.C, pr.S = c, s
	return nil
}
