package ppoprf

import (
	"io"

	"github.com/go-errors/errors"
	"github.com/gtank/merlin"
	"github.com/gtank/ristretto255"
	"github.com/privacybydesign/ppoprf/internal/common"
)

// OutputLen is the size in bytes of the randomness returned by Finalize.
const OutputLen = 32

// HashToGroup maps a client input to the group element that gets evaluated.
func HashToGroup(input []byte) *ristretto255.Element {
	return common.HashToElement(hashLabel, input)
}

// Blind hashes input to the group and multiplies it by a random blinding
// scalar r, so that the server learns nothing about input. Keep r for Unblind.
func Blind(rand io.Reader, input []byte) (blinded *ristretto255.Element, r *ristretto255.Scalar, err error) {
	r, err = common.RandomScalar(rand)
	if err != nil {
		return nil, nil, errors.WrapPrefix(err, "failed to sample blinding scalar", 0)
	}
	return ristretto255.NewIdentityElement().ScalarMult(r, HashToGroup(input)), r, nil
}

// Unblind removes the blinding scalar from an evaluated element.
func Unblind(evaluated *ristretto255.Element, r *ristretto255.Scalar) *ristretto255.Element {
	rinv := ristretto255.NewScalar().Invert(r)
	return ristretto255.NewIdentityElement().ScalarMult(rinv, evaluated)
}

// Verify checks the proof of a verifiable evaluation of blinded under tag
// against the server public key.
func Verify(pk *ServerPublicKey, blinded *ristretto255.Element, eval *Evaluation, tag uint8) error {
	if eval == nil || eval.Output == nil || eval.Proof == nil {
		return errors.WrapPrefix(ErrInvalidProof, "evaluation carries no proof", 0)
	}
	y, err := pk.Get(tag)
	if err != nil {
		return err
	}
	if !eval.Proof.verify(y, eval.Output, blinded) {
		return ErrInvalidProof
	}
	return nil
}

// Finalize derives OutputLen bytes of randomness from the client input, the
// metadata tag and the unblinded evaluation.
func Finalize(input []byte, tag uint8, unblinded *ristretto255.Element) []byte {
	t := merlin.NewTranscript(finalizeLabel)
	t.AppendMessage([]byte("input"), input)
	t.AppendMessage([]byte("tag"), []byte{tag})
	t.AppendMessage([]byte("evaluation"), unblinded.Bytes())
	return t.ExtractBytes([]byte("output"), OutputLen)
}
