package common

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"io"

	"github.com/gtank/ristretto255"
	"golang.org/x/crypto/hkdf"
)

// UniformBytes is the length of the input accepted by the ristretto255
// SetUniformBytes functions.
const UniformBytes = 64

// HashToElement maps input to a ristretto255 element, using the label for
// domain separation.
func HashToElement(label string, input []byte) *ristretto255.Element {
	h := sha512.New()
	writeLengthPrefixed(h, []byte(label))
	writeLengthPrefixed(h, input)
	e, err := ristretto255.NewIdentityElement().SetUniformBytes(h.Sum(nil))
	if err != nil {
		panic(err) // sha512 output always has the right length
	}
	return e
}

// ExpandScalar derives a ristretto255 scalar from secret key material by
// expanding it with HKDF-SHA256 under the given info string.
func ExpandScalar(secret []byte, info string) *ristretto255.Scalar {
	buf := make([]byte, UniformBytes)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), buf); err != nil {
		panic(err) // 64 bytes is far below the HKDF output limit
	}
	s, err := ristretto255.NewScalar().SetUniformBytes(buf)
	if err != nil {
		panic(err)
	}
	return s
}

// RandomScalar samples a uniformly random scalar from rand.
func RandomScalar(rand io.Reader) (*ristretto255.Scalar, error) {
	buf := make([]byte, UniformBytes)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return nil, err
	}
	return ristretto255.NewScalar().SetUniformBytes(buf)
}

func writeLengthPrefixed(w io.Writer, b []byte) {
	var l [8]byte
	binary.BigEndian.PutUint64(l[:], uint64(len(b)))
	_, _ = w.Write(l[:])
	_, _ = w.Write(b)
}
