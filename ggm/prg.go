package ggm

import (
	"crypto/hmac"
	"crypto/sha256"
	"io"

	"github.com/go-errors/errors"
)

const (
	// SecretSize is the size in bytes of the root secret and of each PRG key.
	SecretSize = 32

	// OutputSize is the size in bytes of every node value and of PRF outputs.
	OutputSize = sha256.Size
)

// prg is a length-preserving keyed expansion function. A puncturable key holds
// two of them, one for each direction taken down the tree.
type prg struct {
	key []byte
}

func newPRG(rand io.Reader) (*prg, error) {
	key, err := sampleSecret(rand)
	if err != nil {
		return nil, err
	}
	return &prg{key: key}, nil
}

func (g *prg) eval(input []byte) [OutputSize]byte {
	var out [OutputSize]byte
	mac := hmac.New(sha256.New, g.key)
	mac.Write(input)
	mac.Sum(out[:0])
	return out
}

func sampleSecret(rand io.Reader) ([]byte, error) {
	secret := make([]byte, SecretSize)
	if _, err := io.ReadFull(rand, secret); err != nil {
		return nil, errors.WrapPrefix(err, "failed to sample secret", 0)
	}
	return secret, nil
}
