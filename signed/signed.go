// Package signed signs CBOR-encoded messages with ECDSA P-256, and contains
// the PEM key handling needed to load and publish the signing keys.
package signed

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"io"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/ppoprf/cbor"
)

var (
	ErrInvalidSignature = errors.New("ecdsa signature was invalid")
	ErrInvalidKey       = errors.New("invalid ecdsa key")
)

type (
	// Message is a signed message, created by MarshalSign and verified and
	// parsed by UnmarshalVerify.
	Message []byte

	// message-signature tuple
	tuple struct {
		Msg, Sig []byte
	}
)

func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// Key (un)marshaling

func UnmarshalPublicKey(bts []byte) (*ecdsa.PublicKey, error) {
	genericPk, err := x509.ParsePKIXPublicKey(bts)
	if err != nil {
		return nil, errors.WrapPrefix(ErrInvalidKey, err.Error(), 0)
	}
	pk, ok := genericPk.(*ecdsa.PublicKey)
	if !ok {
		return nil, ErrInvalidKey
	}
	return pk, nil
}

func MarshalPublicKey(pk *ecdsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pk)
}

func MarshalPemPublicKey(pk *ecdsa.PublicKey) ([]byte, error) {
	bts, err := MarshalPublicKey(pk)
	if err != nil {
		return nil, errors.WrapPrefix(err, "failed to serialize public key", 0)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: bts}), nil
}

func UnmarshalPemPrivateKey(bts []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(bts)
	if block == nil || block.Type != "EC PRIVATE KEY" {
		return nil, errors.WrapPrefix(ErrInvalidKey, "no EC PRIVATE KEY block found", 0)
	}
	sk, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.WrapPrefix(ErrInvalidKey, err.Error(), 0)
	}
	return sk, nil
}

func MarshalPemPrivateKey(sk *ecdsa.PrivateKey) ([]byte, error) {
	bts, err := x509.MarshalECPrivateKey(sk)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: bts}), nil
}

// Sign and verify bytes

func Sign(rand io.Reader, sk *ecdsa.PrivateKey, bts []byte) ([]byte, error) {
	hash := sha256.Sum256(bts)
	return ecdsa.SignASN1(rand, sk, hash[:])
}

func Verify(pk *ecdsa.PublicKey, bts []byte, signature []byte) error {
	hash := sha256.Sum256(bts)
	if !ecdsa.VerifyASN1(pk, hash[:], signature) {
		return ErrInvalidSignature
	}
	return nil
}

// MarshalSign encodes message to CBOR, signs the encoding, and returns the
// message-signature pair, itself CBOR encoded.
func MarshalSign(sk *ecdsa.PrivateKey, message interface{}) (Message, error) {
	bts, err := cbor.Marshal(message)
	if err != nil {
		return nil, err
	}
	signature, err := Sign(rand.Reader, sk, bts)
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(&tuple{bts, signature})
}

// UnmarshalVerify verifies the signature of a Message created by MarshalSign,
// and decodes the message into dst.
func UnmarshalVerify(pk *ecdsa.PublicKey, signed Message, dst interface{}) error {
	var tmp tuple
	if err := cbor.Unmarshal(signed, &tmp); err != nil {
		return err
	}
	if err := Verify(pk, tmp.Msg, tmp.Sig); err != nil {
		return err
	}
	return cbor.Unmarshal(tmp.Msg, dst)
}
