package ppoprf

import (
	"fmt"

	"github.com/go-errors/errors"
	"github.com/gtank/ristretto255"
	"github.com/multiformats/go-multihash"
	"github.com/privacybydesign/ppoprf/cbor"
)

type (
	// ServerPublicKey holds X = x*G and, for every metadata tag t that has not
	// been punctured, T = t'*G. Evaluations under t verify against X + T.
	ServerPublicKey struct {
		Base *ristretto255.Element
		Tags map[uint8]*ristretto255.Element
	}

	encodedPublicKey struct {
		Base []byte
		Tags map[uint8][]byte
	}
)

// Get returns the key X + T that evaluations under tag verify against.
func (pk *ServerPublicKey) Get(tag uint8) (*ristretto255.Element, error) {
	t, ok := pk.Tags[tag]
	if !ok {
		return nil, ErrUnknownTag
	}
	return ristretto255.NewIdentityElement().Add(pk.Base, t), nil
}

// Copy returns a copy of pk with its own tag map. The elements are shared, as
// they are never modified in place.
func (pk *ServerPublicKey) Copy() *ServerPublicKey {
	c := &ServerPublicKey{
		Base: pk.Base,
		Tags: make(map[uint8]*ristretto255.Element, len(pk.Tags)),
	}
	for tag, t := range pk.Tags {
		c.Tags[tag] = t
	}
	return c
}

// MarshalBinary encodes the public key as deterministic CBOR.
func (pk *ServerPublicKey) MarshalBinary() ([]byte, error) {
	enc := encodedPublicKey{
		Base: pk.Base.Bytes(),
		Tags: make(map[uint8][]byte, len(pk.Tags)),
	}
	for tag, t := range pk.Tags {
		enc.Tags[tag] = t.Bytes()
	}
	return cbor.Marshal(enc)
}

// UnmarshalBinary decodes a public key encoded by MarshalBinary.
func (pk *ServerPublicKey) UnmarshalBinary(data []byte) error {
	var enc encodedPublicKey
	if err := cbor.Unmarshal(data, &enc); err != nil {
		return errors.WrapPrefix(err, "failed to decode public key", 0)
	}
	base, err := ristretto255.NewIdentityElement().SetCanonicalBytes(enc.Base)
	if err != nil {
		return errors.WrapPrefix(ErrInvalidPoint, "public key base", 0)
	}
	tags := make(map[uint8]*ristretto255.Element, len(enc.Tags))
	for tag, b := range enc.Tags {
		if tags[tag], err = ristretto255.NewIdentityElement().SetCanonicalBytes(b); err != nil {
			return errors.WrapPrefix(ErrInvalidPoint, fmt.Sprintf("public key for tag %d", tag), 0)
		}
	}
	pk.Base, pk.Tags = base, tags
	return nil
}

// ID returns a base58 encoded SHA2-256 multihash of the encoded public key,
// suitable for identifying the key in logs and service metadata.
func (pk *ServerPublicKey) ID() (string, error) {
	bts, err := pk.MarshalBinary()
	if err != nil {
		return "", err
	}
	mh, err := multihash.Sum(bts, multihash.SHA2_256, -1)
	if err != nil {
		return "", errors.WrapPrefix(err, "failed to hash public key", 0)
	}
	return mh.B58String(), nil
}
