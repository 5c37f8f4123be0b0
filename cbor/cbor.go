// Package cbor wraps github.com/fxamacker/cbor with the encoding and decoding
// modes used for everything this module puts on the wire: public keys, proofs,
// signed messages and the bodies of the randomness service.
//
// Encoding follows the Core Deterministic Encoding of RFC 8949, so that equal
// values always encode to equal bytes and encodings can be hashed or signed.
// Decoding rejects duplicate map keys and indefinite lengths, and bounds the
// size of arrays and maps.
package cbor

import (
	"io"

	"github.com/fxamacker/cbor/v2" // imports as cbor
)

// ContentType is the media type of CBOR encoded HTTP bodies.
const ContentType = "application/cbor"

const MaxArrayElements = 1024 * 16
const MaxMapPairs = 1024

var (
	encOptions = cbor.EncOptions{
		InfConvert:    cbor.InfConvertFloat16,
		IndefLength:   cbor.IndefLengthForbidden,
		NaNConvert:    cbor.NaNConvert7e00,
		ShortestFloat: cbor.ShortestFloat16,
		Sort:          cbor.SortCoreDeterministic,
		TagsMd:        cbor.TagsForbidden,
	}

	decOptions = cbor.DecOptions{
		IndefLength:       cbor.IndefLengthForbidden,
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements:  MaxArrayElements,
		MaxMapPairs:       MaxMapPairs,
		TagsMd:            cbor.TagsForbidden,
		TimeTag:           cbor.DecTagIgnored,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}

	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = encOptions.EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = decOptions.DecMode(); err != nil {
		panic(err)
	}
}

// Marshal encodes src into a CBOR-encoded byte slice.
func Marshal(src interface{}) ([]byte, error) {
	return encMode.Marshal(src)
}

// Unmarshal decodes CBOR in data into dst.
func Unmarshal(data []byte, dst interface{}) error {
	return decMode.Unmarshal(data, dst)
}

// NewEncoder creates a new CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a new CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
