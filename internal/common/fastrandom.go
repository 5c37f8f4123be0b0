package common

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"sync/atomic"
)

// CPRNG is a simple thread-safe deterministic random number generator, for
// reproducible key generation in tests and tools. Implemented with AES in
// counter mode with the seed as key and an atomic uint64 as counter.
type CPRNG struct {
	block   cipher.Block
	counter uint64
}

func NewCPRNG(seed *[32]byte) (*CPRNG, error) {
	c, err := aes.NewCipher(seed[:])
	if err != nil {
		return nil, err
	}
	return &CPRNG{
		block:   c,
		counter: 0,
	}, nil
}

func (c *CPRNG) Read(buf []byte) (n int, err error) {
	var pt, ct [16]byte
	n = len(buf)
	if n == 0 {
		return
	}

	// Reserve all blocks needed for buf at once, so that concurrent readers
	// never share keystream.
	nBlocks := uint64(((len(buf) - 1) / 16) + 1)
	iv := atomic.AddUint64(&c.counter, nBlocks) - nBlocks
	for len(buf) > 0 {
		binary.LittleEndian.PutUint64(pt[:], iv)
		iv++

		if len(buf) >= 16 {
			c.block.Encrypt(buf, pt[:])
			buf = buf[16:]
			continue
		}
		c.block.Encrypt(ct[:], pt[:])
		copy(buf, ct[:len(buf)])
		break
	}
	return
}
