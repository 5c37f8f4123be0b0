package main

import (
	"fmt"
	"runtime/cgo"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/ppoprf"
)

var (
	ErrNullHandle    = errors.New("null server handle")
	ErrInvalidHandle = errors.New("invalid or released server handle")
	ErrBufferLength  = errors.New("buffer has the wrong length")
)

// Return codes of the exported functions.
const (
	codeOK = 0 - iota
	codeNullHandle
	codeInvalidHandle
	codeBufferLength
	codeInvalidInput
	codeUnknownTag
	codePunctured
	codeInternal
)

// createServer allocates a server for every one-byte metadata tag and returns
// a handle owning it. The handle must be released exactly once.
func createServer() (cgo.Handle, error) {
	tags := make([]uint8, ppoprf.MaxTag+1)
	for i := range tags {
		tags[i] = uint8(i)
	}
	s, err := ppoprf.NewServer(tags)
	if err != nil {
		return 0, err
	}
	return cgo.NewHandle(s), nil
}

// releaseServer frees the server owned by h.
func releaseServer(h cgo.Handle) error {
	return withServer(h, func(*ppoprf.Server) error {
		h.Delete()
		return nil
	})
}

func evalServer(h cgo.Handle, input []byte, mdIndex int, verifiable bool, output []byte) error {
	if len(input) != ppoprf.CompressedPointLen || len(output) != ppoprf.CompressedPointLen {
		return ErrBufferLength
	}
	return withServer(h, func(s *ppoprf.Server) error {
		out, _, err := s.EvalBytes(input, mdIndex, verifiable)
		if err != nil {
			return err
		}
		copy(output, out)
		return nil
	})
}

func punctureServer(h cgo.Handle, md uint8) error {
	return withServer(h, func(s *ppoprf.Server) error {
		return s.Puncture(md)
	})
}

// withServer resolves h and runs fn on its server.
func withServer(h cgo.Handle, fn func(*ppoprf.Server) error) error {
	s, err := resolve(h)
	if err != nil {
		return err
	}
	return fn(s)
}

// resolve returns the server owned by h. The panic raised by the cgo runtime
// for a released handle is returned as ErrInvalidHandle.
func resolve(h cgo.Handle) (s *ppoprf.Server, err error) {
	if h == 0 {
		return nil, ErrNullHandle
	}
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, errors.WrapPrefix(ErrInvalidHandle, fmt.Sprint(r), 0)
		}
	}()
	s, ok := h.Value().(*ppoprf.Server)
	if !ok {
		return nil, ErrInvalidHandle
	}
	return s, nil
}
