// Command ffi builds a C library exposing the ppoprf server:
//
//	go build -buildmode=c-shared -o libppoprf.so ./ffi
//
// Servers are referred to by opaque handles. Every handle returned by
// randomness_server_create must be passed to randomness_server_release exactly
// once. Calls on the same handle from several threads are safe, as the server
// serializes punctures against evaluations itself.
package main

/*
#include <stdbool.h>
#include <stddef.h>
#include <stdint.h>
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/ppoprf"
	"github.com/privacybydesign/ppoprf/ggm"
)

// main is required to build a shared library, but does nothing
func main() {}

//export randomness_server_create
func randomness_server_create() C.uintptr_t {
	h, err := createServer()
	if err != nil {
		ppoprf.Logger.WithError(err).Error("failed to create server")
		return 0
	}
	return C.uintptr_t(h)
}

//export randomness_server_release
func randomness_server_release(h C.uintptr_t) C.int {
	return code(releaseServer(cgo.Handle(h)))
}

//export randomness_server_eval
func randomness_server_eval(h C.uintptr_t, input *C.uint8_t, mdIndex C.size_t, verifiable C.bool, output *C.uint8_t) C.int {
	if input == nil || output == nil {
		return code(ErrBufferLength)
	}
	in := C.GoBytes(unsafe.Pointer(input), ppoprf.CompressedPointLen)
	out := unsafe.Slice((*byte)(unsafe.Pointer(output)), ppoprf.CompressedPointLen)
	return code(evalServer(cgo.Handle(h), in, int(mdIndex), bool(verifiable), out))
}

//export randomness_server_puncture
func randomness_server_puncture(h C.uintptr_t, md C.uint8_t) C.int {
	return code(punctureServer(cgo.Handle(h), uint8(md)))
}

func code(err error) C.int {
	return C.int(errorCode(err))
}

func errorCode(err error) int {
	switch {
	case err == nil:
		return codeOK
	case errors.Is(err, ErrNullHandle):
		return codeNullHandle
	case errors.Is(err, ErrInvalidHandle):
		return codeInvalidHandle
	case errors.Is(err, ErrBufferLength):
		return codeBufferLength
	case errors.Is(err, ppoprf.ErrInvalidPoint), errors.Is(err, ppoprf.ErrTagOutOfRange):
		return codeInvalidInput
	case errors.Is(err, ppoprf.ErrUnknownTag):
		return codeUnknownTag
	case errors.Is(err, ggm.ErrNoPrefixFound), errors.Is(err, ggm.ErrAlreadyPunctured):
		return codePunctured
	default:
		ppoprf.Logger.WithError(err).Error("ffi call failed")
		return codeInternal
	}
}
