package ppoprf

import (
	"crypto/rand"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/go-errors/errors"
	"github.com/gtank/ristretto255"
	"github.com/privacybydesign/ppoprf/ggm"
	"github.com/privacybydesign/ppoprf/internal/common"
	"github.com/sirupsen/logrus"
)

const (
	// CompressedPointLen is the size in bytes of an encoded ristretto255 element.
	CompressedPointLen = 32

	// ScalarLen is the size in bytes of an encoded ristretto255 scalar.
	ScalarLen = 32

	// MaxTag is the largest metadata tag; tags are the one-byte inputs of the
	// puncturable PRF.
	MaxTag = 255

	tagKeyInfo    = "ppoprf tag key"
	dleqLabel     = "ppoprf dleq"
	finalizeLabel = "ppoprf finalize"
	hashLabel     = "ppoprf hash to group"
)

var (
	ErrUnknownTag    = errors.New("unknown metadata tag")
	ErrTagOutOfRange = errors.New("metadata index out of range")
	ErrInvalidPoint  = errors.New("invalid ristretto255 point")
	ErrInvalidProof  = errors.New("invalid evaluation proof")
	ErrNoTags        = errors.New("server needs at least one metadata tag")
)

type (
	// Server evaluates the puncturable partially-oblivious PRF. The key for
	// metadata tag t is x + t', where x is the server's OPRF scalar and t' is
	// derived from the output of a puncturable PRF at t. Puncturing t makes t'
	// unrecoverable from the server state, and with it every evaluation under t.
	//
	// A Server is safe for concurrent use: evaluations share a read lock, and
	// punctures take the write lock for their whole duration.
	Server struct {
		mu        sync.RWMutex
		rand      io.Reader
		oprfKey   *ristretto255.Scalar
		pprf      ggm.PPRF
		tags      map[uint8]struct{}
		publicKey *ServerPublicKey
	}

	// Evaluation is the result of evaluating a blinded point. Proof is nil
	// unless a verifiable evaluation was requested.
	Evaluation struct {
		Output *ristretto255.Element
		Proof  *Proof
	}
)

// NewServer creates a server with a fresh key for the given metadata tags.
func NewServer(tags []uint8) (*Server, error) {
	return NewServerWithRand(rand.Reader, tags)
}

// NewServerWithRand creates a server for the given metadata tags, sampling its
// keys and proof nonces from rand. Concurrent Eval calls read from rand at the
// same time, so it must be safe for concurrent use, as crypto/rand.Reader and
// common.CPRNG are.
func NewServerWithRand(rand io.Reader, tags []uint8) (*Server, error) {
	if len(tags) == 0 {
		return nil, ErrNoTags
	}
	pprf, err := ggm.SetupWithRand(rand, ggm.DefaultInputLen)
	if err != nil {
		return nil, err
	}
	x, err := common.RandomScalar(rand)
	if err != nil {
		return nil, errors.WrapPrefix(err, "failed to sample oprf key", 0)
	}

	s := &Server{
		rand:    rand,
		oprfKey: x,
		pprf:    pprf,
		tags:    make(map[uint8]struct{}, len(tags)),
		publicKey: &ServerPublicKey{
			Base: ristretto255.NewIdentityElement().ScalarBaseMult(x),
			Tags: make(map[uint8]*ristretto255.Element, len(tags)),
		},
	}
	for _, tag := range tags {
		t, err := s.tagScalar(tag)
		if err != nil {
			return nil, err
		}
		s.tags[tag] = struct{}{}
		s.publicKey.Tags[tag] = ristretto255.NewIdentityElement().ScalarBaseMult(t)
	}

	Logger.WithField("tags", len(s.tags)).Debug("created ppoprf server")
	return s, nil
}

// tagScalar derives the scalar t' for tag from the puncturable PRF.
func (s *Server) tagScalar(tag uint8) (*ristretto255.Scalar, error) {
	out, err := s.pprf.Eval([]byte{tag})
	if err != nil {
		return nil, errors.WrapPrefix(err, fmt.Sprintf("metadata tag %d", tag), 0)
	}
	return common.ExpandScalar(out, tagKeyInfo), nil
}

// Eval evaluates the PRF at the (blinded) point p under the given metadata tag:
// the output is (x + t')^-1 * p. If verifiable is set, the evaluation includes a
// proof that it was computed with the key published for tag.
func (s *Server) Eval(p *ristretto255.Element, tag uint8, verifiable bool) (*Evaluation, error) {
	if p == nil || p.Equal(ristretto255.NewIdentityElement()) == 1 {
		return nil, ErrInvalidPoint
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.tags[tag]; !ok {
		return nil, ErrUnknownTag
	}
	t, err := s.tagScalar(tag)
	if err != nil {
		return nil, err
	}
	k := ristretto255.NewScalar().Add(s.oprfKey, t)
	kinv := ristretto255.NewScalar().Invert(k)
	eval := &Evaluation{Output: ristretto255.NewIdentityElement().ScalarMult(kinv, p)}

	if verifiable {
		y := ristretto255.NewIdentityElement().ScalarBaseMult(k)
		if eval.Proof, err = newProof(s.rand, k, y, eval.Output, p); err != nil {
			return nil, err
		}
	}
	return eval, nil
}

// EvalBytes is Eval for callers holding an encoded point and an untyped
// metadata index. It returns the encoded output alongside the evaluation.
func (s *Server) EvalBytes(point []byte, mdIndex int, verifiable bool) ([]byte, *Evaluation, error) {
	if mdIndex < 0 || mdIndex > MaxTag {
		return nil, nil, errors.WrapPrefix(ErrTagOutOfRange, fmt.Sprintf("index %d", mdIndex), 0)
	}
	p, err := ristretto255.NewIdentityElement().SetCanonicalBytes(point)
	if err != nil {
		return nil, nil, ErrInvalidPoint
	}
	eval, err := s.Eval(p, uint8(mdIndex), verifiable)
	if err != nil {
		return nil, nil, err
	}
	return eval.Output.Bytes(), eval, nil
}

// Puncture removes the metadata tag from the server: later evaluations under
// it fail, and its key is removed from the public key. Puncturing a tag twice
// returns ggm.ErrAlreadyPunctured.
func (s *Server) Puncture(tag uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tags[tag]; !ok {
		return ErrUnknownTag
	}
	if err := s.pprf.Puncture([]byte{tag}); err != nil {
		return errors.WrapPrefix(err, fmt.Sprintf("metadata tag %d", tag), 0)
	}
	delete(s.publicKey.Tags, tag)

	Logger.WithFields(logrus.Fields{"tag": tag, "remaining": len(s.publicKey.Tags)}).Info("punctured metadata tag")
	return nil
}

// PublicKey returns a copy of the server's current public key.
func (s *Server) PublicKey() *ServerPublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publicKey.Copy()
}

// Tags returns the metadata tags that can still be evaluated, in increasing
// order.
func (s *Server) Tags() []uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tags := make([]uint8, 0, len(s.publicKey.Tags))
	for tag := range s.publicKey.Tags {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}
