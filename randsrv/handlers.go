package randsrv

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/privacybydesign/ppoprf"
	"github.com/privacybydesign/ppoprf/cbor"
	"github.com/privacybydesign/ppoprf/ggm"
	"github.com/privacybydesign/ppoprf/signed"
	"github.com/sirupsen/logrus"
)

type (
	// InfoResponse describes the current state of the service.
	InfoResponse struct {
		CurrentEpoch uint8
		// NextEpochTime is the unix time at which the current epoch ends.
		NextEpochTime int64
		MaxPoints     int
		// PublicKey is the encoded ppoprf.ServerPublicKey of the current key.
		PublicKey []byte
		KeyID     string
		// SignedPublicKey is PublicKey signed by the service's signing key, if
		// it has one.
		SignedPublicKey signed.Message `cbor:",omitempty"`
	}

	// RandomnessRequest asks for the evaluation of blinded points. Epoch
	// defaults to the current epoch.
	RandomnessRequest struct {
		Points [][]byte
		Epoch  *uint8 `cbor:",omitempty"`
	}

	RandomnessResponse struct {
		Epoch  uint8
		Points [][]byte
		Proofs [][]byte
	}

	httpError struct {
		status int
		msg    string
	}
)

func (e *httpError) Error() string {
	return e.msg
}

func badRequest(format string, a ...interface{}) error {
	return &httpError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, a...)}
}

const requestIDHeader = "X-Request-Id"

// Handler returns the HTTP handler of the service.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/info", s.handle("info", http.MethodGet, s.info))
	mux.Handle("/randomness", s.handle("randomness", http.MethodPost, s.randomness))
	mux.Handle("/metrics", s.metrics.handler())
	return mux
}

// handle wraps fn with method checking, request IDs, CBOR encoding of the
// response, error mapping and metrics.
func (s *Service) handle(name, method string, fn func(*http.Request) (interface{}, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(requestIDHeader, id)
		log := Logger.WithFields(logrus.Fields{"requestID": id, "handler": name})

		status := http.StatusOK
		defer func() {
			s.metrics.requests.WithLabelValues(name, strconv.Itoa(status)).Inc()
		}()

		if r.Method != method {
			status = http.StatusMethodNotAllowed
			w.Header().Set("Allow", method)
			http.Error(w, http.StatusText(status), status)
			return
		}

		resp, err := fn(r)
		if err != nil {
			var herr *httpError
			if errors.As(err, &herr) {
				status = herr.status
				log.WithError(err).Warn("rejected request")
				http.Error(w, herr.msg, status)
			} else {
				status = http.StatusInternalServerError
				log.WithError(err).Error("failed to handle request")
				http.Error(w, http.StatusText(status), status)
			}
			return
		}

		bts, err := cbor.Marshal(resp)
		if err != nil {
			status = http.StatusInternalServerError
			log.WithError(err).Error("failed to encode response")
			http.Error(w, http.StatusText(status), status)
			return
		}
		w.Header().Set("Content-Type", cbor.ContentType)
		if _, err = w.Write(bts); err != nil {
			log.WithError(err).Warn("failed to write response")
		}
	})
}

func (s *Service) info(*http.Request) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &InfoResponse{
		CurrentEpoch:    s.epoch,
		NextEpochTime:   s.nextEpoch.Unix(),
		MaxPoints:       s.cfg.MaxPoints,
		PublicKey:       s.publicKey,
		KeyID:           s.keyID,
		SignedPublicKey: s.signature,
	}, nil
}

func (s *Service) randomness(r *http.Request) (interface{}, error) {
	// Room for MaxPoints points plus their CBOR framing.
	limit := int64(s.cfg.MaxPoints)*(ppoprf.CompressedPointLen+4) + 64
	var req RandomnessRequest
	if err := cbor.NewDecoder(io.LimitReader(r.Body, limit)).Decode(&req); err != nil {
		return nil, badRequest("malformed request: %v", err)
	}
	if len(req.Points) == 0 {
		return nil, badRequest("no points given")
	}
	if len(req.Points) > s.cfg.MaxPoints {
		return nil, badRequest("too many points: %d, at most %d allowed", len(req.Points), s.cfg.MaxPoints)
	}

	s.mu.RLock()
	server, current := s.server, s.epoch
	s.mu.RUnlock()

	epoch := current
	if req.Epoch != nil {
		epoch = *req.Epoch
	}
	if epoch < current || epoch > s.cfg.LastEpoch {
		return nil, badRequest("epoch %d is not available, current epoch is %d", epoch, current)
	}

	resp := &RandomnessResponse{
		Epoch:  epoch,
		Points: make([][]byte, len(req.Points)),
		Proofs: make([][]byte, len(req.Points)),
	}
	for i, p := range req.Points {
		out, eval, err := server.EvalBytes(p, int(epoch), true)
		switch {
		case errors.Is(err, ppoprf.ErrInvalidPoint):
			return nil, badRequest("point %d is invalid", i)
		case errors.Is(err, ggm.ErrNoPrefixFound):
			// The epoch ended while the request was handled.
			return nil, badRequest("epoch %d has ended", epoch)
		case err != nil:
			return nil, err
		}
		proof, err := eval.Proof.MarshalBinary()
		if err != nil {
			return nil, err
		}
		resp.Points[i], resp.Proofs[i] = out, proof
	}
	s.metrics.points.Add(float64(len(req.Points)))
	return resp, nil
}
