// Package randsrv serves randomness from a ppoprf server over HTTP. Time is
// divided into epochs, each using its own metadata tag. When an epoch ends its
// tag is punctured, so that the randomness of past epochs can no longer be
// computed even if the server is compromised later.
package randsrv

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/ppoprf"
	"github.com/privacybydesign/ppoprf/ggm"
	"github.com/privacybydesign/ppoprf/signed"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Service is a randomness service. Create it with New and start it with Run,
// or mount Handler in an existing HTTP server and call Tick at every epoch
// boundary.
type Service struct {
	cfg     Config
	metrics *metrics

	mu        sync.RWMutex
	server    *ppoprf.Server
	epoch     uint8
	nextEpoch time.Time
	publicKey []byte
	keyID     string
	signature signed.Message
}

// New validates cfg and creates a service with a fresh key, serving
// cfg.FirstEpoch.
func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{cfg: cfg, metrics: newMetrics()}
	if err := s.rotate(); err != nil {
		return nil, err
	}
	return s, nil
}

// rotate replaces the server key and restarts at the first epoch. Callers
// other than New must hold the write lock.
func (s *Service) rotate() error {
	server, err := ppoprf.NewServer(s.cfg.epochs())
	if err != nil {
		return err
	}
	pk := server.PublicKey()
	pkBytes, err := pk.MarshalBinary()
	if err != nil {
		return err
	}
	id, err := pk.ID()
	if err != nil {
		return err
	}
	var signature signed.Message
	if s.cfg.SigningKey != nil {
		if signature, err = signed.MarshalSign(s.cfg.SigningKey, pkBytes); err != nil {
			return errors.WrapPrefix(err, "failed to sign public key", 0)
		}
	}

	s.server = server
	s.epoch = s.cfg.FirstEpoch
	s.nextEpoch = s.cfg.Clock.Now().Add(s.cfg.EpochDuration)
	s.publicKey, s.keyID, s.signature = pkBytes, id, signature
	s.metrics.epoch.Set(float64(s.epoch))

	Logger.WithFields(logrus.Fields{"keyID": id, "epoch": s.epoch}).Info("using new server key")
	return nil
}

// Tick ends the current epoch: its tag is punctured and the next epoch starts.
// After the last epoch has been punctured the key is rotated.
func (s *Service) Tick() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch == s.cfg.LastEpoch {
		// A previous rotation may have failed after the puncture succeeded.
		if err := s.server.Puncture(s.epoch); err != nil && !errors.Is(err, ggm.ErrAlreadyPunctured) {
			return err
		}
		if err := s.rotate(); err != nil {
			return err
		}
		s.metrics.keyRotations.Inc()
		return nil
	}

	if err := s.server.Puncture(s.epoch); err != nil {
		return err
	}
	s.epoch++
	s.nextEpoch = s.cfg.Clock.Now().Add(s.cfg.EpochDuration)
	s.metrics.epoch.Set(float64(s.epoch))

	Logger.WithFields(logrus.Fields{"epoch": s.epoch, "next": s.nextEpoch}).Info("started new epoch")
	return nil
}

// CurrentEpoch returns the epoch currently served.
func (s *Service) CurrentEpoch() uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Run serves HTTP on the configured address and advances epochs until ctx is
// cancelled or either fails.
func (s *Service) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		Logger.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return s.runEpochs(ctx)
	})
	return g.Wait()
}

func (s *Service) runEpochs(ctx context.Context) error {
	ticker := s.cfg.Clock.Ticker(s.cfg.EpochDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Tick(); err != nil {
				Logger.WithError(err).Error("failed to advance epoch")
				return err
			}
		}
	}
}
