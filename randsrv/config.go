package randsrv

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-errors/errors"
	"github.com/privacybydesign/ppoprf/cbor"
)

const (
	DefaultListenAddr    = ":8080"
	DefaultEpochDuration = time.Hour
	DefaultFirstEpoch    = 0
	DefaultLastEpoch     = 255
	DefaultMaxPoints     = 1024
)

var ErrInvalidConfig = errors.New("invalid randomness service configuration")

// Config configures a randomness Service.
type Config struct {
	ListenAddr    string
	EpochDuration time.Duration

	// FirstEpoch and LastEpoch bound the metadata tags of a key. After
	// LastEpoch has passed the key is replaced and epochs restart at
	// FirstEpoch.
	FirstEpoch uint8
	LastEpoch  uint8

	// MaxPoints is the largest number of points accepted in one request. It
	// cannot exceed cbor.MaxArrayElements.
	MaxPoints int

	// SigningKey, if set, is used to sign the public key published at /info.
	SigningKey *ecdsa.PrivateKey

	// Clock drives epoch changes; nil means the wall clock.
	Clock clock.Clock
}

// DefaultConfig returns a configuration with every field set to its default.
func DefaultConfig() Config {
	return Config{
		ListenAddr:    DefaultListenAddr,
		EpochDuration: DefaultEpochDuration,
		FirstEpoch:    DefaultFirstEpoch,
		LastEpoch:     DefaultLastEpoch,
		MaxPoints:     DefaultMaxPoints,
	}
}

// Validate checks the configuration, filling in the clock if it is unset.
func (c *Config) Validate() error {
	if c.EpochDuration <= 0 {
		return errors.WrapPrefix(ErrInvalidConfig, "epoch duration must be positive", 0)
	}
	if c.FirstEpoch > c.LastEpoch {
		return errors.WrapPrefix(ErrInvalidConfig, "first epoch exceeds last epoch", 0)
	}
	if c.MaxPoints <= 0 {
		return errors.WrapPrefix(ErrInvalidConfig, "max points must be positive", 0)
	}
	if c.MaxPoints > cbor.MaxArrayElements {
		return errors.WrapPrefix(ErrInvalidConfig, fmt.Sprintf("max points must be at most %d", cbor.MaxArrayElements), 0)
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	return nil
}

func (c *Config) epochs() []uint8 {
	tags := make([]uint8, 0, int(c.LastEpoch)-int(c.FirstEpoch)+1)
	for e := int(c.FirstEpoch); e <= int(c.LastEpoch); e++ {
		tags = append(tags, uint8(e))
	}
	return tags
}
