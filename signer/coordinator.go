// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package signer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/log"
	"github.com/zeebo/blake3"

	"github.com/luxfi/swaprouter/bls"
)

var (
	ErrTooManyPending    = errors.New("too many pending signing sessions")
	ErrSessionNotFound   = errors.New("signing session not found")
	ErrSessionClosed     = errors.New("signing session is not pending")
	ErrInvalidPartialSig = errors.New("invalid partial signature")
	ErrAlreadySubmitted  = errors.New("partial signature already submitted")
	ErrCombinedInvalid   = errors.New("combined signature does not verify")
)

const (
	DefaultSignTimeout     = 5 * time.Minute
	DefaultMaxPendingSigns = 1000
)

// Status of a signing session.
type Status uint8

const (
	Pending Status = iota
	Complete
	Expired
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Complete:
		return "complete"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Session collects partial signatures on one message.
type Session struct {
	ID          [32]byte
	Message     []byte
	RequestedAt time.Time
	ExpiresAt   time.Time
	Status      Status
	Partials    map[uint32]*bls.Signature
	Final       *bls.Signature
}

// Config parameterizes a Coordinator.
type Config struct {
	Scheme          *bls.Scheme
	Threshold       int
	PublicKey       *bls.PublicKey
	SharePublicKeys map[uint32]*bls.PublicKey
	SignTimeout     time.Duration
	MaxPendingSigns int
	Now             func() time.Time
	Log             log.Logger
}

// Coordinator tracks signing sessions for the validator set and produces
// the combined signature once enough valid partials arrive.
type Coordinator struct {
	scheme     *bls.Scheme
	threshold  int
	publicKey  *bls.PublicKey
	sharePKs   map[uint32]*bls.PublicKey
	timeout    time.Duration
	maxPending int
	now        func() time.Time
	log        log.Logger

	mu       sync.RWMutex
	sessions map[[32]byte]*Session
	pending  int
	counter  uint64
}

func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Scheme == nil || cfg.PublicKey == nil {
		return nil, errors.New("scheme and public key are required")
	}
	if cfg.Threshold < 1 || cfg.Threshold > len(cfg.SharePublicKeys) {
		return nil, fmt.Errorf("%w: t=%d n=%d", ErrInvalidThreshold, cfg.Threshold, len(cfg.SharePublicKeys))
	}
	c := &Coordinator{
		scheme:     cfg.Scheme,
		threshold:  cfg.Threshold,
		publicKey:  cfg.PublicKey,
		sharePKs:   cfg.SharePublicKeys,
		timeout:    cfg.SignTimeout,
		maxPending: cfg.MaxPendingSigns,
		now:        cfg.Now,
		log:        cfg.Log,
		sessions:   make(map[[32]byte]*Session),
	}
	if c.timeout == 0 {
		c.timeout = DefaultSignTimeout
	}
	if c.maxPending == 0 {
		c.maxPending = DefaultMaxPendingSigns
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = log.NewNoOpLogger()
	}
	return c, nil
}

// Open starts a session for message and returns its id.
func (c *Coordinator) Open(message []byte) ([32]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending >= c.maxPending {
		return [32]byte{}, ErrTooManyPending
	}

	c.counter++
	h := blake3.New()
	_, _ = h.Write(c.scheme.DST())
	_, _ = h.Write(message)
	_ = binary.Write(h, binary.BigEndian, c.counter)
	var id [32]byte
	copy(id[:], h.Sum(nil))

	now := c.now()
	c.sessions[id] = &Session{
		ID:          id,
		Message:     append([]byte(nil), message...),
		RequestedAt: now,
		ExpiresAt:   now.Add(c.timeout),
		Status:      Pending,
		Partials:    make(map[uint32]*bls.Signature),
	}
	c.pending++
	return id, nil
}

// Submit records signer index's partial signature. Once threshold valid
// partials are present it returns the combined signature; before that it
// returns nil.
func (c *Coordinator) Submit(id [32]byte, index uint32, partial *bls.Signature) (*bls.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Status == Pending && c.now().After(s.ExpiresAt) {
		c.expire(s)
	}
	if s.Status != Pending {
		return nil, fmt.Errorf("%w: %s", ErrSessionClosed, s.Status)
	}
	pk, ok := c.sharePKs[index]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSigner, index)
	}
	if _, dup := s.Partials[index]; dup {
		return nil, ErrAlreadySubmitted
	}
	valid, err := c.scheme.Verify(s.Message, partial, pk)
	if err != nil || !valid {
		return nil, fmt.Errorf("%w from signer %d", ErrInvalidPartialSig, index)
	}
	s.Partials[index] = partial

	if len(s.Partials) < c.threshold {
		return nil, nil
	}

	final, err := Combine(s.Partials, c.threshold)
	if err != nil {
		return nil, err
	}
	valid, err = c.scheme.Verify(s.Message, final, c.publicKey)
	if err != nil || !valid {
		return nil, ErrCombinedInvalid
	}
	s.Final = final
	s.Status = Complete
	c.pending--
	c.log.Debug("signing session complete",
		log.Int("partials", len(s.Partials)),
	)
	return final, nil
}

// Session returns a snapshot of session id.
func (c *Coordinator) Session(id [32]byte) (Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	out := *s
	out.Partials = make(map[uint32]*bls.Signature, len(s.Partials))
	for k, v := range s.Partials {
		out.Partials[k] = v
	}
	return out, nil
}

// Prune expires timed out sessions and forgets closed ones. It returns how
// many sessions were removed.
func (c *Coordinator) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for id, s := range c.sessions {
		if s.Status == Pending && now.After(s.ExpiresAt) {
			c.expire(s)
		}
		if s.Status != Pending && now.After(s.ExpiresAt) {
			delete(c.sessions, id)
			removed++
		}
	}
	return removed
}

// Run prunes every interval until ctx is done.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Prune(); n > 0 {
				c.log.Debug("pruned signing sessions", log.Int("count", n))
			}
		}
	}
}

// expire requires c.mu.
func (c *Coordinator) expire(s *Session) {
	s.Status = Expired
	c.pending--
	c.log.Warn("signing session expired", log.Int("partials", len(s.Partials)))
}
