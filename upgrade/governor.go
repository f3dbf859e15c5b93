// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package upgrade gates privileged configuration changes behind signatures
// from the validator set under the upgrade signature domain.
package upgrade

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/swaprouter/bls"
)

var (
	ErrInvalidSignature   = errors.New("invalid upgrade signature")
	ErrWrongScheme        = errors.New("scheme is not the upgrade scheme")
	ErrUpgradePending     = errors.New("an upgrade is already scheduled")
	ErrNoPendingUpgrade   = errors.New("no upgrade scheduled")
	ErrTooEarly           = errors.New("upgrade time not reached")
	ErrDelayTooShort      = errors.New("upgrade time is before the minimum delay")
	ErrZeroImplementation = errors.New("zero implementation address")

	errCorruptValue = errors.New("corrupt governance value")
)

var (
	nonceKey     = []byte("nonce")
	publicKeyKey = []byte("publicKey")
	minDelayKey  = []byte("minimumDelay")
	pendingKey   = []byte("pending")
)

// Applier performs a scheduled upgrade once its time has come.
type Applier interface {
	ApplyUpgrade(ctx context.Context, implementation common.Address, calldata []byte) error
}

// Pending is a scheduled upgrade.
type Pending struct {
	Implementation common.Address
	Calldata       []byte
	UpgradeTime    uint64
}

// Config parameterizes a Governor. PublicKey and MinimumDelay are initial
// values; once DB holds governance state the stored values win.
type Config struct {
	Scheme       *bls.Scheme
	PublicKey    *bls.PublicKey
	MinimumDelay uint64 // seconds
	Applier      Applier
	// DB persists the nonce, key, delay and scheduled upgrade. Defaults to
	// an in-memory database.
	DB database.Database
	// Now returns the current time in unix seconds.
	Now func() uint64
	Log log.Logger
}

// Governor verifies governance signatures and runs scheduled upgrades.
// Every accepted signature consumes the current nonce, so a signature is
// never accepted twice.
type Governor struct {
	mu sync.Mutex

	db       database.Database
	scheme   *bls.Scheme
	pk       *bls.PublicKey
	nonce    uint64
	minDelay uint64
	pending  *Pending
	applier  Applier
	now      func() uint64
	log      log.Logger
}

func NewGovernor(cfg Config) (*Governor, error) {
	if cfg.Scheme == nil || cfg.Scheme.Kind() != bls.Upgrade {
		return nil, ErrWrongScheme
	}
	if cfg.PublicKey == nil {
		return nil, bls.ErrInfinity
	}
	if cfg.Now == nil {
		return nil, errors.New("missing clock")
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	g := &Governor{
		db:       cfg.DB,
		scheme:   cfg.Scheme,
		pk:       cfg.PublicKey,
		minDelay: cfg.MinimumDelay,
		applier:  cfg.Applier,
		now:      cfg.Now,
		log:      logger,
	}
	if g.db == nil {
		g.db = memdb.New()
	}
	if err := g.load(); err != nil {
		return nil, err
	}
	return g, nil
}

// load restores the state a previous Governor left in g.db.
func (g *Governor) load() error {
	var err error
	if g.nonce, err = getUint64(g.db, nonceKey, 0); err != nil {
		return err
	}
	if g.minDelay, err = getUint64(g.db, minDelayKey, g.minDelay); err != nil {
		return err
	}
	b, err := g.db.Get(publicKeyKey)
	switch {
	case err == nil:
		if g.pk, err = bls.PublicKeyFromBytes(b); err != nil {
			return err
		}
	case !errors.Is(err, database.ErrNotFound):
		return err
	}
	b, err = g.db.Get(pendingKey)
	switch {
	case err == nil:
		p, err := decodeSchedulePayload(b)
		if err != nil {
			return err
		}
		g.pending = &p
	case !errors.Is(err, database.ErrNotFound):
		return err
	}
	if g.nonce > 0 {
		g.log.Info("restored governance state", log.Uint64("nonce", g.nonce))
	}
	return nil
}

func getUint64(db database.KeyValueReader, key []byte, def uint64) (uint64, error) {
	b, err := db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return 0, err
	}
	if len(b) != 8 {
		return 0, errCorruptValue
	}
	return binary.BigEndian.Uint64(b), nil
}

func uint64Bytes(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

// SetApplier installs the upgrade target. It exists for targets that are
// built after the governor they depend on.
func (g *Governor) SetApplier(a Applier) {
	g.mu.Lock()
	g.applier = a
	g.mu.Unlock()
}

func (g *Governor) Scheme() *bls.Scheme { return g.scheme }

// Nonce is the nonce the next signed message must carry.
func (g *Governor) Nonce() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nonce
}

func (g *Governor) PublicKey() *bls.PublicKey {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pk
}

func (g *Governor) MinimumDelay() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.minDelay
}

// Pending returns the scheduled upgrade, if any.
func (g *Governor) Pending() (Pending, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return Pending{}, false
	}
	p := *g.pending
	p.Calldata = append([]byte(nil), p.Calldata...)
	return p, true
}

// Authorize checks sig over action and payload at the current nonce and
// consumes the nonce on success.
func (g *Governor) Authorize(action string, payload, sig []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authorize(action, payload, sig)
}

// Reserve is Authorize for changes applied elsewhere, such as in another
// database transaction. release hands the nonce back if that change is
// abandoned. It does nothing once a later nonce has been consumed, so a
// nonce is never accepted twice.
func (g *Governor) Reserve(action string, payload, sig []byte) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	nonce := g.nonce
	if err := g.authorize(action, payload, sig); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() { g.release(nonce) })
	}, nil
}

func (g *Governor) release(nonce uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.nonce != nonce+1 {
		return
	}
	if err := g.db.Put(nonceKey, uint64Bytes(nonce)); err != nil {
		g.log.Warn("failed to release governance nonce",
			log.Uint64("nonce", nonce),
			log.Err(err),
		)
		return
	}
	g.nonce = nonce
	g.log.Debug("governance nonce released", log.Uint64("nonce", nonce))
}

// record is a write that lands together with a consumed nonce.
type record struct {
	key   []byte
	value []byte // nil deletes key
}

// authorize requires g.mu. On success the next nonce and records are written
// as one batch.
func (g *Governor) authorize(action string, payload, sig []byte, records ...record) error {
	msg, err := Message(action, payload, g.nonce)
	if err != nil {
		return err
	}
	ok, err := g.scheme.VerifyBytes(msg, sig, g.pk.Bytes())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !ok {
		return ErrInvalidSignature
	}

	batch := g.db.NewBatch()
	if err := batch.Put(nonceKey, uint64Bytes(g.nonce+1)); err != nil {
		return err
	}
	for _, r := range records {
		if r.value == nil {
			err = batch.Delete(r.key)
		} else {
			err = batch.Put(r.key, r.value)
		}
		if err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("failed to persist governance nonce: %w", err)
	}

	g.log.Info("governance action authorized",
		log.String("action", action),
		log.Uint64("nonce", g.nonce),
	)
	g.nonce++
	return nil
}

// ScheduleUpgrade schedules implementation to be applied at upgradeTime.
func (g *Governor) ScheduleUpgrade(implementation common.Address, calldata []byte, upgradeTime uint64, sig []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if implementation == (common.Address{}) {
		return ErrZeroImplementation
	}
	if g.pending != nil {
		return ErrUpgradePending
	}
	if upgradeTime < g.now()+g.minDelay {
		return fmt.Errorf("%w: %d < now+%d", ErrDelayTooShort, upgradeTime, g.minDelay)
	}
	payload, err := SchedulePayload(implementation, calldata, upgradeTime)
	if err != nil {
		return err
	}
	if err := g.authorize(ActionScheduleUpgrade, payload, sig, record{pendingKey, payload}); err != nil {
		return err
	}
	g.pending = &Pending{
		Implementation: implementation,
		Calldata:       append([]byte(nil), calldata...),
		UpgradeTime:    upgradeTime,
	}
	g.log.Info("upgrade scheduled",
		log.Stringer("implementation", implementation),
		log.Uint64("upgradeTime", upgradeTime),
	)
	return nil
}

// CancelUpgrade drops the scheduled upgrade.
func (g *Governor) CancelUpgrade(sig []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil {
		return ErrNoPendingUpgrade
	}
	payload, err := SchedulePayload(g.pending.Implementation, g.pending.Calldata, g.pending.UpgradeTime)
	if err != nil {
		return err
	}
	if err := g.authorize(ActionCancelUpgrade, payload, sig, record{key: pendingKey}); err != nil {
		return err
	}
	g.log.Info("upgrade cancelled", log.Stringer("implementation", g.pending.Implementation))
	g.pending = nil
	return nil
}

// ExecuteUpgrade applies the scheduled upgrade once its time has passed.
// Anyone may call it.
func (g *Governor) ExecuteUpgrade(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil {
		return ErrNoPendingUpgrade
	}
	if now := g.now(); now < g.pending.UpgradeTime {
		return fmt.Errorf("%w: %d < %d", ErrTooEarly, now, g.pending.UpgradeTime)
	}
	if g.applier == nil {
		return errors.New("no upgrade applier")
	}
	if err := g.applier.ApplyUpgrade(ctx, g.pending.Implementation, g.pending.Calldata); err != nil {
		return err
	}
	if err := g.db.Delete(pendingKey); err != nil {
		return err
	}
	g.log.Info("upgrade executed", log.Stringer("implementation", g.pending.Implementation))
	g.pending = nil
	return nil
}

// SetMinimumDelay changes the delay required between scheduling and
// execution.
func (g *Governor) SetMinimumDelay(seconds uint64, sig []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	payload, err := DelayPayload(seconds)
	if err != nil {
		return err
	}
	if err := g.authorize(ActionSetMinimumDelay, payload, sig, record{minDelayKey, uint64Bytes(seconds)}); err != nil {
		return err
	}
	g.minDelay = seconds
	return nil
}

// SetPublicKey rotates the governance key. The old key signs the new one.
func (g *Governor) SetPublicKey(pk *bls.PublicKey, sig []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if pk == nil {
		return bls.ErrInfinity
	}
	if err := g.authorize(ActionSetPublicKey, pk.Bytes(), sig, record{publicKeyKey, pk.Bytes()}); err != nil {
		return err
	}
	g.pk = pk
	g.log.Info("governance key rotated")
	return nil
}
