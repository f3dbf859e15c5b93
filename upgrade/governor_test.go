// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package upgrade

import (
	"context"
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/swaprouter/bls"
)

const chainID = 31337

type recordingApplier struct {
	impl     common.Address
	calldata []byte
	calls    int
}

func (r *recordingApplier) ApplyUpgrade(_ context.Context, impl common.Address, calldata []byte) error {
	r.impl = impl
	r.calldata = calldata
	r.calls++
	return nil
}

type fixture struct {
	gov     *Governor
	sk      *bls.SecretKey
	scheme  *bls.Scheme
	applier *recordingApplier
	now     uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	require := require.New(t)

	sk, err := bls.NewSecretKey()
	require.NoError(err)
	scheme, err := bls.NewScheme(bls.Upgrade, chainID)
	require.NoError(err)

	f := &fixture{sk: sk, scheme: scheme, applier: &recordingApplier{}, now: 1_000}
	f.gov, err = NewGovernor(Config{
		Scheme:       scheme,
		PublicKey:    sk.PublicKey(),
		MinimumDelay: 60,
		Applier:      f.applier,
		Now:          func() uint64 { return f.now },
	})
	require.NoError(err)
	return f
}

func (f *fixture) sign(t *testing.T, action string, payload []byte) []byte {
	t.Helper()
	msg, err := Message(action, payload, f.gov.Nonce())
	require.NoError(t, err)
	sig, err := f.scheme.Sign(f.sk, msg)
	require.NoError(t, err)
	return sig.Bytes()
}

func TestNewGovernorRejectsSwapScheme(t *testing.T) {
	scheme, err := bls.NewScheme(bls.SwapRequest, chainID)
	require.NoError(t, err)
	sk, err := bls.NewSecretKey()
	require.NoError(t, err)

	_, err = NewGovernor(Config{Scheme: scheme, PublicKey: sk.PublicKey(), Now: func() uint64 { return 0 }})
	require.ErrorIs(t, err, ErrWrongScheme)
}

func TestScheduleAndExecute(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	impl := common.HexToAddress("0x1001")
	calldata := []byte{0xde, 0xad}

	payload, err := SchedulePayload(impl, calldata, 1_060)
	require.NoError(err)
	sig := f.sign(t, ActionScheduleUpgrade, payload)

	require.NoError(f.gov.ScheduleUpgrade(impl, calldata, 1_060, sig))
	require.Equal(uint64(1), f.gov.Nonce())

	p, ok := f.gov.Pending()
	require.True(ok)
	require.Equal(impl, p.Implementation)

	require.ErrorIs(f.gov.ExecuteUpgrade(context.Background()), ErrTooEarly)

	f.now = 1_060
	require.NoError(f.gov.ExecuteUpgrade(context.Background()))
	require.Equal(impl, f.applier.impl)
	require.Equal(calldata, f.applier.calldata)

	_, ok = f.gov.Pending()
	require.False(ok)
	require.ErrorIs(f.gov.ExecuteUpgrade(context.Background()), ErrNoPendingUpgrade)
}

func TestScheduleRejectsShortDelay(t *testing.T) {
	f := newFixture(t)
	impl := common.HexToAddress("0x1")
	payload, err := SchedulePayload(impl, nil, 1_059)
	require.NoError(t, err)

	err = f.gov.ScheduleUpgrade(impl, nil, 1_059, f.sign(t, ActionScheduleUpgrade, payload))
	require.ErrorIs(t, err, ErrDelayTooShort)
	require.Zero(t, f.gov.Nonce())
}

// TestSignatureSingleUse tests that a consumed nonce invalidates the
// signature that used it
func TestSignatureSingleUse(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	payload, err := DelayPayload(120)
	require.NoError(err)
	sig := f.sign(t, ActionSetMinimumDelay, payload)

	require.NoError(f.gov.SetMinimumDelay(120, sig))
	require.Equal(uint64(120), f.gov.MinimumDelay())
	require.ErrorIs(f.gov.SetMinimumDelay(120, sig), ErrInvalidSignature)
}

func TestSwapDomainSignatureRejected(t *testing.T) {
	f := newFixture(t)
	swaps, err := bls.NewScheme(bls.SwapRequest, chainID)
	require.NoError(t, err)

	payload, err := DelayPayload(5)
	require.NoError(t, err)
	msg, err := Message(ActionSetMinimumDelay, payload, 0)
	require.NoError(t, err)
	sig, err := swaps.Sign(f.sk, msg)
	require.NoError(t, err)

	require.ErrorIs(t, f.gov.SetMinimumDelay(5, sig.Bytes()), ErrInvalidSignature)
}

func TestCancelUpgrade(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	require.ErrorIs(f.gov.CancelUpgrade(nil), ErrNoPendingUpgrade)

	impl := common.HexToAddress("0x2")
	payload, err := SchedulePayload(impl, nil, 2_000)
	require.NoError(err)
	require.NoError(f.gov.ScheduleUpgrade(impl, nil, 2_000, f.sign(t, ActionScheduleUpgrade, payload)))
	require.ErrorIs(f.gov.ScheduleUpgrade(impl, nil, 2_000, nil), ErrUpgradePending)

	require.NoError(f.gov.CancelUpgrade(f.sign(t, ActionCancelUpgrade, payload)))
	_, ok := f.gov.Pending()
	require.False(ok)
}

func TestSetPublicKey(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	next, err := bls.NewSecretKey()
	require.NoError(err)
	require.NoError(f.gov.SetPublicKey(next.PublicKey(), f.sign(t, ActionSetPublicKey, next.PublicKey().Bytes())))
	require.True(next.PublicKey().Equal(f.gov.PublicKey()))

	// the old key no longer authorizes
	require.ErrorIs(f.gov.Authorize("noop", nil, f.sign(t, "noop", nil)), ErrInvalidSignature)

	f.sk = next
	require.NoError(f.gov.Authorize("noop", nil, f.sign(t, "noop", nil)))
}

// TestGovernorReopen tests that a governor over the same database resumes
// at the persisted nonce, key, delay and schedule
func TestGovernorReopen(t *testing.T) {
	require := require.New(t)
	db := memdb.New()
	genesis, err := bls.NewSecretKey()
	require.NoError(err)
	scheme, err := bls.NewScheme(bls.Upgrade, chainID)
	require.NoError(err)

	open := func() *Governor {
		g, err := NewGovernor(Config{
			Scheme:       scheme,
			PublicKey:    genesis.PublicKey(),
			MinimumDelay: 60,
			DB:           db,
			Now:          func() uint64 { return 1_000 },
		})
		require.NoError(err)
		return g
	}
	f := &fixture{gov: open(), sk: genesis, scheme: scheme}

	payload, err := DelayPayload(120)
	require.NoError(err)
	delaySig := f.sign(t, ActionSetMinimumDelay, payload)
	require.NoError(f.gov.SetMinimumDelay(120, delaySig))

	next, err := bls.NewSecretKey()
	require.NoError(err)
	require.NoError(f.gov.SetPublicKey(next.PublicKey(), f.sign(t, ActionSetPublicKey, next.PublicKey().Bytes())))
	f.sk = next

	impl := common.HexToAddress("0x1001")
	schedule, err := SchedulePayload(impl, []byte{0x01}, 2_000)
	require.NoError(err)
	require.NoError(f.gov.ScheduleUpgrade(impl, []byte{0x01}, 2_000, f.sign(t, ActionScheduleUpgrade, schedule)))

	f.gov = open()
	require.Equal(uint64(3), f.gov.Nonce())
	require.Equal(uint64(120), f.gov.MinimumDelay())
	require.True(next.PublicKey().Equal(f.gov.PublicKey()))
	p, ok := f.gov.Pending()
	require.True(ok)
	require.Equal(impl, p.Implementation)
	require.Equal([]byte{0x01}, p.Calldata)
	require.Equal(uint64(2_000), p.UpgradeTime)

	// signatures from before the restart stay spent
	require.ErrorIs(f.gov.SetMinimumDelay(120, delaySig), ErrInvalidSignature)

	require.NoError(f.gov.CancelUpgrade(f.sign(t, ActionCancelUpgrade, schedule)))
	f.gov = open()
	_, ok = f.gov.Pending()
	require.False(ok)
	require.Equal(uint64(4), f.gov.Nonce())
}

// TestReserveRelease tests that a released reservation gives the nonce back
// unless a later action already consumed the next one
func TestReserveRelease(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	sig := f.sign(t, "noop", nil)
	release, err := f.gov.Reserve("noop", nil, sig)
	require.NoError(err)
	require.Equal(uint64(1), f.gov.Nonce())

	release()
	require.Zero(f.gov.Nonce())
	release()
	require.Zero(f.gov.Nonce())

	release, err = f.gov.Reserve("noop", nil, sig)
	require.NoError(err)
	require.NoError(f.gov.Authorize("other", nil, f.sign(t, "other", nil)))
	release()
	require.Equal(uint64(2), f.gov.Nonce())

	_, err = f.gov.Reserve("noop", nil, sig)
	require.ErrorIs(err, ErrInvalidSignature)
}
