// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package signer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/luxfi/swaprouter/bls"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func deal(t *testing.T, threshold, n int) (*KeySet, *bls.Scheme) {
	t.Helper()
	sk, err := bls.NewSecretKey()
	require.NoError(t, err)
	ks, err := Deal(sk, threshold, n)
	require.NoError(t, err)
	scheme, err := bls.NewScheme(bls.SwapRequest, 31337)
	require.NoError(t, err)
	return ks, scheme
}

func TestDealRejectsBadThreshold(t *testing.T) {
	sk, err := bls.NewSecretKey()
	require.NoError(t, err)
	_, err = Deal(sk, 0, 3)
	require.ErrorIs(t, err, ErrInvalidThreshold)
	_, err = Deal(sk, 4, 3)
	require.ErrorIs(t, err, ErrInvalidThreshold)
}

// TestCombineAnySubset tests that every threshold-sized subset produces the
// group signature
func TestCombineAnySubset(t *testing.T) {
	require := require.New(t)

	ks, scheme := deal(t, 3, 5)
	msg := []byte("settle")

	partials := make(map[uint32]*bls.Signature)
	for _, s := range ks.Shares {
		sig, err := s.Sign(scheme, msg)
		require.NoError(err)
		partials[s.Index] = sig
	}

	subsets := [][]uint32{{1, 2, 3}, {2, 4, 5}, {1, 3, 5}}
	var first *bls.Signature
	for _, subset := range subsets {
		picked := make(map[uint32]*bls.Signature)
		for _, i := range subset {
			picked[i] = partials[i]
		}
		sig, err := Combine(picked, ks.Threshold)
		require.NoError(err)

		ok, err := scheme.Verify(msg, sig, ks.PublicKey)
		require.NoError(err)
		require.True(ok, "subset %v", subset)

		if first == nil {
			first = sig
		} else {
			require.Equal(first.Bytes(), sig.Bytes())
		}
	}

	_, err := Combine(map[uint32]*bls.Signature{1: partials[1], 2: partials[2]}, ks.Threshold)
	require.ErrorIs(err, ErrNotEnoughShares)
}

func newCoordinator(t *testing.T, ks *KeySet, scheme *bls.Scheme, now func() time.Time) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(Config{
		Scheme:          scheme,
		Threshold:       ks.Threshold,
		PublicKey:       ks.PublicKey,
		SharePublicKeys: ks.SharePublicKeys,
		SignTimeout:     time.Minute,
		MaxPendingSigns: 2,
		Now:             now,
	})
	require.NoError(t, err)
	return c
}

func TestCoordinatorFlow(t *testing.T) {
	require := require.New(t)

	ks, scheme := deal(t, 2, 3)
	c := newCoordinator(t, ks, scheme, nil)
	msg := []byte("request")

	id, err := c.Open(msg)
	require.NoError(err)

	sig1, err := ks.Shares[0].Sign(scheme, msg)
	require.NoError(err)
	final, err := c.Submit(id, ks.Shares[0].Index, sig1)
	require.NoError(err)
	require.Nil(final)

	_, err = c.Submit(id, ks.Shares[0].Index, sig1)
	require.ErrorIs(err, ErrAlreadySubmitted)

	// share 2 signing the wrong message
	bad, err := ks.Shares[1].Sign(scheme, []byte("other"))
	require.NoError(err)
	_, err = c.Submit(id, ks.Shares[1].Index, bad)
	require.ErrorIs(err, ErrInvalidPartialSig)

	_, err = c.Submit(id, 9, sig1)
	require.ErrorIs(err, ErrUnknownSigner)

	sig3, err := ks.Shares[2].Sign(scheme, msg)
	require.NoError(err)
	final, err = c.Submit(id, ks.Shares[2].Index, sig3)
	require.NoError(err)
	require.NotNil(final)

	ok, err := scheme.Verify(msg, final, ks.PublicKey)
	require.NoError(err)
	require.True(ok)

	s, err := c.Session(id)
	require.NoError(err)
	require.Equal(Complete, s.Status)

	_, err = c.Submit(id, ks.Shares[1].Index, sig3)
	require.ErrorIs(err, ErrSessionClosed)
}

func TestCoordinatorLimitsAndExpiry(t *testing.T) {
	require := require.New(t)

	var (
		mu  sync.Mutex
		now = time.Unix(1_700_000_000, 0)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	ks, scheme := deal(t, 2, 3)
	c := newCoordinator(t, ks, scheme, clock)

	id, err := c.Open([]byte("a"))
	require.NoError(err)
	_, err = c.Open([]byte("b"))
	require.NoError(err)
	_, err = c.Open([]byte("c"))
	require.ErrorIs(err, ErrTooManyPending)

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	sig, err := ks.Shares[0].Sign(scheme, []byte("a"))
	require.NoError(err)
	_, err = c.Submit(id, ks.Shares[0].Index, sig)
	require.ErrorIs(err, ErrSessionClosed)

	require.Equal(2, c.Prune())
	_, err = c.Session(id)
	require.ErrorIs(err, ErrSessionNotFound)

	_, err = c.Open([]byte("d"))
	require.NoError(err)
}

func TestCoordinatorRunStops(t *testing.T) {
	ks, scheme := deal(t, 1, 1)
	c := newCoordinator(t, ks, scheme, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	<-done
}
