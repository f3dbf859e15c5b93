// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package signer is the validator side of the swap router: threshold
// sharing of the BLS key, partial signing, and combination of partial
// signatures into one signature the router verifies.
package signer

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/luxfi/swaprouter/bls"
)

var (
	ErrInvalidThreshold = errors.New("threshold must be in [1, n]")
	ErrNotEnoughShares  = errors.New("not enough partial signatures")
	ErrDuplicateIndex   = errors.New("duplicate share index")
	ErrUnknownSigner    = errors.New("unknown signer index")
)

// Share is one evaluation f(Index) of the dealer's polynomial. Index is
// never zero.
type Share struct {
	Index  uint32
	Secret fr.Element
}

// Sign produces this share's partial signature on message.
func (s Share) Sign(scheme *bls.Scheme, message []byte) (*bls.Signature, error) {
	sk, err := bls.SecretKeyFromScalar(s.Secret)
	if err != nil {
		return nil, err
	}
	return scheme.Sign(sk, message)
}

// PublicKey returns the share's verification key.
func (s Share) PublicKey() (*bls.PublicKey, error) {
	sk, err := bls.SecretKeyFromScalar(s.Secret)
	if err != nil {
		return nil, err
	}
	return sk.PublicKey(), nil
}

// KeySet is the public output of a dealing plus the private shares.
type KeySet struct {
	Threshold       int
	PublicKey       *bls.PublicKey
	Shares          []Share
	SharePublicKeys map[uint32]*bls.PublicKey
}

// Deal splits sk into n shares so that any threshold of them can sign.
func Deal(sk *bls.SecretKey, threshold, n int) (*KeySet, error) {
	if threshold < 1 || threshold > n {
		return nil, fmt.Errorf("%w: t=%d n=%d", ErrInvalidThreshold, threshold, n)
	}

	coeffs := make([]fr.Element, threshold)
	coeffs[0] = sk.Scalar()
	for i := 1; i < threshold; i++ {
		if _, err := coeffs[i].SetRandom(); err != nil {
			return nil, err
		}
	}

	ks := &KeySet{
		Threshold:       threshold,
		PublicKey:       sk.PublicKey(),
		Shares:          make([]Share, 0, n),
		SharePublicKeys: make(map[uint32]*bls.PublicKey, n),
	}
	for i := 1; i <= n; i++ {
		var x fr.Element
		x.SetUint64(uint64(i))
		share := Share{Index: uint32(i), Secret: evaluate(coeffs, &x)}
		if share.Secret.IsZero() {
			return nil, errors.New("degenerate share, deal again")
		}
		pk, err := share.PublicKey()
		if err != nil {
			return nil, err
		}
		ks.Shares = append(ks.Shares, share)
		ks.SharePublicKeys[share.Index] = pk
	}
	return ks, nil
}

// evaluate computes the polynomial at x by Horner's rule.
func evaluate(coeffs []fr.Element, x *fr.Element) fr.Element {
	var acc fr.Element
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc.Mul(&acc, x)
		acc.Add(&acc, &coeffs[i])
	}
	return acc
}

// Combine interpolates threshold partial signatures at zero. Extra partials
// beyond threshold are ignored, lowest indexes first.
func Combine(partials map[uint32]*bls.Signature, threshold int) (*bls.Signature, error) {
	if threshold < 1 {
		return nil, ErrInvalidThreshold
	}
	if len(partials) < threshold {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughShares, len(partials), threshold)
	}

	indexes := make([]uint32, 0, len(partials))
	for idx := range partials {
		if idx == 0 {
			return nil, fmt.Errorf("%w: 0", ErrUnknownSigner)
		}
		indexes = append(indexes, idx)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })
	indexes = indexes[:threshold]

	var acc bn254.G1Jac
	for _, i := range indexes {
		lambda := lagrangeAtZero(i, indexes)
		p := partials[i].Point()
		var term bn254.G1Affine
		term.ScalarMultiplication(&p, lambda.BigInt(new(big.Int)))
		acc.AddMixed(&term)
	}
	var out bn254.G1Affine
	out.FromJacobian(&acc)
	return bls.SignatureFromPoint(out), nil
}

// lagrangeAtZero returns prod_{j != i} x_j / (x_j - x_i).
func lagrangeAtZero(i uint32, set []uint32) fr.Element {
	var num, den, xi fr.Element
	num.SetOne()
	den.SetOne()
	xi.SetUint64(uint64(i))
	for _, j := range set {
		if j == i {
			continue
		}
		var xj, diff fr.Element
		xj.SetUint64(uint64(j))
		diff.Sub(&xj, &xi)
		num.Mul(&num, &xj)
		den.Mul(&den, &diff)
	}
	den.Inverse(&den)
	num.Mul(&num, &den)
	return num
}
