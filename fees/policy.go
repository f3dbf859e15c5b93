// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fees implements the verification fee policy: a basis-point cut of
// every swap fee that accrues to the router, with the rest going to the
// solver.
package fees

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

const (
	// BasisPoints is the denominator of every rate.
	BasisPoints = 10_000
	// MaxFeeBps caps the verification rate at half of the fee.
	MaxFeeBps = 5_000
)

var (
	ErrFeeBpsExceedsThreshold = errors.New("verification fee bps exceeds threshold")
	ErrFeeTooLow              = errors.New("fee too low")
)

var bpsDenominator = uint256.NewInt(BasisPoints)

// Policy holds the live verification fee rate. It is a value type; the
// owner is responsible for synchronizing access.
type Policy struct {
	rateBps uint64
}

// NewPolicy returns a policy at rateBps.
func NewPolicy(rateBps uint64) (Policy, error) {
	var p Policy
	if err := p.SetRate(rateBps); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Rate returns the current rate in basis points.
func (p Policy) Rate() uint64 {
	return p.rateBps
}

// SetRate changes the rate for fees computed from now on.
func (p *Policy) SetRate(bps uint64) error {
	if bps > MaxFeeBps {
		return fmt.Errorf("%w: %d > %d", ErrFeeBpsExceedsThreshold, bps, MaxFeeBps)
	}
	p.rateBps = bps
	return nil
}

// VerificationFee returns floor(total * rate / 10000), or zero when the rate
// is zero.
func (p Policy) VerificationFee(total *uint256.Int) *uint256.Int {
	if p.rateBps == 0 || total.IsZero() {
		return new(uint256.Int)
	}
	fee, overflow := new(uint256.Int).MulOverflow(total, uint256.NewInt(p.rateBps))
	if overflow {
		// total*rate/10000 == total/10000*rate + (total%10000)*rate/10000
		q, r := new(uint256.Int).DivMod(total, bpsDenominator, new(uint256.Int))
		q.Mul(q, uint256.NewInt(p.rateBps))
		r.Mul(r, uint256.NewInt(p.rateBps))
		r.Div(r, bpsDenominator)
		return q.Add(q, r)
	}
	return fee.Div(fee, bpsDenominator)
}

// Split divides total into the verification fee and the solver fee.
// It fails unless the solver would receive something.
func (p Policy) Split(total *uint256.Int) (verificationFee, solverFee *uint256.Int, err error) {
	verificationFee = p.VerificationFee(total)
	if !total.Gt(verificationFee) {
		return nil, nil, fmt.Errorf("%w: fee %s does not exceed verification fee %s", ErrFeeTooLow, total.Dec(), verificationFee.Dec())
	}
	solverFee = new(uint256.Int).Sub(total, verificationFee)
	return verificationFee, solverFee, nil
}
