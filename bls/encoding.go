// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bls

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
)

// Sizes of the EVM (alt_bn128 precompile) encodings.
const (
	FieldSize     = 32
	G1Size        = 2 * FieldSize
	G2Size        = 4 * FieldSize
	SignatureSize = G1Size
	PublicKeySize = G2Size
)

var (
	ErrInvalidLength    = errors.New("invalid encoding length")
	ErrNonCanonical     = errors.New("non-canonical field element")
	ErrNotOnCurve       = errors.New("point is not on the curve")
	ErrNotInSubgroup    = errors.New("point is not in the prime-order subgroup")
	ErrInfinity         = errors.New("point at infinity")
	ErrInvalidSecretKey = errors.New("invalid secret key")
)

// MarshalG1 encodes p as x||y, each coordinate 32-byte big-endian.
func MarshalG1(p *bn254.G1Affine) []byte {
	out := make([]byte, G1Size)
	x := p.X.Bytes()
	y := p.Y.Bytes()
	copy(out[:FieldSize], x[:])
	copy(out[FieldSize:], y[:])
	return out
}

// UnmarshalG1 decodes a 64-byte G1 point and checks it is on the curve.
// The all-zero encoding decodes to the point at infinity.
func UnmarshalG1(b []byte) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if len(b) != G1Size {
		return p, fmt.Errorf("%w: G1 expects %d bytes, got %d", ErrInvalidLength, G1Size, len(b))
	}
	if err := setCanonical(&p.X, b[:FieldSize]); err != nil {
		return p, err
	}
	if err := setCanonical(&p.Y, b[FieldSize:]); err != nil {
		return p, err
	}
	if !p.IsOnCurve() {
		return p, ErrNotOnCurve
	}
	return p, nil
}

// MarshalG2 encodes p in precompile order x.A1||x.A0||y.A1||y.A0.
func MarshalG2(p *bn254.G2Affine) []byte {
	out := make([]byte, G2Size)
	xa1 := p.X.A1.Bytes()
	xa0 := p.X.A0.Bytes()
	ya1 := p.Y.A1.Bytes()
	ya0 := p.Y.A0.Bytes()
	copy(out[0*FieldSize:], xa1[:])
	copy(out[1*FieldSize:], xa0[:])
	copy(out[2*FieldSize:], ya1[:])
	copy(out[3*FieldSize:], ya0[:])
	return out
}

// UnmarshalG2 decodes a 128-byte G2 point and checks curve and subgroup
// membership.
func UnmarshalG2(b []byte) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	if len(b) != G2Size {
		return p, fmt.Errorf("%w: G2 expects %d bytes, got %d", ErrInvalidLength, G2Size, len(b))
	}
	coords := []*fp.Element{&p.X.A1, &p.X.A0, &p.Y.A1, &p.Y.A0}
	for i, c := range coords {
		if err := setCanonical(c, b[i*FieldSize:(i+1)*FieldSize]); err != nil {
			return p, err
		}
	}
	if !p.IsOnCurve() {
		return p, ErrNotOnCurve
	}
	if !p.IsInSubGroup() {
		return p, ErrNotInSubgroup
	}
	return p, nil
}

func setCanonical(e *fp.Element, b []byte) error {
	if err := e.SetBytesCanonical(b); err != nil {
		return fmt.Errorf("%w: %v", ErrNonCanonical, err)
	}
	return nil
}
