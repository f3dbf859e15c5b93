// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bls

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

var ErrNoPoints = errors.New("nothing to aggregate")

// SecretKey is a scalar in the BN254 scalar field.
type SecretKey struct {
	scalar fr.Element
}

// PublicKey is a G2 point.
type PublicKey struct {
	point bn254.G2Affine
}

// Signature is a G1 point.
type Signature struct {
	point bn254.G1Affine
}

// NewSecretKey draws a uniformly random non-zero secret key.
func NewSecretKey() (*SecretKey, error) {
	var sk SecretKey
	for sk.scalar.IsZero() {
		if _, err := sk.scalar.SetRandom(); err != nil {
			return nil, err
		}
	}
	return &sk, nil
}

// SecretKeyFromScalar wraps an existing non-zero scalar.
func SecretKeyFromScalar(s fr.Element) (*SecretKey, error) {
	if s.IsZero() {
		return nil, ErrInvalidSecretKey
	}
	return &SecretKey{scalar: s}, nil
}

// SecretKeyFromBytes decodes a 32-byte big-endian canonical scalar.
func SecretKeyFromBytes(b []byte) (*SecretKey, error) {
	if len(b) != fr.Bytes {
		return nil, ErrInvalidLength
	}
	var sk SecretKey
	if err := sk.scalar.SetBytesCanonical(b); err != nil {
		return nil, ErrInvalidSecretKey
	}
	if sk.scalar.IsZero() {
		return nil, ErrInvalidSecretKey
	}
	return &sk, nil
}

func (sk *SecretKey) Bytes() []byte {
	b := sk.scalar.Bytes()
	return b[:]
}

// Scalar returns a copy of the underlying field element.
func (sk *SecretKey) Scalar() fr.Element {
	return sk.scalar
}

// PublicKey derives sk * g2.
func (sk *SecretKey) PublicKey() *PublicKey {
	_, _, _, g2 := bn254.Generators()
	var pk PublicKey
	pk.point.ScalarMultiplication(&g2, sk.scalar.BigInt(new(big.Int)))
	return &pk
}

// PublicKeyFromBytes decodes a 128-byte G2 public key. The point at
// infinity is rejected.
func PublicKeyFromBytes(b []byte) (*PublicKey, error) {
	p, err := UnmarshalG2(b)
	if err != nil {
		return nil, err
	}
	if p.IsInfinity() {
		return nil, ErrInfinity
	}
	return &PublicKey{point: p}, nil
}

// PublicKeyFromHex accepts the hex form with or without a 0x prefix.
func PublicKeyFromHex(s string) (*PublicKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, err
	}
	return PublicKeyFromBytes(b)
}

func (pk *PublicKey) Bytes() []byte {
	return MarshalG2(&pk.point)
}

func (pk *PublicKey) Hex() string {
	return "0x" + hex.EncodeToString(pk.Bytes())
}

func (pk *PublicKey) Equal(other *PublicKey) bool {
	return other != nil && pk.point.Equal(&other.point)
}

// Point returns the underlying G2 point.
func (pk *PublicKey) Point() bn254.G2Affine {
	return pk.point
}

// SignatureFromBytes decodes a 64-byte G1 signature. The point at infinity
// is rejected.
func SignatureFromBytes(b []byte) (*Signature, error) {
	p, err := UnmarshalG1(b)
	if err != nil {
		return nil, err
	}
	if p.IsInfinity() {
		return nil, ErrInfinity
	}
	return &Signature{point: p}, nil
}

// SignatureFromPoint wraps a G1 point.
func SignatureFromPoint(p bn254.G1Affine) *Signature {
	return &Signature{point: p}
}

func (s *Signature) Bytes() []byte {
	return MarshalG1(&s.point)
}

func (s *Signature) Hex() string {
	return "0x" + hex.EncodeToString(s.Bytes())
}

// Point returns the underlying G1 point.
func (s *Signature) Point() bn254.G1Affine {
	return s.point
}

// AggregateSignatures sums signatures on the same message.
func AggregateSignatures(sigs ...*Signature) (*Signature, error) {
	if len(sigs) == 0 {
		return nil, ErrNoPoints
	}
	var acc bn254.G1Jac
	for _, s := range sigs {
		acc.AddMixed(&s.point)
	}
	var out Signature
	out.point.FromJacobian(&acc)
	return &out, nil
}

// AggregatePublicKeys sums public keys so the result verifies an aggregate
// signature produced by the same signers.
func AggregatePublicKeys(pks ...*PublicKey) (*PublicKey, error) {
	if len(pks) == 0 {
		return nil, ErrNoPoints
	}
	var acc bn254.G2Jac
	for _, pk := range pks {
		acc.AddMixed(&pk.point)
	}
	var out PublicKey
	out.point.FromJacobian(&acc)
	return &out, nil
}
