// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bls

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
)

// DSTPrefix namespaces every tag produced by this package.
const DSTPrefix = "swaprouter"

const (
	dstVersion = "v01"
	suiteID    = "BN254G1_XMD:SHA-256_SVDW_RO_"
)

var (
	ErrUnknownScheme = errors.New("unknown signature scheme")
	ErrZeroChainID   = errors.New("chain id must be non-zero")
)

// Kind identifies the use case a signature is bound to.
type Kind uint8

const (
	SwapRequest Kind = iota + 1
	Upgrade
)

// Label returns the DST label of the use case.
func (k Kind) Label() string {
	switch k {
	case SwapRequest:
		return "swap-requests"
	case Upgrade:
		return "upgrades"
	default:
		return ""
	}
}

func (k Kind) String() string {
	if l := k.Label(); l != "" {
		return l
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind maps a DST label back to its Kind.
func ParseKind(label string) (Kind, error) {
	switch label {
	case SwapRequest.Label():
		return SwapRequest, nil
	case Upgrade.Label():
		return Upgrade, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownScheme, label)
	}
}

// DST builds the domain separation tag for a use case on a chain:
//
//	<prefix>-<label>-v01-BN254G1_XMD:SHA-256_SVDW_RO_0x<chainid as 32-byte hex>_
func DST(kind Kind, chainID uint64) ([]byte, error) {
	label := kind.Label()
	if label == "" {
		return nil, fmt.Errorf("%w: %d", ErrUnknownScheme, kind)
	}
	if chainID == 0 {
		return nil, ErrZeroChainID
	}
	var word [32]byte
	new(big.Int).SetUint64(chainID).FillBytes(word[:])
	return []byte(DSTPrefix + "-" + label + "-" + dstVersion + "-" + suiteID + "0x" + hex.EncodeToString(word[:]) + "_"), nil
}

// Scheme is a BLS signature scheme pinned to one use case and one chain.
// It holds no keys and is safe for concurrent use.
type Scheme struct {
	kind    Kind
	chainID uint64
	dst     []byte
}

// NewScheme returns the scheme for kind on chainID.
func NewScheme(kind Kind, chainID uint64) (*Scheme, error) {
	dst, err := DST(kind, chainID)
	if err != nil {
		return nil, err
	}
	return &Scheme{
		kind:    kind,
		chainID: chainID,
		dst:     dst,
	}, nil
}

func (s *Scheme) Kind() Kind      { return s.kind }
func (s *Scheme) ChainID() uint64 { return s.chainID }

// DST returns a copy of the scheme's domain separation tag.
func (s *Scheme) DST() []byte {
	return append([]byte(nil), s.dst...)
}

func (s *Scheme) String() string {
	return string(s.dst)
}

// HashToPoint maps message onto G1 under the scheme's DST.
func (s *Scheme) HashToPoint(message []byte) (bn254.G1Affine, error) {
	return bn254.HashToG1(message, s.dst)
}

// Verify reports whether sig is a valid signature on message by pk under
// this scheme. It checks e(sig, g2) == e(H(message), pk) as a single
// pairing product. Errors are only returned for inputs that cannot be
// evaluated at all.
func (s *Scheme) Verify(message []byte, sig *Signature, pk *PublicKey) (bool, error) {
	if sig == nil || pk == nil {
		return false, ErrInfinity
	}
	if sig.point.IsInfinity() || pk.point.IsInfinity() {
		return false, ErrInfinity
	}
	h, err := s.HashToPoint(message)
	if err != nil {
		return false, err
	}
	var negH bn254.G1Affine
	negH.Neg(&h)

	_, _, _, g2 := bn254.Generators()
	return bn254.PairingCheck(
		[]bn254.G1Affine{sig.point, negH},
		[]bn254.G2Affine{g2, pk.point},
	)
}

// VerifyBytes decodes sig and pk and verifies them against message.
func (s *Scheme) VerifyBytes(message, sig, pk []byte) (bool, error) {
	signature, err := SignatureFromBytes(sig)
	if err != nil {
		return false, err
	}
	publicKey, err := PublicKeyFromBytes(pk)
	if err != nil {
		return false, err
	}
	return s.Verify(message, signature, publicKey)
}

// Sign signs message with sk under this scheme.
func (s *Scheme) Sign(sk *SecretKey, message []byte) (*Signature, error) {
	h, err := s.HashToPoint(message)
	if err != nil {
		return nil, err
	}
	var sig Signature
	sig.point.ScalarMultiplication(&h, sk.scalar.BigInt(new(big.Int)))
	return &sig, nil
}
