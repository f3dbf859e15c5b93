// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package token defines the fungible token boundary the router moves funds
// through, and an in-memory implementation of it.
package token

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrUnknownToken          = errors.New("unknown token")
	ErrZeroAddress           = errors.New("zero address")
	ErrDuplicateToken        = errors.New("token already registered")
)

// Token is the transfer surface of an ERC20-like asset. Both calls are
// all-or-nothing: on error no balance changes.
type Token interface {
	// TransferFrom moves amount from owner to to, spending the allowance
	// owner granted to spender.
	TransferFrom(ctx context.Context, spender, owner, to common.Address, amount *uint256.Int) error
	// Transfer moves amount from the caller's own balance.
	Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error
	BalanceOf(owner common.Address) *uint256.Int
}

// Resolver finds the Token deployed at an address.
type Resolver interface {
	Token(addr common.Address) (Token, error)
}

// Registry is a Resolver backed by a map.
type Registry struct {
	mu     sync.RWMutex
	tokens map[common.Address]Token
}

func NewRegistry() *Registry {
	return &Registry{tokens: make(map[common.Address]Token)}
}

// Register binds t to addr.
func (r *Registry) Register(addr common.Address, t Token) error {
	if addr == (common.Address{}) {
		return ErrZeroAddress
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[addr]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateToken, addr)
	}
	r.tokens[addr] = t
	return nil
}

func (r *Registry) Token(addr common.Address) (Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, addr)
	}
	return t, nil
}

// Addresses lists every registered token.
func (r *Registry) Addresses() []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]common.Address, 0, len(r.tokens))
	for a := range r.tokens {
		out = append(out, a)
	}
	return out
}
