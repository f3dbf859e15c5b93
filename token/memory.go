// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// TransferHook observes a transfer after balances moved. Returning an error
// undoes the transfer.
type TransferHook func(ctx context.Context, from, to common.Address, amount *uint256.Int) error

// Memory is an in-memory token with balances and allowances.
type Memory struct {
	Symbol string

	mu         sync.Mutex
	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]map[common.Address]*uint256.Int
	supply     *uint256.Int
	hook       TransferHook
}

func NewMemory(symbol string) *Memory {
	return &Memory{
		Symbol:     symbol,
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]*uint256.Int),
		supply:     new(uint256.Int),
	}
}

// SetHook installs h to run after every successful transfer. The token lock
// is not held while h runs.
func (m *Memory) SetHook(h TransferHook) {
	m.mu.Lock()
	m.hook = h
	m.mu.Unlock()
}

// Mint credits amount to owner.
func (m *Memory) Mint(owner common.Address, amount *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credit(owner, amount)
	m.supply.Add(m.supply, amount)
}

// Approve sets the allowance owner grants spender.
func (m *Memory) Approve(owner, spender common.Address, amount *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allowances[owner] == nil {
		m.allowances[owner] = make(map[common.Address]*uint256.Int)
	}
	m.allowances[owner][spender] = new(uint256.Int).Set(amount)
}

func (m *Memory) Allowance(owner, spender common.Address) *uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.allowances[owner][spender]; ok {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int)
}

func (m *Memory) BalanceOf(owner common.Address) *uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.balances[owner]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

func (m *Memory) TotalSupply() *uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(uint256.Int).Set(m.supply)
}

func (m *Memory) Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	m.mu.Lock()
	if err := m.move(from, to, amount); err != nil {
		m.mu.Unlock()
		return err
	}
	hook := m.hook
	m.mu.Unlock()
	return m.runHook(ctx, hook, from, to, amount)
}

func (m *Memory) TransferFrom(ctx context.Context, spender, owner, to common.Address, amount *uint256.Int) error {
	m.mu.Lock()
	allowance := m.allowances[owner][spender]
	if allowance == nil || allowance.Lt(amount) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s approved %s", ErrInsufficientAllowance, owner, spender)
	}
	if err := m.move(owner, to, amount); err != nil {
		m.mu.Unlock()
		return err
	}
	allowance.Sub(allowance, amount)
	hook := m.hook
	m.mu.Unlock()

	if err := m.runHook(ctx, hook, owner, to, amount); err != nil {
		m.mu.Lock()
		allowance.Add(allowance, amount)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Memory) runHook(ctx context.Context, hook TransferHook, from, to common.Address, amount *uint256.Int) error {
	if hook == nil {
		return nil
	}
	if err := hook(ctx, from, to, amount); err != nil {
		m.mu.Lock()
		// balances were already moved; reverse them
		_ = m.move(to, from, amount)
		m.mu.Unlock()
		return err
	}
	return nil
}

// move requires m.mu.
func (m *Memory) move(from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	bal := m.balances[from]
	if bal == nil || bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, balString(bal), amount.Dec())
	}
	bal.Sub(bal, amount)
	m.credit(to, amount)
	return nil
}

func (m *Memory) credit(owner common.Address, amount *uint256.Int) {
	bal, ok := m.balances[owner]
	if !ok {
		bal = new(uint256.Int)
		m.balances[owner] = bal
	}
	bal.Add(bal, amount)
}

func balString(b *uint256.Int) string {
	if b == nil {
		return "0"
	}
	return b.Dec()
}
