// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"sync/atomic"
	"time"
)

var _ Host = (*LocalHost)(nil)

// LocalHost is a Host for a standalone node. The chain id can be changed at
// runtime, which is how a chain fork is observed.
type LocalHost struct {
	chainID atomic.Uint64
	now     func() time.Time
}

func NewLocalHost(chainID uint64) *LocalHost {
	h := &LocalHost{now: time.Now}
	h.chainID.Store(chainID)
	return h
}

func (h *LocalHost) ChainID() uint64 { return h.chainID.Load() }

func (h *LocalHost) SetChainID(id uint64) { h.chainID.Store(id) }

func (h *LocalHost) Timestamp() uint64 { return uint64(h.now().Unix()) }

// SetClock replaces the time source. Not safe to call concurrently with
// Timestamp.
func (h *LocalHost) SetClock(now func() time.Time) { h.now = now }
