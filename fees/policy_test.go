// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fees

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1e18))
}

// TestSplit tests the verification/solver split across rates
func TestSplit(t *testing.T) {
	tests := []struct {
		name         string
		bps          uint64
		total        *uint256.Int
		verification *uint256.Int
		solver       *uint256.Int
		wantErr      error
	}{
		{
			name:         "500 bps of one token",
			bps:          500,
			total:        ether(1),
			verification: uint256.NewInt(5e16),
			solver:       uint256.NewInt(95e16),
		},
		{
			name:         "zero rate",
			bps:          0,
			total:        ether(1),
			verification: uint256.NewInt(0),
			solver:       ether(1),
		},
		{
			name:         "rounds down",
			bps:          500,
			total:        uint256.NewInt(19),
			verification: uint256.NewInt(0),
			solver:       uint256.NewInt(19),
		},
		{
			name:         "max rate",
			bps:          MaxFeeBps,
			total:        uint256.NewInt(3),
			verification: uint256.NewInt(1),
			solver:       uint256.NewInt(2),
		},
		{
			name:    "zero fee",
			bps:     0,
			total:   uint256.NewInt(0),
			wantErr: ErrFeeTooLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			p, err := NewPolicy(tt.bps)
			require.NoError(err)

			v, s, err := p.Split(tt.total)
			require.ErrorIs(err, tt.wantErr)
			if tt.wantErr != nil {
				return
			}
			require.Equal(tt.verification, v)
			require.Equal(tt.solver, s)
			require.Equal(tt.total, new(uint256.Int).Add(v, s))
		})
	}
}

func TestSetRate(t *testing.T) {
	require := require.New(t)

	var p Policy
	require.NoError(p.SetRate(MaxFeeBps))
	require.Equal(uint64(MaxFeeBps), p.Rate())

	err := p.SetRate(MaxFeeBps + 1)
	require.ErrorIs(err, ErrFeeBpsExceedsThreshold)
	require.Equal(uint64(MaxFeeBps), p.Rate())

	_, err = NewPolicy(10_000)
	require.ErrorIs(err, ErrFeeBpsExceedsThreshold)
}

func TestVerificationFeeNoOverflow(t *testing.T) {
	p, err := NewPolicy(MaxFeeBps)
	require.NoError(t, err)

	max := new(uint256.Int).SetAllOne()
	fee := p.VerificationFee(max)
	// half of 2^256-1, rounded down
	want := new(uint256.Int).Rsh(max, 1)
	require.Equal(t, want, fee)
}

func BenchmarkSplit(b *testing.B) {
	p, _ := NewPolicy(500)
	total := ether(1)
	for i := 0; i < b.N; i++ {
		_, _, _ = p.Split(total)
	}
}
