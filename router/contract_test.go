// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"context"
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/swaprouter/access"
	"github.com/luxfi/swaprouter/bls"
)

func call(t *testing.T, c *Contract, caller common.Address, readOnly bool, method string, args ...interface{}) []interface{} {
	t.Helper()
	input, err := ABI.Pack(method, args...)
	require.NoError(t, err)
	out, err := c.Run(context.Background(), caller, input, readOnly)
	require.NoError(t, err)
	if len(out) == 0 {
		return nil
	}
	values, err := ABI.Unpack(method, out)
	require.NoError(t, err)
	return values
}

func bigEther(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

// TestContractFlow tests a request and settlement driven through calldata
func TestContractFlow(t *testing.T) {
	require := require.New(t)

	sk := newValidator(t)
	a := newChain(t, chainA, routerA, tokenA, sk)
	c := NewContract(a.router)

	call(t, c, admin, false, "permitDestinationChainId", big.NewInt(chainB))
	call(t, c, admin, false, "setTokenMapping", big.NewInt(chainB), tokenB, tokenA)
	a.fund(t, user, ether(20))

	out := call(t, c, user, false, "requestCrossChainSwap", tokenA, bigEther(10), bigEther(1), big.NewInt(chainB), recipient)
	id := common.Hash(out[0].([32]byte))

	out = call(t, c, stranger, true, "getSwapRequestId", user, recipient, tokenA, bigEther(10), big.NewInt(chainA), big.NewInt(chainB), big.NewInt(1))
	require.Equal(id, common.Hash(out[0].([32]byte)))

	out = call(t, c, stranger, true, "getSwapRequestParameters", [32]byte(id))
	require.Equal(user, out[0])
	require.Equal(tokenB, out[3])
	require.Equal(bigEther(10), out[4])
	require.Equal(new(big.Int).Div(bigEther(5), big.NewInt(100)), out[7])
	require.Equal(false, out[10])

	out = call(t, c, stranger, true, "swapRequestParametersToBytes", [32]byte(id))
	msg := out[0].([]byte)
	require.Len(out[1].([]byte), bls.G1Size)

	scheme, err := bls.NewScheme(bls.SwapRequest, chainA)
	require.NoError(err)
	sig, err := scheme.Sign(sk, msg)
	require.NoError(err)
	call(t, c, settler, false, "rebalanceSolver", solver, [32]byte(id), sig.Bytes())

	out = call(t, c, stranger, true, "getFulfilledSolverRefunds")
	require.Equal([][32]byte{id}, out[0])
	out = call(t, c, stranger, true, "getUnfulfilledSolverRefunds")
	require.Empty(out[0])

	out = call(t, c, stranger, true, "currentNonce")
	require.Equal(big.NewInt(1), out[0])
	out = call(t, c, stranger, true, "nonceToRequester", big.NewInt(1))
	require.Equal(user, out[0])
	out = call(t, c, stranger, true, "getTotalVerificationFeeBalance", tokenA)
	require.Equal(new(big.Int).Div(bigEther(5), big.NewInt(100)), out[0])
}

func TestContractRelay(t *testing.T) {
	require := require.New(t)

	a, _, id := setupSource(t)
	b := destinationChain(t)
	c := NewContract(b.router)

	req, err := a.router.GetSwapRequest(id)
	require.NoError(err)

	call(t, c, solver, false, "relayTokens",
		[32]byte(id), req.Sender, req.Recipient, req.Token, req.DstToken,
		req.Amount.ToBig(), big.NewInt(chainA), big.NewInt(1),
	)
	require.Equal(ether(10), b.token.BalanceOf(recipient))

	out := call(t, c, stranger, true, "getSwapRequestReceipt", [32]byte(id))
	require.Equal(true, out[4])
	require.Equal(solver, out[5])

	// unknown ids read as an empty receipt
	out = call(t, c, stranger, true, "getSwapRequestReceipt", [32]byte{9})
	require.Equal(false, out[4])
}

func TestContractViews(t *testing.T) {
	require := require.New(t)

	sk := newValidator(t)
	a := newChain(t, chainA, routerA, tokenA, sk)
	c := NewContract(a.router)

	out := call(t, c, stranger, true, "getChainId")
	require.Equal(big.NewInt(chainA), out[0])
	out = call(t, c, stranger, true, "getVerificationFeeBps")
	require.Equal(big.NewInt(500), out[0])
	out = call(t, c, stranger, true, "getVerificationFeeAmount", big.NewInt(10_000))
	require.Equal(big.NewInt(500), out[0])
	require.Equal(big.NewInt(9_500), out[1])
	out = call(t, c, stranger, true, "getSwapRequestBlsValidator")
	require.Equal(sk.PublicKey().Bytes(), out[0])
	out = call(t, c, stranger, true, "getAllowedDstChainId", big.NewInt(chainB))
	require.Equal(false, out[0])
	out = call(t, c, stranger, true, "hasRole", [32]byte(access.SettlementRole), settler)
	require.Equal(true, out[0])
	out = call(t, c, stranger, true, "getTokenMapping", tokenA, big.NewInt(chainB))
	require.Equal(common.Address{}, out[0])
}

func TestContractRejections(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	a := newChain(t, chainA, routerA, tokenA, newValidator(t))
	c := NewContract(a.router)

	input, err := ABI.Pack("permitDestinationChainId", big.NewInt(chainB))
	require.NoError(err)
	_, err = c.Run(ctx, admin, input, true)
	require.ErrorIs(err, ErrReadOnly)

	_, err = c.Run(ctx, stranger, input, false)
	require.ErrorIs(err, ErrUnauthorized)

	_, err = c.Run(ctx, admin, []byte{1, 2}, false)
	require.ErrorIs(err, ErrInvalidInput)

	_, err = c.Run(ctx, admin, []byte{0xde, 0xad, 0xbe, 0xef}, false)
	require.ErrorIs(err, ErrInvalidInput)

	// chain ids must fit 64 bits
	huge := new(big.Int).Lsh(big.NewInt(1), 64)
	input, err = ABI.Pack("permitDestinationChainId", huge)
	require.NoError(err)
	_, err = c.Run(ctx, admin, input, false)
	require.ErrorIs(err, ErrInvalidInput)

	// truncated arguments
	input, err = ABI.Pack("setVerificationFeeBps", big.NewInt(1))
	require.NoError(err)
	_, err = c.Run(ctx, admin, input[:20], false)
	require.ErrorIs(err, ErrInvalidInput)
}
