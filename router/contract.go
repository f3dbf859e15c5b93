// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/swaprouter/bls"
)

var ErrInvalidInput = errors.New("invalid input")

// Contract exposes a Router through its Solidity ABI, so it can be driven
// with EVM calldata.
type Contract struct {
	router *Router
}

func NewContract(r *Router) *Contract {
	return &Contract{router: r}
}

type handler struct {
	mutates bool
	run     func(c *Contract, ctx context.Context, caller common.Address, args []interface{}) ([]byte, error)
}

var handlers = map[string]handler{
	"requestCrossChainSwap":   {true, (*Contract).requestCrossChainSwap},
	"updateFeesIfUnfulfilled": {true, (*Contract).updateFeesIfUnfulfilled},
	"relayTokens":             {true, (*Contract).relayTokens},
	"rebalanceSolver":         {true, (*Contract).rebalanceSolver},

	"setVerificationFeeBps":      {true, (*Contract).setVerificationFeeBps},
	"setSwapRequestBlsValidator": {true, (*Contract).setSwapRequestBlsValidator},
	"permitDestinationChainId":   {true, (*Contract).permitDestinationChainID},
	"blockDestinationChainId":    {true, (*Contract).blockDestinationChainID},
	"setTokenMapping":            {true, (*Contract).setTokenMapping},
	"removeTokenMapping":         {true, (*Contract).removeTokenMapping},
	"withdrawVerificationFee":    {true, (*Contract).withdrawVerificationFee},
	"grantRole":                  {true, (*Contract).grantRole},
	"revokeRole":                 {true, (*Contract).revokeRole},

	"hasRole":                        {false, (*Contract).hasRole},
	"getSwapRequestParameters":       {false, (*Contract).getSwapRequestParameters},
	"getSwapRequestReceipt":          {false, (*Contract).getSwapRequestReceipt},
	"getTotalVerificationFeeBalance": {false, (*Contract).getTotalVerificationFeeBalance},
	"getTokenMapping":                {false, (*Contract).getTokenMapping},
	"getAllowedDstChainId":           {false, (*Contract).getAllowedDstChainID},
	"getVerificationFeeBps":          {false, (*Contract).getVerificationFeeBps},
	"getVerificationFeeAmount":       {false, (*Contract).getVerificationFeeAmount},
	"getChainId":                     {false, (*Contract).getChainID},
	"getSwapRequestBlsValidator":     {false, (*Contract).getSwapRequestBlsValidator},
	"getUnfulfilledSolverRefunds":    {false, listHandler((*Router).UnfulfilledSolverRefunds, "getUnfulfilledSolverRefunds")},
	"getFulfilledSolverRefunds":      {false, listHandler((*Router).FulfilledSolverRefunds, "getFulfilledSolverRefunds")},
	"getFulfilledTransfers":          {false, listHandler((*Router).FulfilledTransfers, "getFulfilledTransfers")},
	"getSwapRequestId":               {false, (*Contract).getSwapRequestID},
	"swapRequestParametersToBytes":   {false, (*Contract).swapRequestParametersToBytes},
	"currentNonce":                   {false, (*Contract).currentNonce},
	"nonceToRequester":               {false, (*Contract).nonceToRequester},
}

// Run executes calldata input on behalf of caller. In read-only mode any
// state-changing method fails with ErrReadOnly.
func (c *Contract) Run(ctx context.Context, caller common.Address, input []byte, readOnly bool) ([]byte, error) {
	method, data, err := ABI.MethodBySelector(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	h, ok := handlers[method.Name]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported method %s", ErrInvalidInput, method.Name)
	}
	if h.mutates && readOnly {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, method.Name)
	}
	args, err := ABI.UnpackInput(method.Name, data, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return h.run(c, ctx, caller, args)
}

func toUint256(v interface{}) (*uint256.Int, error) {
	b, ok := v.(*big.Int)
	if !ok {
		return nil, ErrInvalidInput
	}
	u, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%w: value overflows uint256", ErrInvalidInput)
	}
	return u, nil
}

func toUint64(v interface{}) (uint64, error) {
	b, ok := v.(*big.Int)
	if !ok || !b.IsUint64() {
		return 0, fmt.Errorf("%w: value does not fit uint64", ErrInvalidInput)
	}
	return b.Uint64(), nil
}

func (c *Contract) requestCrossChainSwap(ctx context.Context, caller common.Address, args []interface{}) ([]byte, error) {
	amount, err := toUint256(args[1])
	if err != nil {
		return nil, err
	}
	fee, err := toUint256(args[2])
	if err != nil {
		return nil, err
	}
	dst, err := toUint64(args[3])
	if err != nil {
		return nil, err
	}
	id, err := c.router.RequestCrossChainSwap(ctx, caller, args[0].(common.Address), amount, fee, dst, args[4].(common.Address))
	if err != nil {
		return nil, err
	}
	return ABI.PackOutput("requestCrossChainSwap", [32]byte(id))
}

func (c *Contract) updateFeesIfUnfulfilled(ctx context.Context, caller common.Address, args []interface{}) ([]byte, error) {
	newFee, err := toUint256(args[1])
	if err != nil {
		return nil, err
	}
	return nil, c.router.UpdateFeesIfUnfulfilled(ctx, caller, args[0].([32]byte), newFee)
}

func (c *Contract) relayTokens(ctx context.Context, caller common.Address, args []interface{}) ([]byte, error) {
	amount, err := toUint256(args[5])
	if err != nil {
		return nil, err
	}
	src, err := toUint64(args[6])
	if err != nil {
		return nil, err
	}
	nonce, err := toUint64(args[7])
	if err != nil {
		return nil, err
	}
	return nil, c.router.RelayTokens(ctx, caller, RelayParams{
		RequestID:  args[0].([32]byte),
		Sender:     args[1].(common.Address),
		Recipient:  args[2].(common.Address),
		SrcToken:   args[3].(common.Address),
		DstToken:   args[4].(common.Address),
		Amount:     *amount,
		SrcChainID: src,
		Nonce:      nonce,
	})
}

func (c *Contract) rebalanceSolver(ctx context.Context, caller common.Address, args []interface{}) ([]byte, error) {
	return nil, c.router.RebalanceSolver(ctx, caller, args[0].(common.Address), args[1].([32]byte), args[2].([]byte))
}

func (c *Contract) setVerificationFeeBps(ctx context.Context, caller common.Address, args []interface{}) ([]byte, error) {
	bps, err := toUint64(args[0])
	if err != nil {
		return nil, err
	}
	return nil, c.router.SetVerificationFeeBps(ctx, caller, bps)
}

func (c *Contract) setSwapRequestBlsValidator(ctx context.Context, caller common.Address, args []interface{}) ([]byte, error) {
	pk, err := bls.PublicKeyFromBytes(args[0].([]byte))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil, c.router.SetSwapRequestPublicKey(ctx, caller, pk, args[1].([]byte))
}

func (c *Contract) permitDestinationChainID(ctx context.Context, caller common.Address, args []interface{}) ([]byte, error) {
	chainID, err := toUint64(args[0])
	if err != nil {
		return nil, err
	}
	return nil, c.router.PermitDestinationChainID(ctx, caller, chainID)
}

func (c *Contract) blockDestinationChainID(ctx context.Context, caller common.Address, args []interface{}) ([]byte, error) {
	chainID, err := toUint64(args[0])
	if err != nil {
		return nil, err
	}
	return nil, c.router.BlockDestinationChainID(ctx, caller, chainID)
}

func (c *Contract) setTokenMapping(ctx context.Context, caller common.Address, args []interface{}) ([]byte, error) {
	chainID, err := toUint64(args[0])
	if err != nil {
		return nil, err
	}
	return nil, c.router.SetTokenMapping(ctx, caller, chainID, args[1].(common.Address), args[2].(common.Address))
}

func (c *Contract) removeTokenMapping(ctx context.Context, caller common.Address, args []interface{}) ([]byte, error) {
	chainID, err := toUint64(args[0])
	if err != nil {
		return nil, err
	}
	return nil, c.router.RemoveTokenMapping(ctx, caller, chainID, args[1].(common.Address))
}

func (c *Contract) withdrawVerificationFee(ctx context.Context, caller common.Address, args []interface{}) ([]byte, error) {
	return nil, c.router.WithdrawVerificationFee(ctx, caller, args[0].(common.Address), args[1].(common.Address))
}

func (c *Contract) grantRole(ctx context.Context, caller common.Address, args []interface{}) ([]byte, error) {
	return nil, c.router.GrantRole(ctx, caller, args[0].([32]byte), args[1].(common.Address))
}

func (c *Contract) revokeRole(ctx context.Context, caller common.Address, args []interface{}) ([]byte, error) {
	return nil, c.router.RevokeRole(ctx, caller, args[0].([32]byte), args[1].(common.Address))
}

func (c *Contract) hasRole(_ context.Context, _ common.Address, args []interface{}) ([]byte, error) {
	ok, err := c.router.HasRole(args[0].([32]byte), args[1].(common.Address))
	if err != nil {
		return nil, err
	}
	return ABI.PackOutput("hasRole", ok)
}

func (c *Contract) getSwapRequestParameters(_ context.Context, _ common.Address, args []interface{}) ([]byte, error) {
	req, err := c.router.GetSwapRequest(args[0].([32]byte))
	if err != nil {
		return nil, err
	}
	return ABI.PackOutput("getSwapRequestParameters",
		req.Sender, req.Recipient, req.Token, req.DstToken,
		req.Amount.ToBig(), big64(req.SrcChainID), big64(req.DstChainID),
		req.VerificationFee.ToBig(), req.SolverFee.ToBig(),
		big64(req.Nonce), req.Executed, big64(req.RequestedAt),
	)
}

func (c *Contract) getSwapRequestReceipt(_ context.Context, _ common.Address, args []interface{}) ([]byte, error) {
	id := args[0].([32]byte)
	rcpt, err := c.router.GetReceipt(id)
	if errors.Is(err, ErrReceiptNotFound) {
		rcpt = &FulfillmentReceipt{RequestID: id}
	} else if err != nil {
		return nil, err
	}
	return ABI.PackOutput("getSwapRequestReceipt",
		[32]byte(rcpt.RequestID), big64(rcpt.SrcChainID), big64(rcpt.DstChainID),
		rcpt.Token, rcpt.Fulfilled, rcpt.Solver, rcpt.Recipient,
		rcpt.Amount.ToBig(), big64(rcpt.FulfilledAt),
	)
}

func (c *Contract) getTotalVerificationFeeBalance(_ context.Context, _ common.Address, args []interface{}) ([]byte, error) {
	bal, err := c.router.FeeBalance(args[0].(common.Address))
	if err != nil {
		return nil, err
	}
	return ABI.PackOutput("getTotalVerificationFeeBalance", bal.ToBig())
}

func (c *Contract) getTokenMapping(_ context.Context, _ common.Address, args []interface{}) ([]byte, error) {
	chainID, err := toUint64(args[1])
	if err != nil {
		return nil, err
	}
	dst, err := c.router.TokenMapping(args[0].(common.Address), chainID)
	if err != nil {
		return nil, err
	}
	return ABI.PackOutput("getTokenMapping", dst)
}

func (c *Contract) getAllowedDstChainID(_ context.Context, _ common.Address, args []interface{}) ([]byte, error) {
	chainID, err := toUint64(args[0])
	if err != nil {
		return nil, err
	}
	ok, err := c.router.IsDestinationChainPermitted(chainID)
	if err != nil {
		return nil, err
	}
	return ABI.PackOutput("getAllowedDstChainId", ok)
}

func (c *Contract) getVerificationFeeBps(context.Context, common.Address, []interface{}) ([]byte, error) {
	bps, err := c.router.VerificationFeeBps()
	if err != nil {
		return nil, err
	}
	return ABI.PackOutput("getVerificationFeeBps", big64(bps))
}

func (c *Contract) getVerificationFeeAmount(_ context.Context, _ common.Address, args []interface{}) ([]byte, error) {
	total, err := toUint256(args[0])
	if err != nil {
		return nil, err
	}
	v, s, err := c.router.VerificationFeeAmount(total)
	if err != nil {
		return nil, err
	}
	return ABI.PackOutput("getVerificationFeeAmount", v.ToBig(), s.ToBig())
}

func (c *Contract) getChainID(context.Context, common.Address, []interface{}) ([]byte, error) {
	return ABI.PackOutput("getChainId", big64(c.router.ChainID()))
}

func (c *Contract) getSwapRequestBlsValidator(context.Context, common.Address, []interface{}) ([]byte, error) {
	pk, err := c.router.SwapRequestPublicKey()
	if err != nil {
		return nil, err
	}
	return ABI.PackOutput("getSwapRequestBlsValidator", pk.Bytes())
}

func listHandler(list func(*Router) ([]RequestID, error), name string) func(*Contract, context.Context, common.Address, []interface{}) ([]byte, error) {
	return func(c *Contract, _ context.Context, _ common.Address, _ []interface{}) ([]byte, error) {
		ids, err := list(c.router)
		if err != nil {
			return nil, err
		}
		out := make([][32]byte, len(ids))
		for i, id := range ids {
			out[i] = id
		}
		return ABI.PackOutput(name, out)
	}
}

func (c *Contract) getSwapRequestID(_ context.Context, _ common.Address, args []interface{}) ([]byte, error) {
	amount, err := toUint256(args[3])
	if err != nil {
		return nil, err
	}
	var nums [3]uint64
	for i := range nums {
		if nums[i], err = toUint64(args[4+i]); err != nil {
			return nil, err
		}
	}
	id := RequestParams{
		Sender:     args[0].(common.Address),
		Recipient:  args[1].(common.Address),
		Token:      args[2].(common.Address),
		Amount:     *amount,
		SrcChainID: nums[0],
		DstChainID: nums[1],
		Nonce:      nums[2],
	}.ID()
	return ABI.PackOutput("getSwapRequestId", [32]byte(id))
}

func (c *Contract) swapRequestParametersToBytes(_ context.Context, _ common.Address, args []interface{}) ([]byte, error) {
	msg, point, err := c.router.SwapRequestMessage(args[0].([32]byte))
	if err != nil {
		return nil, err
	}
	return ABI.PackOutput("swapRequestParametersToBytes", msg, point)
}

func (c *Contract) currentNonce(context.Context, common.Address, []interface{}) ([]byte, error) {
	n, err := c.router.CurrentNonce()
	if err != nil {
		return nil, err
	}
	return ABI.PackOutput("currentNonce", big64(n))
}

func (c *Contract) nonceToRequester(_ context.Context, _ common.Address, args []interface{}) ([]byte, error) {
	n, err := toUint64(args[0])
	if err != nil {
		return nil, err
	}
	addr, err := c.router.NonceRequester(n)
	if err != nil {
		return nil, err
	}
	return ABI.PackOutput("nonceToRequester", addr)
}
