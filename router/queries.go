// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/swaprouter/access"
	"github.com/luxfi/swaprouter/bls"
	"github.com/luxfi/swaprouter/fees"
)

var ErrReceiptNotFound = errors.New("fulfillment receipt not found")

func (r *Router) view() *state {
	return newState(r.db)
}

// Address is the router's custody account.
func (r *Router) Address() common.Address { return r.address }

// ChainID is the chain the router executes on.
func (r *Router) ChainID() uint64 { return r.host.ChainID() }

// GetSwapRequest returns the request with id.
func (r *Router) GetSwapRequest(id RequestID) (*SwapRequest, error) {
	return r.view().getRequest(id)
}

// GetReceipt returns the fulfillment receipt for id.
func (r *Router) GetReceipt(id RequestID) (*FulfillmentReceipt, error) {
	rcpt, err := r.view().getReceipt(id)
	if err != nil {
		return nil, err
	}
	if rcpt == nil {
		return nil, ErrReceiptNotFound
	}
	return rcpt, nil
}

// FeeBalance returns the accrued, unwithdrawn verification fees of tok.
func (r *Router) FeeBalance(tok common.Address) (*uint256.Int, error) {
	return r.view().feeBalance(tok)
}

// TokenMapping returns the destination token for srcToken toward
// dstChainID, or the zero address.
func (r *Router) TokenMapping(srcToken common.Address, dstChainID uint64) (common.Address, error) {
	return r.view().tokenMapping(srcToken, dstChainID)
}

func (r *Router) IsDestinationChainPermitted(chainID uint64) (bool, error) {
	return r.view().chainPermitted(chainID)
}

// PermittedDestinationChains lists permitted chains in ascending order.
func (r *Router) PermittedDestinationChains() ([]uint64, error) {
	return r.view().permittedChains()
}

func (r *Router) VerificationFeeBps() (uint64, error) {
	return r.view().feeBps()
}

// VerificationFeeAmount splits totalFee at the current rate.
func (r *Router) VerificationFeeAmount(totalFee *uint256.Int) (verificationFee, solverFee *uint256.Int, err error) {
	bps, err := r.VerificationFeeBps()
	if err != nil {
		return nil, nil, err
	}
	policy, err := fees.NewPolicy(bps)
	if err != nil {
		return nil, nil, err
	}
	verificationFee = policy.VerificationFee(totalFee)
	solverFee = new(uint256.Int)
	if totalFee.Gt(verificationFee) {
		solverFee.Sub(totalFee, verificationFee)
	}
	return verificationFee, solverFee, nil
}

func (r *Router) SwapRequestPublicKey() (*bls.PublicKey, error) {
	b, err := r.view().swapPublicKey()
	if err != nil {
		return nil, err
	}
	return bls.PublicKeyFromBytes(b)
}

func (r *Router) UnfulfilledSolverRefunds() ([]RequestID, error) {
	return listIDs(r.view().unfulfilled)
}

func (r *Router) FulfilledSolverRefunds() ([]RequestID, error) {
	return listIDs(r.view().fulfilled)
}

func (r *Router) FulfilledTransfers() ([]RequestID, error) {
	return listIDs(r.view().delivered)
}

// SwapRequestID computes the id of a parameter set without touching state.
func (r *Router) SwapRequestID(p RequestParams) RequestID {
	return p.ID()
}

// SwapRequestMessage returns the canonical message validators sign for
// request id, and that message hashed to G1 under this chain's
// swap-request domain.
func (r *Router) SwapRequestMessage(id RequestID) ([]byte, []byte, error) {
	req, err := r.GetSwapRequest(id)
	if err != nil {
		return nil, nil, err
	}
	msg := req.Params().Encode()
	scheme, err := r.SwapScheme()
	if err != nil {
		return nil, nil, err
	}
	point, err := scheme.HashToPoint(msg)
	if err != nil {
		return nil, nil, err
	}
	return msg, bls.MarshalG1(&point), nil
}

// SwapScheme is the swap-request signature scheme of the current chain.
func (r *Router) SwapScheme() (*bls.Scheme, error) {
	return bls.NewScheme(bls.SwapRequest, r.host.ChainID())
}

func (r *Router) CurrentNonce() (uint64, error) {
	return r.view().currentNonce()
}

// NonceRequester returns who created the request with nonce.
func (r *Router) NonceRequester(nonce uint64) (common.Address, error) {
	return r.view().nonceCreator(nonce)
}

func (r *Router) HasRole(role access.Role, account common.Address) (bool, error) {
	return r.view().roles.HasRole(role, account)
}

// Implementation is the last implementation applied by governance.
func (r *Router) Implementation() (common.Address, error) {
	return r.view().implementation()
}
