// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Errors. Every error aborts the operation that returned it with no state
// change.
var (
	ErrZeroAmount                   = errors.New("amount must be greater than zero")
	ErrZeroAddress                  = errors.New("zero address")
	ErrTokenNotSupported            = errors.New("token not supported")
	ErrDestinationChainNotPermitted = errors.New("destination chain id not permitted")
	ErrSameChain                    = errors.New("destination chain is the local chain")
	ErrFeeTooLow                    = errors.New("fee too low")
	ErrNewFeeTooLow                 = errors.New("new fee must exceed current fee")
	ErrRequestNotFound              = errors.New("swap request not found")
	ErrAlreadyFulfilled             = errors.New("already fulfilled")
	ErrWrongChain                   = errors.New("source chain id mismatch")
	ErrRequestIDMismatch            = errors.New("request id does not match relayed parameters")
	ErrUnauthorized                 = errors.New("unauthorized")
	ErrInvalidSignature             = errors.New("invalid BLS signature")
	ErrFeeAccountUnderflow          = errors.New("verification fee balance underflow")
	ErrNoFeesToWithdraw             = errors.New("no verification fees to withdraw")
	ErrReentrantCall                = errors.New("reentrant call")
	ErrHookFailed                   = errors.New("post-settlement hook failed")
	ErrReadOnly                     = errors.New("state modification in read-only call")
)

// RequestID identifies a swap request. It is the keccak256 of the canonical
// request encoding.
type RequestID = common.Hash

// SwapRequest is a source-chain transfer intent held in escrow until a
// validator-signed settlement pays the solver.
type SwapRequest struct {
	Sender          common.Address `serialize:"true" json:"sender"`
	Recipient       common.Address `serialize:"true" json:"recipient"`
	Token           common.Address `serialize:"true" json:"token"`
	DstToken        common.Address `serialize:"true" json:"dstToken"`
	Amount          uint256.Int    `serialize:"true" json:"amount"`
	SrcChainID      uint64         `serialize:"true" json:"srcChainId"`
	DstChainID      uint64         `serialize:"true" json:"dstChainId"`
	VerificationFee uint256.Int    `serialize:"true" json:"verificationFee"`
	SolverFee       uint256.Int    `serialize:"true" json:"solverFee"`
	Nonce           uint64         `serialize:"true" json:"nonce"`
	Executed        bool           `serialize:"true" json:"executed"`
	RequestedAt     uint64         `serialize:"true" json:"requestedAt"`
}

// Fee returns verification fee plus solver fee.
func (r *SwapRequest) Fee() *uint256.Int {
	return new(uint256.Int).Add(&r.VerificationFee, &r.SolverFee)
}

// Params returns the identity fields of the request.
func (r *SwapRequest) Params() RequestParams {
	return RequestParams{
		Sender:     r.Sender,
		Recipient:  r.Recipient,
		Token:      r.Token,
		Amount:     r.Amount,
		SrcChainID: r.SrcChainID,
		DstChainID: r.DstChainID,
		Nonce:      r.Nonce,
	}
}

// FulfillmentReceipt records a destination-side delivery.
type FulfillmentReceipt struct {
	RequestID   RequestID      `serialize:"true" json:"requestId"`
	SrcChainID  uint64         `serialize:"true" json:"srcChainId"`
	DstChainID  uint64         `serialize:"true" json:"dstChainId"`
	Token       common.Address `serialize:"true" json:"token"`
	Fulfilled   bool           `serialize:"true" json:"fulfilled"`
	Solver      common.Address `serialize:"true" json:"solver"`
	Recipient   common.Address `serialize:"true" json:"recipient"`
	Amount      uint256.Int    `serialize:"true" json:"amount"`
	FulfilledAt uint64         `serialize:"true" json:"fulfilledAt"`
}

// RequestParams are the fields a request id commits to, in encoding order.
// Fees and execution status are not part of it.
type RequestParams struct {
	Sender     common.Address
	Recipient  common.Address
	Token      common.Address
	Amount     uint256.Int
	SrcChainID uint64
	DstChainID uint64
	Nonce      uint64
}

// RelayParams is what a solver submits on the destination chain. The source
// side parameters let the router recompute the request id, so a relay that
// disagrees with the real request fails instead of consuming the id.
type RelayParams struct {
	RequestID  RequestID
	Sender     common.Address
	Recipient  common.Address
	SrcToken   common.Address
	DstToken   common.Address
	Amount     uint256.Int
	SrcChainID uint64
	Nonce      uint64
}

// SettlementResult describes a completed solver payout.
type SettlementResult struct {
	RequestID RequestID
	Solver    common.Address
	Token     common.Address
	Payout    uint256.Int
	Request   SwapRequest
}
