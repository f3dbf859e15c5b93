// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"math/big"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
)

var (
	addressT, _ = abi.NewType("address", "", nil)
	uint256T, _ = abi.NewType("uint256", "", nil)

	// abi.encode(sender, recipient, token, amount, srcChainId, dstChainId, nonce)
	requestArgs = abi.Arguments{
		{Name: "sender", Type: addressT},
		{Name: "recipient", Type: addressT},
		{Name: "token", Type: addressT},
		{Name: "amount", Type: uint256T},
		{Name: "srcChainId", Type: uint256T},
		{Name: "dstChainId", Type: uint256T},
		{Name: "nonce", Type: uint256T},
	}
)

// Encode returns the canonical ABI encoding of the request parameters. This
// is the message validators sign.
func (p RequestParams) Encode() []byte {
	b, err := requestArgs.Pack(
		p.Sender,
		p.Recipient,
		p.Token,
		p.Amount.ToBig(),
		new(big.Int).SetUint64(p.SrcChainID),
		new(big.Int).SetUint64(p.DstChainID),
		new(big.Int).SetUint64(p.Nonce),
	)
	if err != nil {
		// every argument has a fixed, valid type
		panic(err)
	}
	return b
}

// ID returns keccak256 of the canonical encoding.
func (p RequestParams) ID() RequestID {
	return common.BytesToHash(crypto.Keccak256(p.Encode()))
}

// DecodeParams parses a canonical encoding back into parameters.
func DecodeParams(b []byte) (RequestParams, error) {
	values, err := requestArgs.Unpack(b)
	if err != nil {
		return RequestParams{}, err
	}
	var p RequestParams
	p.Sender = values[0].(common.Address)
	p.Recipient = values[1].(common.Address)
	p.Token = values[2].(common.Address)
	p.Amount.SetFromBig(values[3].(*big.Int))
	p.SrcChainID = values[4].(*big.Int).Uint64()
	p.DstChainID = values[5].(*big.Int).Uint64()
	p.Nonce = values[6].(*big.Int).Uint64()
	return p, nil
}
