// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package upgrade

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
)

// Governed actions.
const (
	ActionScheduleUpgrade = "scheduleUpgrade"
	ActionCancelUpgrade   = "cancelUpgrade"
	ActionSetMinimumDelay = "setMinimumDelay"
	ActionSetPublicKey    = "setPublicKey"
)

var (
	stringT, _  = abi.NewType("string", "", nil)
	bytesT, _   = abi.NewType("bytes", "", nil)
	uint256T, _ = abi.NewType("uint256", "", nil)
	addressT, _ = abi.NewType("address", "", nil)

	messageArgs  = abi.Arguments{{Type: stringT}, {Type: bytesT}, {Type: uint256T}}
	scheduleArgs = abi.Arguments{{Type: addressT}, {Type: bytesT}, {Type: uint256T}}
	uintArgs     = abi.Arguments{{Type: uint256T}}

	errMalformedSchedule = errors.New("malformed schedule payload")
)

// Message is the byte string signed for action with payload at governance
// nonce: abi.encode(string action, bytes payload, uint256 nonce).
func Message(action string, payload []byte, nonce uint64) ([]byte, error) {
	if payload == nil {
		payload = []byte{}
	}
	return messageArgs.Pack(action, payload, new(big.Int).SetUint64(nonce))
}

// SchedulePayload encodes the parameters of a scheduled upgrade.
func SchedulePayload(implementation common.Address, calldata []byte, upgradeTime uint64) ([]byte, error) {
	if calldata == nil {
		calldata = []byte{}
	}
	return scheduleArgs.Pack(implementation, calldata, new(big.Int).SetUint64(upgradeTime))
}

// DelayPayload encodes a minimum delay in seconds.
func DelayPayload(seconds uint64) ([]byte, error) {
	return uintArgs.Pack(new(big.Int).SetUint64(seconds))
}

func decodeSchedulePayload(b []byte) (Pending, error) {
	values, err := scheduleArgs.Unpack(b)
	if err != nil {
		return Pending{}, err
	}
	if len(values) != 3 {
		return Pending{}, errMalformedSchedule
	}
	implementation, ok1 := values[0].(common.Address)
	calldata, ok2 := values[1].([]byte)
	upgradeTime, ok3 := values[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 || !upgradeTime.IsUint64() {
		return Pending{}, errMalformedSchedule
	}
	return Pending{
		Implementation: implementation,
		Calldata:       calldata,
		UpgradeTime:    upgradeTime.Uint64(),
	}, nil
}
