// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package eventlog packs contract calls, results and events against a
// Solidity ABI and delivers emitted logs to subscribers.
package eventlog

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
)

var (
	ErrMethodNotFound = errors.New("method not found")
	ErrEventNotFound  = errors.New("event not found")
	ErrShortInput     = errors.New("input shorter than a selector")
)

// ABI wraps the geth ABI with packing helpers for outputs, inputs and
// events.
type ABI struct {
	abi.ABI
}

// MustParse parses raw ABI JSON and panics on failure. It is meant for
// package-level ABIs compiled into the binary.
func MustParse(raw string) ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ABI: %v", err))
	}
	return ABI{ABI: parsed}
}

// PackOutput packs args as the return value of method name, without a
// selector.
func (a ABI) PackOutput(name string, args ...interface{}) ([]byte, error) {
	method, ok := a.Methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, name)
	}
	return method.Outputs.Pack(args...)
}

// UnpackInput unpacks call data (selector already stripped) for method name.
// With strict set, data must be a whole number of words.
func (a ABI) UnpackInput(name string, data []byte, strict bool) ([]interface{}, error) {
	method, ok := a.Methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, name)
	}
	if strict && len(data)%32 != 0 {
		return nil, fmt.Errorf("abi: improperly formatted input of %d bytes", len(data))
	}
	return method.Inputs.Unpack(data)
}

// MethodBySelector resolves the 4-byte selector at the head of input.
func (a ABI) MethodBySelector(input []byte) (*abi.Method, []byte, error) {
	if len(input) < 4 {
		return nil, nil, ErrShortInput
	}
	method, err := a.MethodById(input[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %x", ErrMethodNotFound, input[:4])
	}
	return method, input[4:], nil
}

// PackEvent packs event name. It returns the topics (event id first unless
// anonymous, then indexed args) and the ABI encoding of the non-indexed
// args.
func (a ABI) PackEvent(name string, args ...interface{}) ([]common.Hash, []byte, error) {
	event, ok := a.Events[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrEventNotFound, name)
	}
	if len(args) != len(event.Inputs) {
		return nil, nil, fmt.Errorf("event '%s' unexpected number of inputs %d", name, len(args))
	}

	var (
		nonIndexedInputs = make([]interface{}, 0, len(args))
		indexedInputs    = make([]interface{}, 0, len(args))
		nonIndexedArgs   abi.Arguments
	)
	for i, arg := range event.Inputs {
		if arg.Indexed {
			indexedInputs = append(indexedInputs, args[i])
		} else {
			nonIndexedArgs = append(nonIndexedArgs, arg)
			nonIndexedInputs = append(nonIndexedInputs, args[i])
		}
	}

	data, err := nonIndexedArgs.Pack(nonIndexedInputs...)
	if err != nil {
		return nil, nil, err
	}

	topics := make([]common.Hash, 0, len(indexedInputs)+1)
	if !event.Anonymous {
		topics = append(topics, event.ID)
	}
	for _, input := range indexedInputs {
		topic, err := packTopic(input)
		if err != nil {
			return nil, nil, err
		}
		topics = append(topics, topic)
	}
	return topics, data, nil
}

// UnpackEvent decodes the non-indexed fields of log l into a map keyed by
// argument name. Indexed fields are left in l.Topics.
func (a ABI) UnpackEvent(name string, l Log) (map[string]interface{}, error) {
	event, ok := a.Events[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, name)
	}
	if !event.Anonymous && (len(l.Topics) == 0 || l.Topics[0] != event.ID) {
		return nil, fmt.Errorf("log is not a %s event", name)
	}
	out := make(map[string]interface{})
	if err := event.Inputs.NonIndexed().UnpackIntoMap(out, l.Data); err != nil {
		return nil, err
	}
	return out, nil
}

func packTopic(value interface{}) (common.Hash, error) {
	switch v := value.(type) {
	case common.Address:
		return common.BytesToHash(v.Bytes()), nil
	case common.Hash:
		return v, nil
	case [32]byte:
		return common.Hash(v), nil
	case *big.Int:
		if v.Sign() < 0 || v.BitLen() > 256 {
			return common.Hash{}, fmt.Errorf("indexed integer out of range: %s", v)
		}
		return common.BigToHash(v), nil
	case uint64:
		return common.BigToHash(new(big.Int).SetUint64(v)), nil
	case bool:
		if v {
			return common.BigToHash(big.NewInt(1)), nil
		}
		return common.Hash{}, nil
	case []byte:
		return common.BytesToHash(crypto.Keccak256(v)), nil
	case string:
		return common.BytesToHash(crypto.Keccak256([]byte(v))), nil
	default:
		return common.Hash{}, fmt.Errorf("unsupported indexed type: %T", value)
	}
}
