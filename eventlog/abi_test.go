// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package eventlog

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

const testABI = `[
	{"type":"function","name":"getAmount","stateMutability":"view",
	 "inputs":[{"name":"id","type":"bytes32"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"Moved","anonymous":false,"inputs":[
		{"name":"id","type":"bytes32","indexed":true},
		{"name":"chainId","type":"uint256","indexed":true},
		{"name":"to","type":"address","indexed":false},
		{"name":"amount","type":"uint256","indexed":false}]}
]`

var parsed = MustParse(testABI)

func TestPackEvent(t *testing.T) {
	require := require.New(t)

	id := common.HexToHash("0x01")
	to := common.HexToAddress("0x1234")
	topics, data, err := parsed.PackEvent("Moved", [32]byte(id), big.NewInt(31337), to, big.NewInt(10))
	require.NoError(err)
	require.Len(topics, 3)
	require.Equal(parsed.Events["Moved"].ID, topics[0])
	require.Equal(id, topics[1])
	require.Equal(common.BigToHash(big.NewInt(31337)), topics[2])
	require.Len(data, 64)

	fields, err := parsed.UnpackEvent("Moved", Log{Topics: topics, Data: data})
	require.NoError(err)
	require.Equal(to, fields["to"])
	require.Equal(0, big.NewInt(10).Cmp(fields["amount"].(*big.Int)))
}

func TestPackEventErrors(t *testing.T) {
	_, _, err := parsed.PackEvent("Missing")
	require.ErrorIs(t, err, ErrEventNotFound)

	_, _, err = parsed.PackEvent("Moved", [32]byte{})
	require.Error(t, err)

	_, _, err = parsed.PackEvent("Moved", 3.5, big.NewInt(1), common.Address{}, big.NewInt(1))
	require.ErrorContains(t, err, "unsupported indexed type")
}

func TestMethodBySelector(t *testing.T) {
	require := require.New(t)

	m := parsed.Methods["getAmount"]
	input := append(append([]byte{}, m.ID...), make([]byte, 32)...)
	got, rest, err := parsed.MethodBySelector(input)
	require.NoError(err)
	require.Equal("getAmount", got.Name)
	require.Len(rest, 32)

	args, err := parsed.UnpackInput("getAmount", rest, true)
	require.NoError(err)
	require.Len(args, 1)

	_, err = parsed.UnpackInput("getAmount", rest[:31], true)
	require.Error(err)

	_, _, err = parsed.MethodBySelector([]byte{1, 2})
	require.ErrorIs(err, ErrShortInput)

	_, _, err = parsed.MethodBySelector([]byte{1, 2, 3, 4})
	require.ErrorIs(err, ErrMethodNotFound)
}

func TestBufferFlush(t *testing.T) {
	require := require.New(t)

	var rec Recorder
	buf := NewBuffer(common.HexToAddress("0xff"), parsed)
	require.NoError(buf.Add("Moved", [32]byte{1}, big.NewInt(1), common.Address{}, big.NewInt(2)))
	require.Empty(rec.Logs())

	buf.Flush(&rec)
	require.Len(rec.Named("Moved"), 1)
	require.Equal(common.HexToAddress("0xff"), rec.Logs()[0].Address)

	buf.Flush(&rec)
	require.Len(rec.Logs(), 1)

	rec.Reset()
	require.Empty(rec.Logs())
}
