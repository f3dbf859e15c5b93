// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package eventlog

import (
	"sync"

	"github.com/luxfi/geth/common"
)

// Log is one emitted event.
type Log struct {
	Address common.Address `json:"address"`
	Name    string         `json:"name"`
	Topics  []common.Hash  `json:"topics"`
	Data    []byte         `json:"data"`
}

// Sink receives logs after the state change that produced them has been
// committed.
type Sink interface {
	Emit(logs ...Log)
}

// Discard drops every log.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(...Log) {}

// Recorder is an in-memory Sink.
type Recorder struct {
	mu   sync.Mutex
	logs []Log
}

func (r *Recorder) Emit(logs ...Log) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, logs...)
}

// Logs returns a copy of everything recorded so far.
func (r *Recorder) Logs() []Log {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Log(nil), r.logs...)
}

// Named returns the recorded logs with the given event name.
func (r *Recorder) Named(name string) []Log {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Log
	for _, l := range r.logs {
		if l.Name == name {
			out = append(out, l)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.logs = nil
	r.mu.Unlock()
}

// Buffer accumulates logs for a single operation so they can be dropped if
// the operation aborts.
type Buffer struct {
	contract common.Address
	abi      ABI
	logs     []Log
}

func NewBuffer(contract common.Address, a ABI) *Buffer {
	return &Buffer{contract: contract, abi: a}
}

// Add packs and queues event name.
func (b *Buffer) Add(name string, args ...interface{}) error {
	topics, data, err := b.abi.PackEvent(name, args...)
	if err != nil {
		return err
	}
	b.logs = append(b.logs, Log{
		Address: b.contract,
		Name:    name,
		Topics:  topics,
		Data:    data,
	})
	return nil
}

// Flush emits the queued logs to s and clears the buffer.
func (b *Buffer) Flush(s Sink) {
	if len(b.logs) == 0 {
		return
	}
	s.Emit(b.logs...)
	b.logs = nil
}
