// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"encoding/binary"
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/swaprouter/access"
)

var (
	requestPrefix     = []byte("request")
	receiptPrefix     = []byte("receipt")
	feePrefix         = []byte("fee")
	mappingPrefix     = []byte("mapping")
	chainPrefix       = []byte("chain")
	unfulfilledPrefix = []byte("unfulfilled")
	fulfilledPrefix   = []byte("fulfilled")
	deliveredPrefix   = []byte("delivered")
	noncePrefix       = []byte("nonce")
	metaPrefix        = []byte("meta")
	rolePrefix        = []byte("role")

	nonceKey          = []byte("nonce")
	feeBpsKey         = []byte("feeBps")
	swapPublicKeyKey  = []byte("swapPublicKey")
	implementationKey = []byte("implementation")
	initializedKey    = []byte("initialized")

	present = []byte{1}
)

// state is a typed view of the ledger over one database, usually a
// versiondb that is committed or aborted as a unit.
type state struct {
	requests    database.Database
	receipts    database.Database
	fees        database.Database
	mappings    database.Database
	chains      database.Database
	unfulfilled database.Database
	fulfilled   database.Database
	delivered   database.Database
	nonces      database.Database
	meta        database.Database
	roles       *access.Control
}

func newState(db database.Database) *state {
	return &state{
		requests:    prefixdb.New(requestPrefix, db),
		receipts:    prefixdb.New(receiptPrefix, db),
		fees:        prefixdb.New(feePrefix, db),
		mappings:    prefixdb.New(mappingPrefix, db),
		chains:      prefixdb.New(chainPrefix, db),
		unfulfilled: prefixdb.New(unfulfilledPrefix, db),
		fulfilled:   prefixdb.New(fulfilledPrefix, db),
		delivered:   prefixdb.New(deliveredPrefix, db),
		nonces:      prefixdb.New(noncePrefix, db),
		meta:        prefixdb.New(metaPrefix, db),
		roles:       access.New(prefixdb.New(rolePrefix, db)),
	}
}

func uint64Key(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func mappingKey(srcToken common.Address, dstChainID uint64) []byte {
	return binary.BigEndian.AppendUint64(srcToken.Bytes(), dstChainID)
}

func (s *state) getRequest(id RequestID) (*SwapRequest, error) {
	b, err := s.requests.Get(id.Bytes())
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	var req SwapRequest
	if _, err := Codec.Unmarshal(b, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *state) putRequest(id RequestID, req *SwapRequest) error {
	b, err := Codec.Marshal(codecVersion, req)
	if err != nil {
		return err
	}
	return s.requests.Put(id.Bytes(), b)
}

// getReceipt returns nil, nil when no receipt exists.
func (s *state) getReceipt(id RequestID) (*FulfillmentReceipt, error) {
	b, err := s.receipts.Get(id.Bytes())
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rcpt FulfillmentReceipt
	if _, err := Codec.Unmarshal(b, &rcpt); err != nil {
		return nil, err
	}
	return &rcpt, nil
}

func (s *state) putReceipt(rcpt *FulfillmentReceipt) error {
	b, err := Codec.Marshal(codecVersion, rcpt)
	if err != nil {
		return err
	}
	return s.receipts.Put(rcpt.RequestID.Bytes(), b)
}

func (s *state) feeBalance(tok common.Address) (*uint256.Int, error) {
	b, err := s.fees.Get(tok.Bytes())
	if errors.Is(err, database.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(b), nil
}

func (s *state) setFeeBalance(tok common.Address, v *uint256.Int) error {
	if v.IsZero() {
		return s.fees.Delete(tok.Bytes())
	}
	b := v.Bytes32()
	return s.fees.Put(tok.Bytes(), b[:])
}

// tokenMapping returns the zero address when no mapping exists.
func (s *state) tokenMapping(srcToken common.Address, dstChainID uint64) (common.Address, error) {
	b, err := s.mappings.Get(mappingKey(srcToken, dstChainID))
	if errors.Is(err, database.ErrNotFound) {
		return common.Address{}, nil
	}
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(b), nil
}

func (s *state) setTokenMapping(srcToken common.Address, dstChainID uint64, dstToken common.Address) error {
	return s.mappings.Put(mappingKey(srcToken, dstChainID), dstToken.Bytes())
}

func (s *state) removeTokenMapping(srcToken common.Address, dstChainID uint64) error {
	return s.mappings.Delete(mappingKey(srcToken, dstChainID))
}

func (s *state) chainPermitted(chainID uint64) (bool, error) {
	return s.chains.Has(uint64Key(chainID))
}

func (s *state) setChainPermitted(chainID uint64, permitted bool) error {
	if permitted {
		return s.chains.Put(uint64Key(chainID), present)
	}
	return s.chains.Delete(uint64Key(chainID))
}

func (s *state) permittedChains() ([]uint64, error) {
	it := s.chains.NewIterator()
	defer it.Release()

	var out []uint64
	for it.Next() {
		out = append(out, binary.BigEndian.Uint64(it.Key()))
	}
	return out, it.Error()
}

func addID(db database.Database, id RequestID) error {
	return db.Put(id.Bytes(), present)
}

func removeID(db database.Database, id RequestID) error {
	return db.Delete(id.Bytes())
}

// listIDs returns the set in ascending byte order.
func listIDs(db database.Database) ([]RequestID, error) {
	it := db.NewIterator()
	defer it.Release()

	var out []RequestID
	for it.Next() {
		out = append(out, common.BytesToHash(it.Key()))
	}
	return out, it.Error()
}

// nextNonce increments and returns the nonce counter. The first nonce is 1.
func (s *state) nextNonce() (uint64, error) {
	n, err := s.currentNonce()
	if err != nil {
		return 0, err
	}
	n++
	return n, s.meta.Put(nonceKey, uint64Key(n))
}

func (s *state) currentNonce() (uint64, error) {
	return s.getUint64(nonceKey)
}

func (s *state) setNonceCreator(nonce uint64, creator common.Address) error {
	return s.nonces.Put(uint64Key(nonce), creator.Bytes())
}

func (s *state) nonceCreator(nonce uint64) (common.Address, error) {
	b, err := s.nonces.Get(uint64Key(nonce))
	if errors.Is(err, database.ErrNotFound) {
		return common.Address{}, nil
	}
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(b), nil
}

func (s *state) feeBps() (uint64, error) {
	return s.getUint64(feeBpsKey)
}

func (s *state) setFeeBps(bps uint64) error {
	return s.meta.Put(feeBpsKey, uint64Key(bps))
}

func (s *state) swapPublicKey() ([]byte, error) {
	return s.meta.Get(swapPublicKeyKey)
}

func (s *state) setSwapPublicKey(pk []byte) error {
	return s.meta.Put(swapPublicKeyKey, pk)
}

func (s *state) implementation() (common.Address, error) {
	b, err := s.meta.Get(implementationKey)
	if errors.Is(err, database.ErrNotFound) {
		return common.Address{}, nil
	}
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(b), nil
}

func (s *state) setImplementation(impl common.Address) error {
	return s.meta.Put(implementationKey, impl.Bytes())
}

func (s *state) initialized() (bool, error) {
	return s.meta.Has(initializedKey)
}

func (s *state) setInitialized() error {
	return s.meta.Put(initializedKey, present)
}

func (s *state) getUint64(key []byte) (uint64, error) {
	b, err := s.meta.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(b) != 8 {
		return 0, errors.New("corrupt counter")
	}
	return binary.BigEndian.Uint64(b), nil
}
