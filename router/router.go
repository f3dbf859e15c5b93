// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package router implements the per-chain ledger of the cross-chain swap
// protocol: escrowed swap requests on the source chain, solver deliveries on
// the destination chain, and BLS-authorized solver settlement.
package router

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/swaprouter/access"
	"github.com/luxfi/swaprouter/bls"
	"github.com/luxfi/swaprouter/eventlog"
	"github.com/luxfi/swaprouter/fees"
	"github.com/luxfi/swaprouter/token"
)

// ActionSetSwapRequestPublicKey is the governance action that authorizes a
// new swap-request validator key.
const ActionSetSwapRequestPublicKey = "setSwapRequestBlsValidator"

// Host is the execution environment. Both values are read at call time.
type Host interface {
	ChainID() uint64
	// Timestamp returns the current time in unix seconds.
	Timestamp() uint64
}

// Authorizer verifies governance signatures. Reserve consumes the signature's
// nonce; release hands it back when the operation does not commit.
type Authorizer interface {
	Reserve(action string, payload, sig []byte) (release func(), err error)
}

// Config wires a Router to its environment.
type Config struct {
	// Address is the router's own account, which holds escrowed funds.
	Address common.Address
	Host    Host
	DB      database.Database
	Tokens  token.Resolver
	// Governor authorizes validator key rotation. Without one the key
	// cannot be changed.
	Governor Authorizer
	Sink     eventlog.Sink
	Hooks    []Hook
	// StrictHooks makes a failing post-settlement hook fail the call.
	StrictHooks bool
	Log         log.Logger
	Registerer  prometheus.Registerer
}

// Genesis is the state written the first time a database is opened.
type Genesis struct {
	Admin                common.Address
	Settlers             []common.Address
	VerificationFeeBps   uint64
	SwapRequestPublicKey *bls.PublicKey
	PermittedChains      []uint64
}

// Router is the ledger aggregate for one chain. Mutating operations are
// serialized and atomic. Queries read committed state only.
type Router struct {
	address     common.Address
	host        Host
	db          database.Database
	tokens      token.Resolver
	governor    Authorizer
	sink        eventlog.Sink
	hooks       []Hook
	strictHooks bool
	log         log.Logger
	metrics     *metrics

	mu sync.Mutex
}

type routerKey struct{}

// New opens the router over cfg.DB, writing genesis if the database is
// empty.
func New(cfg Config, genesis Genesis) (*Router, error) {
	if cfg.Address == (common.Address{}) {
		return nil, fmt.Errorf("%w: router address", ErrZeroAddress)
	}
	if cfg.Host == nil || cfg.DB == nil || cfg.Tokens == nil {
		return nil, errors.New("host, database and token resolver are required")
	}
	m, err := newMetrics("swaprouter", cfg.Registerer)
	if err != nil {
		return nil, err
	}
	r := &Router{
		address:     cfg.Address,
		host:        cfg.Host,
		db:          cfg.DB,
		tokens:      cfg.Tokens,
		governor:    cfg.Governor,
		sink:        cfg.Sink,
		hooks:       cfg.Hooks,
		strictHooks: cfg.StrictHooks,
		log:         cfg.Log,
		metrics:     m,
	}
	if r.sink == nil {
		r.sink = eventlog.Discard
	}
	if r.log == nil {
		r.log = log.NewNoOpLogger()
	}
	if err := r.initialize(genesis); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Router) initialize(g Genesis) error {
	vdb := versiondb.New(r.db)
	defer vdb.Abort()
	st := newState(vdb)

	done, err := st.initialized()
	if err != nil || done {
		return err
	}
	if g.SwapRequestPublicKey == nil {
		return errors.New("genesis requires a swap request public key")
	}
	if _, err := fees.NewPolicy(g.VerificationFeeBps); err != nil {
		return err
	}
	if err := st.roles.Bootstrap(g.Admin); err != nil {
		return err
	}
	for _, s := range g.Settlers {
		if err := st.roles.Grant(g.Admin, access.SettlementRole, s); err != nil {
			return err
		}
	}
	for _, c := range g.PermittedChains {
		if err := st.setChainPermitted(c, true); err != nil {
			return err
		}
	}
	err = errors.Join(
		st.setFeeBps(g.VerificationFeeBps),
		st.setSwapPublicKey(g.SwapRequestPublicKey.Bytes()),
		st.setInitialized(),
	)
	if err != nil {
		return err
	}
	if err := vdb.Commit(); err != nil {
		return err
	}
	r.log.Info("initialized swap router",
		log.Stringer("address", r.address),
		log.Stringer("admin", g.Admin),
		log.Uint64("feeBps", g.VerificationFeeBps),
	)
	return nil
}

// tx is the scope of one mutating operation.
type tx struct {
	ctx    context.Context
	st     *state
	events *eventlog.Buffer
	// undo runs, last first, when the operation does not commit.
	undo []func()
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
}

// update runs fn against a fresh versiondb layer and commits it only if fn
// succeeds. Events are emitted after the commit.
func (r *Router) update(ctx context.Context, op string, fn func(*tx) error) error {
	if ctx.Value(routerKey{}) == r {
		r.metrics.reverts.WithLabelValues(op).Inc()
		return fmt.Errorf("%w: %s", ErrReentrantCall, op)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	vdb := versiondb.New(r.db)
	defer vdb.Abort()

	t := &tx{
		ctx:    context.WithValue(ctx, routerKey{}, r),
		st:     newState(vdb),
		events: eventlog.NewBuffer(r.address, ABI),
	}
	if err := fn(t); err != nil {
		t.rollback()
		r.metrics.reverts.WithLabelValues(op).Inc()
		r.log.Debug("operation reverted",
			log.String("op", op),
			log.Err(err),
		)
		return err
	}
	if err := vdb.Commit(); err != nil {
		t.rollback()
		r.metrics.reverts.WithLabelValues(op).Inc()
		return fmt.Errorf("failed to commit %s: %w", op, err)
	}
	t.events.Flush(r.sink)
	return nil
}

func (r *Router) token(addr common.Address) (token.Token, error) {
	tok, err := r.tokens.Token(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenNotSupported, err)
	}
	return tok, nil
}

func (t *tx) policy() (fees.Policy, error) {
	bps, err := t.st.feeBps()
	if err != nil {
		return fees.Policy{}, err
	}
	return fees.NewPolicy(bps)
}

func (t *tx) requireRole(caller common.Address, roles ...access.Role) error {
	if err := t.st.roles.Require(caller, roles...); err != nil {
		if errors.Is(err, access.ErrUnauthorized) {
			return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
		}
		return err
	}
	return nil
}

func big64(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

// RequestCrossChainSwap escrows amount+fee of tok from sender and records a
// swap request toward dstChainID.
func (r *Router) RequestCrossChainSwap(
	ctx context.Context,
	sender common.Address,
	tok common.Address,
	amount *uint256.Int,
	fee *uint256.Int,
	dstChainID uint64,
	recipient common.Address,
) (RequestID, error) {
	var id RequestID
	err := r.update(ctx, "requestCrossChainSwap", func(t *tx) error {
		if amount.IsZero() {
			return ErrZeroAmount
		}
		if tok == (common.Address{}) || recipient == (common.Address{}) {
			return ErrZeroAddress
		}
		srcChainID := r.host.ChainID()
		if dstChainID == srcChainID {
			return ErrSameChain
		}
		dstToken, err := t.st.tokenMapping(tok, dstChainID)
		if err != nil {
			return err
		}
		if dstToken == (common.Address{}) {
			return fmt.Errorf("%w: %s on chain %d", ErrTokenNotSupported, tok, dstChainID)
		}
		permitted, err := t.st.chainPermitted(dstChainID)
		if err != nil {
			return err
		}
		if !permitted {
			return fmt.Errorf("%w: %d", ErrDestinationChainNotPermitted, dstChainID)
		}
		policy, err := t.policy()
		if err != nil {
			return err
		}
		verificationFee, solverFee, err := policy.Split(fee)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFeeTooLow, err)
		}
		total, overflow := new(uint256.Int).AddOverflow(amount, fee)
		if overflow {
			return errors.New("amount plus fee overflows")
		}
		source, err := r.token(tok)
		if err != nil {
			return err
		}

		nonce, err := t.st.nextNonce()
		if err != nil {
			return err
		}
		req := &SwapRequest{
			Sender:          sender,
			Recipient:       recipient,
			Token:           tok,
			DstToken:        dstToken,
			Amount:          *amount,
			SrcChainID:      srcChainID,
			DstChainID:      dstChainID,
			VerificationFee: *verificationFee,
			SolverFee:       *solverFee,
			Nonce:           nonce,
			RequestedAt:     r.host.Timestamp(),
		}
		id = req.Params().ID()

		balance, err := t.st.feeBalance(tok)
		if err != nil {
			return err
		}
		err = errors.Join(
			t.st.putRequest(id, req),
			t.st.setNonceCreator(nonce, sender),
			addID(t.st.unfulfilled, id),
			t.st.setFeeBalance(tok, balance.Add(balance, verificationFee)),
		)
		if err != nil {
			return err
		}

		if err := source.TransferFrom(t.ctx, r.address, sender, r.address, total); err != nil {
			return err
		}

		return t.events.Add(EventSwapRequested,
			[32]byte(id), big64(srcChainID), big64(dstChainID),
			tok, dstToken, sender, recipient,
			amount.ToBig(), fee.ToBig(), big64(nonce), big64(req.RequestedAt),
		)
	})
	if err != nil {
		return RequestID{}, err
	}
	r.metrics.requestsCreated.Inc()
	r.log.Info("swap requested",
		log.Stringer("requestID", id),
		log.Stringer("sender", sender),
		log.Uint64("dstChainID", dstChainID),
	)
	return id, nil
}

// UpdateFeesIfUnfulfilled raises the fee of caller's unsettled request to
// newFee, re-splitting it at the current rate. The request id is unchanged.
func (r *Router) UpdateFeesIfUnfulfilled(ctx context.Context, caller common.Address, id RequestID, newFee *uint256.Int) error {
	err := r.update(ctx, "updateFeesIfUnfulfilled", func(t *tx) error {
		req, err := t.st.getRequest(id)
		if err != nil {
			return err
		}
		if req.Sender != caller {
			return fmt.Errorf("%w: only the sender can update fees", ErrUnauthorized)
		}
		if req.Executed {
			return ErrAlreadyFulfilled
		}
		oldFee := req.Fee()
		if !newFee.Gt(oldFee) {
			return fmt.Errorf("%w: %s <= %s", ErrNewFeeTooLow, newFee.Dec(), oldFee.Dec())
		}
		policy, err := t.policy()
		if err != nil {
			return err
		}
		verificationFee, solverFee, err := policy.Split(newFee)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFeeTooLow, err)
		}

		balance, err := t.st.feeBalance(req.Token)
		if err != nil {
			return err
		}
		// the accumulator moves by new-old; it may already have been withdrawn
		balance.Add(balance, verificationFee)
		if balance.Lt(&req.VerificationFee) {
			return fmt.Errorf("%w: %s < %s", ErrFeeAccountUnderflow, balance.Dec(), req.VerificationFee.Dec())
		}
		balance.Sub(balance, &req.VerificationFee)

		req.VerificationFee = *verificationFee
		req.SolverFee = *solverFee
		err = errors.Join(
			t.st.putRequest(id, req),
			t.st.setFeeBalance(req.Token, balance),
		)
		if err != nil {
			return err
		}

		source, err := r.token(req.Token)
		if err != nil {
			return err
		}
		delta := new(uint256.Int).Sub(newFee, oldFee)
		if err := source.TransferFrom(t.ctx, r.address, caller, r.address, delta); err != nil {
			return err
		}

		return t.events.Add(EventSwapRequestFeeUpdated,
			[32]byte(id), req.Token, verificationFee.ToBig(), solverFee.ToBig(),
		)
	})
	if err != nil {
		return err
	}
	r.metrics.feeUpdates.Inc()
	return nil
}

// RelayTokens delivers p.Amount of p.DstToken from solver to p.Recipient on
// this (destination) chain and records the receipt. Anyone can relay, but
// only with parameters that hash to p.RequestID.
func (r *Router) RelayTokens(ctx context.Context, solver common.Address, p RelayParams) error {
	err := r.update(ctx, "relayTokens", func(t *tx) error {
		existing, err := t.st.getReceipt(p.RequestID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Fulfilled {
			return ErrAlreadyFulfilled
		}
		if p.DstToken == (common.Address{}) || p.SrcToken == (common.Address{}) || p.Recipient == (common.Address{}) {
			return ErrZeroAddress
		}
		if p.Amount.IsZero() {
			return ErrZeroAmount
		}
		dstChainID := r.host.ChainID()
		if p.SrcChainID == dstChainID {
			return ErrSameChain
		}
		expected := RequestParams{
			Sender:     p.Sender,
			Recipient:  p.Recipient,
			Token:      p.SrcToken,
			Amount:     p.Amount,
			SrcChainID: p.SrcChainID,
			DstChainID: dstChainID,
			Nonce:      p.Nonce,
		}.ID()
		if expected != p.RequestID {
			return fmt.Errorf("%w: computed %s", ErrRequestIDMismatch, expected)
		}
		mapped, err := t.st.tokenMapping(p.DstToken, p.SrcChainID)
		if err != nil {
			return err
		}
		if mapped != p.SrcToken {
			return fmt.Errorf("%w: %s is not mapped to %s on chain %d", ErrTokenNotSupported, p.DstToken, p.SrcToken, p.SrcChainID)
		}
		dst, err := r.token(p.DstToken)
		if err != nil {
			return err
		}

		rcpt := &FulfillmentReceipt{
			RequestID:   p.RequestID,
			SrcChainID:  p.SrcChainID,
			DstChainID:  dstChainID,
			Token:       p.DstToken,
			Fulfilled:   true,
			Solver:      solver,
			Recipient:   p.Recipient,
			Amount:      p.Amount,
			FulfilledAt: r.host.Timestamp(),
		}
		err = errors.Join(
			t.st.putReceipt(rcpt),
			addID(t.st.delivered, p.RequestID),
		)
		if err != nil {
			return err
		}

		if err := dst.TransferFrom(t.ctx, r.address, solver, p.Recipient, &p.Amount); err != nil {
			return err
		}

		return t.events.Add(EventSwapRequestFulfilled,
			[32]byte(p.RequestID), big64(p.SrcChainID), big64(dstChainID),
			p.DstToken, solver, p.Recipient, p.Amount.ToBig(), big64(rcpt.FulfilledAt),
		)
	})
	if err != nil {
		return err
	}
	r.metrics.relays.Inc()
	r.log.Info("swap request fulfilled",
		log.Stringer("requestID", p.RequestID),
		log.Stringer("solver", solver),
	)
	return nil
}

// RebalanceSolver pays solver amount+solverFee for request id once sig, a
// swap-request domain signature over the stored request, verifies. Only
// settlement operators and admins may call it, and only on the request's
// source chain.
func (r *Router) RebalanceSolver(ctx context.Context, caller, solver common.Address, id RequestID, sig []byte) error {
	var result SettlementResult
	err := r.update(ctx, "rebalanceSolver", func(t *tx) error {
		if err := t.requireRole(caller, access.SettlementRole, access.AdminRole); err != nil {
			return err
		}
		if solver == (common.Address{}) {
			return ErrZeroAddress
		}
		req, err := t.st.getRequest(id)
		if err != nil {
			return err
		}
		if req.Executed {
			return ErrAlreadyFulfilled
		}
		chainID := r.host.ChainID()
		if req.SrcChainID != chainID {
			return fmt.Errorf("%w: request from %d, executing on %d", ErrWrongChain, req.SrcChainID, chainID)
		}
		if err := r.verifySwapSignature(t.st, chainID, req.Params().Encode(), sig); err != nil {
			return err
		}

		req.Executed = true
		err = errors.Join(
			t.st.putRequest(id, req),
			removeID(t.st.unfulfilled, id),
			addID(t.st.fulfilled, id),
		)
		if err != nil {
			return err
		}

		source, err := r.token(req.Token)
		if err != nil {
			return err
		}
		payout := new(uint256.Int).Add(&req.Amount, &req.SolverFee)
		if err := source.Transfer(t.ctx, r.address, solver, payout); err != nil {
			return err
		}

		result = SettlementResult{
			RequestID: id,
			Solver:    solver,
			Token:     req.Token,
			Payout:    *payout,
			Request:   *req,
		}
		return t.events.Add(EventSolverPayoutFulfilled,
			[32]byte(id), solver, req.Token, payout.ToBig(),
		)
	})
	if err != nil {
		return err
	}
	r.metrics.settlements.Inc()
	r.log.Info("solver rebalanced",
		log.Stringer("requestID", id),
		log.Stringer("solver", solver),
		log.String("payout", result.Payout.Dec()),
	)
	return r.runHooks(ctx, result)
}

func (r *Router) verifySwapSignature(st *state, chainID uint64, message, sig []byte) error {
	pk, err := st.swapPublicKey()
	if err != nil {
		return err
	}
	scheme, err := bls.NewScheme(bls.SwapRequest, chainID)
	if err != nil {
		return err
	}
	ok, err := scheme.VerifyBytes(message, sig, pk)
	if err != nil || !ok {
		r.metrics.invalidSignatures.Inc()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return ErrInvalidSignature
	}
	return nil
}
