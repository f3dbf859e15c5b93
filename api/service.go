// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api serves the router's state and the validator signing
// coordinator over JSON-RPC.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/log"

	"github.com/luxfi/swaprouter/bls"
	"github.com/luxfi/swaprouter/router"
	"github.com/luxfi/swaprouter/signer"
)

// ServiceName prefixes every method, as in swaprouter.GetRequest.
const ServiceName = "swaprouter"

var (
	ErrSigningDisabled = errors.New("threshold signing is not configured")
	ErrInvalidAmount   = errors.New("invalid amount")
)

type Service struct {
	log         log.Logger
	router      *router.Router
	coordinator *signer.Coordinator
}

// NewHandler returns the JSON-RPC handler. coordinator may be nil, in which
// case the signing methods fail with ErrSigningDisabled.
func NewHandler(logger log.Logger, r *router.Router, coordinator *signer.Coordinator) (http.Handler, error) {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	server := rpc.NewServer()
	codec := json2.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	return server, server.RegisterService(
		&Service{
			log:         logger,
			router:      r,
			coordinator: coordinator,
		},
		ServiceName,
	)
}

type RequestIDArgs struct {
	ID common.Hash `json:"id"`
}

type RequestReply struct {
	ID              common.Hash    `json:"id"`
	Sender          common.Address `json:"sender"`
	Recipient       common.Address `json:"recipient"`
	Token           common.Address `json:"token"`
	DstToken        common.Address `json:"dstToken"`
	Amount          string         `json:"amount"`
	SrcChainID      uint64         `json:"srcChainId"`
	DstChainID      uint64         `json:"dstChainId"`
	VerificationFee string         `json:"verificationFee"`
	SolverFee       string         `json:"solverFee"`
	Nonce           uint64         `json:"nonce"`
	Executed        bool           `json:"executed"`
	RequestedAt     uint64         `json:"requestedAt"`
}

// GetRequest returns the swap request with the given id.
func (s *Service) GetRequest(_ *http.Request, args *RequestIDArgs, reply *RequestReply) error {
	req, err := s.router.GetSwapRequest(args.ID)
	if err != nil {
		return err
	}
	*reply = RequestReply{
		ID:              args.ID,
		Sender:          req.Sender,
		Recipient:       req.Recipient,
		Token:           req.Token,
		DstToken:        req.DstToken,
		Amount:          req.Amount.Dec(),
		SrcChainID:      req.SrcChainID,
		DstChainID:      req.DstChainID,
		VerificationFee: req.VerificationFee.Dec(),
		SolverFee:       req.SolverFee.Dec(),
		Nonce:           req.Nonce,
		Executed:        req.Executed,
		RequestedAt:     req.RequestedAt,
	}
	return nil
}

type ReceiptReply struct {
	ID          common.Hash    `json:"id"`
	SrcChainID  uint64         `json:"srcChainId"`
	DstChainID  uint64         `json:"dstChainId"`
	Token       common.Address `json:"token"`
	Fulfilled   bool           `json:"fulfilled"`
	Solver      common.Address `json:"solver"`
	Recipient   common.Address `json:"recipient"`
	Amount      string         `json:"amount"`
	FulfilledAt uint64         `json:"fulfilledAt"`
}

// GetReceipt returns the destination-side receipt of a relayed request.
func (s *Service) GetReceipt(_ *http.Request, args *RequestIDArgs, reply *ReceiptReply) error {
	rcpt, err := s.router.GetReceipt(args.ID)
	if err != nil {
		return err
	}
	*reply = ReceiptReply{
		ID:          rcpt.RequestID,
		SrcChainID:  rcpt.SrcChainID,
		DstChainID:  rcpt.DstChainID,
		Token:       rcpt.Token,
		Fulfilled:   rcpt.Fulfilled,
		Solver:      rcpt.Solver,
		Recipient:   rcpt.Recipient,
		Amount:      rcpt.Amount.Dec(),
		FulfilledAt: rcpt.FulfilledAt,
	}
	return nil
}

type TokenArgs struct {
	Token common.Address `json:"token"`
}

type BalanceReply struct {
	Balance string `json:"balance"`
}

func (s *Service) GetFeeBalance(_ *http.Request, args *TokenArgs, reply *BalanceReply) error {
	bal, err := s.router.FeeBalance(args.Token)
	if err != nil {
		return err
	}
	reply.Balance = bal.Dec()
	return nil
}

type TokenMappingArgs struct {
	SrcToken   common.Address `json:"srcToken"`
	DstChainID uint64         `json:"dstChainId"`
}

type TokenMappingReply struct {
	DstToken common.Address `json:"dstToken"`
	Mapped   bool           `json:"mapped"`
}

func (s *Service) GetTokenMapping(_ *http.Request, args *TokenMappingArgs, reply *TokenMappingReply) error {
	dst, err := s.router.TokenMapping(args.SrcToken, args.DstChainID)
	if err != nil {
		return err
	}
	reply.DstToken = dst
	reply.Mapped = dst != (common.Address{})
	return nil
}

type ChainArgs struct {
	ChainID uint64 `json:"chainId"`
}

type PermittedReply struct {
	Permitted bool `json:"permitted"`
}

func (s *Service) IsChainPermitted(_ *http.Request, args *ChainArgs, reply *PermittedReply) error {
	ok, err := s.router.IsDestinationChainPermitted(args.ChainID)
	if err != nil {
		return err
	}
	reply.Permitted = ok
	return nil
}

type FeeBpsReply struct {
	Bps uint64 `json:"bps"`
}

func (s *Service) GetVerificationFeeBps(_ *http.Request, _ *struct{}, reply *FeeBpsReply) error {
	bps, err := s.router.VerificationFeeBps()
	if err != nil {
		return err
	}
	reply.Bps = bps
	return nil
}

type IDsReply struct {
	IDs []common.Hash `json:"ids"`
}

// ListUnfulfilledIds returns requests escrowed on this chain awaiting
// settlement.
func (s *Service) ListUnfulfilledIds(_ *http.Request, _ *struct{}, reply *IDsReply) error {
	return listIDs(s.router.UnfulfilledSolverRefunds, reply)
}

// ListFulfilledIds returns requests settled on this chain.
func (s *Service) ListFulfilledIds(_ *http.Request, _ *struct{}, reply *IDsReply) error {
	return listIDs(s.router.FulfilledSolverRefunds, reply)
}

// ListDeliveredIds returns requests relayed on this chain.
func (s *Service) ListDeliveredIds(_ *http.Request, _ *struct{}, reply *IDsReply) error {
	return listIDs(s.router.FulfilledTransfers, reply)
}

func listIDs(list func() ([]router.RequestID, error), reply *IDsReply) error {
	ids, err := list()
	if err != nil {
		return err
	}
	reply.IDs = make([]common.Hash, len(ids))
	copy(reply.IDs, ids)
	return nil
}

type RequestParamsArgs struct {
	Sender     common.Address `json:"sender"`
	Recipient  common.Address `json:"recipient"`
	Token      common.Address `json:"token"`
	Amount     string         `json:"amount"`
	SrcChainID uint64         `json:"srcChainId"`
	DstChainID uint64         `json:"dstChainId"`
	Nonce      uint64         `json:"nonce"`
}

type RequestIDReply struct {
	ID common.Hash `json:"id"`
}

// GetRequestId computes the id of a parameter set without reading state.
func (s *Service) GetRequestId(_ *http.Request, args *RequestParamsArgs, reply *RequestIDReply) error {
	amount, err := uint256.FromDecimal(args.Amount)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidAmount, args.Amount, err)
	}
	reply.ID = s.router.SwapRequestID(router.RequestParams{
		Sender:     args.Sender,
		Recipient:  args.Recipient,
		Token:      args.Token,
		Amount:     *amount,
		SrcChainID: args.SrcChainID,
		DstChainID: args.DstChainID,
		Nonce:      args.Nonce,
	})
	return nil
}

type MessageReply struct {
	Message hexutil.Bytes `json:"message"`
	G1      hexutil.Bytes `json:"g1"`
	DST     string        `json:"dst"`
}

// GetMessage returns what validators sign to settle request id.
func (s *Service) GetMessage(_ *http.Request, args *RequestIDArgs, reply *MessageReply) error {
	msg, point, err := s.router.SwapRequestMessage(args.ID)
	if err != nil {
		return err
	}
	scheme, err := s.router.SwapScheme()
	if err != nil {
		return err
	}
	reply.Message = msg
	reply.G1 = point
	reply.DST = string(scheme.DST())
	return nil
}

type DSTArgs struct {
	// Kind is "swap-requests" or "upgrades".
	Kind    string `json:"kind"`
	ChainID uint64 `json:"chainId"`
}

type DSTReply struct {
	DST string `json:"dst"`
}

func (s *Service) GetDST(_ *http.Request, args *DSTArgs, reply *DSTReply) error {
	kind, err := bls.ParseKind(args.Kind)
	if err != nil {
		return err
	}
	dst, err := bls.DST(kind, args.ChainID)
	if err != nil {
		return err
	}
	reply.DST = string(dst)
	return nil
}

type SessionReply struct {
	SessionID common.Hash `json:"sessionId"`
}

// OpenSigningSession starts collecting partial signatures over the
// settlement message of request id.
func (s *Service) OpenSigningSession(_ *http.Request, args *RequestIDArgs, reply *SessionReply) error {
	if s.coordinator == nil {
		return ErrSigningDisabled
	}
	msg, _, err := s.router.SwapRequestMessage(args.ID)
	if err != nil {
		return err
	}
	id, err := s.coordinator.Open(msg)
	if err != nil {
		return err
	}
	s.log.Debug("signing session opened",
		log.Stringer("requestID", args.ID),
		log.Stringer("sessionID", common.Hash(id)),
	)
	reply.SessionID = id
	return nil
}

type PartialArgs struct {
	SessionID common.Hash   `json:"sessionId"`
	Index     uint32        `json:"index"`
	Signature hexutil.Bytes `json:"signature"`
}

type SigningReply struct {
	Status    string        `json:"status"`
	Partials  int           `json:"partials"`
	Signature hexutil.Bytes `json:"signature,omitempty"`
}

// SubmitPartial records a validator's partial signature. The combined
// signature is returned once the threshold is met.
func (s *Service) SubmitPartial(_ *http.Request, args *PartialArgs, reply *SigningReply) error {
	if s.coordinator == nil {
		return ErrSigningDisabled
	}
	partial, err := bls.SignatureFromBytes(args.Signature)
	if err != nil {
		return err
	}
	if _, err := s.coordinator.Submit(args.SessionID, args.Index, partial); err != nil {
		return err
	}
	return s.fillSession(args.SessionID, reply)
}

type SessionArgs struct {
	SessionID common.Hash `json:"sessionId"`
}

func (s *Service) GetSigningSession(_ *http.Request, args *SessionArgs, reply *SigningReply) error {
	if s.coordinator == nil {
		return ErrSigningDisabled
	}
	return s.fillSession(args.SessionID, reply)
}

func (s *Service) fillSession(id common.Hash, reply *SigningReply) error {
	session, err := s.coordinator.Session(id)
	if err != nil {
		return err
	}
	reply.Status = session.Status.String()
	reply.Partials = len(session.Partials)
	if session.Final != nil {
		reply.Signature = session.Final.Bytes()
	}
	return nil
}
