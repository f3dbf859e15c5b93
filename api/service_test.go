// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/swaprouter/bls"
	"github.com/luxfi/swaprouter/router"
	"github.com/luxfi/swaprouter/signer"
	"github.com/luxfi/swaprouter/token"
)

const (
	srcChain = 31337
	dstChain = 31338
)

var (
	admin     = common.HexToAddress("0xad")
	user      = common.HexToAddress("0x05")
	recipient = common.HexToAddress("0x7e")
	routerAt  = common.HexToAddress("0xa0a0")
	tokenA    = common.HexToAddress("0x70a")
	tokenB    = common.HexToAddress("0x70b")
)

type env struct {
	server  *httptest.Server
	router  *router.Router
	keys    *signer.KeySet
	request router.RequestID
}

func newEnv(t *testing.T, withSigner bool) *env {
	t.Helper()
	require := require.New(t)
	ctx := context.Background()

	sk, err := bls.NewSecretKey()
	require.NoError(err)
	keys, err := signer.Deal(sk, 2, 3)
	require.NoError(err)

	tok := token.NewMemory("RUSD")
	tokens := token.NewRegistry()
	require.NoError(tokens.Register(tokenA, tok))

	r, err := router.New(router.Config{
		Address: routerAt,
		Host:    router.NewLocalHost(srcChain),
		DB:      memdb.New(),
		Tokens:  tokens,
	}, router.Genesis{
		Admin:                admin,
		VerificationFeeBps:   500,
		SwapRequestPublicKey: keys.PublicKey,
		PermittedChains:      []uint64{dstChain},
	})
	require.NoError(err)
	require.NoError(r.SetTokenMapping(ctx, admin, dstChain, tokenB, tokenA))

	amount := uint256.NewInt(1_000)
	tok.Mint(user, uint256.NewInt(2_000))
	tok.Approve(user, routerAt, uint256.NewInt(2_000))
	id, err := r.RequestCrossChainSwap(ctx, user, tokenA, amount, uint256.NewInt(100), dstChain, recipient)
	require.NoError(err)

	var coordinator *signer.Coordinator
	if withSigner {
		scheme, err := r.SwapScheme()
		require.NoError(err)
		coordinator, err = signer.NewCoordinator(signer.Config{
			Scheme:          scheme,
			Threshold:       keys.Threshold,
			PublicKey:       keys.PublicKey,
			SharePublicKeys: keys.SharePublicKeys,
		})
		require.NoError(err)
	}

	handler, err := NewHandler(nil, r, coordinator)
	require.NoError(err)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &env{server: server, router: r, keys: keys, request: id}
}

func (e *env) call(t *testing.T, method string, args, reply interface{}) error {
	t.Helper()
	body, err := json2.EncodeClientRequest(ServiceName+"."+method, args)
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	return json2.DecodeClientResponse(resp.Body, reply)
}

func TestGetRequest(t *testing.T) {
	require := require.New(t)
	e := newEnv(t, false)

	var reply RequestReply
	require.NoError(e.call(t, "GetRequest", &RequestIDArgs{ID: e.request}, &reply))
	require.Equal(user, reply.Sender)
	require.Equal(tokenB, reply.DstToken)
	require.Equal("1000", reply.Amount)
	require.Equal("5", reply.VerificationFee)
	require.Equal("95", reply.SolverFee)
	require.Equal(uint64(1), reply.Nonce)
	require.False(reply.Executed)

	err := e.call(t, "GetRequest", &RequestIDArgs{ID: common.Hash{1}}, &reply)
	require.Error(err)

	err = e.call(t, "GetReceipt", &RequestIDArgs{ID: e.request}, &ReceiptReply{})
	require.Error(err)
}

func TestQueries(t *testing.T) {
	require := require.New(t)
	e := newEnv(t, false)

	var balance BalanceReply
	require.NoError(e.call(t, "GetFeeBalance", &TokenArgs{Token: tokenA}, &balance))
	require.Equal("5", balance.Balance)

	var mapping TokenMappingReply
	require.NoError(e.call(t, "GetTokenMapping", &TokenMappingArgs{SrcToken: tokenA, DstChainID: dstChain}, &mapping))
	require.True(mapping.Mapped)
	require.Equal(tokenB, mapping.DstToken)

	var permitted PermittedReply
	require.NoError(e.call(t, "IsChainPermitted", &ChainArgs{ChainID: dstChain}, &permitted))
	require.True(permitted.Permitted)
	require.NoError(e.call(t, "IsChainPermitted", &ChainArgs{ChainID: 1}, &permitted))
	require.False(permitted.Permitted)

	var bps FeeBpsReply
	require.NoError(e.call(t, "GetVerificationFeeBps", &struct{}{}, &bps))
	require.Equal(uint64(500), bps.Bps)

	var ids IDsReply
	require.NoError(e.call(t, "ListUnfulfilledIds", &struct{}{}, &ids))
	require.Equal([]common.Hash{e.request}, ids.IDs)
	require.NoError(e.call(t, "ListFulfilledIds", &struct{}{}, &ids))
	require.Empty(ids.IDs)
	require.NoError(e.call(t, "ListDeliveredIds", &struct{}{}, &ids))
	require.Empty(ids.IDs)

	var id RequestIDReply
	require.NoError(e.call(t, "GetRequestId", &RequestParamsArgs{
		Sender: user, Recipient: recipient, Token: tokenA, Amount: "1000",
		SrcChainID: srcChain, DstChainID: dstChain, Nonce: 1,
	}, &id))
	require.Equal(e.request, id.ID)

	err := e.call(t, "GetRequestId", &RequestParamsArgs{Amount: "ten"}, &id)
	require.Error(err)
}

func TestGetMessageAndDST(t *testing.T) {
	require := require.New(t)
	e := newEnv(t, false)

	var msg MessageReply
	require.NoError(e.call(t, "GetMessage", &RequestIDArgs{ID: e.request}, &msg))
	req, err := e.router.GetSwapRequest(e.request)
	require.NoError(err)
	require.Equal(req.Params().Encode(), []byte(msg.Message))
	require.Len(msg.G1, bls.G1Size)

	var dst DSTReply
	require.NoError(e.call(t, "GetDST", &DSTArgs{Kind: "swap-requests", ChainID: srcChain}, &dst))
	require.Equal(msg.DST, dst.DST)

	require.Error(e.call(t, "GetDST", &DSTArgs{Kind: "transfers", ChainID: srcChain}, &dst))
	require.Error(e.call(t, "GetDST", &DSTArgs{Kind: "upgrades", ChainID: 0}, &dst))
}

// TestThresholdSettlement tests a settlement signature assembled through the
// signing endpoints
func TestThresholdSettlement(t *testing.T) {
	require := require.New(t)
	e := newEnv(t, true)

	var session SessionReply
	require.NoError(e.call(t, "OpenSigningSession", &RequestIDArgs{ID: e.request}, &session))

	var msg MessageReply
	require.NoError(e.call(t, "GetMessage", &RequestIDArgs{ID: e.request}, &msg))
	scheme, err := e.router.SwapScheme()
	require.NoError(err)

	var reply SigningReply
	for i, share := range e.keys.Shares[:2] {
		partial, err := share.Sign(scheme, msg.Message)
		require.NoError(err)
		require.NoError(e.call(t, "SubmitPartial", &PartialArgs{
			SessionID: session.SessionID,
			Index:     share.Index,
			Signature: partial.Bytes(),
		}, &reply))
		require.Equal(i+1, reply.Partials)
	}
	require.Equal(signer.Complete.String(), reply.Status)

	require.NoError(e.router.RebalanceSolver(context.Background(), admin, common.HexToAddress("0x50"), e.request, reply.Signature))

	var status SigningReply
	require.NoError(e.call(t, "GetSigningSession", &SessionArgs{SessionID: session.SessionID}, &status))
	require.Equal([]byte(reply.Signature), []byte(status.Signature))
}

func TestSigningDisabled(t *testing.T) {
	e := newEnv(t, false)
	err := e.call(t, "OpenSigningSession", &RequestIDArgs{ID: e.request}, &SessionReply{})
	require.ErrorContains(t, err, ErrSigningDisabled.Error())
}
