// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"github.com/luxfi/swaprouter/eventlog"
)

// Event names.
const (
	EventSwapRequested               = "SwapRequested"
	EventSwapRequestFeeUpdated       = "SwapRequestFeeUpdated"
	EventSwapRequestFulfilled        = "SwapRequestFulfilled"
	EventSolverPayoutFulfilled       = "SolverPayoutFulfilled"
	EventVerificationFeeBpsUpdated   = "VerificationFeeBpsUpdated"
	EventBLSValidatorUpdated         = "BLSValidatorUpdated"
	EventDestinationChainIDPermitted = "DestinationChainIdPermitted"
	EventDestinationChainIDBlocked   = "DestinationChainIdBlocked"
	EventTokenMappingUpdated         = "TokenMappingUpdated"
	EventTokenMappingRemoved         = "TokenMappingRemoved"
	EventVerificationFeeWithdrawn    = "VerificationFeeWithdrawn"
	EventRoleGranted                 = "RoleGranted"
	EventRoleRevoked                 = "RoleRevoked"
	EventUpgraded                    = "Upgraded"
)

const rawABI = `[
  {"type":"function","name":"requestCrossChainSwap","stateMutability":"nonpayable","inputs":[
    {"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"fee","type":"uint256"},
    {"name":"dstChainId","type":"uint256"},{"name":"recipient","type":"address"}],
   "outputs":[{"name":"requestId","type":"bytes32"}]},
  {"type":"function","name":"updateFeesIfUnfulfilled","stateMutability":"nonpayable","inputs":[
    {"name":"requestId","type":"bytes32"},{"name":"newFee","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"relayTokens","stateMutability":"nonpayable","inputs":[
    {"name":"requestId","type":"bytes32"},{"name":"sender","type":"address"},{"name":"recipient","type":"address"},
    {"name":"srcToken","type":"address"},{"name":"dstToken","type":"address"},{"name":"amount","type":"uint256"},
    {"name":"srcChainId","type":"uint256"},{"name":"nonce","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"rebalanceSolver","stateMutability":"nonpayable","inputs":[
    {"name":"solver","type":"address"},{"name":"requestId","type":"bytes32"},{"name":"signature","type":"bytes"}],"outputs":[]},

  {"type":"function","name":"setVerificationFeeBps","stateMutability":"nonpayable","inputs":[
    {"name":"feeBps","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"setSwapRequestBlsValidator","stateMutability":"nonpayable","inputs":[
    {"name":"publicKey","type":"bytes"},{"name":"signature","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"permitDestinationChainId","stateMutability":"nonpayable","inputs":[
    {"name":"chainId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"blockDestinationChainId","stateMutability":"nonpayable","inputs":[
    {"name":"chainId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"setTokenMapping","stateMutability":"nonpayable","inputs":[
    {"name":"dstChainId","type":"uint256"},{"name":"dstToken","type":"address"},{"name":"srcToken","type":"address"}],"outputs":[]},
  {"type":"function","name":"removeTokenMapping","stateMutability":"nonpayable","inputs":[
    {"name":"dstChainId","type":"uint256"},{"name":"srcToken","type":"address"}],"outputs":[]},
  {"type":"function","name":"withdrawVerificationFee","stateMutability":"nonpayable","inputs":[
    {"name":"token","type":"address"},{"name":"to","type":"address"}],"outputs":[]},
  {"type":"function","name":"grantRole","stateMutability":"nonpayable","inputs":[
    {"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[]},
  {"type":"function","name":"revokeRole","stateMutability":"nonpayable","inputs":[
    {"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[]},

  {"type":"function","name":"hasRole","stateMutability":"view","inputs":[
    {"name":"role","type":"bytes32"},{"name":"account","type":"address"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"getSwapRequestParameters","stateMutability":"view","inputs":[
    {"name":"requestId","type":"bytes32"}],
   "outputs":[{"name":"sender","type":"address"},{"name":"recipient","type":"address"},{"name":"token","type":"address"},
    {"name":"dstToken","type":"address"},{"name":"amount","type":"uint256"},{"name":"srcChainId","type":"uint256"},
    {"name":"dstChainId","type":"uint256"},{"name":"verificationFee","type":"uint256"},{"name":"solverFee","type":"uint256"},
    {"name":"nonce","type":"uint256"},{"name":"executed","type":"bool"},{"name":"requestedAt","type":"uint256"}]},
  {"type":"function","name":"getSwapRequestReceipt","stateMutability":"view","inputs":[
    {"name":"requestId","type":"bytes32"}],
   "outputs":[{"name":"requestId","type":"bytes32"},{"name":"srcChainId","type":"uint256"},{"name":"dstChainId","type":"uint256"},
    {"name":"token","type":"address"},{"name":"fulfilled","type":"bool"},{"name":"solver","type":"address"},
    {"name":"recipient","type":"address"},{"name":"amount","type":"uint256"},{"name":"fulfilledAt","type":"uint256"}]},
  {"type":"function","name":"getTotalVerificationFeeBalance","stateMutability":"view","inputs":[
    {"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getTokenMapping","stateMutability":"view","inputs":[
    {"name":"srcToken","type":"address"},{"name":"dstChainId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"getAllowedDstChainId","stateMutability":"view","inputs":[
    {"name":"chainId","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"getVerificationFeeBps","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getVerificationFeeAmount","stateMutability":"view","inputs":[
    {"name":"totalFees","type":"uint256"}],
   "outputs":[{"name":"verificationFee","type":"uint256"},{"name":"solverFee","type":"uint256"}]},
  {"type":"function","name":"getChainId","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getSwapRequestBlsValidator","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"bytes"}]},
  {"type":"function","name":"getUnfulfilledSolverRefunds","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"bytes32[]"}]},
  {"type":"function","name":"getFulfilledSolverRefunds","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"bytes32[]"}]},
  {"type":"function","name":"getFulfilledTransfers","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"bytes32[]"}]},
  {"type":"function","name":"getSwapRequestId","stateMutability":"pure","inputs":[
    {"name":"sender","type":"address"},{"name":"recipient","type":"address"},{"name":"token","type":"address"},
    {"name":"amount","type":"uint256"},{"name":"srcChainId","type":"uint256"},{"name":"dstChainId","type":"uint256"},
    {"name":"nonce","type":"uint256"}],
   "outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"swapRequestParametersToBytes","stateMutability":"view","inputs":[
    {"name":"requestId","type":"bytes32"}],
   "outputs":[{"name":"message","type":"bytes"},{"name":"messageAsG1Bytes","type":"bytes"}]},
  {"type":"function","name":"currentNonce","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"nonceToRequester","stateMutability":"view","inputs":[
    {"name":"nonce","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},

  {"type":"event","name":"SwapRequested","anonymous":false,"inputs":[
    {"name":"requestId","type":"bytes32","indexed":true},{"name":"srcChainId","type":"uint256","indexed":true},
    {"name":"dstChainId","type":"uint256","indexed":true},{"name":"token","type":"address","indexed":false},
    {"name":"dstToken","type":"address","indexed":false},{"name":"sender","type":"address","indexed":false},
    {"name":"recipient","type":"address","indexed":false},{"name":"amount","type":"uint256","indexed":false},
    {"name":"fee","type":"uint256","indexed":false},{"name":"nonce","type":"uint256","indexed":false},
    {"name":"requestedAt","type":"uint256","indexed":false}]},
  {"type":"event","name":"SwapRequestFeeUpdated","anonymous":false,"inputs":[
    {"name":"requestId","type":"bytes32","indexed":true},{"name":"token","type":"address","indexed":false},
    {"name":"newVerificationFee","type":"uint256","indexed":false},{"name":"newSolverFee","type":"uint256","indexed":false}]},
  {"type":"event","name":"SwapRequestFulfilled","anonymous":false,"inputs":[
    {"name":"requestId","type":"bytes32","indexed":true},{"name":"srcChainId","type":"uint256","indexed":true},
    {"name":"dstChainId","type":"uint256","indexed":true},{"name":"token","type":"address","indexed":false},
    {"name":"solver","type":"address","indexed":false},{"name":"recipient","type":"address","indexed":false},
    {"name":"amount","type":"uint256","indexed":false},{"name":"fulfilledAt","type":"uint256","indexed":false}]},
  {"type":"event","name":"SolverPayoutFulfilled","anonymous":false,"inputs":[
    {"name":"requestId","type":"bytes32","indexed":true},{"name":"solver","type":"address","indexed":true},
    {"name":"token","type":"address","indexed":false},{"name":"payout","type":"uint256","indexed":false}]},
  {"type":"event","name":"VerificationFeeBpsUpdated","anonymous":false,"inputs":[
    {"name":"newFeeBps","type":"uint256","indexed":false}]},
  {"type":"event","name":"BLSValidatorUpdated","anonymous":false,"inputs":[
    {"name":"publicKey","type":"bytes","indexed":false}]},
  {"type":"event","name":"DestinationChainIdPermitted","anonymous":false,"inputs":[
    {"name":"chainId","type":"uint256","indexed":true}]},
  {"type":"event","name":"DestinationChainIdBlocked","anonymous":false,"inputs":[
    {"name":"chainId","type":"uint256","indexed":true}]},
  {"type":"event","name":"TokenMappingUpdated","anonymous":false,"inputs":[
    {"name":"srcToken","type":"address","indexed":true},{"name":"dstChainId","type":"uint256","indexed":true},
    {"name":"dstToken","type":"address","indexed":false}]},
  {"type":"event","name":"TokenMappingRemoved","anonymous":false,"inputs":[
    {"name":"srcToken","type":"address","indexed":true},{"name":"dstChainId","type":"uint256","indexed":true}]},
  {"type":"event","name":"VerificationFeeWithdrawn","anonymous":false,"inputs":[
    {"name":"token","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"type":"event","name":"RoleGranted","anonymous":false,"inputs":[
    {"name":"role","type":"bytes32","indexed":true},{"name":"account","type":"address","indexed":true},
    {"name":"sender","type":"address","indexed":true}]},
  {"type":"event","name":"RoleRevoked","anonymous":false,"inputs":[
    {"name":"role","type":"bytes32","indexed":true},{"name":"account","type":"address","indexed":true},
    {"name":"sender","type":"address","indexed":true}]},
  {"type":"event","name":"Upgraded","anonymous":false,"inputs":[
    {"name":"implementation","type":"address","indexed":true},{"name":"calldataHash","type":"bytes32","indexed":false}]}
]`

// ABI is the Solidity interface of the router.
var ABI = eventlog.MustParse(rawABI)
