// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/swaprouter/access"
	"github.com/luxfi/swaprouter/bls"
	"github.com/luxfi/swaprouter/fees"
)

// SetVerificationFeeBps changes the verification fee rate for requests
// created from now on.
func (r *Router) SetVerificationFeeBps(ctx context.Context, caller common.Address, bps uint64) error {
	return r.update(ctx, "setVerificationFeeBps", func(t *tx) error {
		if err := t.requireRole(caller, access.AdminRole); err != nil {
			return err
		}
		if _, err := fees.NewPolicy(bps); err != nil {
			return err
		}
		if err := t.st.setFeeBps(bps); err != nil {
			return err
		}
		r.log.Info("verification fee updated", log.Uint64("bps", bps))
		return t.events.Add(EventVerificationFeeBpsUpdated, big64(bps))
	})
}

// SetSwapRequestPublicKey replaces the validator key settlements are
// checked against. The caller must be an admin and sig must be a governance
// signature over the new key.
func (r *Router) SetSwapRequestPublicKey(ctx context.Context, caller common.Address, pk *bls.PublicKey, sig []byte) error {
	return r.update(ctx, "setSwapRequestBlsValidator", func(t *tx) error {
		if err := t.requireRole(caller, access.AdminRole); err != nil {
			return err
		}
		if pk == nil {
			return bls.ErrInfinity
		}
		if r.governor == nil {
			return fmt.Errorf("%w: no governance configured", ErrUnauthorized)
		}
		release, err := r.governor.Reserve(ActionSetSwapRequestPublicKey, pk.Bytes(), sig)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		t.undo = append(t.undo, release)
		if err := t.st.setSwapPublicKey(pk.Bytes()); err != nil {
			return err
		}
		r.log.Info("swap request validator updated")
		return t.events.Add(EventBLSValidatorUpdated, pk.Bytes())
	})
}

// PermitDestinationChainID allows new requests toward chainID.
func (r *Router) PermitDestinationChainID(ctx context.Context, caller common.Address, chainID uint64) error {
	return r.update(ctx, "permitDestinationChainId", func(t *tx) error {
		if err := t.requireRole(caller, access.AdminRole); err != nil {
			return err
		}
		if err := t.st.setChainPermitted(chainID, true); err != nil {
			return err
		}
		return t.events.Add(EventDestinationChainIDPermitted, big64(chainID))
	})
}

// BlockDestinationChainID stops new requests toward chainID. Existing
// requests and token mappings are untouched.
func (r *Router) BlockDestinationChainID(ctx context.Context, caller common.Address, chainID uint64) error {
	return r.update(ctx, "blockDestinationChainId", func(t *tx) error {
		if err := t.requireRole(caller, access.AdminRole); err != nil {
			return err
		}
		if err := t.st.setChainPermitted(chainID, false); err != nil {
			return err
		}
		return t.events.Add(EventDestinationChainIDBlocked, big64(chainID))
	})
}

// SetTokenMapping maps srcToken on this chain to dstToken on dstChainID.
// dstChainID must be permitted.
func (r *Router) SetTokenMapping(ctx context.Context, caller common.Address, dstChainID uint64, dstToken, srcToken common.Address) error {
	return r.update(ctx, "setTokenMapping", func(t *tx) error {
		if err := t.requireRole(caller, access.AdminRole); err != nil {
			return err
		}
		if dstToken == (common.Address{}) || srcToken == (common.Address{}) {
			return ErrZeroAddress
		}
		permitted, err := t.st.chainPermitted(dstChainID)
		if err != nil {
			return err
		}
		if !permitted {
			return fmt.Errorf("%w: %d", ErrDestinationChainNotPermitted, dstChainID)
		}
		if err := t.st.setTokenMapping(srcToken, dstChainID, dstToken); err != nil {
			return err
		}
		return t.events.Add(EventTokenMappingUpdated, srcToken, big64(dstChainID), dstToken)
	})
}

// RemoveTokenMapping deletes the mapping for srcToken toward dstChainID.
func (r *Router) RemoveTokenMapping(ctx context.Context, caller common.Address, dstChainID uint64, srcToken common.Address) error {
	return r.update(ctx, "removeTokenMapping", func(t *tx) error {
		if err := t.requireRole(caller, access.AdminRole); err != nil {
			return err
		}
		mapped, err := t.st.tokenMapping(srcToken, dstChainID)
		if err != nil {
			return err
		}
		if mapped == (common.Address{}) {
			return fmt.Errorf("%w: %s on chain %d", ErrTokenNotSupported, srcToken, dstChainID)
		}
		if err := t.st.removeTokenMapping(srcToken, dstChainID); err != nil {
			return err
		}
		return t.events.Add(EventTokenMappingRemoved, srcToken, big64(dstChainID))
	})
}

// WithdrawVerificationFee sends the accrued verification fees of tok to to.
// The balance is zeroed before the transfer.
func (r *Router) WithdrawVerificationFee(ctx context.Context, caller, tok, to common.Address) error {
	return r.update(ctx, "withdrawVerificationFee", func(t *tx) error {
		if err := t.requireRole(caller, access.AdminRole); err != nil {
			return err
		}
		if to == (common.Address{}) {
			return ErrZeroAddress
		}
		balance, err := t.st.feeBalance(tok)
		if err != nil {
			return err
		}
		if balance.IsZero() {
			return ErrNoFeesToWithdraw
		}
		if err := t.st.setFeeBalance(tok, balance.Clone().Clear()); err != nil {
			return err
		}
		source, err := r.token(tok)
		if err != nil {
			return err
		}
		if err := source.Transfer(t.ctx, r.address, to, balance); err != nil {
			return err
		}
		r.log.Info("verification fees withdrawn",
			log.Stringer("token", tok),
			log.Stringer("to", to),
			log.String("amount", balance.Dec()),
		)
		return t.events.Add(EventVerificationFeeWithdrawn, tok, to, balance.ToBig())
	})
}

// GrantRole gives role to account. caller must be a default admin.
func (r *Router) GrantRole(ctx context.Context, caller common.Address, role access.Role, account common.Address) error {
	return r.update(ctx, "grantRole", func(t *tx) error {
		if err := t.st.roles.Grant(caller, role, account); err != nil {
			return mapAccessErr(err)
		}
		return t.events.Add(EventRoleGranted, [32]byte(role), account, caller)
	})
}

// RevokeRole removes role from account. Accounts may renounce their own
// roles.
func (r *Router) RevokeRole(ctx context.Context, caller common.Address, role access.Role, account common.Address) error {
	return r.update(ctx, "revokeRole", func(t *tx) error {
		if err := t.st.roles.Revoke(caller, role, account); err != nil {
			return mapAccessErr(err)
		}
		return t.events.Add(EventRoleRevoked, [32]byte(role), account, caller)
	})
}

// ApplyUpgrade records a governance-approved implementation change. It is
// the upgrade.Applier of the router.
func (r *Router) ApplyUpgrade(ctx context.Context, implementation common.Address, calldata []byte) error {
	return r.update(ctx, "applyUpgrade", func(t *tx) error {
		if implementation == (common.Address{}) {
			return ErrZeroAddress
		}
		if err := t.st.setImplementation(implementation); err != nil {
			return err
		}
		var calldataHash [32]byte
		copy(calldataHash[:], crypto.Keccak256(calldata))
		r.log.Info("router upgraded", log.Stringer("implementation", implementation))
		return t.events.Add(EventUpgraded, implementation, calldataHash)
	})
}

func mapAccessErr(err error) error {
	switch {
	case errors.Is(err, access.ErrUnauthorized):
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case errors.Is(err, access.ErrZeroAccount):
		return fmt.Errorf("%w: %v", ErrZeroAddress, err)
	default:
		return err
	}
}
