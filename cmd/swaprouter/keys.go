// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/luxfi/swaprouter/bls"
	"github.com/luxfi/swaprouter/router"
	"github.com/luxfi/swaprouter/signer"
	"github.com/luxfi/swaprouter/upgrade"
)

const (
	kindKey       = "kind"
	chainIDKey    = "chain-id"
	secretKeyKey  = "secret-key"
	publicKeyKey  = "public-key"
	messageKey    = "message"
	signatureKey  = "signature"
	actionKey     = "action"
	nonceKey      = "nonce"
	thresholdKey  = "threshold"
	sharesKey     = "shares"
	senderKey     = "sender"
	recipientKey  = "recipient"
	tokenKey      = "token"
	amountKey     = "amount"
	srcChainIDKey = "src-chain-id"
	dstChainIDKey = "dst-chain-id"
)

var errInvalidSignature = errors.New("signature does not verify")

func keygenCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "keygen",
		Short: "Generates a BLS key, optionally split into threshold shares",
		RunE:  keygenFunc,
	}
	flags := c.Flags()
	flags.Int(sharesKey, 0, "Number of shares to deal (0 for none)")
	flags.Int(thresholdKey, 0, "Shares needed to sign")
	return c
}

func keygenFunc(c *cobra.Command, _ []string) error {
	flags := c.Flags()
	n, err := flags.GetInt(sharesKey)
	if err != nil {
		return err
	}
	t, err := flags.GetInt(thresholdKey)
	if err != nil {
		return err
	}

	sk, err := bls.NewSecretKey()
	if err != nil {
		return err
	}
	out := c.OutOrStdout()
	fmt.Fprintf(out, "secret-key: %s\n", hexutil.Encode(sk.Bytes()))
	fmt.Fprintf(out, "public-key: %s\n", sk.PublicKey().Hex())
	if n == 0 {
		return nil
	}

	keys, err := signer.Deal(sk, t, n)
	if err != nil {
		return err
	}
	for _, share := range keys.Shares {
		b := share.Secret.Bytes()
		fmt.Fprintf(out, "share %d secret-key: %s\n", share.Index, hexutil.Encode(b[:]))
		fmt.Fprintf(out, "share %d public-key: %s\n", share.Index, keys.SharePublicKeys[share.Index].Hex())
	}
	return nil
}

func dstCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "dst",
		Short: "Prints the domain separation tag of a signature scheme",
		RunE: func(c *cobra.Command, _ []string) error {
			scheme, err := schemeFromFlags(c)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), string(scheme.DST()))
			return nil
		},
	}
	addSchemeFlags(c)
	return c
}

func addSchemeFlags(c *cobra.Command) {
	flags := c.Flags()
	flags.String(kindKey, bls.SwapRequest.Label(), "Signature scheme: swap-requests or upgrades")
	flags.Uint64(chainIDKey, 0, "Chain id the scheme is bound to (required)")
}

func schemeFromFlags(c *cobra.Command) (*bls.Scheme, error) {
	flags := c.Flags()
	label, err := flags.GetString(kindKey)
	if err != nil {
		return nil, err
	}
	kind, err := bls.ParseKind(label)
	if err != nil {
		return nil, err
	}
	chainID, err := flags.GetUint64(chainIDKey)
	if err != nil {
		return nil, err
	}
	return bls.NewScheme(kind, chainID)
}

func requestIDCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "request-id",
		Short: "Computes a swap request id and the message validators sign for it",
		RunE:  requestIDFunc,
	}
	flags := c.Flags()
	flags.String(senderKey, "", "Request sender")
	flags.String(recipientKey, "", "Recipient on the destination chain")
	flags.String(tokenKey, "", "Source token")
	flags.String(amountKey, "0", "Amount in base units")
	flags.Uint64(srcChainIDKey, 0, "Source chain id")
	flags.Uint64(dstChainIDKey, 0, "Destination chain id")
	flags.Uint64(nonceKey, 0, "Request nonce")
	return c
}

func requestIDFunc(c *cobra.Command, _ []string) error {
	flags := c.Flags()
	var p router.RequestParams
	for key, dst := range map[string]*common.Address{
		senderKey:    &p.Sender,
		recipientKey: &p.Recipient,
		tokenKey:     &p.Token,
	} {
		s, err := flags.GetString(key)
		if err != nil {
			return err
		}
		if !common.IsHexAddress(s) {
			return fmt.Errorf("invalid %s %q", key, s)
		}
		*dst = common.HexToAddress(s)
	}
	amountStr, err := flags.GetString(amountKey)
	if err != nil {
		return err
	}
	amount, err := uint256.FromDecimal(amountStr)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", amountKey, amountStr, err)
	}
	p.Amount = *amount
	if p.SrcChainID, err = flags.GetUint64(srcChainIDKey); err != nil {
		return err
	}
	if p.DstChainID, err = flags.GetUint64(dstChainIDKey); err != nil {
		return err
	}
	if p.Nonce, err = flags.GetUint64(nonceKey); err != nil {
		return err
	}

	out := c.OutOrStdout()
	fmt.Fprintf(out, "request-id: %s\n", p.ID().Hex())
	fmt.Fprintf(out, "message: %s\n", hexutil.Encode(p.Encode()))
	return nil
}

func signCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "sign",
		Short: "Signs a message, or a governance action when --action is set",
		RunE:  signFunc,
	}
	addSchemeFlags(c)
	flags := c.Flags()
	flags.String(secretKeyKey, "", "Hex secret key (required)")
	flags.String(messageKey, "", "Hex message, or the action payload with --action")
	flags.String(actionKey, "", "Governance action to sign, such as "+upgrade.ActionScheduleUpgrade)
	flags.Uint64(nonceKey, 0, "Governance nonce the action is signed at")
	return c
}

func signFunc(c *cobra.Command, _ []string) error {
	scheme, err := schemeFromFlags(c)
	if err != nil {
		return err
	}
	flags := c.Flags()
	skHex, err := flags.GetString(secretKeyKey)
	if err != nil {
		return err
	}
	sk, err := bls.SecretKeyFromBytes(common.FromHex(skHex))
	if err != nil {
		return err
	}
	msg, err := messageFromFlags(c)
	if err != nil {
		return err
	}
	sig, err := scheme.Sign(sk, msg)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.OutOrStdout(), sig.Hex())
	return nil
}

// messageFromFlags returns --message, wrapped into a governance message when
// --action is set.
func messageFromFlags(c *cobra.Command) ([]byte, error) {
	flags := c.Flags()
	msgHex, err := flags.GetString(messageKey)
	if err != nil {
		return nil, err
	}
	msg := common.FromHex(msgHex)
	if !flags.Changed(actionKey) {
		return msg, nil
	}
	action, err := flags.GetString(actionKey)
	if err != nil {
		return nil, err
	}
	nonce, err := flags.GetUint64(nonceKey)
	if err != nil {
		return nil, err
	}
	return upgrade.Message(action, msg, nonce)
}

func verifyCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "verify",
		Short: "Verifies a signature against a public key",
		RunE:  verifyFunc,
	}
	addSchemeFlags(c)
	flags := c.Flags()
	flags.String(publicKeyKey, "", "Hex G2 public key (required)")
	flags.String(signatureKey, "", "Hex G1 signature (required)")
	flags.String(messageKey, "", "Hex message, or the action payload with --action")
	flags.String(actionKey, "", "Governance action the signature covers")
	flags.Uint64(nonceKey, 0, "Governance nonce the action was signed at")
	return c
}

func verifyFunc(c *cobra.Command, _ []string) error {
	scheme, err := schemeFromFlags(c)
	if err != nil {
		return err
	}
	flags := c.Flags()
	pkHex, err := flags.GetString(publicKeyKey)
	if err != nil {
		return err
	}
	sigHex, err := flags.GetString(signatureKey)
	if err != nil {
		return err
	}
	msg, err := messageFromFlags(c)
	if err != nil {
		return err
	}
	ok, err := scheme.VerifyBytes(msg, common.FromHex(sigHex), common.FromHex(pkHex))
	if err != nil {
		return err
	}
	if !ok {
		return errInvalidSignature
	}
	fmt.Fprintln(c.OutOrStdout(), "valid")
	return nil
}
