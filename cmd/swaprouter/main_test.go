// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/swaprouter/bls"
	"github.com/luxfi/swaprouter/config"
	"github.com/luxfi/swaprouter/router"
	"github.com/luxfi/swaprouter/upgrade"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := rootCommand()
	c.SetOut(&out)
	c.SetErr(io.Discard)
	c.SetArgs(args)
	err := c.ExecuteContext(context.Background())
	return out.String(), err
}

// fields parses "key: value" lines.
func fields(out string) map[string]string {
	m := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		k, v, ok := strings.Cut(line, ": ")
		if ok {
			m[k] = v
		}
	}
	return m
}

func TestDSTCommand(t *testing.T) {
	require := require.New(t)

	out, err := run(t, "dst", "--chain-id=31337")
	require.NoError(err)
	want, err := bls.DST(bls.SwapRequest, 31337)
	require.NoError(err)
	require.Equal(string(want), strings.TrimSpace(out))

	_, err = run(t, "dst", "--kind=bridge", "--chain-id=1")
	require.ErrorIs(err, bls.ErrUnknownScheme)
	_, err = run(t, "dst", "--kind=upgrades")
	require.ErrorIs(err, bls.ErrZeroChainID)
}

func TestSignVerifyCommands(t *testing.T) {
	require := require.New(t)

	out, err := run(t, "keygen")
	require.NoError(err)
	keys := fields(out)

	out, err = run(t, "request-id",
		"--sender=0x0000000000000000000000000000000000000005",
		"--recipient=0x000000000000000000000000000000000000007e",
		"--token=0x000000000000000000000000000000000000070a",
		"--amount=1000000000000000000",
		"--src-chain-id=31337", "--dst-chain-id=31338", "--nonce=1",
	)
	require.NoError(err)
	req := fields(out)
	require.Len(common.FromHex(req["message"]), 7*32)

	out, err = run(t, "sign", "--chain-id=31337", "--secret-key="+keys["secret-key"], "--message="+req["message"])
	require.NoError(err)
	sig := strings.TrimSpace(out)

	out, err = run(t, "verify", "--chain-id=31337", "--public-key="+keys["public-key"], "--signature="+sig, "--message="+req["message"])
	require.NoError(err)
	require.Equal("valid", strings.TrimSpace(out))

	// other chain
	_, err = run(t, "verify", "--chain-id=31338", "--public-key="+keys["public-key"], "--signature="+sig, "--message="+req["message"])
	require.ErrorIs(err, errInvalidSignature)
}

func TestSignGovernanceAction(t *testing.T) {
	require := require.New(t)

	sk, err := bls.NewSecretKey()
	require.NoError(err)
	payload, err := upgrade.DelayPayload(3600)
	require.NoError(err)

	out, err := run(t, "sign", "--kind=upgrades", "--chain-id=31337",
		"--secret-key="+common.Bytes2Hex(sk.Bytes()),
		"--message="+common.Bytes2Hex(payload),
		"--action="+upgrade.ActionSetMinimumDelay, "--nonce=0",
	)
	require.NoError(err)

	scheme, err := bls.NewScheme(bls.Upgrade, 31337)
	require.NoError(err)
	gov, err := upgrade.NewGovernor(upgrade.Config{
		Scheme:    scheme,
		PublicKey: sk.PublicKey(),
		Now:       func() uint64 { return 0 },
	})
	require.NoError(err)
	require.NoError(gov.SetMinimumDelay(3600, common.FromHex(strings.TrimSpace(out))))
	require.Equal(uint64(3600), gov.MinimumDelay())
}

func TestKeygenShares(t *testing.T) {
	require := require.New(t)

	out, err := run(t, "keygen", "--shares=3", "--threshold=2")
	require.NoError(err)
	keys := fields(out)
	for i := 1; i <= 3; i++ {
		idx := string(rune('0' + i))
		_, err := bls.PublicKeyFromHex(keys["share "+idx+" public-key"])
		require.NoError(err)
		require.NotEmpty(keys["share "+idx+" secret-key"])
	}

	_, err = run(t, "keygen", "--shares=2", "--threshold=3")
	require.Error(err)
}

func TestNodeWiring(t *testing.T) {
	require := require.New(t)

	swapKey, err := bls.NewSecretKey()
	require.NoError(err)
	upgradeKey, err := bls.NewSecretKey()
	require.NoError(err)
	tokens, err := devTokens([]string{"0x000000000000000000000000000000000000070a"})
	require.NoError(err)

	cfg := &config.Config{
		ChainID:            31337,
		RouterAddress:      common.HexToAddress("0xa0a0"),
		Admin:              common.HexToAddress("0xad"),
		VerificationFeeBps: 500,
		PermittedChains:    []uint64{31338},
		SwapPublicKey:      swapKey.PublicKey(),
		UpgradePublicKey:   upgradeKey.PublicKey(),
		UpgradeMinDelay:    60,
	}
	require.NoError(cfg.Validate())

	n, err := newNode(cfg, log.NewNoOpLogger(), tokens, prometheus.NewRegistry())
	require.NoError(err)
	require.NotNil(n.governor)
	require.Nil(n.coordinator)

	server := httptest.NewServer(n.handler)
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(err)
	resp.Body.Close()
	require.Equal(http.StatusOK, resp.StatusCode)

	body := `{"jsonrpc":"2.0","id":1,"method":"swaprouter.IsChainPermitted","params":{"chainId":31338}}`
	resp, err = http.Post(server.URL+"/ext/swaprouter", "application/json", strings.NewReader(body))
	require.NoError(err)
	reply, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(err)
	require.Contains(string(reply), `"permitted":true`)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(err)
	metrics, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(err)
	require.Contains(string(metrics), "swaprouter_swap_requests_created")

	// governance can rotate the validator key of the served router
	next, err := bls.NewSecretKey()
	require.NoError(err)
	msg, err := upgrade.Message(router.ActionSetSwapRequestPublicKey, next.PublicKey().Bytes(), 0)
	require.NoError(err)
	scheme, err := bls.NewScheme(bls.Upgrade, 31337)
	require.NoError(err)
	sig, err := scheme.Sign(upgradeKey, msg)
	require.NoError(err)
	require.NoError(n.router.SetSwapRequestPublicKey(context.Background(), cfg.Admin, next.PublicKey(), sig.Bytes()))
}

func TestDevTokens(t *testing.T) {
	_, err := devTokens([]string{"not-an-address"})
	require.Error(t, err)

	addr := "0x000000000000000000000000000000000000070a"
	_, err = devTokens([]string{addr, addr})
	require.Error(t, err)
}
