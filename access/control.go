// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package access implements role based authorization stored alongside the
// state it guards.
package access

import (
	"errors"
	"fmt"

	"github.com/luxfi/crypto"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrZeroAccount  = errors.New("zero account")
)

// Role identifies a permission. Roles are keccak256 of their name, except
// DefaultAdminRole which is zero and administers every role.
type Role = common.Hash

var (
	DefaultAdminRole Role
	AdminRole        = NewRole("ADMIN_ROLE")
	SettlementRole   = NewRole("SETTLEMENT_ROLE")
)

var roleNames = map[Role]string{
	DefaultAdminRole: "DEFAULT_ADMIN_ROLE",
	AdminRole:        "ADMIN_ROLE",
	SettlementRole:   "SETTLEMENT_ROLE",
}

func NewRole(name string) Role {
	return common.BytesToHash(crypto.Keccak256([]byte(name)))
}

// RoleName returns the name of a well-known role, or its hex id.
func RoleName(r Role) string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return r.Hex()
}

// ParseRole accepts a well-known role name or a 32-byte hex id.
func ParseRole(s string) (Role, error) {
	for r, n := range roleNames {
		if n == s {
			return r, nil
		}
	}
	b := common.FromHex(s)
	if len(b) != common.HashLength {
		return Role{}, fmt.Errorf("unknown role %q", s)
	}
	return common.BytesToHash(b), nil
}

var member = []byte{1}

// Control reads and writes role memberships in db. Callers are expected to
// hand it a transactional view and serialize access.
type Control struct {
	db database.Database
}

func New(db database.Database) *Control {
	return &Control{db: db}
}

func key(role Role, account common.Address) []byte {
	k := make([]byte, 0, common.HashLength+common.AddressLength)
	k = append(k, role.Bytes()...)
	return append(k, account.Bytes()...)
}

func (c *Control) HasRole(role Role, account common.Address) (bool, error) {
	return c.db.Has(key(role, account))
}

// Require returns ErrUnauthorized unless account holds one of roles.
func (c *Control) Require(account common.Address, roles ...Role) error {
	for _, r := range roles {
		ok, err := c.HasRole(r, account)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnauthorized, account)
}

// Bootstrap makes admin the default admin and an admin. It is only used
// when the store is first created.
func (c *Control) Bootstrap(admin common.Address) error {
	if admin == (common.Address{}) {
		return ErrZeroAccount
	}
	if err := c.db.Put(key(DefaultAdminRole, admin), member); err != nil {
		return err
	}
	return c.db.Put(key(AdminRole, admin), member)
}

// Grant gives role to account. caller must be a default admin.
func (c *Control) Grant(caller common.Address, role Role, account common.Address) error {
	if account == (common.Address{}) {
		return ErrZeroAccount
	}
	if err := c.Require(caller, DefaultAdminRole); err != nil {
		return err
	}
	return c.db.Put(key(role, account), member)
}

// Revoke takes role away from account. caller must be a default admin, or
// account itself renouncing.
func (c *Control) Revoke(caller common.Address, role Role, account common.Address) error {
	if caller != account {
		if err := c.Require(caller, DefaultAdminRole); err != nil {
			return err
		}
	}
	return c.db.Delete(key(role, account))
}
