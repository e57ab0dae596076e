// Package model defines the canonical value objects for tokens, trades,
// orderbooks, wallets, features, scores, and decisions (spec §3), plus the
// upstream DTO shapes and parse functions for the external feeds (spec §6).
package model

import (
	"regexp"
	"strings"
)

// TokenId identifies one outcome token of a binary market. Opaque, non-empty.
type TokenId string

// ConditionId identifies a market (exactly two TokenIds per ConditionId).
type ConditionId string

var hexAddrRe = regexp.MustCompile(`^0x[0-9a-f]{40}$`)
var hexTxRe = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

// Address is a lowercased 20-byte hex string with 0x prefix.
type Address string

// NewAddress lowercases and validates a wallet address.
func NewAddress(s string) (Address, bool) {
	a := Address(strings.ToLower(strings.TrimSpace(s)))
	if !hexAddrRe.MatchString(string(a)) {
		return "", false
	}
	return a, true
}

// TxHash is a 32-byte hex string with 0x prefix. Optional on trades.
type TxHash string

// NewTxHash lowercases and validates a transaction hash.
func NewTxHash(s string) (TxHash, bool) {
	h := TxHash(strings.ToLower(strings.TrimSpace(s)))
	if !hexTxRe.MatchString(string(h)) {
		return "", false
	}
	return h, true
}

func (t TokenId) Empty() bool     { return strings.TrimSpace(string(t)) == "" }
func (c ConditionId) Empty() bool { return strings.TrimSpace(string(c)) == "" }
