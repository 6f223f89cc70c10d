// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package vanikey

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
)

// KeyGenerator is the capability Find drives: one call creates one new
// password-encrypted keystore file in dir and reports the created file's
// path together with the address derived from the key.
//
// The search treats the generator as a black box. It never inspects file
// contents, only the reported address, and it deletes rejected candidates
// through the reported path. Implementations must be safe for concurrent
// use because parallel workers share a single generator.
type KeyGenerator interface {
	GenerateEncrypted(ctx context.Context, password, dir string) (string, common.Address, error)
}

// GethGenerator creates keystores in-process with go-ethereum's keystore
// machinery: a fresh random secp256k1 key per call, encrypted into the Web3
// Secret Storage format (the UTC--... files geth itself produces).
type GethGenerator struct {
	scryptN int
	scryptP int
}

// NewGethGenerator returns an embedded generator using the standard scrypt
// parameters, or geth's light parameters when lightKDF is set. A prefix
// search pays the KDF cost on every attempt, so light parameters speed it
// up considerably at the price of a cheaper-to-crack keystore file.
func NewGethGenerator(lightKDF bool) *GethGenerator {
	if lightKDF {
		return &GethGenerator{scryptN: keystore.LightScryptN, scryptP: keystore.LightScryptP}
	}
	return &GethGenerator{scryptN: keystore.StandardScryptN, scryptP: keystore.StandardScryptP}
}

// GenerateEncrypted creates one new key encrypted under password in dir.
// Key generation is not interruptible mid-call; cancellation is handled by
// the search loop between attempts.
func (g *GethGenerator) GenerateEncrypted(_ context.Context, password, dir string) (string, common.Address, error) {
	account, err := keystore.StoreKey(dir, password, g.scryptN, g.scryptP)
	if err != nil {
		return "", common.Address{}, fmt.Errorf("could not store new key: %w", err)
	}
	return account.URL.Path, account.Address, nil
}
