// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package vanikey

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	hdwallet "github.com/stephenlacy/go-ethereum-hdwallet"
	"github.com/tyler-smith/go-bip39"
)

// DerivationBase is the BIP44 path under which HDGenerator derives candidate
// keys, one child index per attempt: m/44'/60'/0'/0/<index>.
const DerivationBase = "m/44'/60'/0'/0"

// NewMnemonic returns a fresh 24-word BIP39 mnemonic from 256 bits of
// entropy, using whichever word list is configured via bip39.SetWordList.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("could not gather entropy: %w", err)
	}
	words, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("could not create a mnemonic set of words: %w", err)
	}
	return words, nil
}

// HDGenerator derives candidate keys from a single BIP39 mnemonic along
// sequential children of DerivationBase, encrypting each candidate into the
// standard keystore format. Unlike purely random generation, a key found
// this way stays recoverable from the phrase and the derivation index alone,
// even if the keystore file is lost.
type HDGenerator struct {
	mnemonic string
	wallet   *hdwallet.Wallet
	scryptN  int
	scryptP  int
	next     atomic.Uint32

	mu     sync.Mutex
	stores map[string]*keystore.KeyStore // one per output directory
	index  map[common.Address]uint32
}

// NewHDGenerator builds a generator from mnemonic. With lightKDF the
// keystores are encrypted with geth's light scrypt parameters.
func NewHDGenerator(mnemonic string, lightKDF bool) (*HDGenerator, error) {
	wallet, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("could not build HD wallet from mnemonic: %w", err)
	}
	g := &HDGenerator{
		mnemonic: mnemonic,
		wallet:   wallet,
		scryptN:  keystore.StandardScryptN,
		scryptP:  keystore.StandardScryptP,
		stores:   make(map[string]*keystore.KeyStore),
		index:    make(map[common.Address]uint32),
	}
	if lightKDF {
		g.scryptN, g.scryptP = keystore.LightScryptN, keystore.LightScryptP
	}
	return g, nil
}

// Mnemonic returns the phrase all candidates are derived from.
func (g *HDGenerator) Mnemonic() string { return g.mnemonic }

// GenerateEncrypted derives the next child key and encrypts it into dir.
// Concurrent callers each claim a distinct derivation index.
func (g *HDGenerator) GenerateEncrypted(_ context.Context, password, dir string) (string, common.Address, error) {
	i := g.next.Add(1) - 1
	path, err := hdwallet.ParseDerivationPath(fmt.Sprintf("%s/%d", DerivationBase, i))
	if err != nil {
		return "", common.Address{}, fmt.Errorf("could not parse derivation path for child %d: %w", i, err)
	}
	account, err := g.wallet.Derive(path, false)
	if err != nil {
		return "", common.Address{}, fmt.Errorf("could not derive child %d: %w", i, err)
	}
	priv, err := g.wallet.PrivateKey(account)
	if err != nil {
		return "", common.Address{}, fmt.Errorf("could not extract private key of child %d: %w", i, err)
	}
	imported, err := g.store(dir).ImportECDSA(priv, password)
	if err != nil {
		return "", common.Address{}, fmt.Errorf("could not encrypt child %d: %w", i, err)
	}

	g.mu.Lock()
	g.index[imported.Address] = i
	g.mu.Unlock()

	return imported.URL.Path, imported.Address, nil
}

// store returns the keystore handle for dir, creating it on first use.
func (g *HDGenerator) store(dir string) *keystore.KeyStore {
	g.mu.Lock()
	defer g.mu.Unlock()
	ks, ok := g.stores[dir]
	if !ok {
		ks = keystore.NewKeyStore(dir, g.scryptN, g.scryptP)
		g.stores[dir] = ks
	}
	return ks
}

// IndexOf reports the derivation index that produced addr, if this generator
// produced it. Together with Mnemonic it lets the caller print the full
// recovery path of an accepted key.
func (g *HDGenerator) IndexOf(addr common.Address) (uint32, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i, ok := g.index[addr]
	return i, ok
}
