// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package vanikey

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/matryer/is"
)

// TestGethGenerator_CreatesDecryptableKeystore verifies that the embedded
// generator writes a real Web3 Secret Storage file whose key decrypts with
// the given password and actually derives the reported address.
func TestGethGenerator_CreatesDecryptableKeystore(t *testing.T) {
	is := is.New(t)

	dir := t.TempDir()
	gen := NewGethGenerator(true) // light KDF keeps the test fast

	path, addr, err := gen.GenerateEncrypted(context.Background(), "test-password", dir)
	is.NoErr(err)
	is.True(strings.HasPrefix(path, dir))

	blob, err := os.ReadFile(path)
	is.NoErr(err)

	key, err := keystore.DecryptKey(blob, "test-password")
	is.NoErr(err)
	is.Equal(crypto.PubkeyToAddress(key.PrivateKey.PublicKey), addr)

	// The wrong password must not open it.
	_, err = keystore.DecryptKey(blob, "wrong-password")
	is.True(err != nil)
}

// TestGethGenerator_FreshKeyPerCall verifies that consecutive calls produce
// distinct keys and distinct files.
func TestGethGenerator_FreshKeyPerCall(t *testing.T) {
	is := is.New(t)

	dir := t.TempDir()
	gen := NewGethGenerator(true)

	path1, addr1, err := gen.GenerateEncrypted(context.Background(), "pw", dir)
	is.NoErr(err)
	path2, addr2, err := gen.GenerateEncrypted(context.Background(), "pw", dir)
	is.NoErr(err)

	is.True(addr1 != addr2)
	is.True(path1 != path2)
	is.Equal(len(listFiles(t, dir)), 2)
}

// TestFind_WithGethGenerator runs a real end-to-end search for a one-byte
// prefix, around 256 attempts on average. Light scrypt parameters keep this
// in the low seconds, but it is still skipped in short mode.
func TestFind_WithGethGenerator(t *testing.T) {
	if testing.Short() {
		t.Skip("real keystore search is too slow for -short")
	}
	is := is.New(t)

	dir := t.TempDir()
	res, err := Find(context.Background(), NewGethGenerator(true), Options{
		Prefix:   "0x00",
		Dir:      dir,
		Password: "test-password",
		Workers:  4,
	})
	is.NoErr(err)
	is.Equal(res.Address.Bytes()[0], byte(0x00))
	is.True(res.Attempts >= 1)

	// Exactly the accepted keystore remains, and it decrypts to a key for
	// the reported address.
	files := listFiles(t, dir)
	is.Equal(len(files), 1)

	blob, err := os.ReadFile(res.Path)
	is.NoErr(err)
	key, err := keystore.DecryptKey(blob, "test-password")
	is.NoErr(err)
	is.Equal(crypto.PubkeyToAddress(key.PrivateKey.PublicKey), res.Address)
}
