// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package vanikey

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/matryer/is"
)

// TestParseCastOutput_Valid parses the output shape cast actually prints,
// including extra diagnostics around the two labeled lines.
func TestParseCastOutput_Valid(t *testing.T) {
	is := is.New(t)

	out := []byte(`Created new encrypted keystore file: /keys/UTC--2026-01-02T03-04-05.000000000Z--c0ffee
Address: 0xC0ffee254729296a45a3885639AC7E10F9d54979
`)
	path, addr, err := parseCastOutput(out)
	is.NoErr(err)
	is.Equal(path, "/keys/UTC--2026-01-02T03-04-05.000000000Z--c0ffee")
	is.Equal(addr, common.HexToAddress("0xC0ffee254729296a45a3885639AC7E10F9d54979"))

	// Unknown lines and leading whitespace are tolerated.
	out = []byte("warning: something unrelated\n  Created new encrypted keystore file: /k/f \n\tAddress: 0xc0ffee254729296a45a3885639ac7e10f9d54979\nbye\n")
	path, addr, err = parseCastOutput(out)
	is.NoErr(err)
	is.Equal(path, "/k/f")
	is.Equal(addr, common.HexToAddress("0xc0ffee254729296a45a3885639ac7e10f9d54979"))
}

// TestParseCastOutput_Invalid rejects output missing either label or
// carrying a malformed address.
func TestParseCastOutput_Invalid(t *testing.T) {
	tests := []struct {
		name string
		out  string
	}{
		{"empty", ""},
		{"garbage", "no labels here\n"},
		{"missing address", "Created new encrypted keystore file: /k/f\n"},
		{"missing path", "Address: 0xC0ffee254729296a45a3885639AC7E10F9d54979\n"},
		{"malformed address", "Created new encrypted keystore file: /k/f\nAddress: 0xnope\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			_, _, err := parseCastOutput([]byte(tc.out))
			is.True(err != nil)
		})
	}
}

// TestCastGenerator_CheckMissingBinary verifies the pre-flight check fails
// for a binary that cannot be found.
func TestCastGenerator_CheckMissingBinary(t *testing.T) {
	is := is.New(t)

	gen := NewCastGenerator("vanikey-test-binary-that-does-not-exist")
	is.True(gen.Check() != nil)
}

// TestCastGenerator_GenerateEncrypted drives the generator against a stub
// script standing in for cast.
func TestCastGenerator_GenerateEncrypted(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub uses a shell script")
	}
	is := is.New(t)

	stub := filepath.Join(t.TempDir(), "cast-stub")
	script := `#!/bin/sh
dir="$3"
printf 'Created new encrypted keystore file: %s/UTC--stub--c0ffee\n' "$dir"
printf 'Address: 0xC0ffee254729296a45a3885639AC7E10F9d54979\n'
`
	is.NoErr(os.WriteFile(stub, []byte(script), 0o755))

	gen := NewCastGenerator(stub)
	is.NoErr(gen.Check())

	dir := t.TempDir()
	path, addr, err := gen.GenerateEncrypted(context.Background(), "pw", dir)
	is.NoErr(err)
	is.Equal(path, dir+"/UTC--stub--c0ffee")
	is.Equal(addr, common.HexToAddress("0xC0ffee254729296a45a3885639AC7E10F9d54979"))
}

// TestCastGenerator_FailureCarriesStderr verifies that a failing binary's
// stderr ends up in the returned error.
func TestCastGenerator_FailureCarriesStderr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub uses a shell script")
	}
	is := is.New(t)

	stub := filepath.Join(t.TempDir(), "cast-stub")
	script := `#!/bin/sh
echo "keystore directory is not writable" >&2
exit 2
`
	is.NoErr(os.WriteFile(stub, []byte(script), 0o755))

	gen := NewCastGenerator(stub)
	_, _, err := gen.GenerateEncrypted(context.Background(), "pw", t.TempDir())
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), "keystore directory is not writable"))
}
