// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package vanikey

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Labels cast prints on stdout for a newly created keystore.
const (
	castPathLabel    = "Created new encrypted keystore file:"
	castAddressLabel = "Address:"
)

// CastGenerator creates keystores by shelling out to foundry's cast:
// `cast wallet new <dir> --unsafe-password <password>` writes one new
// encrypted keystore and prints the created path and address on stdout.
// Useful when the keys should come from an external, separately audited
// generator instead of this process.
type CastGenerator struct {
	bin string
}

// NewCastGenerator returns a generator running bin, or "cast" from PATH
// when bin is empty.
func NewCastGenerator(bin string) *CastGenerator {
	if bin == "" {
		bin = "cast"
	}
	return &CastGenerator{bin: bin}
}

// Check verifies the binary can be found. Callers should run it before
// starting a search: a missing binary must fail fast, not on the first
// attempt after validation already passed.
func (g *CastGenerator) Check() error {
	if _, err := exec.LookPath(g.bin); err != nil {
		return fmt.Errorf("external generator unavailable: %w", err)
	}
	return nil
}

// GenerateEncrypted runs the binary once and parses the created keystore
// path and address from its output. Canceling ctx kills the process.
func (g *CastGenerator) GenerateEncrypted(ctx context.Context, password, dir string) (string, common.Address, error) {
	out, err := exec.CommandContext(ctx, g.bin, "wallet", "new", dir, "--unsafe-password", password).Output() //nolint: gosec
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", common.Address{}, fmt.Errorf("%s wallet new failed: %w: %s", g.bin, err, bytes.TrimSpace(exitErr.Stderr))
		}
		return "", common.Address{}, fmt.Errorf("%s wallet new failed: %w", g.bin, err)
	}
	path, addr, err := parseCastOutput(out)
	if err != nil {
		return "", common.Address{}, fmt.Errorf("could not parse %s output: %w", g.bin, err)
	}
	return path, addr, nil
}

// parseCastOutput extracts the keystore path and address from cast's
// human-readable output:
//
//	Created new encrypted keystore file: /keys/UTC--2026-01-02T03-04-05.000000000Z--c0ffee...
//	Address: 0xC0ffee...
//
// Unknown lines are ignored so the parse survives extra diagnostics, but
// both labels must be present and the address must decode.
func parseCastOutput(out []byte) (string, common.Address, error) {
	var path, addr string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, castPathLabel); ok {
			path = strings.TrimSpace(rest)
		}
		if rest, ok := strings.CutPrefix(line, castAddressLabel); ok {
			addr = strings.TrimSpace(rest)
		}
	}
	if path == "" {
		return "", common.Address{}, fmt.Errorf("no keystore path in output %q", out)
	}
	if !common.IsHexAddress(addr) {
		return "", common.Address{}, fmt.Errorf("no address in output %q", out)
	}
	return path, common.HexToAddress(addr), nil
}
