// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

// Package vanikey searches for password-encrypted Ethereum keystores whose
// address starts with a chosen byte prefix.
//
// Every attempt creates a real keystore file through a KeyGenerator, compares
// the derived address against the target prefix, and deletes the file again
// on a mismatch. At any point at most one candidate file per worker exists on
// disk, and exactly one file survives a successful search: the accepted
// keystore. Addresses are uniformly distributed, so a prefix of n hex digits
// needs 16^n attempts on average; the search runs until it hits, fails, or is
// canceled.
package vanikey

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var (
	// ErrInvalidArgument reports a missing or malformed search input. It is
	// returned before the key generator is ever invoked, so no files have
	// been created when a caller sees it.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrGenerationFailed reports that the key generator returned an error
	// or output that could not be used. It is fatal rather than retried:
	// a generator that failed once is broken, not unlucky.
	ErrGenerationFailed = errors.New("keystore generation failed")
)

// Options configures a search run by Find.
type Options struct {
	// Prefix is the target address prefix: "0x" followed by an even,
	// non-zero number of hex digits, compared case-insensitively.
	Prefix string

	// Dir is the directory keystore files are created in. It must already
	// exist; Find never creates or removes directories.
	Dir string

	// Password encrypts every candidate keystore, including the accepted
	// one. It must not be empty.
	Password string

	// Workers is the number of concurrent search goroutines. Values below
	// one mean a single worker.
	Workers int

	// ReportEvery emits a progress log line each time the shared attempt
	// counter passes a multiple of this value. Zero disables reporting.
	ReportEvery uint64

	// Logger receives progress reports. A nil logger silences them.
	Logger *zap.Logger
}

// Result describes the accepted keystore of a successful search.
type Result struct {
	// Path is the keystore file as reported by the generator, the only
	// file the search leaves behind.
	Path string

	// Address is the 20-byte account address derived from the key.
	Address common.Address

	// Attempts is the total number of keystores generated across all
	// workers, including the accepted one.
	Attempts uint64

	// Elapsed is the wall-clock duration of the search.
	Elapsed time.Duration
}

// ParsePrefix validates a target prefix and decodes it to the raw bytes an
// address must start with. The "0x" marker is required, the digit count must
// be even and non-zero, and the prefix cannot be longer than a full address.
// Decoding to bytes makes the later comparison case-insensitive for free.
func ParsePrefix(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: target prefix must not be empty", ErrInvalidArgument)
	}
	digits, ok := strings.CutPrefix(s, "0x")
	if !ok {
		digits, ok = strings.CutPrefix(s, "0X")
	}
	if !ok {
		return nil, fmt.Errorf("%w: target prefix %q must start with 0x", ErrInvalidArgument, s)
	}
	if digits == "" {
		return nil, fmt.Errorf("%w: target prefix %q has no hex digits after the 0x marker", ErrInvalidArgument, s)
	}
	if len(digits)%2 != 0 {
		return nil, fmt.Errorf("%w: target prefix %q must have an even number of hex digits", ErrInvalidArgument, s)
	}
	prefix, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("%w: target prefix %q is not valid hex", ErrInvalidArgument, s)
	}
	if len(prefix) > common.AddressLength {
		return nil, fmt.Errorf("%w: target prefix %q is longer than an address (%d bytes)", ErrInvalidArgument, s, common.AddressLength)
	}
	return prefix, nil
}

// Find generates keystores through gen until one derives an address that
// starts with the target prefix, deleting every rejected file before moving
// on. On success the accepted keystore is the only file the search created
// that still exists, and the returned Result points at it.
//
// Arguments are validated up front; a validation failure returns an error
// wrapping ErrInvalidArgument without a single generator call. A generator
// failure aborts the whole search with an error wrapping ErrGenerationFailed.
// Canceling ctx stops all workers, removes any rejected candidate still on
// disk, and returns the context's error.
//
// With Workers > 1 several goroutines generate candidates against the shared
// attempt counter. The first match wins; a runner-up match racing the winner
// deletes its own file, so the single-survivor guarantee holds regardless of
// worker count.
func Find(ctx context.Context, gen KeyGenerator, opts Options) (*Result, error) {
	prefix, err := ParsePrefix(opts.Prefix)
	if err != nil {
		return nil, err
	}
	if gen == nil {
		return nil, fmt.Errorf("%w: key generator must not be nil", ErrInvalidArgument)
	}
	if opts.Dir == "" {
		return nil, fmt.Errorf("%w: output directory must not be empty", ErrInvalidArgument)
	}
	if opts.Password == "" {
		return nil, fmt.Errorf("%w: password must not be empty", ErrInvalidArgument)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &searcher{
		gen:     gen,
		opts:    opts,
		prefix:  prefix,
		logger:  logger,
		start:   time.Now(),
		matches: make(chan Result, 1),
		cancel:  cancel,
	}

	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.run(ctx); err != nil {
				errs <- err
				cancel()
			}
		}()
	}
	wg.Wait()

	// A match outranks everything else: the accepted keystore exists and
	// satisfies the contract even if a sibling worker failed or the
	// context was canceled in the same instant.
	select {
	case res := <-s.matches:
		res.Attempts = s.attempts.Load()
		res.Elapsed = time.Since(s.start)
		return &res, nil
	default:
	}
	select {
	case err := <-errs:
		return nil, err
	default:
	}
	return nil, ctx.Err()
}

// searcher holds the state shared by the worker goroutines of one Find call.
type searcher struct {
	gen      KeyGenerator
	opts     Options
	prefix   []byte
	logger   *zap.Logger
	start    time.Time
	attempts atomic.Uint64
	matches  chan Result
	cancel   context.CancelFunc
}

// run is the per-worker loop: generate, compare, keep or delete.
func (s *searcher) run(ctx context.Context) error {
	for ctx.Err() == nil {
		path, addr, err := s.gen.GenerateEncrypted(ctx, s.opts.Password, s.opts.Dir)
		if err != nil {
			if ctx.Err() != nil {
				// Canceled mid-generation; the generator reported no
				// usable file, so there is nothing to clean up here.
				return nil
			}
			return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}

		n := s.attempts.Add(1)
		if every := s.opts.ReportEvery; every > 0 && n%every == 0 {
			elapsed := time.Since(s.start)
			s.logger.Info("still searching",
				zap.Uint64("attempts", n),
				zap.Duration("elapsed", elapsed.Round(time.Millisecond)),
				zap.Float64("attempts_per_sec", float64(n)/elapsed.Seconds()),
			)
		}

		if bytes.HasPrefix(addr.Bytes(), s.prefix) {
			select {
			case s.matches <- Result{Path: path, Address: addr}:
				s.cancel()
			default:
				// Another worker already claimed the win. Only one
				// keystore may survive, so this match goes too.
				if err := os.Remove(path); err != nil {
					return fmt.Errorf("%w: could not remove runner-up keystore %s: %v", ErrGenerationFailed, path, err)
				}
			}
			return nil
		}

		if err := os.Remove(path); err != nil {
			return fmt.Errorf("%w: could not remove rejected keystore %s: %v", ErrGenerationFailed, path, err)
		}
	}
	return nil
}
