// inspect_keystore decrypts a keystore file and prints its address, for
// checking an accepted keystore and its password without importing the key
// anywhere.
//
// Usage:
//
//	go run ./scripts/inspect_keystore ./keys/UTC--...--c0ffee mypassword
//
// Or with the password prompted (not echoed):
//
//	go run ./scripts/inspect_keystore ./keys/UTC--...--c0ffee
//
// The printed address is re-derived from the decrypted private key, so it
// also catches a keystore whose address field lies about its key.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		fmt.Fprintln(os.Stderr, "Usage: inspect_keystore <keystore-file> [password]")
		os.Exit(1)
	}

	blob, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var password string
	if len(os.Args) == 3 {
		password = os.Args[2]
	} else {
		fmt.Fprint(os.Stderr, "Password: ")
		pass, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		password = string(pass)
	}

	key, err := keystore.DecryptKey(blob, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(crypto.PubkeyToAddress(key.PrivateKey.PublicKey).Hex())
}
