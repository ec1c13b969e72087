package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"nftmarket/cmd/internal/passphrase"
	"nftmarket/config"
	"nftmarket/crypto"
)

var newPassphraseSource = func() func() (string, error) {
	return passphrase.NewSource(config.KeystorePassphraseEnv, "keystore").Get
}

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate-key", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "wallet.keystore", "path of the encrypted keystore to write")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	path := strings.TrimSpace(*out)
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(stderr, "Error: %s already exists\n", path)
		return 1
	}

	pass, err := newPassphraseSource()()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error generating key: %v\n", err)
		return 1
	}
	if err := crypto.SaveToKeystore(path, key, pass); err != nil {
		fmt.Fprintf(stderr, "Error writing keystore: %v\n", err)
		return 1
	}
	printAddress(stdout, key.Address())
	fmt.Fprintf(stdout, "Keystore: %s\n", path)
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("keystore", "", "path of the keystore to read")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*path) == "" {
		fmt.Fprintln(stderr, "Error: --keystore is required")
		return 1
	}
	pass, err := newPassphraseSource()()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.LoadFromKeystore(*path, pass)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading keystore: %v\n", err)
		return 1
	}
	printAddress(stdout, key.Address())
	return 0
}

func printAddress(w io.Writer, addr [20]byte) {
	fmt.Fprintf(w, "Address: %s\n", crypto.HexAddress(addr))
	fmt.Fprintf(w, "Bech32:  %s\n", crypto.FormatAddress(addr))
}
