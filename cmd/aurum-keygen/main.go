// aurum-keygen manages owner keys for the Aurum ledger.
//
// Usage:
//
//	aurum-keygen new <wallet>       Create a wallet and print its first owner key
//	aurum-keygen recover <wallet>   Recreate a wallet from an existing mnemonic
//	aurum-keygen derive <wallet>    Derive the next owner key
//	aurum-keygen owners <wallet>    List derived owner keys
//	aurum-keygen list               List wallets in the keystore
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/aurumlabs/aurum-ledger/config"
	"github.com/aurumlabs/aurum-ledger/internal/wallet"
)

func main() {
	args := os.Args[1:]

	// --datadir may appear before the subcommand.
	dataDir := config.DefaultDataDir()
	for len(args) > 0 {
		switch {
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cfg := config.Default()
	cfg.DataDir = dataDir
	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "new":
		cmdNew(ks, cmdArgs)
	case "recover":
		cmdRecover(ks, cmdArgs)
	case "derive":
		cmdDerive(ks, cmdArgs)
	case "owners":
		cmdOwners(ks, cmdArgs)
	case "list":
		cmdList(ks)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func cmdNew(ks *wallet.Keystore, args []string) {
	name := requireWalletName(args)

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	password := readNewPassword()
	createWallet(ks, name, mnemonic, password)

	fmt.Println("Recovery mnemonic (write it down, it is shown once):")
	fmt.Printf("  %s\n\n", mnemonic)
}

func cmdRecover(ks *wallet.Keystore, args []string) {
	name := requireWalletName(args)

	fmt.Fprint(os.Stderr, "Enter mnemonic: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		fatal("read mnemonic: %v", err)
	}
	mnemonic := strings.TrimSpace(line)
	if !wallet.ValidateMnemonic(mnemonic) {
		fatal("invalid mnemonic")
	}

	password := readNewPassword()
	createWallet(ks, name, mnemonic, password)
}

func cmdDerive(ks *wallet.Keystore, args []string) {
	name := requireWalletName(args)

	password, err := readPassword("Passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}

	seed, err := ks.Load(name, password)
	if err != nil {
		fatal("unlock wallet: %v", err)
	}

	index, err := ks.NextOwnerIndex(name)
	if err != nil {
		fatal("%v", err)
	}

	pubKey := deriveOwner(ks, name, seed, index)
	if err := ks.AdvanceOwnerIndex(name); err != nil {
		fatal("advance owner index: %v", err)
	}

	fmt.Printf("Owner key %d: %s\n", index, pubKey)
}

func cmdOwners(ks *wallet.Keystore, args []string) {
	name := requireWalletName(args)

	owners, err := ks.ListOwners(name)
	if err != nil {
		fatal("%v", err)
	}
	if len(owners) == 0 {
		fmt.Println("No owner keys derived yet")
		return
	}
	for _, o := range owners {
		fmt.Printf("  %-12s index=%d  %s\n", o.Name, o.Index, o.PubKey)
	}
}

func cmdList(ks *wallet.Keystore) {
	names, err := ks.List()
	if err != nil {
		fatal("%v", err)
	}
	if len(names) == 0 {
		fmt.Println("No wallets")
		return
	}
	for _, n := range names {
		fmt.Printf("  %s\n", n)
	}
}

// createWallet seals the mnemonic's seed, records the wallet, and prints
// the first owner key.
func createWallet(ks *wallet.Keystore, name, mnemonic string, password []byte) {
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}

	if err := ks.Create(name, seed, password, wallet.DefaultKDFParams()); err != nil {
		fatal("create wallet: %v", err)
	}

	pubKey := deriveOwner(ks, name, seed, 0)
	if err := ks.AdvanceOwnerIndex(name); err != nil {
		fatal("advance owner index: %v", err)
	}

	fmt.Printf("Created wallet %q\n", name)
	fmt.Printf("Owner key 0: %s\n\n", pubKey)
}

// deriveOwner derives the external owner key at the given index, records
// it in the wallet metadata, and returns its hex encoding.
func deriveOwner(ks *wallet.Keystore, name string, seed []byte, index uint32) string {
	master, err := wallet.NewMasterKey(seed)
	if err != nil {
		fatal("master key: %v", err)
	}
	key, err := master.DeriveOwner(0, wallet.ChangeExternal, index)
	if err != nil {
		fatal("derive owner key: %v", err)
	}

	pubKey := hex.EncodeToString(key.OwnerKey())
	entry := wallet.OwnerEntry{
		Account: 0,
		Change:  wallet.ChangeExternal,
		Index:   index,
		Name:    fmt.Sprintf("owner-%d", index),
		PubKey:  pubKey,
	}
	if err := ks.AddOwner(name, entry); err != nil {
		fatal("record owner key: %v", err)
	}
	return pubKey
}

func requireWalletName(args []string) string {
	if len(args) != 1 || args[0] == "" || strings.HasPrefix(args[0], "-") {
		usage()
		os.Exit(1)
	}
	return args[0]
}

// readNewPassword prompts twice and requires both entries to match.
func readNewPassword() []byte {
	password, err := readPassword("New passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	confirm, err := readPassword("Confirm passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passphrases do not match")
	}
	return password
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func usage() {
	fmt.Fprint(os.Stderr, `aurum-keygen - owner key management for the Aurum ledger

Usage:
  aurum-keygen [--datadir DIR] <command> [args]

Commands:
  new <wallet>       Create a wallet and print its first owner key
  recover <wallet>   Recreate a wallet from an existing mnemonic
  derive <wallet>    Derive the next owner key
  owners <wallet>    List derived owner keys
  list               List wallets in the keystore
  help               Show this help message
`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
