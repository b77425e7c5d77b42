package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// keystoreFile is the on-disk JSON format for an encrypted wallet.
type keystoreFile struct {
	Version       int          `json:"version"`
	CreatedAt     time.Time    `json:"created_at"`
	SealedSeed    []byte       `json:"sealed_seed"`
	Owners        []OwnerEntry `json:"owners"`
	NextOwnerIdx  uint32       `json:"next_owner_index"`
	NextChangeIdx uint32       `json:"next_change_index"`
}

// OwnerEntry stores metadata for a derived owner key.
type OwnerEntry struct {
	Account uint32 `json:"account"`
	Change  uint32 `json:"change"` // 0=external, 1=internal
	Index   uint32 `json:"index"`
	Name    string `json:"name"`
	PubKey  string `json:"pubkey"` // hex-encoded compressed key
}

// Keystore manages encrypted wallet files in a directory.
type Keystore struct {
	path string
}

// NewKeystore creates a keystore rooted at the given directory,
// creating it if needed.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

func (ks *Keystore) walletPath(name string) string {
	return filepath.Join(ks.path, name+".wallet")
}

// Create creates a new encrypted wallet file from a mnemonic seed.
func (ks *Keystore) Create(name string, seed, password []byte, params KDFParams) error {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("wallet %q already exists", name)
	}

	sealed, err := Seal(seed, password, params)
	if err != nil {
		return fmt.Errorf("seal seed: %w", err)
	}

	kf := keystoreFile{
		Version:    1,
		CreatedAt:  time.Now().UTC(),
		SealedSeed: sealed,
		Owners:     []OwnerEntry{},
	}
	return ks.writeFile(path, &kf)
}

// Load decrypts a wallet and returns the seed bytes.
func (ks *Keystore) Load(name string, password []byte) ([]byte, error) {
	kf, err := ks.readFile(ks.walletPath(name))
	if err != nil {
		return nil, err
	}

	seed, err := Open(kf.SealedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt wallet: %w", err)
	}
	return seed, nil
}

// AddOwner records a derived owner key in the wallet metadata.
// Inserting the same derivation path with the same pubkey is a no-op.
func (ks *Keystore) AddOwner(walletName string, entry OwnerEntry) error {
	path := ks.walletPath(walletName)
	kf, err := ks.readFile(path)
	if err != nil {
		return err
	}

	for _, existing := range kf.Owners {
		if existing.Account == entry.Account && existing.Change == entry.Change && existing.Index == entry.Index {
			if existing.PubKey == entry.PubKey {
				return nil
			}
			return fmt.Errorf("owner path account=%d change=%d index=%d already exists",
				entry.Account, entry.Change, entry.Index)
		}
		if existing.PubKey != "" && existing.PubKey == entry.PubKey {
			return nil
		}
	}

	kf.Owners = append(kf.Owners, entry)
	return ks.writeFile(path, kf)
}

// ListOwners returns the owner entries for a wallet.
func (ks *Keystore) ListOwners(walletName string) ([]OwnerEntry, error) {
	kf, err := ks.readFile(ks.walletPath(walletName))
	if err != nil {
		return nil, err
	}
	return kf.Owners, nil
}

// List returns the names of all wallet files in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".wallet" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	return names, nil
}

// NextOwnerIndex returns the next external owner key index for a wallet.
func (ks *Keystore) NextOwnerIndex(name string) (uint32, error) {
	kf, err := ks.readFile(ks.walletPath(name))
	if err != nil {
		return 0, err
	}
	return kf.NextOwnerIdx, nil
}

// AdvanceOwnerIndex advances the external owner key index by 1.
func (ks *Keystore) AdvanceOwnerIndex(name string) error {
	path := ks.walletPath(name)
	kf, err := ks.readFile(path)
	if err != nil {
		return err
	}
	kf.NextOwnerIdx++
	return ks.writeFile(path, kf)
}

// NextChangeIndex returns the next change key index for a wallet.
func (ks *Keystore) NextChangeIndex(name string) (uint32, error) {
	kf, err := ks.readFile(ks.walletPath(name))
	if err != nil {
		return 0, err
	}
	return kf.NextChangeIdx, nil
}

// AdvanceChangeIndex advances the change key index by 1.
func (ks *Keystore) AdvanceChangeIndex(name string) error {
	path := ks.walletPath(name)
	kf, err := ks.readFile(path)
	if err != nil {
		return err
	}
	kf.NextChangeIdx++
	return ks.writeFile(path, kf)
}

// Delete removes a wallet file.
func (ks *Keystore) Delete(name string) error {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("wallet %q not found", name)
	}
	return os.Remove(path)
}

func (ks *Keystore) writeFile(path string, kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}

func (ks *Keystore) readFile(path string) (*keystoreFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if kf.Version != 1 {
		return nil, fmt.Errorf("unsupported wallet version: %d", kf.Version)
	}
	return &kf, nil
}
