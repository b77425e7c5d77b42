package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Genesis holds the initial state of a ledger: the outputs spendable before
// any transaction has been settled. Immutable after ledger creation.
type Genesis struct {
	// Ledger identity
	LedgerID string `json:"ledger_id"`

	// Creation time (unix seconds). Part of the issuance encoding, so two
	// ledgers with identical allocations still get distinct output IDs.
	Timestamp uint64 `json:"timestamp"`

	// Initial allocations, in order. Each becomes one spendable output
	// of the issuance transaction, keyed by its position.
	Alloc []Allocation `json:"alloc"`
}

// Allocation is a single genesis output: a value in base units assigned to
// an owner credential (hex-encoded compressed public key).
type Allocation struct {
	PubKey string `json:"pubkey"`
	Value  int64  `json:"value"`
}

// LoadGenesis reads and validates a genesis file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis file: %w", err)
	}

	var gen Genesis
	if err := json.Unmarshal(data, &gen); err != nil {
		return nil, fmt.Errorf("parse genesis file: %w", err)
	}

	if err := gen.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}
	return &gen, nil
}

// Validate checks the genesis configuration for consistency.
func (g *Genesis) Validate() error {
	if g.LedgerID == "" {
		return fmt.Errorf("ledger_id is required")
	}
	if len(g.Alloc) == 0 {
		return fmt.Errorf("at least one allocation is required")
	}

	var total int64
	for i, a := range g.Alloc {
		b, err := hex.DecodeString(a.PubKey)
		if err != nil {
			return fmt.Errorf("alloc %d: invalid pubkey hex: %w", i, err)
		}
		if len(b) != 33 {
			return fmt.Errorf("alloc %d: pubkey must be 33 bytes, got %d", i, len(b))
		}
		if a.Value < 0 {
			return fmt.Errorf("alloc %d: negative value %d", i, a.Value)
		}
		if total > math.MaxInt64-a.Value {
			return fmt.Errorf("alloc %d: total allocation overflows", i)
		}
		total += a.Value
	}
	return nil
}

// OwnerKey decodes the allocation's hex pubkey.
// Call Validate first; a malformed key here is caller misuse.
func (a Allocation) OwnerKey() []byte {
	b, err := hex.DecodeString(a.PubKey)
	if err != nil {
		panic(fmt.Sprintf("genesis alloc pubkey not validated: %v", err))
	}
	return b
}
