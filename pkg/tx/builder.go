package tx

import (
	"fmt"

	"github.com/aurumlabs/aurum-ledger/pkg/crypto"
	"github.com/aurumlabs/aurum-ledger/pkg/types"
)

// Builder constructs transactions incrementally.
type Builder struct {
	tx *Transaction
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{
		tx: &Transaction{Version: 1},
	}
}

// AddInput adds an input claiming a previous output.
func (b *Builder) AddInput(prevOut types.Outpoint) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, Input{PrevOut: prevOut})
	return b
}

// AddOutput adds an output assigning value to an owner key.
func (b *Builder) AddOutput(value int64, pubKey []byte) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, Output{Value: value, PubKey: pubKey})
	return b
}

// SignInput signs the input at position i with the given key.
// The signature covers SigningBytes(i), so outputs must be final
// before signing.
func (b *Builder) SignInput(i int, key *crypto.PrivateKey) error {
	if i < 0 || i >= len(b.tx.Inputs) {
		return fmt.Errorf("input index %d out of range", i)
	}
	hash := b.tx.SigHash(i)
	sig, err := key.Sign(hash[:])
	if err != nil {
		return fmt.Errorf("sign input %d: %w", i, err)
	}
	b.tx.Inputs[i].Signature = sig
	return nil
}

// Sign signs every input with the same key (single-owner spending).
func (b *Builder) Sign(key *crypto.PrivateKey) error {
	for i := range b.tx.Inputs {
		if err := b.SignInput(i, key); err != nil {
			return err
		}
	}
	return nil
}

// SignFor signs each input with the key that owns its outpoint.
// keyFor returns the private key for a claimed outpoint, or nil when the
// builder's caller holds no key for it.
func (b *Builder) SignFor(keyFor func(types.Outpoint) *crypto.PrivateKey) error {
	for i := range b.tx.Inputs {
		key := keyFor(b.tx.Inputs[i].PrevOut)
		if key == nil {
			return fmt.Errorf("no signer for input %d (%s)", i, b.tx.Inputs[i].PrevOut)
		}
		if err := b.SignInput(i, key); err != nil {
			return err
		}
	}
	return nil
}

// Build returns the constructed transaction.
// Does NOT validate — call ValidateStructure() separately.
func (b *Builder) Build() *Transaction {
	return b.tx
}
