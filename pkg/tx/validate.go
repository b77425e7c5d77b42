package tx

import (
	"errors"
	"fmt"

	"github.com/aurumlabs/aurum-ledger/config"
	"github.com/aurumlabs/aurum-ledger/pkg/crypto"
)

// Structural validation errors.
var (
	ErrNoInputs       = errors.New("transaction has no inputs")
	ErrNoOutputs      = errors.New("transaction has no outputs")
	ErrTooManyInputs  = errors.New("too many inputs")
	ErrTooManyOutputs = errors.New("too many outputs")
	ErrMissingSig     = errors.New("input missing signature")
	ErrBadOwnerKey    = errors.New("output owner key has wrong length")
)

// ValidateStructure checks transaction shape and encoding limits. It does
// not touch the UTXO pool; ledger-level rules (existence, double spends,
// signatures, conservation) are the settlement handler's job. Used on
// decode paths to reject garbage before it reaches a batch.
func (tx *Transaction) ValidateStructure() error {
	if len(tx.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(tx.Outputs) == 0 {
		return ErrNoOutputs
	}
	if len(tx.Inputs) > config.MaxTxInputs {
		return fmt.Errorf("%w: %d inputs, max %d", ErrTooManyInputs, len(tx.Inputs), config.MaxTxInputs)
	}
	if len(tx.Outputs) > config.MaxTxOutputs {
		return fmt.Errorf("%w: %d outputs, max %d", ErrTooManyOutputs, len(tx.Outputs), config.MaxTxOutputs)
	}

	for i, in := range tx.Inputs {
		if len(in.Signature) == 0 {
			return fmt.Errorf("input %d: %w", i, ErrMissingSig)
		}
	}

	for i, out := range tx.Outputs {
		if len(out.PubKey) != crypto.PubKeySize {
			return fmt.Errorf("output %d: %w: %d bytes, want %d", i, ErrBadOwnerKey, len(out.PubKey), crypto.PubKeySize)
		}
	}

	return nil
}
