// Package settle implements transaction validation and batch settlement
// against a UTXO pool.
package settle

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aurumlabs/aurum-ledger/internal/log"
	"github.com/aurumlabs/aurum-ledger/internal/utxo"
	"github.com/aurumlabs/aurum-ledger/pkg/crypto"
	"github.com/aurumlabs/aurum-ledger/pkg/tx"
	"github.com/aurumlabs/aurum-ledger/pkg/types"
)

// Validation errors.
var (
	ErrMissingUTXO    = errors.New("input UTXO not found in pool")
	ErrDuplicateClaim = errors.New("input UTXO claimed more than once")
	ErrBadSignature   = errors.New("input signature verification failed")
	ErrNegativeOutput = errors.New("negative output value")
	ErrValueImbalance = errors.New("output total exceeds input total")
	ErrInputOverflow  = errors.New("input values overflow")
	ErrOutputOverflow = errors.New("output values overflow")
)

// Handler validates transactions against a UTXO pool and applies the
// ones that pass. The pool given to New is cloned, so the caller's copy
// is never touched.
type Handler struct {
	pool *utxo.Pool
	log  zerolog.Logger
}

// New creates a Handler over a private copy of the given pool.
// A nil pool starts the handler with an empty one.
func New(pool *utxo.Pool) *Handler {
	if pool == nil {
		pool = utxo.NewPool()
	}
	return &Handler{
		pool: pool.Clone(),
		log:  log.Settle,
	}
}

// Pool returns the handler's current pool. Callers must not mutate it
// while the handler is in use.
func (h *Handler) Pool() *utxo.Pool {
	return h.pool
}

// Validate checks a transaction against the current pool. It returns nil
// when every claimed output exists in the pool, no output is claimed
// twice, every input signature verifies against the claimed output's
// owner key, no output value is negative, and the input total covers
// the output total. The first failed check wins; later inputs and
// outputs are not examined.
func (h *Handler) Validate(transaction *tx.Transaction) error {
	claimed := make(map[types.Outpoint]struct{}, len(transaction.Inputs))

	var inputTotal int64
	for i, in := range transaction.Inputs {
		out, err := h.pool.Get(in.PrevOut)
		if err != nil {
			if errors.Is(err, utxo.ErrNotFound) {
				return fmt.Errorf("input %d (%s): %w", i, in.PrevOut, ErrMissingUTXO)
			}
			return fmt.Errorf("input %d: %w", i, err)
		}

		if _, dup := claimed[in.PrevOut]; dup {
			return fmt.Errorf("input %d (%s): %w", i, in.PrevOut, ErrDuplicateClaim)
		}
		claimed[in.PrevOut] = struct{}{}

		sigHash := transaction.SigHash(i)
		if !crypto.VerifySignature(sigHash[:], in.Signature, out.PubKey) {
			return fmt.Errorf("input %d (%s): %w", i, in.PrevOut, ErrBadSignature)
		}

		if inputTotal > math.MaxInt64-out.Value {
			return fmt.Errorf("input %d: %w", i, ErrInputOverflow)
		}
		inputTotal += out.Value
	}

	var outputTotal int64
	for i, out := range transaction.Outputs {
		if out.Value < 0 {
			return fmt.Errorf("output %d: %w: %d", i, ErrNegativeOutput, out.Value)
		}
		if outputTotal > math.MaxInt64-out.Value {
			return fmt.Errorf("output %d: %w", i, ErrOutputOverflow)
		}
		outputTotal += out.Value
	}

	if inputTotal < outputTotal {
		return fmt.Errorf("%w: inputs=%d outputs=%d", ErrValueImbalance, inputTotal, outputTotal)
	}

	return nil
}

// IsValid reports whether the transaction would pass Validate.
func (h *Handler) IsValid(transaction *tx.Transaction) bool {
	return h.Validate(transaction) == nil
}

// Apply mutates the pool for an already-validated transaction: claimed
// outputs are removed and the transaction's own outputs are added under
// its hash. Callers must run Validate first; Apply does not re-check.
func (h *Handler) Apply(transaction *tx.Transaction) {
	for _, in := range transaction.Inputs {
		h.pool.Remove(in.PrevOut)
	}

	txHash := transaction.Hash()
	for i, out := range transaction.Outputs {
		h.pool.Add(types.Outpoint{TxID: txHash, Index: uint32(i)}, out)
	}
}

// ApplyIfValid validates the transaction and, on success, applies it to
// the pool. Returns the validation error otherwise.
func (h *Handler) ApplyIfValid(transaction *tx.Transaction) error {
	if err := h.Validate(transaction); err != nil {
		return err
	}
	h.Apply(transaction)
	return nil
}

// HandleBatch processes candidate transactions in the order given,
// accepting each one that validates against the pool as updated by the
// transactions accepted before it. A single pass is made: a transaction
// whose inputs are created by a later candidate in the same slice is
// rejected. Conflicting candidates resolve by position, first one wins.
// The returned slice holds the accepted transactions in acceptance
// order; it is empty, never nil, when nothing passes.
func (h *Handler) HandleBatch(candidates []*tx.Transaction) []*tx.Transaction {
	accepted := make([]*tx.Transaction, 0, len(candidates))

	for i, candidate := range candidates {
		if candidate == nil {
			continue
		}
		if err := h.Validate(candidate); err != nil {
			h.log.Debug().
				Int("position", i).
				Str("tx", candidate.Hash().String()).
				Err(err).
				Msg("transaction rejected")
			continue
		}
		h.Apply(candidate)
		accepted = append(accepted, candidate)
	}

	h.log.Info().
		Int("candidates", len(candidates)).
		Int("accepted", len(accepted)).
		Int("pool_size", h.pool.Len()).
		Msg("batch settled")

	return accepted
}
