// Package utxo manages the set of unspent transaction outputs.
package utxo

import (
	"errors"
	"fmt"

	"github.com/aurumlabs/aurum-ledger/pkg/tx"
	"github.com/aurumlabs/aurum-ledger/pkg/types"
)

// ErrNotFound is returned when an outpoint is not in the pool.
var ErrNotFound = errors.New("utxo not found")

// UTXO pairs an outpoint with the output it identifies.
type UTXO struct {
	Outpoint types.Outpoint `json:"outpoint"`
	Output   tx.Output      `json:"output"`
}

// Pool is the set of currently spendable outputs, keyed by outpoint.
// Every entry is a not-yet-claimed output: entries are removed when a
// settled transaction spends them and added when one creates them.
//
// A Pool is a plain mutable value with a single owner; callers that hand
// a pool to a settlement handler keep their own snapshot because the
// handler clones it. Not safe for concurrent use.
type Pool struct {
	entries map[types.Outpoint]tx.Output
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{
		entries: make(map[types.Outpoint]tx.Output),
	}
}

// Clone returns a deep copy of the pool. The copy shares no state with the
// original: owner key bytes are duplicated, so mutations on either side
// never leak across.
func (p *Pool) Clone() *Pool {
	clone := &Pool{
		entries: make(map[types.Outpoint]tx.Output, len(p.entries)),
	}
	for op, out := range p.entries {
		clone.entries[op] = copyOutput(out)
	}
	return clone
}

func copyOutput(out tx.Output) tx.Output {
	c := tx.Output{Value: out.Value}
	if out.PubKey != nil {
		c.PubKey = make([]byte, len(out.PubKey))
		copy(c.PubKey, out.PubKey)
	}
	return c
}

// Contains reports whether the outpoint is a current key.
func (p *Pool) Contains(op types.Outpoint) bool {
	_, ok := p.entries[op]
	return ok
}

// Get returns the output for an outpoint.
// Returns an error wrapping ErrNotFound if the outpoint is absent;
// callers check Contains first on validation paths.
func (p *Pool) Get(op types.Outpoint) (tx.Output, error) {
	out, ok := p.entries[op]
	if !ok {
		return tx.Output{}, fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	return out, nil
}

// Add inserts or overwrites the entry for an outpoint.
func (p *Pool) Add(op types.Outpoint, out tx.Output) {
	p.entries[op] = copyOutput(out)
}

// Remove deletes the entry for an outpoint. No-op if absent.
func (p *Pool) Remove(op types.Outpoint) {
	delete(p.entries, op)
}

// Len returns the number of spendable outputs.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Outpoints returns the current keys in unspecified order.
func (p *Pool) Outpoints() []types.Outpoint {
	ops := make([]types.Outpoint, 0, len(p.entries))
	for op := range p.entries {
		ops = append(ops, op)
	}
	return ops
}

// ForEach calls fn for every entry in unspecified order.
// Return a non-nil error from fn to stop iteration early.
func (p *Pool) ForEach(fn func(op types.Outpoint, out tx.Output) error) error {
	for op, out := range p.entries {
		if err := fn(op, out); err != nil {
			return err
		}
	}
	return nil
}
