package wallet

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/aurumlabs/aurum-ledger/internal/utxo"
	"github.com/aurumlabs/aurum-ledger/pkg/crypto"
	"github.com/aurumlabs/aurum-ledger/pkg/tx"
	"github.com/aurumlabs/aurum-ledger/pkg/types"
)

// Coin selection errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoOutputs         = errors.New("no spendable outputs")
)

// Spendable is a pool output the wallet can sign for.
type Spendable struct {
	Outpoint types.Outpoint
	Value    int64
}

// Selection holds the result of coin selection.
type Selection struct {
	Inputs []Spendable // Selected outputs to spend.
	Total  int64       // Sum of selected input values.
	Change int64       // Total - target.
}

// SelectOutputs chooses pool outputs to fund a payment of the given
// target amount. Two strategies are tried:
//  1. Single output: the smallest single output that covers the target.
//  2. Largest-first accumulation until the target is met.
//
// The strategy producing the least change wins.
func SelectOutputs(spendable []Spendable, target int64) (*Selection, error) {
	if len(spendable) == 0 {
		return nil, ErrNoOutputs
	}
	if target <= 0 {
		return nil, fmt.Errorf("target must be positive")
	}

	candidates := make([]Spendable, 0, len(spendable))
	for _, s := range spendable {
		if s.Value > 0 {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoOutputs
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Value < candidates[j].Value
	})

	// Strategy 1: smallest single output covering the target.
	var single *Selection
	for _, s := range candidates {
		if s.Value >= target {
			single = &Selection{
				Inputs: []Spendable{s},
				Total:  s.Value,
				Change: s.Value - target,
			}
			break
		}
	}

	// Strategy 2: largest-first accumulation.
	var accum *Selection
	var selected []Spendable
	var total int64
	for i := len(candidates) - 1; i >= 0; i-- {
		selected = append(selected, candidates[i])
		total += candidates[i].Value
		if total >= target {
			accum = &Selection{
				Inputs: selected,
				Total:  total,
				Change: total - target,
			}
			break
		}
	}

	switch {
	case single != nil && accum != nil:
		if single.Change <= accum.Change {
			return single, nil
		}
		return accum, nil
	case single != nil:
		return single, nil
	case accum != nil:
		return accum, nil
	default:
		var have int64
		for _, c := range candidates {
			have += c.Value
		}
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, have, target)
	}
}

// SpendableOutputs scans a pool for outputs locked to the given owner key.
func SpendableOutputs(pool *utxo.Pool, ownerKey []byte) []Spendable {
	var out []Spendable
	pool.ForEach(func(op types.Outpoint, o tx.Output) error {
		if bytes.Equal(o.PubKey, ownerKey) {
			out = append(out, Spendable{Outpoint: op, Value: o.Value})
		}
		return nil
	})
	return out
}

// BuildSpend constructs a signed transaction paying amount to the
// recipient key from outputs the given key owns in the pool. Surplus
// above the amount goes back to changeKey, or to the spender's own key
// when changeKey is nil.
func BuildSpend(pool *utxo.Pool, key *crypto.PrivateKey, recipient []byte, amount int64, changeKey []byte) (*tx.Transaction, error) {
	owner := key.PublicKey()
	spendable := SpendableOutputs(pool, owner)

	sel, err := SelectOutputs(spendable, amount)
	if err != nil {
		return nil, err
	}

	b := tx.NewBuilder()
	for _, in := range sel.Inputs {
		b.AddInput(in.Outpoint)
	}
	b.AddOutput(amount, recipient)
	if sel.Change > 0 {
		if changeKey == nil {
			changeKey = owner
		}
		b.AddOutput(sel.Change, changeKey)
	}

	if err := b.Sign(key); err != nil {
		return nil, fmt.Errorf("sign spend: %w", err)
	}
	return b.Build(), nil
}
