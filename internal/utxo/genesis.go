package utxo

import (
	"encoding/binary"

	"github.com/aurumlabs/aurum-ledger/config"
	"github.com/aurumlabs/aurum-ledger/pkg/crypto"
	"github.com/aurumlabs/aurum-ledger/pkg/tx"
	"github.com/aurumlabs/aurum-ledger/pkg/types"
)

// IssuanceTx builds the transaction that creates a ledger's initial outputs.
// It has a single unsigned input claiming a synthetic outpoint derived from
// the ledger identity, so two ledgers with identical allocations still get
// distinct output IDs. It is applied directly at genesis, never settled.
func IssuanceTx(gen *config.Genesis) *tx.Transaction {
	seed := make([]byte, 0, len(gen.LedgerID)+8)
	seed = append(seed, gen.LedgerID...)
	seed = binary.LittleEndian.AppendUint64(seed, gen.Timestamp)

	issuance := &tx.Transaction{
		Version: 1,
		Inputs: []tx.Input{
			{PrevOut: types.Outpoint{TxID: crypto.Hash(seed), Index: 0}},
		},
	}
	for _, a := range gen.Alloc {
		issuance.Outputs = append(issuance.Outputs, tx.Output{
			Value:  a.Value,
			PubKey: a.OwnerKey(),
		})
	}
	return issuance
}

// PoolFromGenesis builds the initial pool: one spendable output per
// allocation, keyed by the issuance transaction's hash and the
// allocation's position.
func PoolFromGenesis(gen *config.Genesis) (*Pool, error) {
	if err := gen.Validate(); err != nil {
		return nil, err
	}

	issuance := IssuanceTx(gen)
	txID := issuance.Hash()

	pool := NewPool()
	for i, out := range issuance.Outputs {
		pool.Add(types.Outpoint{TxID: txID, Index: uint32(i)}, out)
	}
	return pool, nil
}
