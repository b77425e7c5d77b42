package utxo

import (
	"encoding/binary"
	"sort"

	"github.com/aurumlabs/aurum-ledger/pkg/crypto"
	"github.com/aurumlabs/aurum-ledger/pkg/tx"
	"github.com/aurumlabs/aurum-ledger/pkg/types"
)

// Commitment computes a merkle root over all entries in the pool.
// Each UTXO is hashed deterministically, the hashes are sorted, and a
// merkle tree is folded from them. Two pools with the same entries commit
// to the same root regardless of insertion order; an empty pool commits
// to the zero hash. Used to compare pool state across settlement epochs.
func Commitment(p *Pool) types.Hash {
	hashes := make([]types.Hash, 0, p.Len())
	p.ForEach(func(op types.Outpoint, out tx.Output) error {
		hashes = append(hashes, hashEntry(op, out))
		return nil
	})

	if len(hashes) == 0 {
		return types.Hash{}
	}

	// Sort for deterministic ordering (map iteration order varies).
	sort.Slice(hashes, func(i, j int) bool {
		return hashLess(hashes[i], hashes[j])
	})

	return merkleRoot(hashes)
}

// hashEntry produces a deterministic BLAKE3 hash of one pool entry.
// Format: txid(32) | index(4) | value(8) | pubkey
func hashEntry(op types.Outpoint, out tx.Output) types.Hash {
	buf := make([]byte, 0, types.HashSize+4+8+len(out.PubKey))
	buf = append(buf, op.TxID[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, op.Index)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(out.Value))
	buf = append(buf, out.PubKey...)
	return crypto.Hash(buf)
}

// merkleRoot folds sorted leaf hashes pairwise until one remains,
// duplicating the last element of odd layers.
func merkleRoot(leaves []types.Hash) types.Hash {
	level := leaves
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = crypto.HashConcat(level[i], level[i+1])
		}
		level = next
	}
	return level[0]
}

func hashLess(a, b types.Hash) bool {
	for i := 0; i < types.HashSize; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
