package utxo

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/aurumlabs/aurum-ledger/internal/storage"
	"github.com/aurumlabs/aurum-ledger/pkg/crypto"
	"github.com/aurumlabs/aurum-ledger/pkg/tx"
	"github.com/aurumlabs/aurum-ledger/pkg/types"
)

// Key prefixes for the UTXO store.
var (
	prefixUTXO  = []byte("u/") // u/<txid><index> -> UTXO JSON
	prefixOwner = []byte("o/") // o/<pubkey33><txid><index> -> empty (owner index)
)

// Store persists a pool between settlement epochs, backed by a storage.DB.
// It is a snapshot store for the harness around the settlement core, not
// part of the core itself: the handler works on an in-memory Pool.
type Store struct {
	db storage.DB
}

// NewStore creates a UTXO store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// utxoKey builds a storage key for an outpoint: "u/" + txid(32) + index(4).
func utxoKey(op types.Outpoint) []byte {
	key := make([]byte, len(prefixUTXO)+types.HashSize+4)
	copy(key, prefixUTXO)
	copy(key[len(prefixUTXO):], op.TxID[:])
	binary.BigEndian.PutUint32(key[len(prefixUTXO)+types.HashSize:], op.Index)
	return key
}

// ownerKey builds an owner index key: "o/" + pubkey(33) + txid(32) + index(4).
func ownerKey(pubKey []byte, op types.Outpoint) []byte {
	key := make([]byte, len(prefixOwner)+crypto.PubKeySize+types.HashSize+4)
	copy(key, prefixOwner)
	copy(key[len(prefixOwner):], pubKey)
	off := len(prefixOwner) + crypto.PubKeySize
	copy(key[off:], op.TxID[:])
	binary.BigEndian.PutUint32(key[off+types.HashSize:], op.Index)
	return key
}

// Get retrieves a UTXO by its outpoint.
func (s *Store) Get(op types.Outpoint) (*UTXO, error) {
	data, err := s.db.Get(utxoKey(op))
	if err != nil {
		return nil, fmt.Errorf("utxo get: %w", err)
	}
	var u UTXO
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("utxo unmarshal: %w", err)
	}
	return &u, nil
}

// Put stores a UTXO and updates the owner index.
func (s *Store) Put(u *UTXO) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("utxo marshal: %w", err)
	}
	if err := s.db.Put(utxoKey(u.Outpoint), data); err != nil {
		return fmt.Errorf("utxo put: %w", err)
	}

	if len(u.Output.PubKey) == crypto.PubKeySize {
		if err := s.db.Put(ownerKey(u.Output.PubKey, u.Outpoint), []byte{}); err != nil {
			return fmt.Errorf("owner index put: %w", err)
		}
	}
	return nil
}

// Delete removes a UTXO and its owner index entry.
func (s *Store) Delete(op types.Outpoint) error {
	// Read first to clean up the owner index.
	u, err := s.Get(op)
	if err == nil && len(u.Output.PubKey) == crypto.PubKeySize {
		s.db.Delete(ownerKey(u.Output.PubKey, u.Outpoint))
	}

	if err := s.db.Delete(utxoKey(op)); err != nil {
		return fmt.Errorf("utxo delete: %w", err)
	}
	return nil
}

// Has checks if a UTXO exists for the given outpoint.
func (s *Store) Has(op types.Outpoint) (bool, error) {
	return s.db.Has(utxoKey(op))
}

// ForEach iterates over all UTXOs in the store.
func (s *Store) ForEach(fn func(*UTXO) error) error {
	return s.db.ForEach(prefixUTXO, func(key, value []byte) error {
		var u UTXO
		if err := json.Unmarshal(value, &u); err != nil {
			return fmt.Errorf("utxo unmarshal: %w", err)
		}
		return fn(&u)
	})
}

// GetByOwner returns all UTXOs assigned to the given compressed public key.
// It scans the owner index and loads each referenced UTXO.
func (s *Store) GetByOwner(pubKey []byte) ([]*UTXO, error) {
	if len(pubKey) != crypto.PubKeySize {
		return nil, fmt.Errorf("pubkey must be %d bytes, got %d", crypto.PubKeySize, len(pubKey))
	}

	// Build the prefix: "o/" + pubkey(33).
	prefix := make([]byte, len(prefixOwner)+crypto.PubKeySize)
	copy(prefix, prefixOwner)
	copy(prefix[len(prefixOwner):], pubKey)

	var utxos []*UTXO
	err := s.db.ForEach(prefix, func(key, _ []byte) error {
		// Key layout: "o/" + pubkey(33) + txid(32) + index(4).
		off := len(prefixOwner) + crypto.PubKeySize
		if len(key) < off+types.HashSize+4 {
			return nil // Malformed key, skip.
		}
		var op types.Outpoint
		copy(op.TxID[:], key[off:off+types.HashSize])
		op.Index = binary.BigEndian.Uint32(key[off+types.HashSize:])

		u, err := s.Get(op)
		if err != nil {
			return nil // UTXO may have been spent, skip.
		}
		utxos = append(utxos, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan owner index: %w", err)
	}
	return utxos, nil
}

// Clear removes all UTXOs and their owner index entries.
func (s *Store) Clear() error {
	var keys [][]byte
	for _, prefix := range [][]byte{prefixUTXO, prefixOwner} {
		if err := s.db.ForEach(prefix, func(key, _ []byte) error {
			k := make([]byte, len(key))
			copy(k, key)
			keys = append(keys, k)
			return nil
		}); err != nil {
			return fmt.Errorf("scan prefix %s: %w", prefix, err)
		}
	}
	for _, key := range keys {
		if err := s.db.Delete(key); err != nil {
			return fmt.Errorf("delete utxo key: %w", err)
		}
	}
	return nil
}

// SavePool replaces the stored snapshot with the given pool's contents.
func (s *Store) SavePool(p *Pool) error {
	if err := s.Clear(); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return p.ForEach(func(op types.Outpoint, out tx.Output) error {
		return s.Put(&UTXO{Outpoint: op, Output: out})
	})
}

// LoadPool builds an in-memory pool from the stored snapshot.
func (s *Store) LoadPool() (*Pool, error) {
	pool := NewPool()
	err := s.ForEach(func(u *UTXO) error {
		pool.Add(u.Outpoint, u.Output)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return pool, nil
}
