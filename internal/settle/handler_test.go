package settle

import (
	"errors"
	"testing"

	"github.com/aurumlabs/aurum-ledger/internal/utxo"
	"github.com/aurumlabs/aurum-ledger/pkg/crypto"
	"github.com/aurumlabs/aurum-ledger/pkg/tx"
	"github.com/aurumlabs/aurum-ledger/pkg/types"
)

// seedPool creates a pool with a single funded output owned by key,
// returning the pool and the outpoint of the funding output.
func seedPool(t *testing.T, key *crypto.PrivateKey, value int64) (*utxo.Pool, types.Outpoint) {
	t.Helper()

	pool := utxo.NewPool()
	op := types.Outpoint{TxID: crypto.Hash([]byte("funding")), Index: 0}
	pool.Add(op, tx.Output{Value: value, PubKey: key.PublicKey()})
	return pool, op
}

func mustKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func spendTx(t *testing.T, key *crypto.PrivateKey, from types.Outpoint, outputs ...tx.Output) *tx.Transaction {
	t.Helper()

	b := tx.NewBuilder().AddInput(from)
	for _, out := range outputs {
		b.AddOutput(out.Value, out.PubKey)
	}
	if err := b.Sign(key); err != nil {
		t.Fatalf("sign: %v", err)
	}
	return b.Build()
}

func TestHandler_Validate_Accepts(t *testing.T) {
	alice := mustKey(t)
	bob := mustKey(t)
	pool, op := seedPool(t, alice, 100)

	h := New(pool)
	transaction := spendTx(t, alice, op, tx.Output{Value: 60, PubKey: bob.PublicKey()}, tx.Output{Value: 40, PubKey: alice.PublicKey()})

	if err := h.Validate(transaction); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !h.IsValid(transaction) {
		t.Error("IsValid should report true")
	}
}

func TestHandler_Validate_MissingUTXO(t *testing.T) {
	alice := mustKey(t)
	pool, _ := seedPool(t, alice, 100)

	h := New(pool)
	phantom := types.Outpoint{TxID: crypto.Hash([]byte("never happened")), Index: 7}
	transaction := spendTx(t, alice, phantom, tx.Output{Value: 10, PubKey: alice.PublicKey()})

	err := h.Validate(transaction)
	if !errors.Is(err, ErrMissingUTXO) {
		t.Fatalf("want ErrMissingUTXO, got %v", err)
	}
}

func TestHandler_Validate_DuplicateClaim(t *testing.T) {
	alice := mustKey(t)
	pool, op := seedPool(t, alice, 100)

	h := New(pool)
	b := tx.NewBuilder().AddInput(op).AddInput(op).AddOutput(150, alice.PublicKey())
	if err := b.Sign(alice); err != nil {
		t.Fatalf("sign: %v", err)
	}

	err := h.Validate(b.Build())
	if !errors.Is(err, ErrDuplicateClaim) {
		t.Fatalf("want ErrDuplicateClaim, got %v", err)
	}
}

func TestHandler_Validate_BadSignature(t *testing.T) {
	alice := mustKey(t)
	mallory := mustKey(t)
	pool, op := seedPool(t, alice, 100)

	h := New(pool)

	// Signed by the wrong key.
	forged := spendTx(t, mallory, op, tx.Output{Value: 100, PubKey: mallory.PublicKey()})
	if err := h.Validate(forged); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("wrong key: want ErrBadSignature, got %v", err)
	}

	// Signed correctly, then outputs tampered with after signing.
	tampered := spendTx(t, alice, op, tx.Output{Value: 100, PubKey: alice.PublicKey()})
	tampered.Outputs[0].PubKey = mallory.PublicKey()
	if err := h.Validate(tampered); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("tampered outputs: want ErrBadSignature, got %v", err)
	}

	// No signature at all.
	unsigned := tx.NewBuilder().AddInput(op).AddOutput(100, alice.PublicKey()).Build()
	if err := h.Validate(unsigned); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("unsigned: want ErrBadSignature, got %v", err)
	}
}

func TestHandler_Validate_NegativeOutput(t *testing.T) {
	alice := mustKey(t)
	pool, op := seedPool(t, alice, 100)

	h := New(pool)
	transaction := spendTx(t, alice, op,
		tx.Output{Value: 150, PubKey: alice.PublicKey()},
		tx.Output{Value: -50, PubKey: alice.PublicKey()})

	err := h.Validate(transaction)
	if !errors.Is(err, ErrNegativeOutput) {
		t.Fatalf("want ErrNegativeOutput, got %v", err)
	}
}

func TestHandler_Validate_ValueImbalance(t *testing.T) {
	alice := mustKey(t)
	pool, op := seedPool(t, alice, 100)

	h := New(pool)
	transaction := spendTx(t, alice, op, tx.Output{Value: 101, PubKey: alice.PublicKey()})

	err := h.Validate(transaction)
	if !errors.Is(err, ErrValueImbalance) {
		t.Fatalf("want ErrValueImbalance, got %v", err)
	}
}

func TestHandler_Validate_ExactBalanceOK(t *testing.T) {
	alice := mustKey(t)
	pool, op := seedPool(t, alice, 100)

	h := New(pool)
	transaction := spendTx(t, alice, op, tx.Output{Value: 100, PubKey: alice.PublicKey()})

	if err := h.Validate(transaction); err != nil {
		t.Fatalf("exact balance should validate: %v", err)
	}
}

func TestHandler_Validate_SurplusOK(t *testing.T) {
	// Inputs may exceed outputs; the surplus is simply retired.
	alice := mustKey(t)
	pool, op := seedPool(t, alice, 100)

	h := New(pool)
	transaction := spendTx(t, alice, op, tx.Output{Value: 30, PubKey: alice.PublicKey()})

	if err := h.Validate(transaction); err != nil {
		t.Fatalf("surplus should validate: %v", err)
	}
}

func TestHandler_Validate_FirstFailureWins(t *testing.T) {
	// A transaction with both a missing input and a negative output
	// reports the input failure, inputs are checked first.
	alice := mustKey(t)
	pool, _ := seedPool(t, alice, 100)

	h := New(pool)
	phantom := types.Outpoint{TxID: crypto.Hash([]byte("phantom")), Index: 0}
	transaction := spendTx(t, alice, phantom, tx.Output{Value: -1, PubKey: alice.PublicKey()})

	err := h.Validate(transaction)
	if !errors.Is(err, ErrMissingUTXO) {
		t.Fatalf("want ErrMissingUTXO first, got %v", err)
	}
}

func TestHandler_New_ClonesPool(t *testing.T) {
	alice := mustKey(t)
	pool, op := seedPool(t, alice, 100)

	h := New(pool)
	transaction := spendTx(t, alice, op, tx.Output{Value: 100, PubKey: alice.PublicKey()})
	if err := h.ApplyIfValid(transaction); err != nil {
		t.Fatalf("ApplyIfValid: %v", err)
	}

	// The caller's pool still holds the original output.
	if !pool.Contains(op) {
		t.Error("caller's pool was mutated")
	}
	if h.Pool().Contains(op) {
		t.Error("handler's pool should no longer contain the spent output")
	}
}

func TestHandler_New_NilPool(t *testing.T) {
	h := New(nil)
	if h.Pool().Len() != 0 {
		t.Errorf("nil pool should start empty, got %d entries", h.Pool().Len())
	}
}

func TestHandler_Apply_UpdatesPool(t *testing.T) {
	alice := mustKey(t)
	bob := mustKey(t)
	pool, op := seedPool(t, alice, 100)

	h := New(pool)
	transaction := spendTx(t, alice, op,
		tx.Output{Value: 60, PubKey: bob.PublicKey()},
		tx.Output{Value: 40, PubKey: alice.PublicKey()})

	if err := h.ApplyIfValid(transaction); err != nil {
		t.Fatalf("ApplyIfValid: %v", err)
	}

	// One output consumed, two created.
	if got := h.Pool().Len(); got != 2 {
		t.Fatalf("pool size = %d, want 2", got)
	}

	txHash := transaction.Hash()
	out0, err := h.Pool().Get(types.Outpoint{TxID: txHash, Index: 0})
	if err != nil {
		t.Fatalf("new output 0 missing: %v", err)
	}
	if out0.Value != 60 {
		t.Errorf("output 0 value = %d, want 60", out0.Value)
	}
	if _, err := h.Pool().Get(types.Outpoint{TxID: txHash, Index: 1}); err != nil {
		t.Errorf("new output 1 missing: %v", err)
	}
}

func TestHandler_ApplyIfValid_RejectsWithoutMutation(t *testing.T) {
	alice := mustKey(t)
	pool, op := seedPool(t, alice, 100)

	h := New(pool)
	bad := spendTx(t, alice, op, tx.Output{Value: 200, PubKey: alice.PublicKey()})

	if err := h.ApplyIfValid(bad); err == nil {
		t.Fatal("imbalanced tx should be rejected")
	}
	if !h.Pool().Contains(op) {
		t.Error("rejected tx must not mutate the pool")
	}
}

func TestHandler_HandleBatch_ConflictFirstWins(t *testing.T) {
	alice := mustKey(t)
	bob := mustKey(t)
	carol := mustKey(t)
	pool, op := seedPool(t, alice, 100)

	h := New(pool)

	toBob := spendTx(t, alice, op, tx.Output{Value: 100, PubKey: bob.PublicKey()})
	toCarol := spendTx(t, alice, op, tx.Output{Value: 100, PubKey: carol.PublicKey()})

	accepted := h.HandleBatch([]*tx.Transaction{toBob, toCarol})
	if len(accepted) != 1 {
		t.Fatalf("accepted %d txs, want 1", len(accepted))
	}
	if accepted[0].Hash() != toBob.Hash() {
		t.Error("first conflicting tx should win")
	}
}

func TestHandler_HandleBatch_ChainInOrder(t *testing.T) {
	alice := mustKey(t)
	bob := mustKey(t)
	pool, op := seedPool(t, alice, 100)

	h := New(pool)

	t1 := spendTx(t, alice, op, tx.Output{Value: 100, PubKey: bob.PublicKey()})
	t2 := spendTx(t, bob, types.Outpoint{TxID: t1.Hash(), Index: 0},
		tx.Output{Value: 100, PubKey: alice.PublicKey()})

	accepted := h.HandleBatch([]*tx.Transaction{t1, t2})
	if len(accepted) != 2 {
		t.Fatalf("accepted %d txs, want 2", len(accepted))
	}
}

func TestHandler_HandleBatch_ChainOutOfOrder(t *testing.T) {
	// A single pass over the batch means a tx spending an output that a
	// later candidate creates is rejected, even though a second pass
	// would accept it.
	alice := mustKey(t)
	bob := mustKey(t)
	pool, op := seedPool(t, alice, 100)

	h := New(pool)

	t1 := spendTx(t, alice, op, tx.Output{Value: 100, PubKey: bob.PublicKey()})
	t2 := spendTx(t, bob, types.Outpoint{TxID: t1.Hash(), Index: 0},
		tx.Output{Value: 100, PubKey: alice.PublicKey()})

	accepted := h.HandleBatch([]*tx.Transaction{t2, t1})
	if len(accepted) != 1 {
		t.Fatalf("accepted %d txs, want 1", len(accepted))
	}
	if accepted[0].Hash() != t1.Hash() {
		t.Error("only the in-order tx should be accepted")
	}
}

func TestHandler_HandleBatch_Empty(t *testing.T) {
	h := New(nil)

	accepted := h.HandleBatch(nil)
	if accepted == nil {
		t.Fatal("accepted slice should be non-nil")
	}
	if len(accepted) != 0 {
		t.Fatalf("accepted %d txs from empty batch", len(accepted))
	}
}

func TestHandler_HandleBatch_SkipsNil(t *testing.T) {
	alice := mustKey(t)
	pool, op := seedPool(t, alice, 100)

	h := New(pool)
	good := spendTx(t, alice, op, tx.Output{Value: 100, PubKey: alice.PublicKey()})

	accepted := h.HandleBatch([]*tx.Transaction{nil, good, nil})
	if len(accepted) != 1 {
		t.Fatalf("accepted %d txs, want 1", len(accepted))
	}
}

func TestHandler_HandleBatch_PoolSizeDelta(t *testing.T) {
	alice := mustKey(t)
	bob := mustKey(t)
	pool, op := seedPool(t, alice, 100)

	h := New(pool)

	// One input consumed, three outputs created: net +2.
	split := spendTx(t, alice, op,
		tx.Output{Value: 50, PubKey: bob.PublicKey()},
		tx.Output{Value: 30, PubKey: bob.PublicKey()},
		tx.Output{Value: 20, PubKey: alice.PublicKey()})

	before := h.Pool().Len()
	h.HandleBatch([]*tx.Transaction{split})
	after := h.Pool().Len()

	if after-before != 2 {
		t.Errorf("pool size delta = %d, want 2", after-before)
	}
}

func TestHandler_HandleBatch_MixedValidity(t *testing.T) {
	alice := mustKey(t)
	bob := mustKey(t)
	mallory := mustKey(t)
	pool := utxo.NewPool()

	op1 := types.Outpoint{TxID: crypto.Hash([]byte("fund-1")), Index: 0}
	op2 := types.Outpoint{TxID: crypto.Hash([]byte("fund-2")), Index: 0}
	pool.Add(op1, tx.Output{Value: 100, PubKey: alice.PublicKey()})
	pool.Add(op2, tx.Output{Value: 50, PubKey: bob.PublicKey()})

	h := New(pool)

	good := spendTx(t, alice, op1, tx.Output{Value: 100, PubKey: bob.PublicKey()})
	forged := spendTx(t, mallory, op2, tx.Output{Value: 50, PubKey: mallory.PublicKey()})
	imbalanced := spendTx(t, bob, op2, tx.Output{Value: 60, PubKey: bob.PublicKey()})

	accepted := h.HandleBatch([]*tx.Transaction{good, forged, imbalanced})
	if len(accepted) != 1 {
		t.Fatalf("accepted %d txs, want 1", len(accepted))
	}
	if accepted[0].Hash() != good.Hash() {
		t.Error("only the honest tx should be accepted")
	}

	// op2 survives untouched by the two rejected spends.
	if !h.Pool().Contains(op2) {
		t.Error("rejected spends must not consume the pool entry")
	}
}

func TestHandler_HandleBatch_MultiOwnerInputs(t *testing.T) {
	alice := mustKey(t)
	bob := mustKey(t)
	carol := mustKey(t)
	pool := utxo.NewPool()

	opA := types.Outpoint{TxID: crypto.Hash([]byte("fund-a")), Index: 0}
	opB := types.Outpoint{TxID: crypto.Hash([]byte("fund-b")), Index: 0}
	pool.Add(opA, tx.Output{Value: 70, PubKey: alice.PublicKey()})
	pool.Add(opB, tx.Output{Value: 30, PubKey: bob.PublicKey()})

	h := New(pool)

	keys := map[types.Outpoint]*crypto.PrivateKey{opA: alice, opB: bob}
	b := tx.NewBuilder().AddInput(opA).AddInput(opB).AddOutput(100, carol.PublicKey())
	if err := b.SignFor(func(op types.Outpoint) *crypto.PrivateKey { return keys[op] }); err != nil {
		t.Fatalf("sign: %v", err)
	}
	joint := b.Build()

	accepted := h.HandleBatch([]*tx.Transaction{joint})
	if len(accepted) != 1 {
		t.Fatalf("accepted %d txs, want 1", len(accepted))
	}
	if h.Pool().Len() != 1 {
		t.Errorf("pool size = %d, want 1", h.Pool().Len())
	}
}
