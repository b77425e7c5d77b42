package wallet

import (
	"bytes"
	"testing"
)

func testKeystore(t *testing.T) *Keystore {
	t.Helper()
	ks, err := NewKeystore(t.TempDir())
	if err != nil {
		t.Fatalf("NewKeystore: %v", err)
	}
	return ks
}

func TestKeystore_CreateLoad(t *testing.T) {
	ks := testKeystore(t)
	seed := testSeed(t)
	password := []byte("hunter2")

	if err := ks.Create("main", seed, password, fastParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	loaded, err := ks.Load("main", password)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(loaded, seed) {
		t.Error("loaded seed does not match created seed")
	}
}

func TestKeystore_Create_Duplicate(t *testing.T) {
	ks := testKeystore(t)
	seed := testSeed(t)

	if err := ks.Create("main", seed, []byte("pw"), fastParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := ks.Create("main", seed, []byte("pw"), fastParams()); err == nil {
		t.Error("creating an existing wallet should fail")
	}
}

func TestKeystore_Load_WrongPassword(t *testing.T) {
	ks := testKeystore(t)

	if err := ks.Create("main", testSeed(t), []byte("right"), fastParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := ks.Load("main", []byte("wrong")); err == nil {
		t.Error("wrong password should fail")
	}
}

func TestKeystore_Load_Missing(t *testing.T) {
	ks := testKeystore(t)
	if _, err := ks.Load("ghost", []byte("pw")); err == nil {
		t.Error("loading a missing wallet should fail")
	}
}

func TestKeystore_Owners(t *testing.T) {
	ks := testKeystore(t)
	if err := ks.Create("main", testSeed(t), []byte("pw"), fastParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	entry := OwnerEntry{Account: 0, Change: ChangeExternal, Index: 0, Name: "primary", PubKey: "02aabb"}
	if err := ks.AddOwner("main", entry); err != nil {
		t.Fatalf("AddOwner: %v", err)
	}

	// Idempotent re-insert of the same path and pubkey.
	if err := ks.AddOwner("main", entry); err != nil {
		t.Fatalf("AddOwner repeat: %v", err)
	}

	// Same path, different pubkey conflicts.
	conflict := entry
	conflict.PubKey = "03ccdd"
	if err := ks.AddOwner("main", conflict); err == nil {
		t.Error("conflicting owner entry should fail")
	}

	owners, err := ks.ListOwners("main")
	if err != nil {
		t.Fatalf("ListOwners: %v", err)
	}
	if len(owners) != 1 {
		t.Fatalf("got %d owners, want 1", len(owners))
	}
	if owners[0].Name != "primary" {
		t.Errorf("owner name = %q, want %q", owners[0].Name, "primary")
	}
}

func TestKeystore_Indices(t *testing.T) {
	ks := testKeystore(t)
	if err := ks.Create("main", testSeed(t), []byte("pw"), fastParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	idx, err := ks.NextOwnerIndex("main")
	if err != nil {
		t.Fatalf("NextOwnerIndex: %v", err)
	}
	if idx != 0 {
		t.Errorf("fresh owner index = %d, want 0", idx)
	}

	if err := ks.AdvanceOwnerIndex("main"); err != nil {
		t.Fatalf("AdvanceOwnerIndex: %v", err)
	}
	idx, err = ks.NextOwnerIndex("main")
	if err != nil {
		t.Fatalf("NextOwnerIndex: %v", err)
	}
	if idx != 1 {
		t.Errorf("owner index after advance = %d, want 1", idx)
	}

	if err := ks.AdvanceChangeIndex("main"); err != nil {
		t.Fatalf("AdvanceChangeIndex: %v", err)
	}
	cidx, err := ks.NextChangeIndex("main")
	if err != nil {
		t.Fatalf("NextChangeIndex: %v", err)
	}
	if cidx != 1 {
		t.Errorf("change index after advance = %d, want 1", cidx)
	}
}

func TestKeystore_ListDelete(t *testing.T) {
	ks := testKeystore(t)
	seed := testSeed(t)

	for _, name := range []string{"alpha", "beta"} {
		if err := ks.Create(name, seed, []byte("pw"), fastParams()); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	names, err := ks.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("got %d wallets, want 2", len(names))
	}

	if err := ks.Delete("alpha"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	names, err = ks.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 1 || names[0] != "beta" {
		t.Errorf("after delete, wallets = %v, want [beta]", names)
	}

	if err := ks.Delete("alpha"); err == nil {
		t.Error("deleting a missing wallet should fail")
	}
}
