package types

import (
	"strings"
	"testing"
)

func TestOutpoint_String(t *testing.T) {
	o := Outpoint{
		TxID:  Hash{0xab},
		Index: 3,
	}
	s := o.String()

	// Should contain the txid hex and :index
	if !strings.HasPrefix(s, "ab") {
		t.Errorf("String() should start with txid hex, got %s", s)
	}
	if !strings.HasSuffix(s, ":3") {
		t.Errorf("String() should end with ':3', got %s", s)
	}
}

func TestOutpoint_MapKey(t *testing.T) {
	a := Outpoint{TxID: Hash{0x01}, Index: 0}
	b := Outpoint{TxID: Hash{0x01}, Index: 0}
	c := Outpoint{TxID: Hash{0x01}, Index: 1}
	d := Outpoint{TxID: Hash{0x02}, Index: 0}

	m := map[Outpoint]int{a: 1}
	if m[b] != 1 {
		t.Error("outpoints with equal fields should be the same map key")
	}
	if _, ok := m[c]; ok {
		t.Error("outpoints differing in index should be distinct keys")
	}
	if _, ok := m[d]; ok {
		t.Error("outpoints differing in txid should be distinct keys")
	}
}
