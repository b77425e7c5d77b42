package types

import "fmt"

// Outpoint identifies an unspent transaction output: the hash of the
// transaction that produced it and the output's position within that
// transaction. Two outpoints are equal iff both fields match, which makes
// Outpoint usable directly as a map key.
type Outpoint struct {
	TxID  Hash   `json:"txid"`
	Index uint32 `json:"index"`
}

// String returns "txid:index" in hex.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.String(), o.Index)
}
