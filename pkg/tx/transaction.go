// Package tx defines transaction types and their canonical encodings.
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/aurumlabs/aurum-ledger/pkg/crypto"
	"github.com/aurumlabs/aurum-ledger/pkg/types"
)

// Transaction spends a set of existing outputs and declares new ones.
// Input and output order is positional: an output's index becomes part of
// the outpoint identifying the UTXO it creates.
type Transaction struct {
	Version uint32   `json:"version"`
	Inputs  []Input  `json:"inputs"`
	Outputs []Output `json:"outputs"`
}

// Input claims a previously created output and carries a signature over
// this transaction's signing bytes for the input's position.
type Input struct {
	PrevOut   types.Outpoint `json:"prevout"`
	Signature []byte         `json:"signature"`
}

// inputJSON is the JSON representation of Input with a hex-encoded signature.
type inputJSON struct {
	PrevOut   types.Outpoint `json:"prevout"`
	Signature *string        `json:"signature"`
}

// MarshalJSON encodes the input with a hex-encoded signature.
func (in Input) MarshalJSON() ([]byte, error) {
	j := inputJSON{PrevOut: in.PrevOut}
	if in.Signature != nil {
		s := hex.EncodeToString(in.Signature)
		j.Signature = &s
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes an input with a hex-encoded signature.
func (in *Input) UnmarshalJSON(data []byte) error {
	var j inputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	in.PrevOut = j.PrevOut
	if j.Signature != nil {
		b, err := hex.DecodeString(*j.Signature)
		if err != nil {
			return err
		}
		in.Signature = b
	}
	return nil
}

// Output assigns a value to an owner credential (a compressed public key).
// Value is in integer base units so conservation arithmetic is exact.
// A negative value is representable on purpose: adversarial batch content
// must be rejected by validation, not made unencodable.
type Output struct {
	Value  int64  `json:"value"`
	PubKey []byte `json:"pubkey"`
}

// outputJSON is the JSON representation of Output with a hex-encoded pubkey.
type outputJSON struct {
	Value  int64   `json:"value"`
	PubKey *string `json:"pubkey"`
}

// MarshalJSON encodes the output with a hex-encoded owner key.
func (out Output) MarshalJSON() ([]byte, error) {
	j := outputJSON{Value: out.Value}
	if out.PubKey != nil {
		p := hex.EncodeToString(out.PubKey)
		j.PubKey = &p
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes an output with a hex-encoded owner key.
func (out *Output) UnmarshalJSON(data []byte) error {
	var j outputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	out.Value = j.Value
	if j.PubKey != nil {
		b, err := hex.DecodeString(*j.PubKey)
		if err != nil {
			return err
		}
		out.PubKey = b
	}
	return nil
}

// Hash computes the transaction ID (BLAKE3 hash of the unsigned encoding).
// Signatures are excluded so the ID is stable across signing.
func (tx *Transaction) Hash() types.Hash {
	return crypto.Hash(tx.UnsignedBytes())
}

// UnsignedBytes returns the canonical signature-free encoding of the whole
// transaction.
// Format: version(4) | input_count(4) | [prevout(36)]... | output_count(4) | [value(8) + pubkey_len(4) + pubkey]...
func (tx *Transaction) UnsignedBytes() []byte {
	var buf []byte

	buf = binary.LittleEndian.AppendUint32(buf, tx.Version)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf = appendPrevOut(buf, in.PrevOut)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = appendOutput(buf, out)
	}

	return buf
}

// SigningBytes returns the canonical bytes an owner signs to authorize the
// input at position i: the version, that input's prevout, and every declared
// output. Covering all outputs binds the signature to where the value goes.
// i must be a valid input index; anything else is caller misuse.
func (tx *Transaction) SigningBytes(i int) []byte {
	var buf []byte

	buf = binary.LittleEndian.AppendUint32(buf, tx.Version)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(i))
	buf = appendPrevOut(buf, tx.Inputs[i].PrevOut)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = appendOutput(buf, out)
	}

	return buf
}

// SigHash returns the 32-byte digest signed for the input at position i.
func (tx *Transaction) SigHash(i int) types.Hash {
	return crypto.Hash(tx.SigningBytes(i))
}

func appendPrevOut(buf []byte, op types.Outpoint) []byte {
	buf = append(buf, op.TxID[:]...)
	return binary.LittleEndian.AppendUint32(buf, op.Index)
}

func appendOutput(buf []byte, out Output) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(out.Value))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(out.PubKey)))
	return append(buf, out.PubKey...)
}

// TotalOutputValue returns the sum of all output values.
// Returns an error if any value is negative or the sum overflows int64.
func (tx *Transaction) TotalOutputValue() (int64, error) {
	var total int64
	for i, out := range tx.Outputs {
		if out.Value < 0 {
			return 0, fmt.Errorf("output %d: negative value %d", i, out.Value)
		}
		if total > math.MaxInt64-out.Value {
			return 0, fmt.Errorf("output value overflow")
		}
		total += out.Value
	}
	return total, nil
}
