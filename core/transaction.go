// Copyright 2021 Hailiang Zhao <hliangzhao@zju.edu.cn>
// This file is part of the lightChain.
//
// The lightChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The lightChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the lightChain. If not, see <http://www.gnu.org/licenses/>.

package core

import (
	`bytes`
	`crypto/ecdsa`
	`crypto/elliptic`
	`crypto/rand`
	`encoding/gob`
	`encoding/hex`
	`fmt`
	`math/big`

	`gossipchain/chainerr`
	`gossipchain/utils`
)

// Subsidy is the fixed reward a coinbase transaction mints for the miner.
const Subsidy int32 = 20

// sigFieldLen is the fixed byte width of each of the two ECDSA P-256
// signature fields (r, s), sized to P-256's 256-bit curve order so that
// concatenating them always yields a 2*sigFieldLen-byte signature
// regardless of leading zero bytes in r or s. The teacher's original
// tx.Sign simply appended r.Bytes() and s.Bytes(), which are *not*
// fixed-width (big.Int.Bytes trims leading zeros) — spec.md §3 calls for
// a fixed-width signature, so this rewrite pads both halves explicitly.
const sigFieldLen = 32

// Transaction moves value between UTXOs. Id is the SHA3-256 digest of the
// transaction with Id itself cleared, taken when the transaction is built;
// for a spend that is before its inputs are signed, so Id does not cover
// the signatures.
type Transaction struct {
	Id   string // hex
	Vin  []TxInput
	Vout []TxOutput
}

// TxInput spends one output of a prior transaction.
type TxInput struct {
	TxId      string // hex id of the referenced prior transaction
	Vout      int    // index into that transaction's outputs
	Signature []byte // fixed-width ECDSA P-256 signature over a trimmed-copy digest
	PubKey    []byte // raw spender public key; empty for a coinbase input
}

// TxOutput locks value to the owner of a public key hash.
type TxOutput struct {
	Value      int32
	PubKeyHash []byte // 20-byte RIPEMD-160(SHA-256(pubkey))
}

// Lock sets out's PubKeyHash from a base58 address.
func (out *TxOutput) Lock(address string) error {
	hash, err := PubKeyHashFromAddress(address)
	if err != nil {
		return err
	}
	out.PubKeyHash = hash
	return nil
}

// IsLockedWithKey reports whether out is spendable by the owner of
// pubKeyHash.
func (out *TxOutput) IsLockedWithKey(pubKeyHash []byte) bool {
	return bytes.Equal(out.PubKeyHash, pubKeyHash)
}

// NewTxOutput builds a TxOutput of value locked to address.
func NewTxOutput(value int32, address string) (*TxOutput, error) {
	out := &TxOutput{Value: value}
	if err := out.Lock(address); err != nil {
		return nil, err
	}
	return out, nil
}

// IsCoinbase reports whether tx is a block-subsidy transaction: exactly
// one input, with an empty PubKey.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Vin) == 1 && len(tx.Vin[0].PubKey) == 0
}

// GetId returns tx's hex id, satisfying the mempool.Transaction interface.
func (tx *Transaction) GetId() string {
	return tx.Id
}

// NewCoinbaseTx mints Subsidy to address to as the sole output of a new
// coinbase transaction.
func NewCoinbaseTx(to string) (*Transaction, error) {
	out, err := NewTxOutput(Subsidy, to)
	if err != nil {
		return nil, err
	}
	tx := &Transaction{
		Vin:  []TxInput{{TxId: "", Vout: -1, Signature: nil, PubKey: []byte{}}},
		Vout: []TxOutput{*out},
	}
	digest, err := tx.hash()
	if err != nil {
		return nil, err
	}
	tx.Id = digest
	return tx, nil
}

// UTXOSource is the subset of the UTXO index a new spend needs: the
// spendable outputs of one public-key hash.
type UTXOSource interface {
	FindSpendableOutputs(pubKeyHash []byte, amount int32) (int32, map[string][]int, error)
}

// NewUTXOTransaction builds and signs a transaction spending amount from
// the wallet at fromAddr to toAddr, greedily selecting spendable outputs
// from utxos and adding a change output back to fromAddr when the
// selected total overshoots amount.
func NewUTXOTransaction(wallets *Wallets, fromAddr, toAddr string, amount int32, utxos UTXOSource, prevTxLookup PrevTxLookup) (*Transaction, error) {
	wallet, err := wallets.GetWallet(fromAddr)
	if err != nil {
		return nil, err
	}
	pubKeyHash := HashPubKey(wallet.PubKey)

	total, unspent, err := utxos.FindSpendableOutputs(pubKeyHash, amount)
	if err != nil {
		return nil, err
	}
	if total < amount {
		return nil, fmt.Errorf("sender %s has %d, wants to send %d: %w", fromAddr, total, amount, chainerr.ErrInsufficientFunds)
	}

	var vin []TxInput
	for txId, outIdxs := range unspent {
		for _, outIdx := range outIdxs {
			vin = append(vin, TxInput{TxId: txId, Vout: outIdx, PubKey: wallet.PubKey})
		}
	}

	toOut, err := NewTxOutput(amount, toAddr)
	if err != nil {
		return nil, err
	}
	vout := []TxOutput{*toOut}
	if total > amount {
		changeOut, err := NewTxOutput(total-amount, fromAddr)
		if err != nil {
			return nil, err
		}
		vout = append(vout, *changeOut)
	}

	tx := &Transaction{Vin: vin, Vout: vout}
	digest, err := tx.hash()
	if err != nil {
		return nil, err
	}
	tx.Id = digest

	if err := tx.Sign(wallet.PrivateKey, prevTxLookup); err != nil {
		return nil, err
	}
	return tx, nil
}

// Serialize gob-encodes tx.
func (tx *Transaction) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(tx); err != nil {
		return nil, fmt.Errorf("serialize transaction: %w: %v", chainerr.ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

// DeserializeTransaction reverses Serialize.
func DeserializeTransaction(data []byte) (*Transaction, error) {
	var tx Transaction
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&tx); err != nil {
		return nil, fmt.Errorf("deserialize transaction: %w: %v", chainerr.ErrSerialization, err)
	}
	return &tx, nil
}

// hash returns the hex SHA3-256 digest of tx with Id cleared.
func (tx *Transaction) hash() (string, error) {
	cp := *tx
	cp.Id = ""
	ser, err := cp.Serialize()
	if err != nil {
		return "", err
	}
	digest := utils.Sha3256(ser)
	return hex.EncodeToString(digest[:]), nil
}

// trimmedCopy returns a copy of tx where every input's Signature and
// PubKey are cleared, ready for the per-input PubKey-substitution dance
// in Sign/Verify.
func (tx *Transaction) trimmedCopy() Transaction {
	vin := make([]TxInput, len(tx.Vin))
	for i, in := range tx.Vin {
		vin[i] = TxInput{TxId: in.TxId, Vout: in.Vout, Signature: nil, PubKey: nil}
	}
	vout := make([]TxOutput, len(tx.Vout))
	copy(vout, tx.Vout)
	return Transaction{Id: tx.Id, Vin: vin, Vout: vout}
}

// PrevTxLookup resolves a transaction by hex id, the way Chain.FindTransaction
// does; Sign and Verify depend only on this, not on a concrete Chain, so
// they can be unit tested against a fake.
type PrevTxLookup func(txId string) (*Transaction, error)

// signingDigest reconstructs the exact message that gets signed/verified
// for the inputIdx'th input: a trimmed copy of tx where every input's
// PubKey is empty except inputIdx's, which holds the PubKeyHash of the
// output it spends, re-hashed with Id cleared. This binds the signature to
// the specific previous output being consumed.
func signingDigest(tx *Transaction, inputIdx int, prevTxs map[string]*Transaction) ([]byte, error) {
	cp := tx.trimmedCopy()
	in := tx.Vin[inputIdx]
	prevTx, ok := prevTxs[in.TxId]
	if !ok {
		return nil, fmt.Errorf("input %d references unknown transaction %s: %w", inputIdx, in.TxId, chainerr.ErrInvalidTransaction)
	}
	if in.Vout < 0 || in.Vout >= len(prevTx.Vout) {
		return nil, fmt.Errorf("input %d references out-of-range output %d: %w", inputIdx, in.Vout, chainerr.ErrInvalidTransaction)
	}
	cp.Vin[inputIdx].PubKey = prevTx.Vout[in.Vout].PubKeyHash
	cp.Id = ""
	ser, err := cp.Serialize()
	if err != nil {
		return nil, err
	}
	digest := utils.Sha3256(ser)
	cp.Vin[inputIdx].PubKey = nil
	return digest[:], nil
}

// gatherPrevTxs resolves, via lookup, every prior transaction referenced
// by tx's inputs.
func gatherPrevTxs(tx *Transaction, lookup PrevTxLookup) (map[string]*Transaction, error) {
	prevTxs := make(map[string]*Transaction, len(tx.Vin))
	for _, in := range tx.Vin {
		if _, ok := prevTxs[in.TxId]; ok {
			continue
		}
		prevTx, err := lookup(in.TxId)
		if err != nil {
			return nil, fmt.Errorf("lookup previous transaction %s: %w", in.TxId, err)
		}
		prevTxs[in.TxId] = prevTx
	}
	return prevTxs, nil
}

// Sign signs every non-coinbase input of tx in place.
func (tx *Transaction) Sign(privateKey ecdsa.PrivateKey, lookup PrevTxLookup) error {
	if tx.IsCoinbase() {
		return nil
	}
	prevTxs, err := gatherPrevTxs(tx, lookup)
	if err != nil {
		return err
	}
	for i := range tx.Vin {
		digest, err := signingDigest(tx, i, prevTxs)
		if err != nil {
			return err
		}
		r, s, err := ecdsa.Sign(rand.Reader, &privateKey, digest)
		if err != nil {
			return fmt.Errorf("sign input %d: %v", i, err)
		}
		tx.Vin[i].Signature = append(fixedWidth(r), fixedWidth(s)...)
	}
	return nil
}

// Verify checks every non-coinbase input's signature against its embedded
// PubKey. A coinbase transaction verifies trivially.
func (tx *Transaction) Verify(lookup PrevTxLookup) (bool, error) {
	if tx.IsCoinbase() {
		return true, nil
	}
	prevTxs, err := gatherPrevTxs(tx, lookup)
	if err != nil {
		return false, err
	}
	curve := elliptic.P256()
	for i, in := range tx.Vin {
		if len(in.Signature) != 2*sigFieldLen {
			return false, nil
		}
		digest, err := signingDigest(tx, i, prevTxs)
		if err != nil {
			return false, err
		}
		r := new(big.Int).SetBytes(in.Signature[:sigFieldLen])
		s := new(big.Int).SetBytes(in.Signature[sigFieldLen:])

		if len(in.PubKey) != 2*sigFieldLen {
			return false, nil
		}
		x := new(big.Int).SetBytes(in.PubKey[:sigFieldLen])
		y := new(big.Int).SetBytes(in.PubKey[sigFieldLen:])

		pubKey := ecdsa.PublicKey{Curve: curve, X: x, Y: y}
		if !ecdsa.Verify(&pubKey, digest, r, s) {
			return false, nil
		}
	}
	return true, nil
}

// fixedWidth pads n's big-endian bytes on the left to sigFieldLen bytes.
func fixedWidth(n *big.Int) []byte {
	out := make([]byte, sigFieldLen)
	b := n.Bytes()
	copy(out[sigFieldLen-len(b):], b)
	return out
}

// String formats tx for human-readable `printtx`-style output.
func (tx Transaction) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "transaction %s\n", tx.Id)
	for i, in := range tx.Vin {
		fmt.Fprintf(&b, "  in  #%d: txid=%s vout=%d pubkey=%x sig=%x\n", i, in.TxId, in.Vout, in.PubKey, in.Signature)
	}
	for i, out := range tx.Vout {
		fmt.Fprintf(&b, "  out #%d: value=%d pubkeyhash=%x\n", i, out.Value, out.PubKeyHash)
	}
	return b.String()
}
