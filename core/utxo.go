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
	`encoding/gob`
	`fmt`

	`gossipchain/chainerr`
	`gossipchain/store`
)

// UTXOIndex is the derived, rebuildable view over the chain's unspent
// outputs (C7, spec.md §4.5). Grounded on the teacher's UTXOSet
// (core/utxo.go), generalized to go through store.Store rather than a raw
// *bolt.DB and to return errors instead of log.Panic.
type UTXOIndex struct {
	st store.Store
}

// NewUTXOIndex wraps st.
func NewUTXOIndex(st store.Store) *UTXOIndex {
	return &UTXOIndex{st: st}
}

// SerializeOutputs gob-encodes a slice of TxOutput for persistence under
// one utxos:<txid> key.
func SerializeOutputs(outs []TxOutput) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(outs); err != nil {
		return nil, fmt.Errorf("serialize utxo outputs: %w: %v", chainerr.ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

// DeserializeOutputs reverses SerializeOutputs.
func DeserializeOutputs(data []byte) ([]TxOutput, error) {
	var outs []TxOutput
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&outs); err != nil {
		return nil, fmt.Errorf("deserialize utxo outputs: %w: %v", chainerr.ErrSerialization, err)
	}
	return outs, nil
}

// FindUTXO walks chain from tip to genesis, accumulating for each txid the
// outputs not referenced by any later-iterated (i.e. later-in-chain)
// input, per spec.md §4.5's algorithm. Each unspent output is included
// exactly once: the teacher's own core/blockchain.go copy of this
// algorithm (the "continue Outputs" labeled loop) already avoids the
// once-per-spent-index duplicate-emission defect spec.md §4.5 and §9
// describe in the original source; this rewrite keeps that same
// corrected shape rather than reintroducing the bug to later "fix" it.
func FindUTXO(chain *Chain) (map[string][]TxOutput, error) {
	utxo := make(map[string][]TxOutput)
	spent := make(map[string][]int)

	iter := chain.Iterator()
	for {
		block, ok, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		for _, tx := range block.Transactions {
		Outputs:
			for outIdx, out := range tx.Vout {
				for _, spentIdx := range spent[tx.Id] {
					if outIdx == spentIdx {
						continue Outputs
					}
				}
				utxo[tx.Id] = append(utxo[tx.Id], out)
			}
			if !tx.IsCoinbase() {
				for _, in := range tx.Vin {
					spent[in.TxId] = append(spent[in.TxId], in.Vout)
				}
			}
		}
	}
	return utxo, nil
}

// Reindex clears the persisted UTXO set and rebuilds it wholesale from
// chain. Must be re-run after any change to the chain (spec.md §4.5).
func (idx *UTXOIndex) Reindex(chain *Chain) error {
	if err := idx.st.ClearUTXOSet(); err != nil {
		return err
	}
	utxo, err := FindUTXO(chain)
	if err != nil {
		return err
	}
	for txid, outs := range utxo {
		data, err := SerializeOutputs(outs)
		if err != nil {
			return err
		}
		if err := idx.st.WriteUTXO(txid, data); err != nil {
			return err
		}
	}
	return nil
}

// FindSpendableOutputs scans the persisted UTXO set for outputs locked to
// pubKeyHash, greedily accumulating until the running total reaches
// amount, and returns that total plus the set of (txid -> output indices)
// selected.
func (idx *UTXOIndex) FindSpendableOutputs(pubKeyHash []byte, amount int32) (int32, map[string][]int, error) {
	set, err := idx.st.GetUTXOSet()
	if err != nil {
		return 0, nil, err
	}
	unspent := make(map[string][]int)
	var accumulated int32

	for txid, data := range set {
		if accumulated >= amount {
			break
		}
		outs, err := DeserializeOutputs(data)
		if err != nil {
			return 0, nil, err
		}
		for outIdx, out := range outs {
			if out.IsLockedWithKey(pubKeyHash) && accumulated < amount {
				accumulated += out.Value
				unspent[txid] = append(unspent[txid], outIdx)
			}
		}
	}
	return accumulated, unspent, nil
}

// FindUTXOFor returns every persisted unspent output locked to pubKeyHash.
func (idx *UTXOIndex) FindUTXOFor(pubKeyHash []byte) ([]TxOutput, error) {
	set, err := idx.st.GetUTXOSet()
	if err != nil {
		return nil, err
	}
	var out []TxOutput
	for _, data := range set {
		outs, err := DeserializeOutputs(data)
		if err != nil {
			return nil, err
		}
		for _, o := range outs {
			if o.IsLockedWithKey(pubKeyHash) {
				out = append(out, o)
			}
		}
	}
	return out, nil
}

// GetBalance sums the value of every persisted UTXO locked to pubKey's
// hash.
func (idx *UTXOIndex) GetBalance(pubKey []byte) (int32, error) {
	outs, err := idx.FindUTXOFor(HashPubKey(pubKey))
	if err != nil {
		return 0, err
	}
	var total int32
	for _, o := range outs {
		total += o.Value
	}
	return total, nil
}

// CountTxs returns the number of distinct txids currently tracked in the
// persisted UTXO set.
func (idx *UTXOIndex) CountTxs() (int, error) {
	set, err := idx.st.GetUTXOSet()
	if err != nil {
		return 0, err
	}
	return len(set), nil
}
