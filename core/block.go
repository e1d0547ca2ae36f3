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
	`encoding/hex`
	`fmt`
	`time`

	`gossipchain/chainerr`
	`gossipchain/utils`
)

// BlockHeader is the part of a Block that gets hashed for PoW. TxsHash is
// a placeholder digest of the transaction sequence, not a Merkle root:
// Merkle trees over transactions are out of scope (see
// Block.merkleRootPlaceholder for the inert stand-in kept from the
// teacher's merkle_tree.go).
type BlockHeader struct {
	Timestamp int64
	PrevHash  string // hex; empty for the genesis block
	TxsHash   string // hex SHA3-256 of the serialized transaction sequence
	Bits      uint8
	Nonce     uint64
}

// Block is a header, its ordered transactions, and the header's own
// winning hash.
type Block struct {
	Header       BlockHeader
	Transactions []*Transaction
	Hash         string // hex
}

// NewBlock assembles a block over txs on top of prevHash (hex, empty for
// genesis) and runs PoW to completion before returning. bits is the
// difficulty parameter to mine against.
func NewBlock(txs []*Transaction, prevHash string, bits uint8) *Block {
	if len(txs) == 0 {
		panic("core: a block must contain at least one transaction")
	}
	block := &Block{
		Header: BlockHeader{
			Timestamp: time.Now().Unix(),
			PrevHash:  prevHash,
			Bits:      bits,
		},
		Transactions: txs,
	}
	block.Header.TxsHash = hex.EncodeToString(hashTransactions(txs))

	pow := NewProofOfWork(block)
	nonce, hash := pow.Run()
	block.Header.Nonce = nonce
	block.Hash = hex.EncodeToString(hash[:])

	return block
}

// NewGenesisBlock builds the first block of the chain: a single coinbase
// transaction and an empty PrevHash.
func NewGenesisBlock(coinbaseTx *Transaction, bits uint8) *Block {
	return NewBlock([]*Transaction{coinbaseTx}, "", bits)
}

// IsGenesis reports whether block has no predecessor.
func (block *Block) IsGenesis() bool {
	return block.Header.PrevHash == ""
}

// Validate checks the structural invariants spec.md §3 places on a block:
// hex-encoded PrevHash and TxsHash, PoW below target, a correct TxsHash,
// and (for non-genesis blocks) that the first transaction is a coinbase.
func (block *Block) Validate() error {
	if _, err := hexDecodeOrEmpty(block.Header.PrevHash); err != nil {
		return fmt.Errorf("block %s: %w: malformed prev hash: %v", block.Hash, chainerr.ErrSerialization, err)
	}
	if _, err := hex.DecodeString(block.Header.TxsHash); err != nil {
		return fmt.Errorf("block %s: %w: malformed transactions hash: %v", block.Hash, chainerr.ErrSerialization, err)
	}
	if !NewProofOfWork(block).Validate() {
		return fmt.Errorf("block %s: %w: hash does not satisfy the PoW target", block.Hash, chainerr.ErrInvalidTransaction)
	}
	if hex.EncodeToString(hashTransactions(block.Transactions)) != block.Header.TxsHash {
		return fmt.Errorf("block %s: %w: transactions hash mismatch", block.Hash, chainerr.ErrSerialization)
	}
	if !block.IsGenesis() {
		if len(block.Transactions) == 0 || !block.Transactions[0].IsCoinbase() {
			return fmt.Errorf("block %s: %w: first transaction of a non-genesis block must be a coinbase", block.Hash, chainerr.ErrInvalidTransaction)
		}
	}
	return nil
}

// Serialize gob-encodes block.
func (block *Block) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(block); err != nil {
		return nil, fmt.Errorf("serialize block: %w: %v", chainerr.ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

// DeserializeBlock reverses Serialize.
func DeserializeBlock(data []byte) (*Block, error) {
	var block Block
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&block); err != nil {
		return nil, fmt.Errorf("deserialize block: %w: %v", chainerr.ErrSerialization, err)
	}
	return &block, nil
}

// hashTransactions returns SHA3-256 over the concatenation of every
// transaction's own serialized form, in order. This is the TxsHash
// placeholder spec.md calls out explicitly as not a Merkle tree.
func hashTransactions(txs []*Transaction) []byte {
	var buf bytes.Buffer
	for _, tx := range txs {
		ser, err := tx.Serialize()
		if err != nil {
			panic(err)
		}
		buf.Write(ser)
	}
	digest := utils.Sha3256(buf.Bytes())
	return digest[:]
}
