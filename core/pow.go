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
	`encoding/hex`
	`log`
	`math/big`

	`gossipchain/utils`
)

// DefaultBits is the difficulty knob used when nobody requests otherwise:
// easy enough to mine in a demo.
const DefaultBits uint8 = 2

// maxNonce bounds the nonce search. Exhausting it without finding a valid
// digest is fatal; in practice no bits value anyone would configure here
// gets remotely close.
const maxNonce = ^uint64(0)

// ProofOfWork searches for a nonce that makes a Block's header hash below
// a bits-derived target.
type ProofOfWork struct {
	block  *Block
	target *big.Int
}

// NewProofOfWork returns the PoW instance for block, with
// target = 1 << (256 - block.Header.Bits).
func NewProofOfWork(block *Block) *ProofOfWork {
	target := big.NewInt(1)
	target.Lsh(target, 256-uint(block.Header.Bits))
	return &ProofOfWork{block: block, target: target}
}

// prepareData joins the header fields (at the given nonce) into the byte
// slice that gets SHA3-256'd.
func (pow *ProofOfWork) prepareData(nonce uint64) []byte {
	prevHash, err := hexDecodeOrEmpty(pow.block.Header.PrevHash)
	if err != nil {
		log.Panic(err)
	}
	txsHash, err := hex.DecodeString(pow.block.Header.TxsHash)
	if err != nil {
		log.Panic(err)
	}
	return bytes.Join(
		[][]byte{
			prevHash,
			txsHash,
			utils.Int64ToBytes(pow.block.Header.Timestamp),
			{pow.block.Header.Bits},
			utils.Uint64ToBytes(nonce),
		},
		[]byte{},
	)
}

// Run finds the first nonce whose SHA3-256 digest, read as a big-endian
// unsigned 256-bit integer, is strictly below the target, and returns that
// nonce and digest.
func (pow *ProofOfWork) Run() (uint64, [32]byte) {
	var hashInt big.Int
	var hash [32]byte
	var nonce uint64

	for {
		hash = utils.Sha3256(pow.prepareData(nonce))
		hashInt.SetBytes(hash[:])
		if hashInt.Cmp(pow.target) < 0 {
			break
		}
		if nonce == maxNonce {
			log.Panic("pow: exhausted the nonce space without finding a valid hash")
		}
		nonce++
	}
	return nonce, hash
}

// Validate reports whether the block's stored Nonce actually produces a
// digest below target.
func (pow *ProofOfWork) Validate() bool {
	hash := utils.Sha3256(pow.prepareData(pow.block.Header.Nonce))
	var hashInt big.Int
	hashInt.SetBytes(hash[:])
	return hashInt.Cmp(pow.target) < 0
}

func hexDecodeOrEmpty(s string) ([]byte, error) {
	if s == "" {
		return []byte{}, nil
	}
	return hex.DecodeString(s)
}
