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
	`crypto/sha256`
	`log`
)

// MerkleNode is a node in a Merkle tree over a block's serialized
// transactions.
type MerkleNode struct {
	Left  *MerkleNode
	Right *MerkleNode
	Data  []byte
}

// NewMerkleNode builds a leaf node from data, or an internal node hashing
// the concatenation of its two children.
func NewMerkleNode(left, right *MerkleNode, data []byte) *MerkleNode {
	node := MerkleNode{}
	if left != nil && right != nil {
		prevHashes := append(left.Data, right.Data...)
		hashedData := sha256.Sum256(prevHashes)
		node.Data = hashedData[:]
	} else if left == nil && right == nil {
		hashedData := sha256.Sum256(data)
		node.Data = hashedData[:]
	} else {
		log.Panic("core: Merkle node's left and right children must be at the same level")
	}
	node.Left, node.Right = left, right
	return &node
}

// MerkleTree organizes leaf data into a binary hash tree.
type MerkleTree struct {
	RootNode *MerkleNode
}

// NewMerkleTree builds a Merkle tree over data, duplicating the last leaf
// when the leaf count is odd.
func NewMerkleTree(data [][]byte) *MerkleTree {
	if len(data) == 0 {
		return &MerkleTree{}
	}
	var nodes []MerkleNode
	if len(data)%2 != 0 {
		data = append(data, data[len(data)-1])
	}
	for _, d := range data {
		nodes = append(nodes, *NewMerkleNode(nil, nil, d))
	}
	for len(nodes) > 1 {
		var level []MerkleNode
		for j := 0; j < len(nodes); j += 2 {
			level = append(level, *NewMerkleNode(&nodes[j], &nodes[j+1], nil))
		}
		nodes = level
	}
	return &MerkleTree{RootNode: &nodes[0]}
}

// merkleRootPlaceholder builds a Merkle tree over block's serialized
// transactions and returns its root hash. This is informational only: it
// is not consulted anywhere in consensus or validation, and it is not the
// same value as Header.TxsHash (a plain SHA3-256 digest of the
// concatenated transactions, computed in hashTransactions). Merkle proofs
// of transaction inclusion are out of scope; this method exists so a
// caller that wants a Merkle root for diagnostics (e.g. a future light
// client) has one available without re-deriving the tree-building logic.
func (block *Block) merkleRootPlaceholder() ([]byte, error) {
	leaves := make([][]byte, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		ser, err := tx.Serialize()
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, ser)
	}
	tree := NewMerkleTree(leaves)
	if tree.RootNode == nil {
		return nil, nil
	}
	return tree.RootNode.Data, nil
}
