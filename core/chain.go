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
	`fmt`
	`sync`
	`sync/atomic`

	`gossipchain/chainerr`
	`gossipchain/store`
)

// Chain owns a shared store.Store handle, an in-memory tip hash guarded by
// a reader-writer lock, and an atomic height counter, per spec.md §4.3/§5.
// This replaces the teacher's BlockChain (core/blockchain.go), which held
// the tip as a plain unguarded []byte and the db directly; here the store
// is abstracted behind store.Store so Chain never touches boltdb directly.
type Chain struct {
	st store.Store

	tipMu sync.RWMutex
	tip   string // hex; "" when the chain is empty

	height uint64 // atomic
}

// Open loads an existing chain's tip/height from st, or returns an empty
// Chain if st has never held one.
func Open(st store.Store) (*Chain, error) {
	chain := &Chain{st: st}
	tip, err := st.GetTip()
	if err == store.ErrNotFound {
		return chain, nil
	}
	if err != nil {
		return nil, err
	}
	height, err := st.GetHeight()
	if err != nil {
		return nil, err
	}
	chain.tip = tip
	chain.height = height
	return chain, nil
}

// Tip returns the current tip hash ("" if the chain is empty).
func (chain *Chain) Tip() string {
	chain.tipMu.RLock()
	defer chain.tipMu.RUnlock()
	return chain.tip
}

// Height returns the current chain height (0 if the chain is empty).
func (chain *Chain) Height() uint64 {
	return atomic.LoadUint64(&chain.height)
}

// IsEmpty reports whether the chain has no blocks yet.
func (chain *Chain) IsEmpty() bool {
	return chain.Tip() == ""
}

// advance persists block under hash and moves tip/height forward together,
// under the tip lock so readers of Tip()/Height() never observe one
// without the other (spec.md §5's "updated together in one critical
// section for writers").
func (chain *Chain) advance(block *Block, height uint64) error {
	data, err := block.Serialize()
	if err != nil {
		return err
	}
	chain.tipMu.Lock()
	defer chain.tipMu.Unlock()
	if err := chain.st.UpdateBlocks(block.Hash, data, height); err != nil {
		return err
	}
	chain.tip = block.Hash
	atomic.StoreUint64(&chain.height, height)
	return nil
}

// CreateGenesis builds and persists the genesis block: a single coinbase
// transaction to addr, mined at bits. Height becomes 1.
func (chain *Chain) CreateGenesis(addr string, bits uint8) (*Block, error) {
	coinbaseTx, err := NewCoinbaseTx(addr)
	if err != nil {
		return nil, err
	}
	genesis := NewGenesisBlock(coinbaseTx, bits)
	if err := chain.advance(genesis, 1); err != nil {
		return nil, err
	}
	return genesis, nil
}

// Mining verifies every transaction in txs (each must Verify against
// chain), builds a block on top of the current tip, runs PoW, persists it,
// and advances tip/height. It returns chainerr.ErrInvalidTransaction
// wrapped with the offending transaction's id if verification fails,
// rather than the teacher's log.Panic.
func (chain *Chain) Mining(txs []*Transaction, bits uint8) (*Block, error) {
	for _, tx := range txs {
		ok, err := tx.Verify(chain.lookupTransaction)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("transaction %s: %w: signature verification failed", tx.Id, chainerr.ErrInvalidTransaction)
		}
	}

	block := NewBlock(txs, chain.Tip(), bits)
	if err := chain.advance(block, chain.Height()+1); err != nil {
		return nil, err
	}
	return block, nil
}

// AddBlock is idempotent: if the store already holds a block with this
// hash, it does nothing; otherwise it validates block (PoW, TxsHash, and
// the non-genesis coinbase invariant) and, if that passes, persists it and
// advances tip/height, regardless of whether block.Header.PrevHash
// resolves to a known block (spec.md §9's open question: out-of-order
// blocks are accepted unconditionally once they validate).
func (chain *Chain) AddBlock(block *Block) error {
	_, err := chain.st.GetBlock(block.Hash)
	if err == nil {
		return nil
	}
	if err != store.ErrNotFound {
		return err
	}
	if err := block.Validate(); err != nil {
		return err
	}
	return chain.advance(block, chain.Height()+1)
}

// GetBlock returns the stored block with the given hex hash.
func (chain *Chain) GetBlock(hash string) (*Block, error) {
	data, err := chain.st.GetBlock(hash)
	if err == store.ErrNotFound {
		return nil, fmt.Errorf("block %s: %w: not found", hash, chainerr.ErrStorage)
	}
	if err != nil {
		return nil, err
	}
	return DeserializeBlock(data)
}

// FindTransaction reverse-iterates the chain from the tip and returns the
// first transaction whose Id equals txId.
func (chain *Chain) FindTransaction(txId string) (*Transaction, error) {
	return chain.lookupTransaction(txId)
}

// lookupTransaction backs both FindTransaction and the PrevTxLookup that
// Transaction.Sign/Verify need.
func (chain *Chain) lookupTransaction(txId string) (*Transaction, error) {
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
			if tx.Id == txId {
				return tx, nil
			}
		}
	}
	return nil, fmt.Errorf("transaction %s: %w: not found in chain", txId, chainerr.ErrInvalidTransaction)
}

// DumpBlocks returns every block in forward (genesis-first) order.
func (chain *Chain) DumpBlocks() ([]*Block, error) {
	iter := chain.Iterator()
	var reverse []*Block
	for {
		block, ok, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		reverse = append(reverse, block)
	}
	forward := make([]*Block, len(reverse))
	for i, block := range reverse {
		forward[len(reverse)-1-i] = block
	}
	return forward, nil
}

// ChainIterator walks a Chain from its tip back to genesis, one block per
// Next call, resolving prev_hash links through the store. Grounded on the
// teacher's IterOnChain (core/blockchain.go), generalized to return errors
// instead of log.Panic and to signal end-of-chain with an explicit bool.
type ChainIterator struct {
	curHash string
	st      store.Store
}

// Iterator returns a fresh reverse iterator starting at chain's current
// tip.
func (chain *Chain) Iterator() *ChainIterator {
	return &ChainIterator{curHash: chain.Tip(), st: chain.st}
}

// Next returns the next block in reverse-chain order, or ok=false once the
// genesis block (empty PrevHash) has already been returned, or the chain
// is empty.
func (iter *ChainIterator) Next() (*Block, bool, error) {
	if iter.curHash == "" {
		return nil, false, nil
	}
	data, err := iter.st.GetBlock(iter.curHash)
	if err != nil {
		return nil, false, err
	}
	block, err := DeserializeBlock(data)
	if err != nil {
		return nil, false, err
	}
	iter.curHash = block.Header.PrevHash
	return block, true, nil
}
